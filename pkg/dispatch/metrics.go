package dispatch

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandsProcessedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feox_commands_processed_total",
	Help: "Total number of commands dispatched, by command name.",
}, []string{"command"})

// commandCounter is a thin wrapper so Dispatcher can report a single aggregate figure for INFO's
// total_commands_processed without re-summing the Prometheus vector on every INFO call. Inc is called
// concurrently by every connection's worker goroutine, so the tally itself needs to be atomic even though
// the Prometheus vector already handles its own internal synchronization.
type commandCounter struct {
	total atomic.Uint64
}

func (c *commandCounter) Inc(name string) {
	commandsProcessedMetric.WithLabelValues(name).Inc()
	c.total.Add(1)
}

func (c *commandCounter) Total() uint64 {
	return c.total.Load()
}

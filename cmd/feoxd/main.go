// Spins up the feox server, compatible w/ the Redis (RESP2) wire protocol.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mehrantsi/feox/pkg/config"
	"github.com/mehrantsi/feox/pkg/dispatch"
	"github.com/mehrantsi/feox/pkg/keyspace"
	"github.com/mehrantsi/feox/pkg/pubsub"
	"github.com/mehrantsi/feox/pkg/registry"
	"github.com/mehrantsi/feox/pkg/server"
	"github.com/mehrantsi/feox/pkg/utils"
)

var printVersion = flag.Bool("print_version", false, "Print the version and exit.")

// Exit codes per §6: 0 clean shutdown, 1 startup failure, 2 fatal runtime error.
const (
	exitOK = iota
	exitStartupFailure
	exitRuntimeError
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		return exitStartupFailure
	}
	utils.InitLogging(cfg.LogHandler, cfg.LogLevel)

	if *printVersion {
		slog.Info("feox build info.", "version", utils.Version, "commit", utils.Commit, "build", utils.BuildTime)
		return exitOK
	}

	store := keyspace.NewStore(keyspace.DefaultShardCount)
	hub := pubsub.NewHub()
	reg := registry.NewRegistry()
	d := dispatch.NewDispatcher(store, hub, reg, cfg.RequirePass, int(cfg.Port))

	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	srv, err := server.New(addr, d, reg, cfg.Threads)
	if err != nil {
		slog.Error("failed to start feox server.", "err", err)
		return exitStartupFailure
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	go func() {
		sig := <-signals
		slog.Info("received termination signal, cancelling server context.", "signal", sig)
		cancel()
	}()

	slog.Info("feox server listening.", "addr", addr, "threads", cfg.Threads)
	if err := srv.Serve(ctx); err != nil {
		slog.Error("feox server stopped.", "err", err)
		return exitRuntimeError
	}
	return exitOK
}

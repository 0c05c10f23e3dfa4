package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAssignsMonotonicIDs(t *testing.T) {
	reg := NewRegistry()
	r1 := reg.Register("127.0.0.1:1111", time.Now())
	r2 := reg.Register("127.0.0.1:2222", time.Now())

	assert.Less(t, r1.ID, r2.ID)
	assert.Equal(t, 2, reg.Count())
}

func TestRegistry_UnregisterRemovesRecord(t *testing.T) {
	reg := NewRegistry()
	r := reg.Register("127.0.0.1:1111", time.Now())
	reg.Unregister(r)
	assert.Equal(t, 0, reg.Count())
}

func TestRegistry_ListFormatsExpectedFields(t *testing.T) {
	reg := NewRegistry()
	r := reg.Register("127.0.0.1:1111", time.Now())
	r.SetName("myclient")
	r.NoteCommand("GET", time.Now())

	lines := reg.List(time.Now())
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "addr=127.0.0.1:1111")
	assert.Contains(t, lines[0], "name=myclient")
	assert.Contains(t, lines[0], "cmd=GET")
	assert.Contains(t, lines[0], "sub=0 psub=0")
}

func TestRegistry_KillByID(t *testing.T) {
	reg := NewRegistry()
	r1 := reg.Register("127.0.0.1:1111", time.Now())
	reg.Register("127.0.0.1:2222", time.Now())

	killed := reg.Kill(KillSelector{ID: &r1.ID})
	assert.Equal(t, 1, killed)
	assert.True(t, r1.KillPending())
}

func TestRegistry_KillByType(t *testing.T) {
	reg := NewRegistry()
	r1 := reg.Register("127.0.0.1:1111", time.Now())
	r2 := reg.Register("127.0.0.1:2222", time.Now())
	r2.SetMode(Subscribed)

	killed := reg.Kill(KillSelector{Type: "pubsub"})
	assert.Equal(t, 1, killed)
	assert.False(t, r1.KillPending())
	assert.True(t, r2.KillPending())
}

func TestRegistry_PauseAndUnpause(t *testing.T) {
	reg := NewRegistry()
	now := time.Now()

	assert.False(t, reg.Paused(now))
	reg.Pause(1000, now)
	assert.True(t, reg.Paused(now.Add(500*time.Millisecond)))
	assert.False(t, reg.Paused(now.Add(2*time.Second)))

	reg.Pause(10000, now)
	reg.Unpause()
	assert.False(t, reg.Paused(now))
}

func TestRecord_SubscriptionTracking(t *testing.T) {
	r := &Record{}
	r.TrackSubscribe("c1", false)
	r.TrackSubscribe("p*", true)

	ch, pat := r.SubCount()
	assert.Equal(t, 1, ch)
	assert.Equal(t, 1, pat)

	r.TrackUnsubscribeAll()
	ch, pat = r.SubCount()
	assert.Equal(t, 0, ch)
	assert.Equal(t, 0, pat)
}

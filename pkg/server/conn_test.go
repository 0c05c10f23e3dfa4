package server

import (
	"bufio"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehrantsi/feox/pkg/dispatch"
	"github.com/mehrantsi/feox/pkg/keyspace"
	"github.com/mehrantsi/feox/pkg/pubsub"
	"github.com/mehrantsi/feox/pkg/registry"
)

// newTestServeConn wires a Conn to one end of an in-memory net.Pipe, running its serve loop on a goroutine
// exactly the way Server.handle does, and hands the test the other end plus the Dispatcher so it can both
// write raw RESP bytes in and read raw RESP bytes back, and drive Dispatch-level side effects (PUBLISH)
// directly.
func newTestServeConn(t *testing.T, requirePass string) (client net.Conn, d *dispatch.Dispatcher, rec *registry.Record) {
	t.Helper()
	store := keyspace.NewStore(0)
	t.Cleanup(store.Close)
	reg := registry.NewRegistry()
	d = dispatch.NewDispatcher(store, pubsub.NewHub(), reg, requirePass, 6380)

	serverSide, clientSide := net.Pipe()
	rec = reg.Register(serverSide.RemoteAddr().String(), d.Now())
	rec.Authorized.Store(requirePass == "")

	conn := newConn(serverSide, rec)
	go conn.serve(d)
	t.Cleanup(func() { _ = clientSide.Close() })

	return clientSide, d, rec
}

func readN(t *testing.T, r *bufio.Reader, n int) string {
	t.Helper()
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := r.Read(buf[read:])
		require.NoError(t, err)
		read += m
	}
	return string(buf)
}

// TestConn_ScenarioA_SetGet reproduces spec scenario A end to end over the wire: a SET, whose +OK is read
// before the GET is written, then a GET that returns the bulk string, with no extra bytes in between.
func TestConn_ScenarioA_SetGet(t *testing.T) {
	client, _, _ := newTestServeConn(t, "")
	r := bufio.NewReader(client)

	_, err := client.Write([]byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "+OK\r\n", readN(t, r, len("+OK\r\n")))

	_, err = client.Write([]byte("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "$1\r\nv\r\n", readN(t, r, len("$1\r\nv\r\n")))
}

// TestConn_ScenarioF_PipelinedSets reproduces spec scenario F: three SETs written back to back without
// waiting for replies must produce exactly three "+OK\r\n" frames concatenated, in order.
func TestConn_ScenarioF_PipelinedSets(t *testing.T) {
	client, _, _ := newTestServeConn(t, "")
	r := bufio.NewReader(client)

	one := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\n1\r\n"
	_, err := client.Write([]byte(one + one + one))
	require.NoError(t, err)

	assert.Equal(t, "+OK\r\n+OK\r\n+OK\r\n", readN(t, r, len("+OK\r\n")*3))
}

// TestConn_ScenarioE_AuthGate reproduces spec scenario E over the wire: commands before AUTH get NOAUTH,
// and the connection is usable after a successful AUTH.
func TestConn_ScenarioE_AuthGate(t *testing.T) {
	client, _, _ := newTestServeConn(t, "secret")
	r := bufio.NewReader(client)

	_, err := client.Write([]byte("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"))
	require.NoError(t, err)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "NOAUTH")

	_, err = client.Write([]byte("*2\r\n$4\r\nAUTH\r\n$6\r\nsecret\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "+OK\r\n", readN(t, r, len("+OK\r\n")))

	_, err = client.Write([]byte("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "$-1\r\n", readN(t, r, len("$-1\r\n")))
}

// TestConn_SubscribeWireFraming_IsFlat is the end-to-end counterpart to the dispatch- and resp-level
// regression tests: a two-channel SUBSCRIBE over an actual connection must arrive as two standalone
// top-level arrays, not one array nested inside another.
func TestConn_SubscribeWireFraming_IsFlat(t *testing.T) {
	client, _, _ := newTestServeConn(t, "")
	r := bufio.NewReader(client)

	_, err := client.Write([]byte("*3\r\n$9\r\nSUBSCRIBE\r\n$2\r\nc1\r\n$2\r\nc2\r\n"))
	require.NoError(t, err)

	want := "*3\r\n$9\r\nsubscribe\r\n$2\r\nc1\r\n:1\r\n" + "*3\r\n$9\r\nsubscribe\r\n$2\r\nc2\r\n:2\r\n"
	got := readN(t, r, len(want))
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "*1\r\n*3\r\n", "must not be wrapped in an outer single-element array")
}

// TestConn_PubSubDeliveryInterleavesBetweenReplies exercises the backpressure/interleaving path: a
// Publish landing while the connection's worker is blocked waiting for the next command must be flushed
// ahead of that next command's own reply, never merged into it — "interleaved only between frames".
func TestConn_PubSubDeliveryInterleavesBetweenReplies(t *testing.T) {
	client, d, _ := newTestServeConn(t, "")
	r := bufio.NewReader(client)

	_, err := client.Write([]byte("*2\r\n$9\r\nSUBSCRIBE\r\n$4\r\nnews\r\n"))
	require.NoError(t, err)
	sub := "*3\r\n$9\r\nsubscribe\r\n$4\r\nnews\r\n:1\r\n"
	assert.Equal(t, sub, readN(t, r, len(sub)))

	// The worker is now blocked in Decode waiting for the next command; Publish only appends to the
	// outbound queue, so this must happen-before the PING write below to guarantee delivery ordering.
	delivered := d.Hub.Publish("news", []byte("hi"))
	require.Equal(t, 1, delivered)

	_, err = client.Write([]byte("*1\r\n$4\r\nPING\r\n"))
	require.NoError(t, err)

	want := "*3\r\n$7\r\nmessage\r\n$4\r\nnews\r\n$2\r\nhi\r\n" + "+PONG\r\n"
	assert.Equal(t, want, readN(t, r, len(want)))
}

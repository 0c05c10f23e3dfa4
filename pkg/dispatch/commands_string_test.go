package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mehrantsi/feox/pkg/resp"
)

// TestDispatch_ScenarioA_SetGetDel reproduces spec scenario A: SET then GET returns the stored value, DEL
// removes it, and a subsequent GET returns the RESP2 null bulk string.
func TestDispatch_ScenarioA_SetGetDel(t *testing.T) {
	d := newTestDispatcher(t, "")
	conn := newTestConn(d)

	assert.Equal(t, resp.OK(), d.Dispatch(command("SET", "k", "v"), conn))
	assert.Equal(t, resp.BulkString([]byte("v")), d.Dispatch(command("GET", "k"), conn))
	assert.Equal(t, resp.Integer(1), d.Dispatch(command("DEL", "k"), conn))
	assert.Equal(t, resp.NullBulk(), d.Dispatch(command("GET", "k"), conn))
}

// TestDispatch_ScenarioB_IncrFromAbsent reproduces spec scenario B: INCR on a key that doesn't exist yet
// treats it as 0 and returns 1, and a second INCR returns 2.
func TestDispatch_ScenarioB_IncrFromAbsent(t *testing.T) {
	d := newTestDispatcher(t, "")
	conn := newTestConn(d)

	assert.Equal(t, resp.Integer(1), d.Dispatch(command("INCR", "counter"), conn))
	assert.Equal(t, resp.Integer(2), d.Dispatch(command("INCR", "counter"), conn))
	assert.Equal(t, resp.BulkString([]byte("2")), d.Dispatch(command("GET", "counter"), conn))
}

// TestDispatch_ScenarioC_WrongType reproduces spec scenario C: SET followed by LPUSH on the same key
// returns WRONGTYPE, and the string value is left untouched.
func TestDispatch_ScenarioC_WrongType(t *testing.T) {
	d := newTestDispatcher(t, "")
	conn := newTestConn(d)

	require := assert.New(t)
	require.Equal(resp.OK(), d.Dispatch(command("SET", "k", "v"), conn))

	reply := d.Dispatch(command("LPUSH", "k", "x"), conn)
	require.True(reply.IsError())
	require.Contains(string(mustBulk(t, reply)), "WRONGTYPE")

	require.Equal(resp.BulkString([]byte("v")), d.Dispatch(command("GET", "k"), conn))
}

func TestDispatch_SetNX_FailsWhenPresent(t *testing.T) {
	d := newTestDispatcher(t, "")
	conn := newTestConn(d)

	assert.Equal(t, resp.OK(), d.Dispatch(command("SET", "k", "v1"), conn))
	assert.Equal(t, resp.NullBulk(), d.Dispatch(command("SET", "k", "v2", "NX"), conn))
	assert.Equal(t, resp.BulkString([]byte("v1")), d.Dispatch(command("GET", "k"), conn))
}

func TestDispatch_AppendAndStrlen(t *testing.T) {
	d := newTestDispatcher(t, "")
	conn := newTestConn(d)

	assert.Equal(t, resp.Integer(5), d.Dispatch(command("APPEND", "k", "hello"), conn))
	assert.Equal(t, resp.Integer(10), d.Dispatch(command("APPEND", "k", "world"), conn))
	assert.Equal(t, resp.Integer(10), d.Dispatch(command("STRLEN", "k"), conn))
	assert.Equal(t, resp.BulkString([]byte("helloworld")), d.Dispatch(command("GET", "k"), conn))
}

package resp

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, r Reply) string {
	t.Helper()
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	enc := NewEncoder(w)
	require.NoError(t, r.Write(enc))
	require.NoError(t, enc.Flush())
	return buf.String()
}

func TestReply_Array_WritesHeaderThenItems(t *testing.T) {
	r := Array([]Reply{BulkString([]byte("a")), Integer(1)})
	assert.Equal(t, "*2\r\n$1\r\na\r\n:1\r\n", encode(t, r))
}

// TestReply_Multi_NoOuterHeader is the byte-level proof that Multi does not nest its items inside an array
// header: each item must appear as its own standalone top-level RESP value, back to back.
func TestReply_Multi_NoOuterHeader(t *testing.T) {
	inner1 := Array([]Reply{BulkString([]byte("subscribe")), BulkString([]byte("c1")), Integer(1)})
	inner2 := Array([]Reply{BulkString([]byte("subscribe")), BulkString([]byte("c2")), Integer(2)})

	got := encode(t, Multi([]Reply{inner1, inner2}))
	want := encode(t, inner1) + encode(t, inner2)
	assert.Equal(t, want, got)

	// The bug this guards against: wrapping the same items in an outer array adds a `*2\r\n` header that
	// must NOT appear in Multi's output.
	nested := encode(t, Array([]Reply{inner1, inner2}))
	assert.NotEqual(t, nested, got)
	assert.NotContains(t, got, "*2\r\n*3\r\n")
}

func TestReply_Multi_Empty(t *testing.T) {
	assert.Equal(t, "", encode(t, Multi(nil)))
}

func TestReply_IsError(t *testing.T) {
	assert.True(t, Error("ERR boom").IsError())
	assert.False(t, OK().IsError())
	assert.False(t, Multi([]Reply{OK()}).IsError())
}

func TestReply_BulkStringOrNull(t *testing.T) {
	assert.Equal(t, NullBulk(), BulkStringOrNull([]byte("x"), false))
	assert.Equal(t, BulkString([]byte("x")), BulkStringOrNull([]byte("x"), true))
}

package resp

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, raw string) []Command {
	t.Helper()
	d := NewDecoder(bufio.NewReader(bytes.NewBufferString(raw)))
	var cmds []Command
	for {
		cmd, err := d.Decode()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if len(cmd.Args) == 0 {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func TestDecoder_Array(t *testing.T) {
	cmds := decodeAll(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
	require.Len(t, cmds, 1)
	assert.Equal(t, [][]byte{[]byte("SET"), []byte("k"), []byte("v")}, cmds[0].Args)
}

func TestDecoder_Pipelined(t *testing.T) {
	raw := "*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n"
	cmds := decodeAll(t, raw)
	require.Len(t, cmds, 3)
	for _, cmd := range cmds {
		assert.Equal(t, [][]byte{[]byte("PING")}, cmd.Args)
	}
}

func TestDecoder_InlineFirstCommandOnly(t *testing.T) {
	d := NewDecoder(bufio.NewReader(bytes.NewBufferString("PING\r\n*1\r\n$4\r\nPING\r\n")))

	cmd, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING")}, cmd.Args)

	cmd, err = d.Decode()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING")}, cmd.Args)
}

func TestDecoder_InlineAfterArrayIsProtocolError(t *testing.T) {
	d := NewDecoder(bufio.NewReader(bytes.NewBufferString("*1\r\n$4\r\nPING\r\nPING\r\n")))

	_, err := d.Decode()
	require.NoError(t, err)

	_, err = d.Decode()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestDecoder_NullBulkArgument(t *testing.T) {
	cmds := decodeAll(t, "*2\r\n$3\r\nGET\r\n$-1\r\n")
	require.Len(t, cmds, 1)
	require.Len(t, cmds[0].Args, 2)
	assert.Nil(t, cmds[0].Args[1])
}

func TestDecoder_RejectsOversizedBulk(t *testing.T) {
	d := NewDecoder(bufio.NewReader(bytes.NewBufferString("*1\r\n$99999999999\r\n")))
	_, err := d.Decode()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestDecoder_RejectsBadBulkTag(t *testing.T) {
	d := NewDecoder(bufio.NewReader(bytes.NewBufferString("*1\r\n#3\r\nfoo\r\n")))
	_, err := d.Decode()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestDecoder_RejectsMalformedTerminator(t *testing.T) {
	d := NewDecoder(bufio.NewReader(bytes.NewBufferString("*1\r\n$3\r\nfooXX")))
	_, err := d.Decode()
	assert.Error(t, err)
}

func TestDecoder_IncrementalChunks(t *testing.T) {
	full := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"
	pr, pw := io.Pipe()
	d := NewDecoder(bufio.NewReader(pr))

	go func() {
		for _, b := range []byte(full) {
			_, _ = pw.Write([]byte{b})
		}
		_ = pw.Close()
	}()

	cmd, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("SET"), []byte("k"), []byte("v")}, cmd.Args)
}

func TestDecoder_EOFBetweenCommandsIsClean(t *testing.T) {
	d := NewDecoder(bufio.NewReader(bytes.NewBufferString("")))
	_, err := d.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

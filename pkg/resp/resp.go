// Package resp implements the RESP2 wire framing used by Redis clients: a decoder that turns an inbound
// byte stream into command tokens (arrays of bulk-string arguments) and an encoder that turns typed reply
// values into outbound bytes. Both halves are hand-built on bufio/net rather than a third-party RESP
// library, since the framing layer is the thing under test here, not a concern to delegate.
package resp

import "errors"

// Limits per the wire protocol: a bulk string payload over 64 MiB or an inline line over 64 KiB is a
// protocol error, fatal to the connection.
const (
	MaxBulkLen   = 64 * 1024 * 1024
	MaxInlineLen = 64 * 1024
)

// ErrProtocol marks any malformed frame. It is always fatal to the connection: the caller must flush
// whatever reply is already encoded and close.
var ErrProtocol = errors.New("resp: protocol error")

// Command is one decoded request: a command name plus its arguments, both still raw bytes. The dispatcher
// owns interpreting them; the codec never inspects argument contents beyond framing.
type Command struct {
	Args [][]byte // Args[0] is the command name.
}

// Name returns the command name, or nil for a degenerate empty command (Decode produces one for a `*0`
// array or an empty inline line).
func (c Command) Name() []byte {
	if len(c.Args) == 0 {
		return nil
	}
	return c.Args[0]
}

package redis

import (
	"github.com/pkg/errors"
)

// ErrClosed rejects command execution on a Conn whose stream has closed
// (after Conn.Close or a disconnect). Pool.Submit does not return it: a
// Pool dials a new connection after Pool.Close.
var ErrClosed = errors.New("redis: client closed")

// ErrConnLost signals connection loss to a request awaiting its reply.
var ErrConnLost = errors.New("redis: connection lost while awaiting response")

// ErrProtocol signals invalid RESP reception; when the read loop hits
// it, the connection is closed. Reply.Bytes also returns it for a reply
// that is not a bulk string, which leaves the connection open.
var ErrProtocol = errors.New("redis: protocol violation")

// ErrNull represents the null bulk reply, returned by Reply.Bytes and
// Reply.Text where a null is not itself meaningful data.
var ErrNull = errors.New("redis: null")

// ErrMisuseInSubscribeMode rejects a non-(un)subscribe command submitted
// on a connection that has already entered subscription mode.
var ErrMisuseInSubscribeMode = errors.New("redis: cannot run normal command over a subscribed connection")

// ErrSubscribeCallbackConflict rejects a subscribe/psubscribe call that
// passes a non-nil callback after the subscription callback has already
// been registered, whether or not it is the same function.
var ErrSubscribeCallbackConflict = errors.New("redis: subscribe callback already set to a different value")

// ServerError is a command response from Redis signaling a server-side
// failure (an Error reply, tag '-'). The Error reply is delivered to the
// originating callback like any other reply, and Reply.AsError converts
// it to a ServerError; the connection remains healthy.
type ServerError string

// Error honors the error interface.
func (e ServerError) Error() string {
	return "redis: server error " + string(e)
}

// Prefix returns the first word of the error, which is conventionally the
// error kind (e.g. "WRONGTYPE", "NOSCRIPT").
func (e ServerError) Prefix() string {
	s := string(e)
	for i, r := range s {
		if r == ' ' {
			return s[:i]
		}
	}
	return s
}

// wrapTransport annotates a transport-level failure (write, read, or
// connect) with the offending connection's address.
func wrapTransport(addr string, err error) error {
	return errors.Wrapf(err, "redis: transport error on %s", addr)
}

package exerciser

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection matches every ConnectionError via errors.Is.
	ErrConnection = errors.New("websocket connection error")

	// ErrSendOnClosed is returned by Conn.WriteText once the connection is closed.
	ErrSendOnClosed = errors.New("send on closed connection")
)

// ConnectionError is a handshake or transport failure. It is logged, never retried.
type ConnectionError struct {
	Endpoint string
	Op       string // "dial", "read" or "write"
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

package exerciser

import "context"

// Conn is an open WebSocket connection as seen by the exerciser.
// The exerciser is its only writer; WriteText and Close are never called concurrently.
type Conn interface {
	// WriteText sends one text frame. After Close it returns ErrSendOnClosed.
	WriteText(ctx context.Context, payload string) error
	Close() error
}

// Dialer opens connections. onError receives transport failures observed after
// the handshake (for example by a background reader); it may be called from
// another goroutine and must not be called after Close returns.
type Dialer interface {
	Dial(ctx context.Context, endpoint string, onError func(error)) (Conn, error)
}

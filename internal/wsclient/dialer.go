// Package wsclient implements the exerciser transport on github.com/coder/websocket.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"wsprobe/internal/core"
	"wsprobe/internal/exerciser"
	"wsprobe/internal/logging"
)

// closeWait bounds how long Close waits for the reader after the close handshake.
const closeWait = 5 * time.Second

// Dialer opens plain RFC 6455 connections: no subprotocols, no custom headers.
type Dialer struct {
	Logger *slog.Logger
	// ReadLimit caps incoming frame size in bytes, 0 keeps the library default.
	ReadLimit int64
}

// Dial performs the handshake and starts a background reader that drains
// incoming frames and reports read failures to onError.
func (d *Dialer) Dial(ctx context.Context, endpoint string, onError func(error)) (exerciser.Conn, error) {
	c, resp, err := websocket.Dial(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, err
	}
	if d.ReadLimit > 0 {
		c.SetReadLimit(d.ReadLimit)
	}

	logger := d.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	conn := &Conn{
		c:       c,
		log:     logger.With("conn", core.ConnIDFromContext(ctx)),
		onError: onError,
		done:    make(chan struct{}),
	}
	go conn.readLoop()
	return conn, nil
}

// Conn is a client connection. WriteText and Close must not be called concurrently.
type Conn struct {
	c       *websocket.Conn
	log     *slog.Logger
	onError func(error)

	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// WriteText sends one text frame.
func (c *Conn) WriteText(ctx context.Context, payload string) error {
	if c.closed.Load() {
		return exerciser.ErrSendOnClosed
	}
	err := c.c.Write(ctx, websocket.MessageText, []byte(payload))
	if err != nil && isClosed(err) {
		return fmt.Errorf("%w: %v", exerciser.ErrSendOnClosed, err)
	}
	return err
}

// Close performs the close handshake with StatusNormalClosure and waits for
// the reader to stop. onError is never called after Close returns.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err := c.c.Close(websocket.StatusNormalClosure, "")
		if err != nil && !isClosed(err) {
			c.closeErr = err
		}
		select {
		case <-c.done:
		case <-time.After(closeWait):
			c.closeErr = errors.Join(c.closeErr, errors.New("reader did not stop after close"))
		}
	})
	return c.closeErr
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		typ, data, err := c.c.Read(context.Background())
		if err != nil {
			if c.closed.Load() {
				return
			}
			if status := websocket.CloseStatus(err); status != -1 {
				err = fmt.Errorf("closed by peer (status %d): %w", status, err)
			}
			if c.onError != nil {
				c.onError(err)
			}
			return
		}
		c.log.Debug("frame received", "type", typ.String(), "bytes", len(data))
	}
}

// isClosed reports whether err means the connection is already gone.
func isClosed(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	return websocket.CloseStatus(err) != -1
}

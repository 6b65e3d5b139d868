package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const DefaultSendTimeout = 5 * time.Second

var (
	ErrConnClosed  = errors.New("connection closed")
	ErrSendTimeout = errors.New("send timed out")
)

// Socket is the write side of a duplex message stream. *websocket.Conn satisfies it.
type Socket interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is one live client channel. It is never reused once closed.
type Conn struct {
	id          uint64
	remoteAddr  string
	openedAt    time.Time
	socket      Socket
	sendTimeout time.Duration

	writeMu   sync.Mutex
	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
}

func NewConn(id uint64, socket Socket, remoteAddr string, sendTimeout time.Duration) *Conn {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Conn{
		id:          id,
		remoteAddr:  remoteAddr,
		openedAt:    time.Now(),
		socket:      socket,
		sendTimeout: sendTimeout,
		done:        make(chan struct{}),
	}
}

func (c *Conn) ID() uint64            { return c.id }
func (c *Conn) RemoteAddr() string    { return c.remoteAddr }
func (c *Conn) OpenedAt() time.Time   { return c.openedAt }
func (c *Conn) State() State          { return State(c.state.Load()) }
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) markOpen() bool {
	return c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// Send writes one text frame. It returns within the send timeout even if the
// underlying socket ignores write deadlines; in that case the conn is closed.
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	if c.State() == StateClosed {
		return ErrConnClosed
	}

	result := make(chan error, 1)
	go func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		if c.State() == StateClosed {
			result <- ErrConnClosed
			return
		}
		_ = c.socket.SetWriteDeadline(time.Now().Add(c.sendTimeout))
		result <- c.socket.WriteMessage(websocket.TextMessage, payload)
	}()

	timer := time.NewTimer(c.sendTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("write conn %d: %w", c.id, err)
		}
		return nil
	case <-timer.C:
		_ = c.Close()
		return fmt.Errorf("conn %d: %w", c.id, ErrSendTimeout)
	case <-ctx.Done():
		// A frame may be half written; the stream is unusable either way.
		_ = c.Close()
		return fmt.Errorf("conn %d: %w", c.id, ctx.Err())
	}
}

// Close is idempotent. Only the first call reaches the socket.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		err = c.socket.Close()
	})
	return err
}

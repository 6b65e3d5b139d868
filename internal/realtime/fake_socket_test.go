package realtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

type fakeSocket struct {
	mu       sync.Mutex
	frames   [][]byte
	writeErr error
	block    chan struct{}
	closed   bool
	closes   int
}

func newFakeSocket() *fakeSocket { return &fakeSocket{} }

// newBlockingSocket returns a socket whose writes hang until release is called,
// ignoring write deadlines.
func newBlockingSocket() *fakeSocket { return &fakeSocket{block: make(chan struct{})} }

func (s *fakeSocket) SetWriteDeadline(time.Time) error { return nil }

func (s *fakeSocket) WriteMessage(_ int, data []byte) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("use of closed connection")
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.frames = append(s.frames, append([]byte(nil), data...))
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closes++
	return nil
}

func (s *fakeSocket) release() {
	if s.block != nil {
		close(s.block)
	}
}

func (s *fakeSocket) Frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = string(f)
	}
	return out
}

func (s *fakeSocket) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func registerFake(t *testing.T, r *Registry, sock *fakeSocket, timeout time.Duration) *Conn {
	t.Helper()
	c := NewConn(r.NextID(), sock, "test", timeout)
	if err := r.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return c
}

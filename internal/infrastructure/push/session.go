package push

import (
	"sync"

	"github.com/gdugdh24/matchcore/internal/infrastructure/metrics"
	"github.com/google/uuid"
)

type OverflowPolicy string

const (
	// DropOldest discards the oldest queued frame to make room for the new one.
	DropOldest OverflowPolicy = "drop_oldest"
	// Disconnect closes a session whose queue is full; the client reconnects and rejoins.
	Disconnect OverflowPolicy = "disconnect"
)

// Session is one authenticated connection. Frames are queued by the hub and written
// by a single writer goroutine, so fan-out never waits on a slow socket.
type Session struct {
	ID     string
	UserID string

	out    chan []byte
	policy OverflowPolicy

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	// topics is guarded by Hub.mu.
	topics map[string]struct{}
}

func NewSession(userID string, queueSize int, policy OverflowPolicy) *Session {
	if queueSize <= 0 {
		queueSize = 1
	}
	if policy == "" {
		policy = DropOldest
	}
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		out:    make(chan []byte, queueSize),
		policy: policy,
		done:   make(chan struct{}),
		topics: make(map[string]struct{}),
	}
}

// Out is drained by the connection writer.
func (s *Session) Out() <-chan []byte { return s.out }

// Done is closed when the session must stop.
func (s *Session) Done() <-chan struct{} { return s.done }

// Enqueue never blocks. It reports false when the frame was not queued.
func (s *Session) Enqueue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.out <- frame:
		return true
	default:
	}

	metrics.EnvelopesDropped.WithLabelValues("session_queue").Inc()
	if s.policy == Disconnect {
		s.closeLocked()
		return false
	}

	select {
	case <-s.out:
	default:
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

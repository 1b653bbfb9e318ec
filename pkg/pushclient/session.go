// Package pushclient is the client side of the push transport: one long-lived
// connection with reconnect, credential refresh and topic replay.
package pushclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gdugdh24/matchcore/pkg/wire"
	"go.uber.org/zap"
)

// ErrAuth marks a rejected handshake. The next attempt fetches a fresh credential.
var ErrAuth = errors.New("push authentication failed")

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	AuthFailed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case AuthFailed:
		return "auth_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CredentialSource returns a bearer token. forceRefresh is set after the server
// rejected the previous one.
type CredentialSource func(ctx context.Context, forceRefresh bool) (string, error)

// Conn is one established socket. WriteMessage is never called concurrently.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

type Options struct {
	Dialer      Dialer
	Credentials CredentialSource

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// DegradedAfter is how long the session may stay down before Degraded reports true.
	DegradedAfter time.Duration

	OnEnvelope    func(env wire.Envelope)
	OnConnected   func(userID string)
	OnStateChange func(state State)

	Logger *zap.Logger
}

func (o *Options) norm() {
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = o.InitialBackoff
	}
	if o.DegradedAfter <= 0 {
		o.DegradedAfter = 15 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Session owns the connection and the locally tracked topic set. The server
// forgets membership on disconnect, so every successful connect replays the
// topics in the order they were first joined.
type Session struct {
	opts Options
	log  *zap.Logger
	now  func() time.Time

	// writeMu serializes socket writes; taken before mu when both are needed.
	writeMu sync.Mutex

	mu        sync.Mutex
	state     State
	conn      Conn
	userID    string
	topics    []string
	downSince time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(opts Options) *Session {
	opts.norm()
	return &Session{
		opts: opts,
		log:  opts.Logger.Named("pushclient"),
		now:  time.Now,
	}
}

// Connect starts the connection loop. It returns false when a loop is already
// running, so repeated calls never start a second attempt.
func (s *Session) Connect(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.downSince = s.now()
	go s.run(ctx, s.done)
	return true
}

// Close stops the loop and waits for it to exit. Topics are kept for a later Connect.
func (s *Session) Close() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID is the id from the last positive connection ack.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Degraded reports a session that has been down longer than DegradedAfter.
// Local state is kept; callers may only show an indicator.
func (s *Session) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Connected || s.downSince.IsZero() {
		return false
	}
	return s.now().Sub(s.downSince) >= s.opts.DegradedAfter
}

func (s *Session) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.topics...)
}

// Join records the topic and, when connected, tells the server. Joining a
// topic twice is a no-op.
func (s *Session) Join(topic string) error {
	if _, _, err := wire.ParseTopic(topic); err != nil {
		return err
	}

	s.mu.Lock()
	for _, t := range s.topics {
		if t == topic {
			s.mu.Unlock()
			return nil
		}
	}
	s.topics = append(s.topics, topic)
	conn := s.liveConnLocked()
	s.mu.Unlock()

	s.send(conn, wire.ClientFrame{Type: wire.FrameJoin, Topic: topic})
	return nil
}

// Leave forgets the topic so it is not replayed. Leaving an unknown topic is a no-op.
func (s *Session) Leave(topic string) {
	s.mu.Lock()
	idx := -1
	for i, t := range s.topics {
		if t == topic {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.topics = append(s.topics[:idx], s.topics[idx+1:]...)
	conn := s.liveConnLocked()
	s.mu.Unlock()

	s.send(conn, wire.ClientFrame{Type: wire.FrameLeave, Topic: topic})
}

func (s *Session) liveConnLocked() Conn {
	if s.state != Connected {
		return nil
	}
	return s.conn
}

// send writes best effort; a broken socket is noticed by the read loop and
// the topic set is replayed on the next connect.
func (s *Session) send(conn Conn, frame wire.ClientFrame) {
	if conn == nil {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(data); err != nil {
		s.log.Debug("write failed", zap.String("type", string(frame.Type)), zap.Error(err))
	}
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.opts.InitialBackoff
	bo.MaxInterval = s.opts.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	forceRefresh := false
	for {
		connected, err := s.connectOnce(ctx, forceRefresh)
		if ctx.Err() != nil {
			s.setState(Disconnected)
			return
		}

		forceRefresh = errors.Is(err, ErrAuth)
		if forceRefresh {
			s.setState(AuthFailed)
		} else {
			s.setState(Disconnected)
		}
		if connected {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		s.log.Info("push session down",
			zap.Error(err),
			zap.Duration("retry_in", wait),
			zap.Bool("refresh_credential", forceRefresh),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.setState(Disconnected)
			return
		case <-timer.C:
		}
	}
}

// connectOnce dials, waits for the connection ack, replays topics and then
// reads until the socket fails. connected reports whether the ack was positive.
func (s *Session) connectOnce(ctx context.Context, forceRefresh bool) (bool, error) {
	s.setState(Connecting)

	token, err := s.opts.Credentials(ctx, forceRefresh)
	if err != nil {
		return false, fmt.Errorf("fetch credential: %w", err)
	}

	conn, err := s.opts.Dialer.Dial(ctx, token)
	if err != nil {
		return false, err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	ack, err := readAck(conn)
	if err != nil {
		_ = conn.Close()
		return false, err
	}

	s.writeMu.Lock()
	s.mu.Lock()
	s.conn = conn
	s.userID = ack.UserID
	s.state = Connected
	s.downSince = time.Time{}
	replay := append([]string(nil), s.topics...)
	s.mu.Unlock()
	for _, topic := range replay {
		data, _ := json.Marshal(wire.ClientFrame{Type: wire.FrameJoin, Topic: topic})
		if err := conn.WriteMessage(data); err != nil {
			break
		}
	}
	s.writeMu.Unlock()

	s.notifyState(Connected)
	if s.opts.OnConnected != nil {
		s.opts.OnConnected(ack.UserID)
	}

	err = s.readLoop(conn)

	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
	return true, err
}

func readAck(conn Conn) (wire.Connection, error) {
	raw, err := conn.ReadMessage()
	if err != nil {
		return wire.Connection{}, fmt.Errorf("read connection ack: %w", err)
	}
	env, err := wire.DecodeEnvelope(raw)
	if err != nil {
		return wire.Connection{}, fmt.Errorf("decode connection ack: %w", err)
	}
	ack, ok := env.Payload.(wire.Connection)
	if !ok {
		return wire.Connection{}, fmt.Errorf("expected connection ack, got %q", env.Type())
	}
	if !ack.Authenticated {
		return wire.Connection{}, fmt.Errorf("%w: %s", ErrAuth, ack.Error)
	}
	return ack, nil
}

func (s *Session) readLoop(conn Conn) error {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleFrame(raw)
	}
}

func (s *Session) handleFrame(raw []byte) {
	typ, err := wire.PeekType(raw)
	if err != nil {
		s.log.Warn("dropping malformed frame", zap.Error(err))
		return
	}

	if wire.IsControlFrame(typ) {
		var frame wire.ControlFrame
		if err := json.Unmarshal(raw, &frame); err == nil && frame.Type == wire.FrameError {
			s.log.Warn("server rejected frame", zap.String("topic", frame.Topic), zap.String("error", frame.Error))
		}
		return
	}

	env, err := wire.DecodeEnvelope(raw)
	if err != nil {
		s.log.Warn("dropping invalid envelope", zap.Error(err))
		return
	}
	if env.Type() == wire.EnvelopeConnection {
		return
	}
	if s.opts.OnEnvelope != nil {
		s.opts.OnEnvelope(env)
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	if state != Connected && prev == Connected {
		s.downSince = s.now()
	}
	s.mu.Unlock()
	if prev != state {
		s.notifyState(state)
	}
}

func (s *Session) notifyState(state State) {
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(state)
	}
}

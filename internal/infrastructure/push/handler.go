package push

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxClientFrame = 4096
	// CloseUnauthorized is sent with the close frame after a negative connection ack.
	CloseUnauthorized = 4401
)

type Options struct {
	QueueSize    int
	Overflow     OverflowPolicy
	PingInterval time.Duration
	WriteTimeout time.Duration
}

func (o *Options) norm() {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.Overflow == "" {
		o.Overflow = DropOldest
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
}

// Authenticator resolves a bearer credential to a user id.
type Authenticator interface {
	Verify(token string) (string, error)
}

// Handler upgrades /ws requests and runs one reader and one writer goroutine per connection.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	opts     Options
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(hub *Hub, auth Authenticator, opts Options, checkOrigin func(r *http.Request) bool, log *zap.Logger) *Handler {
	opts.norm()
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Handler{
		hub:  hub,
		auth: auth,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		log: log.Named("ws"),
	}
}

// ServeWS godoc
// @Summary Push transport
// @Description Upgrades to a websocket. The first server frame is a connection ack envelope.
// @Tags push
// @Param token query string false "Bearer credential when the Authorization header cannot be set"
// @Router /ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	token := security.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	userID, err := h.auth.Verify(token)
	if err != nil {
		h.reject(conn, err)
		return
	}

	s := NewSession(userID, h.opts.QueueSize, h.opts.Overflow)
	ack := domain.NewEnvelope(userID, domain.Connection{
		Authenticated: true,
		UserID:        userID,
		SessionID:     s.ID,
	}, time.Now())
	if frame, err := json.Marshal(ack); err == nil {
		s.Enqueue(frame)
	}

	h.hub.Register(s)
	go h.writePump(conn, s)
	h.readPump(conn, s)
	h.hub.Unregister(s)
}

func (h *Handler) reject(conn *websocket.Conn, cause error) {
	defer conn.Close()

	h.log.Info("push authentication failed", zap.String("remote", conn.RemoteAddr().String()), zap.Error(cause))
	nack := domain.NewEnvelope("", domain.Connection{
		Authenticated: false,
		Error:         "authentication failed",
	}, time.Now())

	deadline := time.Now().Add(h.opts.WriteTimeout)
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(nack); err != nil {
		return
	}
	msg := websocket.FormatCloseMessage(CloseUnauthorized, "unauthorized")
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
}

func (h *Handler) readPump(conn *websocket.Conn, s *Session) {
	pongWait := h.opts.PingInterval * 2
	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.logReadError(s, err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame domain.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reply(s, domain.ControlFrame{Type: domain.FrameError, Error: "malformed frame"})
			continue
		}
		h.handleFrame(s, frame)
	}
}

func (h *Handler) handleFrame(s *Session, frame domain.ClientFrame) {
	switch frame.Type {
	case domain.FrameJoin:
		ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
		err := h.hub.Join(ctx, s, frame.Topic)
		cancel()
		if err != nil {
			h.reply(s, domain.ControlFrame{Type: domain.FrameError, Topic: frame.Topic, Error: err.Error()})
			return
		}
		h.reply(s, domain.ControlFrame{Type: domain.FrameJoined, Topic: frame.Topic})
	case domain.FrameLeave:
		if err := h.hub.Leave(s, frame.Topic); err != nil {
			h.reply(s, domain.ControlFrame{Type: domain.FrameError, Topic: frame.Topic, Error: err.Error()})
			return
		}
		h.reply(s, domain.ControlFrame{Type: domain.FrameLeft, Topic: frame.Topic})
	case domain.FramePing:
		h.reply(s, domain.ControlFrame{Type: domain.FramePong})
	default:
		h.reply(s, domain.ControlFrame{Type: domain.FrameError, Error: "unknown frame type"})
	}
}

func (h *Handler) reply(s *Session, frame domain.ControlFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	s.Enqueue(data)
}

func (h *Handler) writePump(conn *websocket.Conn, s *Session) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-s.Out():
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.log.Debug("write failed", zap.String("session_id", s.ID), zap.Error(err))
				s.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.opts.WriteTimeout)); err != nil {
				s.Close()
				return
			}
		case <-s.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.opts.WriteTimeout))
			return
		}
	}
}

func (h *Handler) logReadError(s *Session, err error) {
	var ne net.Error
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		h.log.Debug("peer closed", zap.String("session_id", s.ID))
	case errors.As(err, &ne) && ne.Timeout():
		h.log.Info("read timeout", zap.String("session_id", s.ID))
	default:
		h.log.Debug("read error", zap.String("session_id", s.ID), zap.Error(err))
	}
}

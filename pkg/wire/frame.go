package wire

// FrameType tags the small control frames exchanged next to envelopes on the push socket.
type FrameType string

const (
	FrameJoin  FrameType = "join"
	FrameLeave FrameType = "leave"
	FramePing  FrameType = "ping"

	FrameJoined FrameType = "joined"
	FrameLeft   FrameType = "left"
	FramePong   FrameType = "pong"
	FrameError  FrameType = "error"
)

// ClientFrame is sent by clients: {"type":"join","topic":"user:42"}.
type ClientFrame struct {
	Type  FrameType `json:"type"`
	Topic string    `json:"topic,omitempty"`
}

// ControlFrame is the server reply to a ClientFrame.
type ControlFrame struct {
	Type  FrameType `json:"type"`
	Topic string    `json:"topic,omitempty"`
	Error string    `json:"error,omitempty"`
}

// IsControlFrame reports whether a server frame type is a control reply rather than an envelope.
func IsControlFrame(typ string) bool {
	switch FrameType(typ) {
	case FrameJoined, FrameLeft, FramePong, FrameError:
		return true
	}
	return false
}

package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// EnvelopeVersion is stamped on every envelope as "v".
const EnvelopeVersion = 1

type EnvelopeType string

const (
	EnvelopeNewLike     EnvelopeType = "new_like"
	EnvelopeMutualMatch EnvelopeType = "mutual_match"
	EnvelopeNewMessage  EnvelopeType = "new_message"
	EnvelopeUserStatus  EnvelopeType = "user_status"
	EnvelopeConnection  EnvelopeType = "connection"
)

// Payload is the closed set of envelope variants.
type Payload interface {
	EnvelopeType() EnvelopeType
}

type NewLike struct {
	LikerID    string  `json:"likerId" validate:"required"`
	LikerName  string  `json:"likerName" validate:"required"`
	LikerPhoto *string `json:"likerPhoto,omitempty"`
	Message    string  `json:"message,omitempty"`
}

func (NewLike) EnvelopeType() EnvelopeType { return EnvelopeNewLike }

type MutualMatch struct {
	MatchedUserID      string   `json:"matchedUserId" validate:"required"`
	MatchedUserName    string   `json:"matchedUserName" validate:"required"`
	MatchedUserPhoto   *string  `json:"matchedUserPhoto,omitempty"`
	CompatibilityScore *float64 `json:"compatibilityScore,omitempty" validate:"omitempty,gte=0,lte=100"`
	Message            string   `json:"message,omitempty"`
}

func (MutualMatch) EnvelopeType() EnvelopeType { return EnvelopeMutualMatch }

type NewMessage struct {
	ChatID    string `json:"chatId" validate:"required"`
	SenderID  string `json:"senderId" validate:"required"`
	MessageID string `json:"messageId" validate:"required"`
	Preview   string `json:"preview"`
}

func (NewMessage) EnvelopeType() EnvelopeType { return EnvelopeNewMessage }

type UserStatus struct {
	UserID   string `json:"userId" validate:"required"`
	IsOnline bool   `json:"isOnline"`
}

func (UserStatus) EnvelopeType() EnvelopeType { return EnvelopeUserStatus }

type Connection struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty" validate:"required_if=Authenticated true"`
	SessionID     string `json:"sessionId,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (Connection) EnvelopeType() EnvelopeType { return EnvelopeConnection }

// Envelope is one typed message unit on the push transport.
type Envelope struct {
	ID          string
	RecipientID string
	EmittedAt   time.Time
	Payload     Payload
}

func NewEnvelope(recipientID string, payload Payload, now time.Time) Envelope {
	return Envelope{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		EmittedAt:   now.UTC(),
		Payload:     payload,
	}
}

func (e Envelope) Type() EnvelopeType {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.EnvelopeType()
}

var validate = validator.New()

func (e Envelope) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEnvelope)
	}
	if e.Payload == nil {
		return fmt.Errorf("%w: missing payload", ErrInvalidEnvelope)
	}
	if err := validate.Struct(e.Payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidEnvelope, e.Type(), err)
	}
	return nil
}

type envelopeHeader struct {
	V           int          `json:"v"`
	ID          string       `json:"id"`
	Type        EnvelopeType `json:"type"`
	RecipientID string       `json:"recipientId,omitempty"`
	EmittedAt   time.Time    `json:"emittedAt"`
}

// MarshalJSON flattens the variant fields next to the header:
// {"v":1,"id":..,"type":"mutual_match",..,"matchedUserId":..}
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidEnvelope)
	}
	head, err := json.Marshal(envelopeHeader{
		V:           EnvelopeVersion,
		ID:          e.ID,
		Type:        e.Type(),
		RecipientID: e.RecipientID,
		EmittedAt:   e.EmittedAt,
	})
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) <= 2 {
		return head, nil
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

func (e *Envelope) UnmarshalJSON(raw []byte) error {
	decoded, err := DecodeEnvelope(raw)
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

// PeekType reads only the "type" discriminator of a frame.
func PeekType(raw []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return head.Type, nil
}

// DecodeEnvelope parses and validates a wire envelope into its closed variant.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var head envelopeHeader
	if err := json.Unmarshal(raw, &head); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	var (
		payload Payload
		err     error
	)
	switch head.Type {
	case EnvelopeNewLike:
		payload, err = decodePayload[NewLike](raw)
	case EnvelopeMutualMatch:
		payload, err = decodePayload[MutualMatch](raw)
	case EnvelopeNewMessage:
		payload, err = decodePayload[NewMessage](raw)
	case EnvelopeUserStatus:
		payload, err = decodePayload[UserStatus](raw)
	case EnvelopeConnection:
		payload, err = decodePayload[Connection](raw)
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownEnvelopeType, head.Type)
	}
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{
		ID:          head.ID,
		RecipientID: head.RecipientID,
		EmittedAt:   head.EmittedAt,
		Payload:     payload,
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func decodePayload[T Payload](raw []byte) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return v, nil
}

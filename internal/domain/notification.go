package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Notification is the persisted copy of an envelope for users who missed it live.
type Notification struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Type      EnvelopeType    `json:"type" db:"type"`
	Title     string          `json:"title" db:"title"`
	Message   string          `json:"message" db:"message"`
	Data      json.RawMessage `json:"data" db:"data"`
	IsRead    bool            `json:"is_read" db:"is_read"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	ReadAt    *time.Time      `json:"read_at" db:"read_at"`
}

// NotificationFromEnvelope renders the inbox entry for an envelope. Only
// like, match and message envelopes are stored; others return nil.
func NotificationFromEnvelope(env Envelope) (*Notification, error) {
	var title, message string
	switch p := env.Payload.(type) {
	case NewLike:
		title = "Someone likes you!"
		message = fmt.Sprintf("%s liked your profile!", p.LikerName)
	case MutualMatch:
		title = "You're Connected!"
		message = fmt.Sprintf("You and %s are both interested!", p.MatchedUserName)
	case NewMessage:
		title = "New message"
		message = p.Preview
	default:
		return nil, nil
	}

	data, err := json.Marshal(env.Payload)
	if err != nil {
		return nil, err
	}
	return &Notification{
		ID:        env.ID,
		UserID:    env.RecipientID,
		Type:      env.Type(),
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: env.EmittedAt,
	}, nil
}

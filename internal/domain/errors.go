package domain

import (
	"errors"

	"github.com/gdugdh24/matchcore/pkg/wire"
)

var (
	ErrInvalidSelfReference = errors.New("cannot like yourself")
	ErrUserNotFound         = errors.New("user not found")
	ErrLikeNotFound         = errors.New("like not found")
	ErrMatchNotFound        = errors.New("active mutual match not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a participant in this conversation")
	ErrInvalidEnvelope      = wire.ErrInvalidEnvelope
	ErrUnknownEnvelopeType  = wire.ErrUnknownEnvelopeType
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTopicForbidden       = errors.New("topic not allowed for this session")
	ErrInvalidTopic         = wire.ErrInvalidTopic
	ErrInvalidInput         = errors.New("invalid input")
)

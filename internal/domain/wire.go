package domain

import "github.com/gdugdh24/matchcore/pkg/wire"

// Push wire types, shared with the client packages.
type (
	Envelope     = wire.Envelope
	EnvelopeType = wire.EnvelopeType
	Payload      = wire.Payload
	NewLike      = wire.NewLike
	MutualMatch  = wire.MutualMatch
	NewMessage   = wire.NewMessage
	UserStatus   = wire.UserStatus
	Connection   = wire.Connection

	TopicKind    = wire.TopicKind
	FrameType    = wire.FrameType
	ClientFrame  = wire.ClientFrame
	ControlFrame = wire.ControlFrame
)

const (
	EnvelopeVersion = wire.EnvelopeVersion

	EnvelopeNewLike     = wire.EnvelopeNewLike
	EnvelopeMutualMatch = wire.EnvelopeMutualMatch
	EnvelopeNewMessage  = wire.EnvelopeNewMessage
	EnvelopeUserStatus  = wire.EnvelopeUserStatus
	EnvelopeConnection  = wire.EnvelopeConnection

	TopicPersonal     = wire.TopicPersonal
	TopicConversation = wire.TopicConversation

	FrameJoin   = wire.FrameJoin
	FrameLeave  = wire.FrameLeave
	FramePing   = wire.FramePing
	FrameJoined = wire.FrameJoined
	FrameLeft   = wire.FrameLeft
	FramePong   = wire.FramePong
	FrameError  = wire.FrameError
)

var (
	NewEnvelope       = wire.NewEnvelope
	DecodeEnvelope    = wire.DecodeEnvelope
	PeekType          = wire.PeekType
	IsControlFrame    = wire.IsControlFrame
	PersonalTopic     = wire.PersonalTopic
	ConversationTopic = wire.ConversationTopic
	ParseTopic        = wire.ParseTopic
)

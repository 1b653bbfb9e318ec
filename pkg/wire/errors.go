package wire

import "errors"

var (
	ErrInvalidEnvelope     = errors.New("invalid envelope")
	ErrUnknownEnvelopeType = errors.New("unknown envelope type")
	ErrInvalidTopic        = errors.New("invalid topic")
)

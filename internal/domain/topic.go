package domain

import "github.com/gdugdh24/matchcore/pkg/wire"

// Delivery is one envelope addressed to a topic. Personal topics reach every
// session of that user; conversation topics reach joined sessions.
type Delivery struct {
	Topic    string   `json:"topic"`
	Envelope Envelope `json:"envelope"`
}

// ToUser addresses env to the personal channel of its recipient.
func ToUser(env Envelope) Delivery {
	return Delivery{Topic: wire.PersonalTopic(env.RecipientID), Envelope: env}
}

package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_MarshalFlattensPayload(t *testing.T) {
	photo := "p.jpg"
	env := NewEnvelope("alice", MutualMatch{
		MatchedUserID:    "bob",
		MatchedUserName:  "Bob",
		MatchedUserPhoto: &photo,
	}, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, float64(EnvelopeVersion), flat["v"])
	assert.Equal(t, "mutual_match", flat["type"])
	assert.Equal(t, "alice", flat["recipientId"])
	assert.Equal(t, "bob", flat["matchedUserId"])
	assert.Equal(t, "Bob", flat["matchedUserName"])
	assert.Equal(t, "p.jpg", flat["matchedUserPhoto"])
	assert.NotContains(t, flat, "compatibilityScore")

	decoded, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, env.ID, decoded.ID)
	assert.Equal(t, env.Payload, decoded.Payload)
}

func TestDecodeEnvelope_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{`, ErrInvalidEnvelope},
		{"unknown type", `{"v":1,"id":"1","type":"shout"}`, ErrUnknownEnvelopeType},
		{"missing id", `{"v":1,"type":"new_like","likerId":"a","likerName":"A"}`, ErrInvalidEnvelope},
		{"missing liker name", `{"v":1,"id":"1","type":"new_like","likerId":"a"}`, ErrInvalidEnvelope},
		{"score out of range", `{"v":1,"id":"1","type":"mutual_match","matchedUserId":"b","matchedUserName":"B","compatibilityScore":140}`, ErrInvalidEnvelope},
		{"ack without user", `{"v":1,"id":"1","type":"connection","authenticated":true}`, ErrInvalidEnvelope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.raw))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeEnvelope_ConnectionNack(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"v":1,"id":"1","type":"connection","authenticated":false,"error":"token expired"}`))
	require.NoError(t, err)
	ack, ok := env.Payload.(Connection)
	require.True(t, ok)
	assert.False(t, ack.Authenticated)
	assert.Equal(t, "token expired", ack.Error)
}

func TestParseTopic(t *testing.T) {
	kind, id, err := ParseTopic("conversation:42")
	require.NoError(t, err)
	assert.Equal(t, TopicConversation, kind)
	assert.Equal(t, "42", id)

	for _, bad := range []string{"", "user:", "room:1", "user"} {
		_, _, err := ParseTopic(bad)
		assert.ErrorIs(t, err, ErrInvalidTopic, bad)
	}
}

package wire

import (
	"fmt"
	"strings"
)

type TopicKind string

const (
	TopicPersonal     TopicKind = "user"
	TopicConversation TopicKind = "conversation"
)

func PersonalTopic(userID string) string {
	return string(TopicPersonal) + ":" + userID
}

func ConversationTopic(conversationID string) string {
	return string(TopicConversation) + ":" + conversationID
}

// ParseTopic splits "kind:id" and rejects unknown kinds or empty ids.
func ParseTopic(topic string) (TopicKind, string, error) {
	kind, id, ok := strings.Cut(topic, ":")
	if !ok || id == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	switch TopicKind(kind) {
	case TopicPersonal, TopicConversation:
		return TopicKind(kind), id, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
}

package domain

import (
	"context"
	"errors"
)

// ErrProviderUnavailable is returned when no assistant provider is configured.
var ErrProviderUnavailable = errors.New("assistant provider unavailable")

// Role is the speaker of a conversation turn as the provider sees it.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one entry of the history replayed to the provider.
type Turn struct {
	Role Role
	Text string
}

// Conversation is a provider-side chat handle that remembers its history.
type Conversation interface {
	Send(ctx context.Context, text string) (string, error)
}

// Assistant is the port to the external conversational-AI provider.
type Assistant interface {
	NewConversation(ctx context.Context, history []Turn) (Conversation, error)
}

// HistoryFromMessages maps a transcript to provider turns, skipping the seed
// greeting which is never part of the real conversation.
func HistoryFromMessages(msgs []Message) []Turn {
	if len(msgs) <= 1 {
		return nil
	}
	turns := make([]Turn, 0, len(msgs)-1)
	for _, m := range msgs[1:] {
		role := RoleModel
		if m.Sender == SenderUser {
			role = RoleUser
		}
		turns = append(turns, Turn{Role: role, Text: m.Text})
	}
	return turns
}

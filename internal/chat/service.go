package chat

import (
	"context"

	"expense-cli/internal/api"
)

// Service is the slice of the remote API the chat controller consumes.
// *api.Client satisfies it; tests substitute a fake.
type Service interface {
	ListConversations(ctx context.Context) ([]api.Conversation, error)
	CreateConversation(ctx context.Context, title string) (api.Conversation, error)
	GetConversation(ctx context.Context, id string) (api.ConversationDetail, error)
	MessagePage(ctx context.Context, id string, limit int, cursor string) (api.MessagePage, error)
	RenameConversation(ctx context.Context, id, title string) error
	DeleteConversation(ctx context.Context, id string) error
	Ask(ctx context.Context, question, conversationID string) (string, error)
}

package repository

import (
	"context"

	"keurimmo/internal/domain/entity"
)

// Subscription is the handle returned by the change-stream primitives.
// Unsubscribe must be idempotent; after it returns no further events are
// delivered to the handler.
type Subscription interface {
	Unsubscribe()
}

// MessageEventHandler receives change events scoped to one conversation.
// Either callback may be nil.
type MessageEventHandler struct {
	OnInsert func(*entity.Message)
	OnUpdate func(*entity.Message)
}

type MessagingRepository interface {
	// Conversations. CreateConversation must fail with a conflict when a row
	// with the same id already exists, so callers with deterministic ids get
	// idempotency under concurrent creation.
	CreateConversation(ctx context.Context, conv *entity.Conversation) error
	GetConversation(ctx context.Context, id string) (*entity.Conversation, error)
	// FindConversation matches either ordering of the pair within the same
	// listing scope (listingID may be empty for unscoped conversations).
	FindConversation(ctx context.Context, userA, userB, listingID string) (*entity.Conversation, error)
	ListConversationsByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error)
	UpdateConversation(ctx context.Context, conv *entity.Conversation) error

	// Messages.
	CreateMessage(ctx context.Context, msg *entity.Message) error
	GetMessage(ctx context.Context, id string) (*entity.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error)
	UpdateMessage(ctx context.Context, msg *entity.Message) error
	// MarkMessagesRead flags every unread message in the conversation that was
	// not sent by readerID.
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)

	// Change streams.
	SubscribeToMessages(ctx context.Context, conversationID string, handler MessageEventHandler) (Subscription, error)

	// Typing. Upsert is last-write-wins per (conversation, user) key.
	UpsertTypingStatus(ctx context.Context, status *entity.TypingStatus) error
	SubscribeToTyping(ctx context.Context, conversationID string, onChange func(*entity.TypingStatus)) (Subscription, error)
}

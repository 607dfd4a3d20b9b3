package entity

import "time"

// TypingStatus is an ephemeral, last-write-wins signal keyed by
// (conversation, user). It is not part of message history.
type TypingStatus struct {
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	UserID         string    `json:"user_id" firestore:"userId"`
	IsTyping       bool      `json:"is_typing" firestore:"isTyping"`
	UpdatedAt      time.Time `json:"updated_at" firestore:"updatedAt"`
}

// TypingStaleAfter bounds the damage of a lost "stopped typing" write: readers
// treat any typing=true older than this as false.
const TypingStaleAfter = 5 * time.Second

// IsStale reports whether the status is too old to trust at time now.
func (t *TypingStatus) IsStale(now time.Time) bool {
	return now.Sub(t.UpdatedAt) > TypingStaleAfter
}

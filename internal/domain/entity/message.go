package entity

import "time"

// MessageKind discriminates how a message payload is interpreted.
type MessageKind string

const (
	MessageKindText        MessageKind = "text"
	MessageKindImage       MessageKind = "image"
	MessageKindFile        MessageKind = "file"
	MessageKindListingCard MessageKind = "listing_card"
	MessageKindSystem      MessageKind = "system"
)

// DeletedMessageContent replaces the content of a soft-deleted message. The
// original content is not recoverable through the normal read path.
const DeletedMessageContent = "Ce message a été supprimé"

type Message struct {
	ID             string      `json:"id" firestore:"id"`
	ConversationID string      `json:"conversation_id" firestore:"conversationId"`
	SenderID       string      `json:"sender_id" firestore:"senderId"`
	Content        string      `json:"content" firestore:"content"`
	Kind           MessageKind `json:"message_type" firestore:"kind"`
	AttachmentURL  string      `json:"attachment_url,omitempty" firestore:"attachmentUrl,omitempty"`
	AttachmentName string      `json:"attachment_name,omitempty" firestore:"attachmentName,omitempty"`
	AttachmentSize int64       `json:"attachment_size,omitempty" firestore:"attachmentSize,omitempty"`
	ListingID      string      `json:"listing_id,omitempty" firestore:"listingId,omitempty"`
	ReplyToID      string      `json:"reply_to_id,omitempty" firestore:"replyToId,omitempty"`
	IsRead         bool        `json:"is_read" firestore:"isRead"`
	IsDeleted      bool        `json:"is_deleted" firestore:"isDeleted"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty" firestore:"deletedAt,omitempty"`
	EditedAt       *time.Time  `json:"edited_at,omitempty" firestore:"editedAt,omitempty"`
	CreatedAt      time.Time   `json:"created_at" firestore:"createdAt"`
}

// Before reports whether m sorts before other in the chronological order used
// everywhere messages are rendered: creation time ascending, id as tie-break.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

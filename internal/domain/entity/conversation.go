package entity

import "time"

// Conversation is a durable pairing of two participants, optionally scoped to
// a single listing. The two participant slots are ordered but a pair must not
// appear twice for the same listing scope, regardless of ordering.
type Conversation struct {
	ID                 string    `json:"id" firestore:"id"`
	ListingID          string    `json:"listing_id,omitempty" firestore:"listingId,omitempty"`
	Participant1       string    `json:"participant_1" firestore:"participant1"`
	Participant2       string    `json:"participant_2" firestore:"participant2"`
	UnreadCount1       int       `json:"unread_count_1" firestore:"unreadCount1"`
	UnreadCount2       int       `json:"unread_count_2" firestore:"unreadCount2"`
	IsArchived1        bool      `json:"is_archived_1" firestore:"isArchived1"`
	IsArchived2        bool      `json:"is_archived_2" firestore:"isArchived2"`
	BlockedBy          string    `json:"is_blocked_by,omitempty" firestore:"blockedBy,omitempty"`
	LastMessagePreview string    `json:"last_message_preview,omitempty" firestore:"lastMessagePreview,omitempty"`
	LastMessageAt      time.Time `json:"last_message_at" firestore:"lastMessageAt"`
	CreatedAt          time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt          time.Time `json:"updated_at" firestore:"updatedAt"`
}

// HasParticipant reports whether userID occupies one of the two slots.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant1 == userID || c.Participant2 == userID
}

// OtherParticipant returns the slot that userID does not occupy.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.Participant1 == userID {
		return c.Participant2
	}
	return c.Participant1
}

// UnreadFor returns the unread counter of the slot userID occupies.
func (c *Conversation) UnreadFor(userID string) int {
	if c.Participant1 == userID {
		return c.UnreadCount1
	}
	return c.UnreadCount2
}

// IsArchivedFor returns the archive flag of the slot userID occupies.
func (c *Conversation) IsArchivedFor(userID string) bool {
	if c.Participant1 == userID {
		return c.IsArchived1
	}
	return c.IsArchived2
}

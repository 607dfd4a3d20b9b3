package usecase

import (
	"unicode/utf8"

	"keurimmo/internal/domain/entity"
)

// ConversationView is a conversation hydrated for one viewer: the other
// participant resolved, the listing summary attached, counters reduced to the
// viewer's slot.
type ConversationView struct {
	*entity.Conversation
	OtherParticipant *entity.ProfileSnapshot `json:"other_participant,omitempty"`
	Listing          *entity.ListingSummary  `json:"listing,omitempty"`
	UnreadCount      int                     `json:"unread_count"`
	IsArchived       bool                    `json:"is_archived"`
}

// MessageView is a message hydrated at read time with the sender snapshot and,
// when the message is a reply, an inline preview of its target.
type MessageView struct {
	*entity.Message
	Sender  *entity.ProfileSnapshot `json:"sender,omitempty"`
	ReplyTo *ReplySnippet           `json:"reply_to,omitempty"`
	Listing *entity.ListingSummary  `json:"listing,omitempty"`
}

// ReplySnippet is the denormalized inline preview of a reply target.
type ReplySnippet struct {
	ID         string `json:"id"`
	Snippet    string `json:"snippet"`
	SenderName string `json:"sender_name"`
}

const (
	previewMaxRunes = 80
	snippetMaxRunes = 60
)

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}

package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"keurimmo/internal/domain/entity"
	"keurimmo/internal/domain/repository"
	"keurimmo/pkg/errors"
	"keurimmo/pkg/logger"
)

// MessagingUseCase implements the message operations shared by the REST
// surface and the per-conversation MessageStream: persistence, permission
// checks, counter upkeep, and read-time hydration.
type MessagingUseCase struct {
	messagingRepo repository.MessagingRepository
	profileRepo   repository.ProfileRepository
	listingRepo   repository.ListingRepository
}

func NewMessagingUseCase(
	messagingRepo repository.MessagingRepository,
	profileRepo repository.ProfileRepository,
	listingRepo repository.ListingRepository,
) *MessagingUseCase {
	return &MessagingUseCase{
		messagingRepo: messagingRepo,
		profileRepo:   profileRepo,
		listingRepo:   listingRepo,
	}
}

type SendMessageInput struct {
	ConversationID string
	Content        string
	Kind           entity.MessageKind
	AttachmentURL  string
	AttachmentName string
	AttachmentSize int64
	ListingID      string
	ReplyToID      string
}

// SendMessage persists a message authored by senderID, then bumps the
// conversation's activity timestamp, preview and the recipient's unread
// counter. The returned view is fully hydrated; the caller appends it to its
// local list only after this returns (await-then-append).
func (uc *MessagingUseCase) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*MessageView, error) {
	conv, err := uc.messagingRepo.GetConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}
	if conv.BlockedBy != "" {
		return nil, errors.Forbidden("Conversation is blocked", nil)
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.BadRequest("Message content is required", nil)
	}

	kind := input.Kind
	if kind == "" {
		kind = entity.MessageKindText
	}
	switch kind {
	case entity.MessageKindText, entity.MessageKindImage, entity.MessageKindFile,
		entity.MessageKindListingCard, entity.MessageKindSystem:
	default:
		return nil, errors.BadRequest("Unknown message type", nil)
	}

	if input.ReplyToID != "" {
		target, err := uc.messagingRepo.GetMessage(ctx, input.ReplyToID)
		if err != nil {
			return nil, errors.NotFound("Reply target", err)
		}
		if target.ConversationID != conv.ID {
			return nil, errors.BadRequest("Reply target belongs to another conversation", nil)
		}
	}

	msg := &entity.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		Kind:           kind,
		AttachmentURL:  input.AttachmentURL,
		AttachmentName: input.AttachmentName,
		AttachmentSize: input.AttachmentSize,
		ListingID:      input.ListingID,
		ReplyToID:      input.ReplyToID,
		CreatedAt:      time.Now(),
	}

	if err := uc.messagingRepo.CreateMessage(ctx, msg); err != nil {
		return nil, errors.SendFailed("Failed to persist message", err)
	}

	conv.LastMessagePreview = truncateRunes(content, previewMaxRunes)
	conv.LastMessageAt = msg.CreatedAt
	if kind != entity.MessageKindSystem {
		if conv.Participant1 == senderID {
			conv.UnreadCount2++
		} else {
			conv.UnreadCount1++
		}
	}

	if err := uc.messagingRepo.UpdateConversation(ctx, conv); err != nil {
		return nil, err
	}

	return uc.hydrateMessage(ctx, msg)
}

// EditMessage revises the text of a message. Only the sender may edit, and
// only text messages can be edited.
func (uc *MessagingUseCase) EditMessage(ctx context.Context, userID, messageID, newContent string) (*MessageView, error) {
	msg, err := uc.messagingRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, errors.Forbidden("Only the sender can edit a message", nil)
	}
	if msg.Kind != entity.MessageKindText {
		return nil, errors.BadRequest("Only text messages can be edited", nil)
	}
	if msg.IsDeleted {
		return nil, errors.BadRequest("Deleted messages cannot be edited", nil)
	}

	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, errors.BadRequest("Message content is required", nil)
	}

	now := time.Now()
	msg.Content = newContent
	msg.EditedAt = &now

	if err := uc.messagingRepo.UpdateMessage(ctx, msg); err != nil {
		return nil, err
	}

	return uc.hydrateMessage(ctx, msg)
}

// DeleteMessage soft-deletes: the content is replaced with the tombstone and
// never travels through the read path again. Only the sender may delete. The
// row itself stays so ordering and grouping are undisturbed.
func (uc *MessagingUseCase) DeleteMessage(ctx context.Context, userID, messageID string) (*MessageView, error) {
	msg, err := uc.messagingRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, errors.Forbidden("Only the sender can delete a message", nil)
	}
	if msg.IsDeleted {
		return uc.hydrateMessage(ctx, msg)
	}

	now := time.Now()
	msg.IsDeleted = true
	msg.DeletedAt = &now
	msg.Content = entity.DeletedMessageContent

	if err := uc.messagingRepo.UpdateMessage(ctx, msg); err != nil {
		return nil, err
	}

	return uc.hydrateMessage(ctx, msg)
}

// LoadHistory returns the full ordered, hydrated history of a conversation.
func (uc *MessagingUseCase) LoadHistory(ctx context.Context, userID, conversationID string) ([]*MessageView, error) {
	conv, err := uc.messagingRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	messages, err := uc.messagingRepo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Before(messages[j])
	})

	profiles := make(map[string]*entity.ProfileSnapshot)
	views := make([]*MessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, uc.hydrateMessageCached(ctx, msg, profiles))
	}
	return views, nil
}

func (uc *MessagingUseCase) hydrateMessage(ctx context.Context, msg *entity.Message) (*MessageView, error) {
	return uc.hydrateMessageCached(ctx, msg, nil), nil
}

// hydrateMessageCached resolves the joined fields at read time. Hydration
// failures degrade to a bare view rather than failing the whole read.
func (uc *MessagingUseCase) hydrateMessageCached(ctx context.Context, msg *entity.Message, profiles map[string]*entity.ProfileSnapshot) *MessageView {
	if msg.IsDeleted {
		msg.Content = entity.DeletedMessageContent
	}

	view := &MessageView{Message: msg}

	view.Sender = uc.profileSnapshot(ctx, msg.SenderID, profiles)

	if msg.ReplyToID != "" {
		if target, err := uc.messagingRepo.GetMessage(ctx, msg.ReplyToID); err == nil {
			content := target.Content
			if target.IsDeleted {
				content = entity.DeletedMessageContent
			}
			snippet := &ReplySnippet{
				ID:      target.ID,
				Snippet: truncateRunes(content, snippetMaxRunes),
			}
			if sender := uc.profileSnapshot(ctx, target.SenderID, profiles); sender != nil {
				snippet.SenderName = sender.FullName
			}
			view.ReplyTo = snippet
		} else {
			logger.Warn("Reply target %s not found for message %s: %v", msg.ReplyToID, msg.ID, err)
		}
	}

	if msg.Kind == entity.MessageKindListingCard && msg.ListingID != "" {
		if listing, err := uc.listingRepo.GetByID(ctx, msg.ListingID); err == nil {
			view.Listing = listing.Summary()
		}
	}

	return view
}

func (uc *MessagingUseCase) profileSnapshot(ctx context.Context, userID string, cache map[string]*entity.ProfileSnapshot) *entity.ProfileSnapshot {
	if cache != nil {
		if snap, ok := cache[userID]; ok {
			return snap
		}
	}

	profile, err := uc.profileRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Warn("Profile %s not found during hydration: %v", userID, err)
		if cache != nil {
			cache[userID] = nil
		}
		return nil
	}

	snap := profile.Snapshot()
	if cache != nil {
		cache[userID] = snap
	}
	return snap
}

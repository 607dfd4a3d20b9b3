package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"keurimmo/internal/domain/entity"
	"keurimmo/internal/domain/repository"
	"keurimmo/pkg/errors"
	"keurimmo/pkg/logger"
)

// DirectoryUseCase maintains the per-user list of conversation summaries used
// for navigation and unread badges.
type DirectoryUseCase struct {
	messagingRepo repository.MessagingRepository
	profileRepo   repository.ProfileRepository
	listingRepo   repository.ListingRepository
}

func NewDirectoryUseCase(
	messagingRepo repository.MessagingRepository,
	profileRepo repository.ProfileRepository,
	listingRepo repository.ListingRepository,
) *DirectoryUseCase {
	return &DirectoryUseCase{
		messagingRepo: messagingRepo,
		profileRepo:   profileRepo,
		listingRepo:   listingRepo,
	}
}

// conversationKey derives a stable id from the unordered pair and the listing
// scope, so concurrent create attempts from two tabs collapse onto one row.
func conversationKey(userA, userB, listingID string) string {
	p1, p2 := userA, userB
	if p2 < p1 {
		p1, p2 = p2, p1
	}
	sum := sha256.Sum256([]byte(p1 + "|" + p2 + "|" + listingID))
	return hex.EncodeToString(sum[:])[:32]
}

// ListConversations returns every conversation the user participates in,
// hydrated and ordered by last activity, newest first.
func (uc *DirectoryUseCase) ListConversations(ctx context.Context, userID string) ([]*ConversationView, error) {
	conversations, err := uc.messagingRepo.ListConversationsByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		views = append(views, uc.hydrateConversation(ctx, conv, userID))
	}
	return views, nil
}

// GetConversation returns one hydrated conversation, enforcing membership.
func (uc *DirectoryUseCase) GetConversation(ctx context.Context, conversationID, userID string) (*ConversationView, error) {
	conv, err := uc.messagingRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}
	return uc.hydrateConversation(ctx, conv, userID), nil
}

// CreateOrGetConversation finds the conversation for the pair within the
// listing scope, matching either slot ordering, or creates it. Idempotent:
// racing creates resolve to the same row through the deterministic id.
func (uc *DirectoryUseCase) CreateOrGetConversation(ctx context.Context, userID, otherID, listingID string) (*ConversationView, error) {
	if userID == otherID {
		return nil, errors.BadRequest("You cannot start a conversation with yourself", nil)
	}

	if _, err := uc.profileRepo.GetByID(ctx, otherID); err != nil {
		return nil, errors.NotFound("Recipient", err)
	}
	if listingID != "" {
		if _, err := uc.listingRepo.GetByID(ctx, listingID); err != nil {
			return nil, errors.NotFound("Listing", err)
		}
	}

	existing, err := uc.messagingRepo.FindConversation(ctx, userID, otherID, listingID)
	if err == nil {
		return uc.hydrateConversation(ctx, existing, userID), nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	conv := &entity.Conversation{
		ID:           conversationKey(userID, otherID, listingID),
		ListingID:    listingID,
		Participant1: userID,
		Participant2: otherID,
	}

	if err := uc.messagingRepo.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, "CONFLICT") {
			// Another tab won the race; its row is ours too.
			conv, err = uc.messagingRepo.GetConversation(ctx, conv.ID)
			if err != nil {
				return nil, err
			}
			return uc.hydrateConversation(ctx, conv, userID), nil
		}
		return nil, err
	}

	return uc.hydrateConversation(ctx, conv, userID), nil
}

// MarkRead zeroes the caller's unread counter and flags the other
// participant's messages as read. The other slot is untouched.
func (uc *DirectoryUseCase) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := uc.messagingRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}

	if conv.Participant1 == userID {
		conv.UnreadCount1 = 0
	} else {
		conv.UnreadCount2 = 0
	}

	if err := uc.messagingRepo.UpdateConversation(ctx, conv); err != nil {
		return err
	}

	return uc.messagingRepo.MarkMessagesRead(ctx, conversationID, userID)
}

// SetArchived toggles the caller's archive flag; the other slot keeps its own.
func (uc *DirectoryUseCase) SetArchived(ctx context.Context, conversationID, userID string, archived bool) error {
	conv, err := uc.messagingRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}

	if conv.Participant1 == userID {
		conv.IsArchived1 = archived
	} else {
		conv.IsArchived2 = archived
	}

	return uc.messagingRepo.UpdateConversation(ctx, conv)
}

// Block records the caller as the blocking side. At most one direction can be
// blocked at a time.
func (uc *DirectoryUseCase) Block(ctx context.Context, conversationID, userID string) error {
	conv, err := uc.messagingRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}
	if conv.BlockedBy != "" && conv.BlockedBy != userID {
		return errors.Conflict("Conversation is already blocked by the other participant", nil)
	}

	conv.BlockedBy = userID
	return uc.messagingRepo.UpdateConversation(ctx, conv)
}

// Unblock clears the block; only the participant who blocked may lift it.
func (uc *DirectoryUseCase) Unblock(ctx context.Context, conversationID, userID string) error {
	conv, err := uc.messagingRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.BlockedBy == "" {
		return nil
	}
	if conv.BlockedBy != userID {
		return errors.Forbidden("Only the participant who blocked can unblock", nil)
	}

	conv.BlockedBy = ""
	return uc.messagingRepo.UpdateConversation(ctx, conv)
}

// UnreadTotal returns the global unread badge count for the user.
func (uc *DirectoryUseCase) UnreadTotal(ctx context.Context, userID string) (int64, error) {
	return uc.messagingRepo.CountUnread(ctx, userID)
}

func (uc *DirectoryUseCase) hydrateConversation(ctx context.Context, conv *entity.Conversation, viewerID string) *ConversationView {
	view := &ConversationView{
		Conversation: conv,
		UnreadCount:  conv.UnreadFor(viewerID),
		IsArchived:   conv.IsArchivedFor(viewerID),
	}

	otherID := conv.OtherParticipant(viewerID)
	if profile, err := uc.profileRepo.GetByID(ctx, otherID); err == nil {
		view.OtherParticipant = profile.Snapshot()
	} else {
		logger.Warn("Other participant %s not found for conversation %s: %v", otherID, conv.ID, err)
	}

	if conv.ListingID != "" {
		if listing, err := uc.listingRepo.GetByID(ctx, conv.ListingID); err == nil {
			view.Listing = listing.Summary()
		} else {
			logger.Warn("Listing %s not found for conversation %s: %v", conv.ListingID, conv.ID, err)
		}
	}

	return view
}

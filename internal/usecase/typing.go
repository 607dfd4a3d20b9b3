package usecase

import (
	"context"
	"sync"
	"time"

	"keurimmo/internal/domain/entity"
	"keurimmo/internal/domain/repository"
	"keurimmo/pkg/errors"
)

// TypingIdleAfter is how long after the last keystroke the typing flag is
// lowered when no explicit stop arrives.
const TypingIdleAfter = 2 * time.Second

type TypingService struct {
	messagingRepo repository.MessagingRepository
}

func NewTypingService(messagingRepo repository.MessagingRepository) *TypingService {
	return &TypingService{messagingRepo: messagingRepo}
}

// SetTyping publishes the user's typing flag for a conversation. The record
// is keyed by (conversation, user), so repeated writes overwrite rather than
// accumulate. Failures are deliberately soft: typing is a best-effort signal.
func (s *TypingService) SetTyping(ctx context.Context, conversationID, userID string, isTyping bool) error {
	status := &entity.TypingStatus{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
		UpdatedAt:      time.Now(),
	}
	if err := s.messagingRepo.UpsertTypingStatus(ctx, status); err != nil {
		if errors.IsCanceled(err) {
			return nil
		}
		return err
	}
	return nil
}

// Subscribe delivers typing changes for a conversation to onChange, skipping
// the viewer's own echoes and records gone stale. onChange runs on the
// change-stream goroutine.
func (s *TypingService) Subscribe(ctx context.Context, conversationID, viewerID string, onChange func(*entity.TypingStatus)) (repository.Subscription, error) {
	return s.messagingRepo.SubscribeToTyping(ctx, conversationID, func(status *entity.TypingStatus) {
		if status.UserID == viewerID {
			return
		}
		if status.IsTyping && status.IsStale(time.Now()) {
			return
		}
		onChange(status)
	})
}

// TypingTracker debounces a user's keystrokes into at most one "typing"
// publication per burst, and lowers the flag after TypingIdleAfter of
// silence or an explicit Stop. One tracker per (connection, conversation).
type TypingTracker struct {
	service        *TypingService
	conversationID string
	userID         string

	mu     sync.Mutex
	active bool
	timer  *time.Timer
	closed bool
}

func NewTypingTracker(service *TypingService, conversationID, userID string) *TypingTracker {
	return &TypingTracker{
		service:        service,
		conversationID: conversationID,
		userID:         userID,
	}
}

// Keystroke records input activity. The first keystroke of a burst publishes
// typing=true; subsequent ones only push the idle deadline forward.
func (t *TypingTracker) Keystroke(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	publish := !t.active
	t.active = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(TypingIdleAfter, t.idle)
	t.mu.Unlock()

	if publish {
		t.service.SetTyping(ctx, t.conversationID, t.userID, true)
	}
}

// Stop lowers the flag immediately, for message sends and input blur.
func (t *TypingTracker) Stop(ctx context.Context) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	wasActive := t.active
	t.active = false
	t.mu.Unlock()

	if wasActive {
		t.service.SetTyping(ctx, t.conversationID, t.userID, false)
	}
}

// Close stops the tracker and lowers the flag if raised. After Close the
// tracker ignores further keystrokes.
func (t *TypingTracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	wasActive := t.active
	t.active = false
	t.mu.Unlock()

	if wasActive {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		t.service.SetTyping(ctx, t.conversationID, t.userID, false)
	}
}

func (t *TypingTracker) idle() {
	t.mu.Lock()
	if t.closed || !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.timer = nil
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	t.service.SetTyping(ctx, t.conversationID, t.userID, false)
}

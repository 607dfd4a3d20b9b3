package usecase

import (
	"context"
	"sort"
	"sync"

	"keurimmo/internal/domain/entity"
	"keurimmo/internal/domain/repository"
	"keurimmo/pkg/errors"
	"keurimmo/pkg/logger"
)

// StreamState is the lifecycle of one open conversation view.
type StreamState int

const (
	StreamClosed StreamState = iota
	StreamLoading
	StreamReady
	StreamError
)

func (s StreamState) String() string {
	switch s {
	case StreamClosed:
		return "closed"
	case StreamLoading:
		return "loading"
	case StreamReady:
		return "ready"
	case StreamError:
		return "error"
	}
	return "unknown"
}

// StreamEvents receives hydrated changes applied to the stream's list.
// Callbacks run on the change-stream goroutine; either may be nil.
type StreamEvents struct {
	OnInsert func(*MessageView)
	OnUpdate func(*MessageView)
}

// MessageStream owns the in-memory ordered message list for exactly one open
// conversation at a time. It merges the initial history load, the viewer's
// own sends, and server-pushed changes into a duplicate-free list sorted by
// (timestamp, id). Switching conversations bumps a generation
// counter so late events from the previous subscription are discarded instead
// of being misapplied to the new list.
type MessageStream struct {
	messaging     *MessagingUseCase
	messagingRepo repository.MessagingRepository
	viewerID      string

	mu             sync.Mutex
	state          StreamState
	conversationID string
	generation     int
	messages       []*MessageView
	index          map[string]int
	sub            repository.Subscription
	cancelSession  context.CancelFunc
	events         StreamEvents
}

func NewMessageStream(messaging *MessagingUseCase, messagingRepo repository.MessagingRepository, viewerID string) *MessageStream {
	return &MessageStream{
		messaging:     messaging,
		messagingRepo: messagingRepo,
		viewerID:      viewerID,
		state:         StreamClosed,
		index:         make(map[string]int),
	}
}

// Open tears down whatever conversation was open, then loads conversationID:
// subscribe first so inserts racing the history fetch are not lost (duplicate
// delivery is absorbed by id-dedup), then fetch and merge the history.
// A nil error with StreamReady means fully live; a SUBSCRIPTION_FAILED error
// with StreamReady means degraded: history is readable and sends work, but
// pushes are not flowing.
func (s *MessageStream) Open(ctx context.Context, conversationID string, events StreamEvents) error {
	s.mu.Lock()
	s.teardownLocked()
	gen := s.generation
	s.conversationID = conversationID
	s.state = StreamLoading
	s.messages = nil
	s.index = make(map[string]int)
	s.events = events

	sessionCtx, cancel := context.WithCancel(ctx)
	s.cancelSession = cancel
	s.mu.Unlock()

	var subErr error
	sub, err := s.messagingRepo.SubscribeToMessages(sessionCtx, conversationID, repository.MessageEventHandler{
		OnInsert: func(msg *entity.Message) { s.handleRemoteInsert(sessionCtx, gen, msg) },
		OnUpdate: func(msg *entity.Message) { s.handleRemoteUpdate(sessionCtx, gen, msg) },
	})
	if err != nil {
		logger.Warn("Push channel for conversation %s unavailable: %v", conversationID, err)
		subErr = errors.SubscriptionFailed("Live updates unavailable", err)
	} else {
		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			sub.Unsubscribe()
			return nil
		}
		s.sub = sub
		s.mu.Unlock()
	}

	history, err := s.messaging.LoadHistory(sessionCtx, s.viewerID, conversationID)
	if err != nil {
		if errors.IsCanceled(err) {
			// Intentional navigation away; not a failure.
			return nil
		}
		s.mu.Lock()
		if gen == s.generation {
			s.state = StreamError
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	for _, view := range history {
		s.insertLocked(view)
	}
	s.state = StreamReady
	s.mu.Unlock()

	return subErr
}

// Retry re-enters Loading for the current conversation after a load failure.
func (s *MessageStream) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StreamError {
		s.mu.Unlock()
		return errors.BadRequest("Stream is not in a failed state", nil)
	}
	conversationID := s.conversationID
	events := s.events
	s.mu.Unlock()

	return s.Open(ctx, conversationID, events)
}

// Close releases the subscription and the session. Idempotent.
func (s *MessageStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.state = StreamClosed
	s.conversationID = ""
	s.messages = nil
	s.index = make(map[string]int)
}

// Send persists through the shared messaging path, then appends the confirmed
// message locally. Because persistence is awaited before the append, the id
// exists locally before its push echo can arrive; the dedup check still
// guards against echoes of sends from other tabs of the same user.
func (s *MessageStream) Send(ctx context.Context, input SendMessageInput) (*MessageView, error) {
	s.mu.Lock()
	if s.state == StreamClosed {
		s.mu.Unlock()
		return nil, errors.BadRequest("No conversation is open", nil)
	}
	gen := s.generation
	input.ConversationID = s.conversationID
	s.mu.Unlock()

	view, err := s.messaging.SendMessage(ctx, s.viewerID, input)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if gen == s.generation {
		s.insertLocked(view)
	}
	s.mu.Unlock()

	return view, nil
}

// Edit revises a text message and patches the local entry in place.
func (s *MessageStream) Edit(ctx context.Context, messageID, newContent string) (*MessageView, error) {
	view, err := s.messaging.EditMessage(ctx, s.viewerID, messageID, newContent)
	if err != nil {
		return nil, err
	}
	s.patch(view)
	return view, nil
}

// Delete soft-deletes a message and patches the local entry in place; the
// entry is not removed, so ordering and grouping are undisturbed.
func (s *MessageStream) Delete(ctx context.Context, messageID string) (*MessageView, error) {
	view, err := s.messaging.DeleteMessage(ctx, s.viewerID, messageID)
	if err != nil {
		return nil, err
	}
	s.patch(view)
	return view, nil
}

// Messages returns a copy of the current ordered list.
func (s *MessageStream) Messages() []*MessageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*MessageView, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *MessageStream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *MessageStream) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

func (s *MessageStream) ViewerID() string {
	return s.viewerID
}

// teardownLocked invalidates the current generation and releases the push
// channel and session context. Late events still in flight fail the
// generation check and are dropped.
func (s *MessageStream) teardownLocked() {
	s.generation++
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	if s.cancelSession != nil {
		s.cancelSession()
		s.cancelSession = nil
	}
}

// insertLocked places a view at its sorted position, refusing duplicates.
func (s *MessageStream) insertLocked(view *MessageView) bool {
	if _, exists := s.index[view.ID]; exists {
		return false
	}

	i := sort.Search(len(s.messages), func(i int) bool {
		return view.Message.Before(s.messages[i].Message)
	})
	s.messages = append(s.messages, nil)
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = view
	for j := i; j < len(s.messages); j++ {
		s.index[s.messages[j].ID] = j
	}
	return true
}

func (s *MessageStream) handleRemoteInsert(ctx context.Context, gen int, msg *entity.Message) {
	s.mu.Lock()
	if gen != s.generation || msg.ConversationID != s.conversationID {
		s.mu.Unlock()
		return
	}
	if _, dup := s.index[msg.ID]; dup {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// Hydrate outside the lock; the generation is re-checked before applying.
	view, err := s.messaging.hydrateMessage(ctx, msg)
	if err != nil {
		view = &MessageView{Message: msg}
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	added := s.insertLocked(view)
	onInsert := s.events.OnInsert
	s.mu.Unlock()

	if added && onInsert != nil {
		onInsert(view)
	}
}

func (s *MessageStream) handleRemoteUpdate(ctx context.Context, gen int, msg *entity.Message) {
	if msg.IsDeleted {
		msg.Content = entity.DeletedMessageContent
	}

	view, err := s.messaging.hydrateMessage(ctx, msg)
	if err != nil {
		view = &MessageView{Message: msg}
	}

	s.mu.Lock()
	if gen != s.generation || msg.ConversationID != s.conversationID {
		s.mu.Unlock()
		return
	}
	pos, exists := s.index[msg.ID]
	if !exists {
		s.mu.Unlock()
		return
	}
	s.messages[pos] = view
	onUpdate := s.events.OnUpdate
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(view)
	}
}

// patch replaces the stored entry for an already-placed message.
func (s *MessageStream) patch(view *MessageView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos, exists := s.index[view.ID]; exists {
		s.messages[pos] = view
	}
}

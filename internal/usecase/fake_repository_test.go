package usecase

import (
	"context"
	"sync"
	"time"

	"keurimmo/internal/domain/entity"
	"keurimmo/internal/domain/repository"
	"keurimmo/pkg/errors"
)

// fakeMessagingRepo is an in-memory MessagingRepository with synchronous
// change-stream delivery, so tests can push events deterministically.
type fakeMessagingRepo struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string]*entity.Message
	typing        map[string]*entity.TypingStatus

	msgHandlers    map[string][]*repository.MessageEventHandler
	typingHandlers map[string][]*typingHandler

	createMessageErr error
	listMessagesErr  error
	subscribeErr     error
	hideFromFind     bool

	upsertTypingCalls int
}

type typingHandler struct {
	fn func(*entity.TypingStatus)
}

func newFakeMessagingRepo() *fakeMessagingRepo {
	return &fakeMessagingRepo{
		conversations:  make(map[string]*entity.Conversation),
		messages:       make(map[string]*entity.Message),
		typing:         make(map[string]*entity.TypingStatus),
		msgHandlers:    make(map[string][]*repository.MessageEventHandler),
		typingHandlers: make(map[string][]*typingHandler),
	}
}

func (f *fakeMessagingRepo) CreateConversation(ctx context.Context, conv *entity.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.conversations[conv.ID]; exists {
		return errors.Conflict("Conversation already exists", nil)
	}
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	f.conversations[conv.ID] = conv
	return nil
}

func (f *fakeMessagingRepo) GetConversation(ctx context.Context, id string) (*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conv, nil
}

func (f *fakeMessagingRepo) FindConversation(ctx context.Context, userA, userB, listingID string) (*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideFromFind {
		return nil, errors.NotFound("Conversation", nil)
	}
	for _, conv := range f.conversations {
		if conv.ListingID != listingID {
			continue
		}
		if (conv.Participant1 == userA && conv.Participant2 == userB) ||
			(conv.Participant1 == userB && conv.Participant2 == userA) {
			return conv, nil
		}
	}
	return nil, errors.NotFound("Conversation", nil)
}

func (f *fakeMessagingRepo) ListConversationsByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Conversation
	for _, conv := range f.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (f *fakeMessagingRepo) UpdateConversation(ctx context.Context, conv *entity.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.conversations[conv.ID]; !ok {
		return errors.NotFound("Conversation", nil)
	}
	conv.UpdatedAt = time.Now()
	f.conversations[conv.ID] = conv
	return nil
}

func (f *fakeMessagingRepo) CreateMessage(ctx context.Context, msg *entity.Message) error {
	f.mu.Lock()
	if f.createMessageErr != nil {
		err := f.createMessageErr
		f.mu.Unlock()
		return err
	}
	f.messages[msg.ID] = msg
	handlers := append([]*repository.MessageEventHandler(nil), f.msgHandlers[msg.ConversationID]...)
	f.mu.Unlock()

	for _, h := range handlers {
		if h.OnInsert != nil {
			h.OnInsert(msg)
		}
	}
	return nil
}

func (f *fakeMessagingRepo) GetMessage(ctx context.Context, id string) (*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return msg, nil
}

func (f *fakeMessagingRepo) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listMessagesErr != nil {
		return nil, f.listMessagesErr
	}
	var out []*entity.Message
	for _, msg := range f.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeMessagingRepo) UpdateMessage(ctx context.Context, msg *entity.Message) error {
	f.mu.Lock()
	if _, ok := f.messages[msg.ID]; !ok {
		f.mu.Unlock()
		return errors.NotFound("Message", nil)
	}
	f.messages[msg.ID] = msg
	handlers := append([]*repository.MessageEventHandler(nil), f.msgHandlers[msg.ConversationID]...)
	f.mu.Unlock()

	for _, h := range handlers {
		if h.OnUpdate != nil {
			h.OnUpdate(msg)
		}
	}
	return nil
}

func (f *fakeMessagingRepo) MarkMessagesRead(ctx context.Context, conversationID, readerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.messages {
		if msg.ConversationID == conversationID && msg.SenderID != readerID {
			msg.IsRead = true
		}
	}
	return nil
}

func (f *fakeMessagingRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, conv := range f.conversations {
		if conv.HasParticipant(userID) {
			total += int64(conv.UnreadFor(userID))
		}
	}
	return total, nil
}

type fakeSubscription struct {
	remove func()
	once   sync.Once
}

func (s *fakeSubscription) Unsubscribe() {
	s.once.Do(s.remove)
}

func (f *fakeMessagingRepo) SubscribeToMessages(ctx context.Context, conversationID string, handler repository.MessageEventHandler) (repository.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}

	h := &handler
	f.msgHandlers[conversationID] = append(f.msgHandlers[conversationID], h)

	return &fakeSubscription{remove: func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		handlers := f.msgHandlers[conversationID]
		for i, existing := range handlers {
			if existing == h {
				f.msgHandlers[conversationID] = append(handlers[:i], handlers[i+1:]...)
				break
			}
		}
	}}, nil
}

func (f *fakeMessagingRepo) UpsertTypingStatus(ctx context.Context, status *entity.TypingStatus) error {
	f.mu.Lock()
	f.upsertTypingCalls++
	key := status.ConversationID + "_" + status.UserID
	f.typing[key] = status
	handlers := append([]*typingHandler(nil), f.typingHandlers[status.ConversationID]...)
	f.mu.Unlock()

	for _, h := range handlers {
		h.fn(status)
	}
	return nil
}

func (f *fakeMessagingRepo) SubscribeToTyping(ctx context.Context, conversationID string, onChange func(*entity.TypingStatus)) (repository.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := &typingHandler{fn: onChange}
	f.typingHandlers[conversationID] = append(f.typingHandlers[conversationID], h)

	return &fakeSubscription{remove: func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		handlers := f.typingHandlers[conversationID]
		for i, existing := range handlers {
			if existing == h {
				f.typingHandlers[conversationID] = append(handlers[:i], handlers[i+1:]...)
				break
			}
		}
	}}, nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*entity.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*entity.Profile)}
}

func (f *fakeProfileRepo) Create(ctx context.Context, profile *entity.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.ID] = profile
	return nil
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[id]
	if !ok {
		return nil, errors.NotFound("Profile", nil)
	}
	return profile, nil
}

func (f *fakeProfileRepo) Update(ctx context.Context, profile *entity.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.ID] = profile
	return nil
}

type fakeListingRepo struct {
	mu       sync.Mutex
	listings map[string]*entity.Listing
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[string]*entity.Listing)}
}

func (f *fakeListingRepo) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing, ok := f.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	return listing, nil
}

func (f *fakeListingRepo) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]*entity.Listing, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Listing
	for _, listing := range f.listings {
		if listing.AgentID == agentID {
			out = append(out, listing)
		}
	}
	return out, int64(len(out)), nil
}

// newTestEnv wires the fakes with two profiles and one listing ready to use.
func newTestEnv() (*fakeMessagingRepo, *fakeProfileRepo, *fakeListingRepo, *DirectoryUseCase, *MessagingUseCase) {
	messagingRepo := newFakeMessagingRepo()
	profileRepo := newFakeProfileRepo()
	listingRepo := newFakeListingRepo()

	profileRepo.profiles["alice"] = &entity.Profile{ID: "alice", FullName: "Alice Diop", Role: "client"}
	profileRepo.profiles["bernard"] = &entity.Profile{ID: "bernard", FullName: "Bernard Ndiaye", Role: "agent", IsVerified: true}
	listingRepo.listings["listing-42"] = &entity.Listing{
		ID:      "listing-42",
		AgentID: "bernard",
		Title:   "Appartement T3 Plateau",
		Price:   45000000,
		Ville:   "Dakar",
		Images:  []string{"https://example.com/t3.jpg"},
	}

	directory := NewDirectoryUseCase(messagingRepo, profileRepo, listingRepo)
	messaging := NewMessagingUseCase(messagingRepo, profileRepo, listingRepo)
	return messagingRepo, profileRepo, listingRepo, directory, messaging
}

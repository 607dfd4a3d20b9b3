package repository

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"keurimmo/internal/domain/entity"
	"keurimmo/internal/domain/repository"
	"keurimmo/pkg/errors"
	"keurimmo/pkg/logger"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
	typingCollection        = "typing_status"
)

type firestoreMessagingRepository struct {
	client *firestore.Client
}

func NewFirestoreMessagingRepository(client *firestore.Client) repository.MessagingRepository {
	return &firestoreMessagingRepository{
		client: client,
	}
}

func (r *firestoreMessagingRepository) CreateConversation(ctx context.Context, conv *entity.Conversation) error {
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	if conv.LastMessageAt.IsZero() {
		conv.LastMessageAt = now
	}

	// Create (not Set) so concurrent inserts with the same deterministic id
	// collapse to one row instead of silently overwriting each other.
	_, err := r.client.Collection(conversationsCollection).Doc(conv.ID).Create(ctx, conv)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Conversation already exists", err)
		}
		return errors.DataAccess("Failed to create conversation", err)
	}

	return nil
}

func (r *firestoreMessagingRepository) GetConversation(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection(conversationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.DataAccess("Failed to get conversation", err)
	}

	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	return &conv, nil
}

func (r *firestoreMessagingRepository) FindConversation(ctx context.Context, userA, userB, listingID string) (*entity.Conversation, error) {
	pairFilter := firestore.OrFilter{
		Filters: []firestore.EntityFilter{
			firestore.AndFilter{
				Filters: []firestore.EntityFilter{
					firestore.PropertyFilter{Path: "participant1", Operator: "==", Value: userA},
					firestore.PropertyFilter{Path: "participant2", Operator: "==", Value: userB},
				},
			},
			firestore.AndFilter{
				Filters: []firestore.EntityFilter{
					firestore.PropertyFilter{Path: "participant1", Operator: "==", Value: userB},
					firestore.PropertyFilter{Path: "participant2", Operator: "==", Value: userA},
				},
			},
		},
	}

	query := r.client.Collection(conversationsCollection).
		WhereEntity(pairFilter).
		Where("listingId", "==", listingID).
		Limit(1)

	iter := query.Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Conversation", nil)
	}
	if err != nil {
		return nil, errors.DataAccess("Failed to search conversations", err)
	}

	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	return &conv, nil
}

func (r *firestoreMessagingRepository) ListConversationsByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	query := r.client.Collection(conversationsCollection).
		WhereEntity(firestore.OrFilter{
			Filters: []firestore.EntityFilter{
				firestore.PropertyFilter{Path: "participant1", Operator: "==", Value: userID},
				firestore.PropertyFilter{Path: "participant2", Operator: "==", Value: userID},
			},
		}).
		OrderBy("lastMessageAt", firestore.Desc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var conversations []*entity.Conversation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.DataAccess("Failed to list conversations", err)
		}

		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			logger.Warn("Skipping malformed conversation document %s: %v", doc.Ref.ID, err)
			continue
		}
		conversations = append(conversations, &conv)
	}

	return conversations, nil
}

func (r *firestoreMessagingRepository) UpdateConversation(ctx context.Context, conv *entity.Conversation) error {
	conv.UpdatedAt = time.Now()

	_, err := r.client.Collection(conversationsCollection).Doc(conv.ID).Set(ctx, conv)
	if err != nil {
		return errors.DataAccess("Failed to update conversation", err)
	}
	return nil
}

func (r *firestoreMessagingRepository) CreateMessage(ctx context.Context, msg *entity.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := r.client.Collection(messagesCollection).Doc(msg.ID).Create(ctx, msg)
	if err != nil {
		return errors.DataAccess("Failed to create message", err)
	}
	return nil
}

func (r *firestoreMessagingRepository) GetMessage(ctx context.Context, id string) (*entity.Message, error) {
	doc, err := r.client.Collection(messagesCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.DataAccess("Failed to get message", err)
	}

	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &msg, nil
}

func (r *firestoreMessagingRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	query := r.client.Collection(messagesCollection).
		Where("conversationId", "==", conversationID).
		OrderBy("createdAt", firestore.Asc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.DataAccess("Failed to list messages", err)
		}

		var msg entity.Message
		if err := doc.DataTo(&msg); err != nil {
			logger.Warn("Skipping malformed message document %s: %v", doc.Ref.ID, err)
			continue
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}

func (r *firestoreMessagingRepository) UpdateMessage(ctx context.Context, msg *entity.Message) error {
	_, err := r.client.Collection(messagesCollection).Doc(msg.ID).Set(ctx, msg)
	if err != nil {
		return errors.DataAccess("Failed to update message", err)
	}
	return nil
}

func (r *firestoreMessagingRepository) MarkMessagesRead(ctx context.Context, conversationID, readerID string) error {
	query := r.client.Collection(messagesCollection).
		Where("conversationId", "==", conversationID).
		Where("isRead", "==", false)

	iter := query.Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.DataAccess("Failed to query unread messages", err)
		}

		var msg entity.Message
		if err := doc.DataTo(&msg); err != nil {
			continue
		}
		// Only the recipient transition touches the read flag.
		if msg.SenderID == readerID {
			continue
		}

		if _, err := bw.Update(doc.Ref, []firestore.Update{{Path: "isRead", Value: true}}); err != nil {
			return errors.DataAccess("Failed to mark message read", err)
		}
	}
	bw.End()

	return nil
}

func (r *firestoreMessagingRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	conversations, err := r.ListConversationsByParticipant(ctx, userID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, conv := range conversations {
		total += int64(conv.UnreadFor(userID))
	}
	return total, nil
}

// snapshotSubscription cancels the listener context. Unsubscribe is
// idempotent; the listener goroutine exits once the snapshot iterator fails
// with the canceled context.
type snapshotSubscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *snapshotSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

func (r *firestoreMessagingRepository) SubscribeToMessages(ctx context.Context, conversationID string, handler repository.MessageEventHandler) (repository.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	snapshots := r.client.Collection(messagesCollection).
		Where("conversationId", "==", conversationID).
		Snapshots(ctx)

	go func() {
		defer snapshots.Stop()
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logger.Warn("Message snapshot stream for conversation %s closed: %v", conversationID, err)
				}
				return
			}
			for _, change := range snap.Changes {
				var msg entity.Message
				if err := change.Doc.DataTo(&msg); err != nil {
					logger.Warn("Skipping malformed message event in conversation %s: %v", conversationID, err)
					continue
				}
				switch change.Kind {
				case firestore.DocumentAdded:
					if handler.OnInsert != nil {
						handler.OnInsert(&msg)
					}
				case firestore.DocumentModified:
					if handler.OnUpdate != nil {
						handler.OnUpdate(&msg)
					}
				}
			}
		}
	}()

	return &snapshotSubscription{cancel: cancel}, nil
}

func typingDocID(conversationID, userID string) string {
	return conversationID + "_" + userID
}

func (r *firestoreMessagingRepository) UpsertTypingStatus(ctx context.Context, typing *entity.TypingStatus) error {
	typing.UpdatedAt = time.Now()

	docID := typingDocID(typing.ConversationID, typing.UserID)
	_, err := r.client.Collection(typingCollection).Doc(docID).Set(ctx, typing)
	if err != nil {
		return errors.DataAccess("Failed to upsert typing status", err)
	}
	return nil
}

func (r *firestoreMessagingRepository) SubscribeToTyping(ctx context.Context, conversationID string, onChange func(*entity.TypingStatus)) (repository.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	snapshots := r.client.Collection(typingCollection).
		Where("conversationId", "==", conversationID).
		Snapshots(ctx)

	go func() {
		defer snapshots.Stop()
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logger.Warn("Typing snapshot stream for conversation %s closed: %v", conversationID, err)
				}
				return
			}
			for _, change := range snap.Changes {
				if change.Kind == firestore.DocumentRemoved {
					continue
				}
				var typing entity.TypingStatus
				if err := change.Doc.DataTo(&typing); err != nil {
					continue
				}
				onChange(&typing)
			}
		}
	}()

	return &snapshotSubscription{cancel: cancel}, nil
}

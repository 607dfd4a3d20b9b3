package websocket

import (
	"context"
	"encoding/json"
	"time"

	"keurimmo/internal/domain/entity"
	"keurimmo/internal/usecase"
	apperrors "keurimmo/pkg/errors"
	"keurimmo/pkg/logger"
)

// Client event types.
const (
	EventPing              = "ping"
	EventPong              = "pong"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventEditMessage       = "edit_message"
	EventDeleteMessage     = "delete_message"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventMarkRead          = "mark_read"
	EventRetry             = "retry"
)

// Server event types.
const (
	EventConversationReady = "conversation_ready"
	EventConversationError = "conversation_error"
	EventMessage           = "message"
	EventMessageSent       = "message_sent"
	EventMessageUpdated    = "message_updated"
	EventTypingIndicator   = "typing_indicator"
	EventError             = "error"
)

type WSMessage struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	Timestamp      string          `json:"timestamp"`
}

type outMessage struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

type sendMessageData struct {
	Content        string `json:"content"`
	Kind           string `json:"message_type"`
	AttachmentURL  string `json:"attachment_url"`
	AttachmentName string `json:"attachment_name"`
	AttachmentSize int64  `json:"attachment_size"`
	ListingID      string `json:"listing_id"`
	ReplyToID      string `json:"reply_to_id"`
}

type editMessageData struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

type deleteMessageData struct {
	MessageID string `json:"message_id"`
}

type conversationReadyData struct {
	ConversationID string                  `json:"conversation_id"`
	Degraded       bool                    `json:"degraded"`
	Groups         []*usecase.MessageGroup `json:"groups"`
}

type typingIndicatorData struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Typing         bool   `json:"typing"`
}

// HandleClientMessage dispatches one frame from the client.
func (m *Manager) HandleClientMessage(client *Client, payload []byte) {
	var msg WSMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		m.sendError(client, "", "INVALID_FRAME", "Invalid message format")
		return
	}

	switch msg.Type {
	case EventPing:
		m.send(client, outMessage{Type: EventPong, Data: map[string]string{"status": "alive"}})

	case EventJoinConversation:
		m.handleJoin(client, msg.ConversationID)

	case EventLeaveConversation:
		client.releaseConversation()

	case EventRetry:
		m.handleRetry(client)

	case EventSendMessage:
		m.handleSend(client, msg)

	case EventEditMessage:
		m.handleEdit(client, msg)

	case EventDeleteMessage:
		m.handleDelete(client, msg)

	case EventTypingStart:
		client.mu.Lock()
		tracker := client.tracker
		client.mu.Unlock()
		if tracker != nil {
			tracker.Keystroke(context.Background())
		}

	case EventTypingStop:
		client.mu.Lock()
		tracker := client.tracker
		client.mu.Unlock()
		if tracker != nil {
			tracker.Stop(context.Background())
		}

	case EventMarkRead:
		if msg.ConversationID == "" {
			m.sendError(client, "", "INVALID_FRAME", "Missing conversation_id")
			return
		}
		if err := m.directory.MarkRead(context.Background(), msg.ConversationID, client.UserID); err != nil {
			m.sendAppError(client, msg.ConversationID, err)
		}

	default:
		m.sendError(client, msg.ConversationID, "UNKNOWN_EVENT", "Unknown message type")
	}
}

// handleJoin opens the conversation for this connection: stream first, then
// the typing channel, then an initial read-marking pass. A prior open
// conversation is released before anything else.
func (m *Manager) handleJoin(client *Client, conversationID string) {
	if conversationID == "" {
		m.sendError(client, "", "INVALID_FRAME", "Missing conversation_id")
		return
	}

	client.releaseConversation()

	stream := usecase.NewMessageStream(m.messaging, m.messagingRepo, client.UserID)
	events := usecase.StreamEvents{
		OnInsert: func(view *usecase.MessageView) { m.onStreamInsert(client, view) },
		OnUpdate: func(view *usecase.MessageView) {
			m.send(client, outMessage{Type: EventMessageUpdated, ConversationID: view.ConversationID, Data: view})
		},
	}

	err := stream.Open(context.Background(), conversationID, events)
	degraded := false
	switch {
	case err == nil:
	case apperrors.Is(err, "SUBSCRIPTION_FAILED"):
		degraded = true
	default:
		stream.Close()
		m.sendAppError(client, conversationID, err)
		return
	}

	typingSub, terr := m.typing.Subscribe(context.Background(), conversationID, client.UserID, func(status *entity.TypingStatus) {
		m.send(client, outMessage{
			Type:           EventTypingIndicator,
			ConversationID: status.ConversationID,
			Data: typingIndicatorData{
				ConversationID: status.ConversationID,
				UserID:         status.UserID,
				Typing:         status.IsTyping,
			},
		})
	})
	if terr != nil {
		logger.Warn("Typing channel unavailable for %s: %v", conversationID, terr)
	}

	client.mu.Lock()
	client.stream = stream
	client.typingSub = typingSub
	client.tracker = usecase.NewTypingTracker(m.typing, conversationID, client.UserID)
	client.mu.Unlock()

	if err := m.directory.MarkRead(context.Background(), conversationID, client.UserID); err != nil {
		logger.Warn("Mark read on join failed for %s: %v", conversationID, err)
	}

	m.send(client, outMessage{
		Type:           EventConversationReady,
		ConversationID: conversationID,
		Data: conversationReadyData{
			ConversationID: conversationID,
			Degraded:       degraded,
			Groups:         usecase.GroupByDay(stream.Messages(), time.Now(), time.Local),
		},
	})
}

func (m *Manager) handleRetry(client *Client) {
	client.mu.Lock()
	stream := client.stream
	client.mu.Unlock()
	if stream == nil {
		m.sendError(client, "", "NO_CONVERSATION", "No conversation is open")
		return
	}

	if err := stream.Retry(context.Background()); err != nil && !apperrors.Is(err, "SUBSCRIPTION_FAILED") {
		m.sendAppError(client, stream.ConversationID(), err)
		return
	}

	m.send(client, outMessage{
		Type:           EventConversationReady,
		ConversationID: stream.ConversationID(),
		Data: conversationReadyData{
			ConversationID: stream.ConversationID(),
			Groups:         usecase.GroupByDay(stream.Messages(), time.Now(), time.Local),
		},
	})
}

// onStreamInsert forwards a pushed message and marks it read straight away,
// since having the conversation open counts as reading it.
func (m *Manager) onStreamInsert(client *Client, view *usecase.MessageView) {
	m.send(client, outMessage{Type: EventMessage, ConversationID: view.ConversationID, Data: view})

	if view.SenderID != client.UserID {
		if err := m.directory.MarkRead(context.Background(), view.ConversationID, client.UserID); err != nil {
			logger.Warn("Mark read on push failed for %s: %v", view.ConversationID, err)
		}
	}
}

func (m *Manager) handleSend(client *Client, msg WSMessage) {
	client.mu.Lock()
	stream := client.stream
	tracker := client.tracker
	client.mu.Unlock()
	if stream == nil {
		m.sendError(client, "", "NO_CONVERSATION", "No conversation is open")
		return
	}

	var data sendMessageData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			m.sendError(client, stream.ConversationID(), "INVALID_FRAME", "Invalid send payload")
			return
		}
	}

	if tracker != nil {
		tracker.Stop(context.Background())
	}

	view, err := stream.Send(context.Background(), usecase.SendMessageInput{
		Content:        data.Content,
		Kind:           entity.MessageKind(data.Kind),
		AttachmentURL:  data.AttachmentURL,
		AttachmentName: data.AttachmentName,
		AttachmentSize: data.AttachmentSize,
		ListingID:      data.ListingID,
		ReplyToID:      data.ReplyToID,
	})
	if err != nil {
		m.sendAppError(client, stream.ConversationID(), err)
		return
	}

	m.send(client, outMessage{Type: EventMessageSent, ConversationID: view.ConversationID, Data: view})
}

func (m *Manager) handleEdit(client *Client, msg WSMessage) {
	client.mu.Lock()
	stream := client.stream
	client.mu.Unlock()
	if stream == nil {
		m.sendError(client, "", "NO_CONVERSATION", "No conversation is open")
		return
	}

	var data editMessageData
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.MessageID == "" {
		m.sendError(client, stream.ConversationID(), "INVALID_FRAME", "Invalid edit payload")
		return
	}

	view, err := stream.Edit(context.Background(), data.MessageID, data.Content)
	if err != nil {
		m.sendAppError(client, stream.ConversationID(), err)
		return
	}
	m.send(client, outMessage{Type: EventMessageUpdated, ConversationID: view.ConversationID, Data: view})
}

func (m *Manager) handleDelete(client *Client, msg WSMessage) {
	client.mu.Lock()
	stream := client.stream
	client.mu.Unlock()
	if stream == nil {
		m.sendError(client, "", "NO_CONVERSATION", "No conversation is open")
		return
	}

	var data deleteMessageData
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.MessageID == "" {
		m.sendError(client, stream.ConversationID(), "INVALID_FRAME", "Invalid delete payload")
		return
	}

	view, err := stream.Delete(context.Background(), data.MessageID)
	if err != nil {
		m.sendAppError(client, stream.ConversationID(), err)
		return
	}
	m.send(client, outMessage{Type: EventMessageUpdated, ConversationID: view.ConversationID, Data: view})
}

func (m *Manager) send(client *Client, msg outMessage) {
	msg.Timestamp = time.Now().Format(time.RFC3339)
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal frame for %s: %v", client.UserID, err)
		return
	}

	select {
	case client.Send <- payload:
	default:
		logger.Warn("Send channel full for %s, dropping frame", client.UserID)
	}
}

func (m *Manager) sendError(client *Client, conversationID, code, message string) {
	m.send(client, outMessage{
		Type:           EventError,
		ConversationID: conversationID,
		Data:           map[string]string{"code": code, "message": message},
	})
}

func (m *Manager) sendAppError(client *Client, conversationID string, err error) {
	if apperrors.IsCanceled(err) {
		return
	}
	if appErr, ok := err.(*apperrors.AppError); ok {
		m.sendError(client, conversationID, appErr.Code, appErr.Message)
		return
	}
	m.sendError(client, conversationID, "INTERNAL_ERROR", "Something went wrong")
}

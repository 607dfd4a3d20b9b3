package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"keurimmo/internal/domain/entity"
	"keurimmo/internal/infrastructure/ratelimit"
	"keurimmo/internal/usecase"
	"keurimmo/pkg/errors"
	"keurimmo/pkg/response"
)

type MessageHandler struct {
	messagingUseCase *usecase.MessagingUseCase
	directoryUseCase *usecase.DirectoryUseCase
	rateLimiter      *ratelimit.RateLimiter
}

func NewMessageHandler(
	messagingUseCase *usecase.MessagingUseCase,
	directoryUseCase *usecase.DirectoryUseCase,
	rateLimiter *ratelimit.RateLimiter,
) *MessageHandler {
	return &MessageHandler{
		messagingUseCase: messagingUseCase,
		directoryUseCase: directoryUseCase,
		rateLimiter:      rateLimiter,
	}
}

type sendMessageRequest struct {
	Content        string `json:"content" validate:"required"`
	Type           string `json:"message_type" validate:"required,oneof=text image file listing_card system"`
	AttachmentURL  string `json:"attachment_url,omitempty" validate:"omitempty,url"`
	AttachmentName string `json:"attachment_name,omitempty"`
	AttachmentSize int64  `json:"attachment_size,omitempty"`
	ListingID      string `json:"listing_id,omitempty"`
	ReplyToID      string `json:"reply_to_id,omitempty"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// SendMessage appends a message to a conversation. The response carries the
// persisted message; the caller renders it only after this returns.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if allowed, wait := h.rateLimiter.Allow(userID, "send_message"); !allowed {
		return response.Error(c, errors.New("RATE_LIMITED", "Too many messages, retry in "+wait.String(), 429, nil))
	}

	message, err := h.messagingUseCase.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ConversationID: c.Param("id"),
		Content:        req.Content,
		Kind:           entity.MessageKind(req.Type),
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
		AttachmentSize: req.AttachmentSize,
		ListingID:      req.ListingID,
		ReplyToID:      req.ReplyToID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// GetMessages returns the conversation history grouped by calendar day, in
// the shape the thread view renders directly.
func (h *MessageHandler) GetMessages(c echo.Context) error {
	userID := c.Get("uid").(string)

	messages, err := h.messagingUseCase.LoadHistory(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	if c.QueryParam("grouped") == "true" {
		return response.Success(c, usecase.GroupByDay(messages, time.Now(), time.Local))
	}

	return response.Success(c, messages)
}

// EditMessage revises the caller's own text message.
func (h *MessageHandler) EditMessage(c echo.Context) error {
	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.messagingUseCase.EditMessage(c.Request().Context(), userID, c.Param("id"), req.Content)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

// DeleteMessage soft-deletes the caller's own message, leaving a tombstone.
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	userID := c.Get("uid").(string)

	message, err := h.messagingUseCase.DeleteMessage(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

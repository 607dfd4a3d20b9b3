package handler

import (
	"github.com/labstack/echo/v4"

	"keurimmo/internal/infrastructure/ratelimit"
	"keurimmo/internal/usecase"
	"keurimmo/pkg/errors"
	"keurimmo/pkg/response"
)

type ConversationHandler struct {
	directoryUseCase *usecase.DirectoryUseCase
	rateLimiter      *ratelimit.RateLimiter
}

func NewConversationHandler(directoryUseCase *usecase.DirectoryUseCase, rateLimiter *ratelimit.RateLimiter) *ConversationHandler {
	return &ConversationHandler{
		directoryUseCase: directoryUseCase,
		rateLimiter:      rateLimiter,
	}
}

type createConversationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	ListingID   string `json:"listing_id"`
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

// CreateConversation opens the conversation with a recipient about a listing,
// returning the existing one when the pair already talked in that scope.
func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if allowed, wait := h.rateLimiter.Allow(userID, "create_conversation"); !allowed {
		return response.Error(c, errors.New("RATE_LIMITED", "Too many new conversations, retry in "+wait.String(), 429, nil))
	}

	conv, err := h.directoryUseCase.CreateOrGetConversation(c.Request().Context(), userID, req.RecipientID, req.ListingID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, conv)
}

// ListConversations returns the caller's directory, most recent first.
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)

	conversations, err := h.directoryUseCase.ListConversations(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversations)
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	userID := c.Get("uid").(string)

	conv, err := h.directoryUseCase.GetConversation(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

// MarkRead zeroes the caller's unread counter and flags the other side's
// messages as read.
func (h *ConversationHandler) MarkRead(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.directoryUseCase.MarkRead(c.Request().Context(), c.Param("id"), userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}

func (h *ConversationHandler) SetArchived(c echo.Context) error {
	var req archiveRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.directoryUseCase.SetArchived(c.Request().Context(), c.Param("id"), userID, req.Archived); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"archived": req.Archived})
}

func (h *ConversationHandler) Block(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.directoryUseCase.Block(c.Request().Context(), c.Param("id"), userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "blocked"})
}

func (h *ConversationHandler) Unblock(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.directoryUseCase.Unblock(c.Request().Context(), c.Param("id"), userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "unblocked"})
}

// UnreadCount returns the caller's total unread messages across all
// conversations, for the navigation badge.
func (h *ConversationHandler) UnreadCount(c echo.Context) error {
	userID := c.Get("uid").(string)

	total, err := h.directoryUseCase.UnreadTotal(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int64{"unread_count": total})
}

package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"keurimmo/internal/infrastructure/ratelimit"
	"keurimmo/internal/infrastructure/storage"
	"keurimmo/internal/usecase"
	"keurimmo/pkg/errors"
	"keurimmo/pkg/logger"
	"keurimmo/pkg/response"
)

type UploadHandler struct {
	storageClient    *storage.CloudStorageClient
	directoryUseCase *usecase.DirectoryUseCase
	rateLimiter      *ratelimit.RateLimiter
	maxFileSize      int64
}

func NewUploadHandler(
	storageClient *storage.CloudStorageClient,
	directoryUseCase *usecase.DirectoryUseCase,
	rateLimiter *ratelimit.RateLimiter,
	maxFileSizeMB int64,
) *UploadHandler {
	return &UploadHandler{
		storageClient:    storageClient,
		directoryUseCase: directoryUseCase,
		rateLimiter:      rateLimiter,
		maxFileSize:      maxFileSizeMB * 1024 * 1024,
	}
}

func isAllowedAttachmentType(fileType string) bool {
	switch fileType {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "application/pdf":
		return true
	}
	return false
}

// UploadAttachment stores a file destined for a message in a conversation the
// caller participates in, and returns the URL to put on the message.
func (h *UploadHandler) UploadAttachment(c echo.Context) error {
	userID := c.Get("uid").(string)

	if allowed, wait := h.rateLimiter.Allow(userID, "upload"); !allowed {
		return response.Error(c, errors.New("RATE_LIMITED", "Too many uploads, retry in "+wait.String(), 429, nil))
	}

	conversationID := c.FormValue("conversation_id")
	if conversationID == "" {
		return response.Error(c, errors.BadRequest("Missing conversation_id", nil))
	}

	// Membership check doubles as an existence check.
	if _, err := h.directoryUseCase.GetConversation(c.Request().Context(), conversationID, userID); err != nil {
		return response.Error(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("Missing or invalid file", err))
	}

	if file.Size > h.maxFileSize {
		return response.Error(c, errors.BadRequest(
			fmt.Sprintf("File size exceeds maximum allowed (%dMB)", h.maxFileSize/(1024*1024)), nil))
	}

	fileType := file.Header.Get("Content-Type")
	if !isAllowedAttachmentType(fileType) {
		return response.Error(c, errors.BadRequest("File type not supported", nil))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Unable to read file", err))
	}
	defer src.Close()

	result, err := h.storageClient.UploadAttachment(c.Request().Context(), src, fileType, conversationID)
	if err != nil {
		logger.Error("Attachment upload failed: %v", err)
		return response.Error(c, errors.Internal("Failed to upload file", err))
	}

	return response.Created(c, map[string]interface{}{
		"url":       result.URL,
		"name":      file.Filename,
		"size":      result.Size,
		"file_type": fileType,
	})
}

// SignedUploadURL returns a short-lived direct-to-bucket PUT URL for large
// attachments.
func (h *UploadHandler) SignedUploadURL(c echo.Context) error {
	userID := c.Get("uid").(string)

	conversationID := c.QueryParam("conversation_id")
	fileType := c.QueryParam("file_type")
	if conversationID == "" || fileType == "" {
		return response.Error(c, errors.BadRequest("conversation_id and file_type are required", nil))
	}
	if !isAllowedAttachmentType(fileType) {
		return response.Error(c, errors.BadRequest("File type not supported", nil))
	}

	if _, err := h.directoryUseCase.GetConversation(c.Request().Context(), conversationID, userID); err != nil {
		return response.Error(c, err)
	}

	url, err := h.storageClient.GenerateSignedUploadURL(c.Request().Context(), fileType, conversationID)
	if err != nil {
		logger.Error("Signed URL generation failed: %v", err)
		return response.Error(c, errors.Internal("Failed to generate upload URL", err))
	}

	return response.Success(c, map[string]string{"upload_url": url})
}

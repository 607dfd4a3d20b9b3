package router

import (
	"github.com/labstack/echo/v4"

	"keurimmo/internal/adapter/api/handler"
	"keurimmo/internal/adapter/api/middleware"
)

// SetupMessagingRouter wires the conversation directory and message thread
// endpoints. Everything here requires authentication.
func SetupMessagingRouter(
	e *echo.Echo,
	conversationHandler *handler.ConversationHandler,
	messageHandler *handler.MessageHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.POST("", conversationHandler.CreateConversation)
	conversations.GET("", conversationHandler.ListConversations)
	conversations.GET("/:id", conversationHandler.GetConversation)
	conversations.PUT("/:id/read", conversationHandler.MarkRead)
	conversations.PUT("/:id/archive", conversationHandler.SetArchived)
	conversations.POST("/:id/block", conversationHandler.Block)
	conversations.DELETE("/:id/block", conversationHandler.Unblock)

	conversations.POST("/:id/messages", messageHandler.SendMessage)
	conversations.GET("/:id/messages", messageHandler.GetMessages)

	messages := e.Group("/v1/messages")
	messages.Use(authMiddleware.Authenticate)

	messages.GET("/unread-count", conversationHandler.UnreadCount)
	messages.PUT("/:id", messageHandler.EditMessage)
	messages.DELETE("/:id", messageHandler.DeleteMessage)
}

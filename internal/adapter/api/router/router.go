package router

import (
	"github.com/labstack/echo/v4"

	"keurimmo/internal/adapter/api/handler"
	"keurimmo/internal/adapter/api/middleware"
)

type Handlers struct {
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Profile      *handler.ProfileHandler
	Listing      *handler.ListingHandler
	Upload       *handler.UploadHandler
	WebSocket    *handler.WebSocketHandler
	Health       *handler.HealthHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	SetupHealthRouter(e, h.Health)
	SetupMessagingRouter(e, h.Conversation, h.Message, authMiddleware)
	SetupProfileRouter(e, h.Profile, authMiddleware)
	SetupListingRouter(e, h.Listing, authMiddleware)
	SetupUploadRouter(e, h.Upload, authMiddleware)
	SetupWebSocketRouter(e, h.WebSocket)
}

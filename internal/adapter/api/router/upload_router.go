package router

import (
	"github.com/labstack/echo/v4"

	"keurimmo/internal/adapter/api/handler"
	"keurimmo/internal/adapter/api/middleware"
)

func SetupUploadRouter(e *echo.Echo, uploadHandler *handler.UploadHandler, authMiddleware *middleware.AuthMiddleware) {
	uploads := e.Group("/v1/uploads")
	uploads.Use(authMiddleware.Authenticate)

	uploads.POST("/attachments", uploadHandler.UploadAttachment)
	uploads.GET("/attachments/signed-url", uploadHandler.SignedUploadURL)
}

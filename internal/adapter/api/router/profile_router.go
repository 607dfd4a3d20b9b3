package router

import (
	"github.com/labstack/echo/v4"

	"keurimmo/internal/adapter/api/handler"
	"keurimmo/internal/adapter/api/middleware"
)

func SetupProfileRouter(e *echo.Echo, profileHandler *handler.ProfileHandler, authMiddleware *middleware.AuthMiddleware) {
	profiles := e.Group("/v1/profiles")
	profiles.Use(authMiddleware.Authenticate)

	profiles.GET("/me", profileHandler.GetMe)
	profiles.GET("/:id", profileHandler.GetProfile)
}

func SetupListingRouter(e *echo.Echo, listingHandler *handler.ListingHandler, authMiddleware *middleware.AuthMiddleware) {
	listings := e.Group("/v1/listings")
	listings.Use(authMiddleware.Authenticate)

	listings.GET("/:id", listingHandler.GetListing)
	listings.GET("/agents/:id", listingHandler.ListAgentListings)
}

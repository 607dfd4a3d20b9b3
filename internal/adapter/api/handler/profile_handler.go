package handler

import (
	"github.com/labstack/echo/v4"

	"keurimmo/internal/domain/repository"
	"keurimmo/pkg/response"
)

type ProfileHandler struct {
	profileRepo repository.ProfileRepository
}

func NewProfileHandler(profileRepo repository.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{
		profileRepo: profileRepo,
	}
}

// GetProfile returns the public view of a user, as shown in conversation
// headers and message attributions.
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	profile, err := h.profileRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, profile.Snapshot())
}

// GetMe returns the caller's own full profile.
func (h *ProfileHandler) GetMe(c echo.Context) error {
	userID := c.Get("uid").(string)

	profile, err := h.profileRepo.GetByID(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, profile)
}

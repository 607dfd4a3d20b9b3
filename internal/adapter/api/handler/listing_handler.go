package handler

import (
	"github.com/labstack/echo/v4"

	"keurimmo/internal/domain/entity"
	"keurimmo/internal/domain/repository"
	"keurimmo/pkg/response"
	"keurimmo/pkg/utils"
)

type ListingHandler struct {
	listingRepo repository.ListingRepository
}

func NewListingHandler(listingRepo repository.ListingRepository) *ListingHandler {
	return &ListingHandler{
		listingRepo: listingRepo,
	}
}

// GetListing returns the summary card used when a conversation or message
// references a property.
func (h *ListingHandler) GetListing(c echo.Context) error {
	listing, err := h.listingRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing.Summary())
}

// ListAgentListings returns the properties of one agent, paginated.
func (h *ListingHandler) ListAgentListings(c echo.Context) error {
	params := utils.GetPaginationParams(c)

	listings, total, err := h.listingRepo.ListByAgent(c.Request().Context(), c.Param("id"), params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	summaries := make([]*entity.ListingSummary, 0, len(listings))
	for _, listing := range listings {
		summaries = append(summaries, listing.Summary())
	}

	return response.Paginated(c, summaries, total, params.Page, params.PageSize)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/leakdex/leakdex/internal/aggregator"
	"github.com/leakdex/leakdex/internal/models"
)

// Search handles the public masked search across the selected indices.
// Backend problems never surface as errors here: an empty selection,
// unreachable targets or a registry failure all yield an empty result with
// a message, HTTP 200.
func (h *Handler) Search(c *fiber.Ctx) error {
	req := aggregator.Request{
		Query: c.Query("q"),
		Page:  c.QueryInt("page", 1),
		Size:  c.QueryInt("size", 0),
	}

	resp, err := h.aggregator.Search(c.Context(), req)
	if err != nil {
		h.logger.Error("Public search degraded", "error", err, "query", req.Query)
		return c.JSON(models.SearchResponse{
			Page:    req.Page,
			Results: []models.AccountView{},
			Message: "search temporarily unavailable",
		})
	}

	return c.JSON(resp)
}

// SearchCount handles the public count across the selected indices, with the
// same degrade-to-empty behavior as Search.
func (h *Handler) SearchCount(c *fiber.Ctx) error {
	resp, err := h.aggregator.Count(c.Context(), aggregator.Request{Query: c.Query("q")})
	if err != nil {
		h.logger.Error("Public count degraded", "error", err, "query", c.Query("q"))
		return c.JSON(models.CountResponse{Message: "search temporarily unavailable"})
	}

	return c.JSON(resp)
}

package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/leakdex/leakdex/internal/models"
	"github.com/leakdex/leakdex/internal/utils"
)

// IndicesCache returns the current cache snapshot without refreshing it.
// Staleness is visible per node through last_updated.
func (h *Handler) IndicesCache(c *fiber.Ctx) error {
	snapshot := h.cache.Get(c.Query("node"))
	return c.JSON(models.CacheResponse{Nodes: snapshot})
}

// RefreshIndicesCache rebuilds the cache from the live state of every
// registered node and reports how many selected targets were pruned.
func (h *Handler) RefreshIndicesCache(c *fiber.Ctx) error {
	snapshot, pruned, err := h.cache.Refresh(c.Context())
	if err != nil {
		h.logger.Error("Cache refresh failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "Cache refresh failed",
				Path:    c.Path(),
			},
		})
	}

	payload, _ := json.Marshal(fiber.Map{"nodes": len(snapshot), "pruned_targets": pruned})
	if err := h.publisher.Publish(c.Context(), utils.SubjectCacheRefreshed, payload); err != nil {
		h.logger.Warn("Failed to publish cache refresh event", "error", err)
	}

	return c.JSON(models.RefreshResponse{
		Nodes:         snapshot,
		PrunedTargets: pruned,
	})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/leakdex/leakdex/internal/models"
)

// SelectedIndices returns the configured public search surface.
func (h *Handler) SelectedIndices(c *fiber.Ctx) error {
	selected, err := h.registry.GetSelectedIndices(c.Context())
	if err != nil {
		h.logger.Error("Failed to load selected indices", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "Failed to load selected indices",
				Path:    c.Path(),
			},
		})
	}

	return c.JSON(models.SelectedIndicesResponse{Selected: selected})
}

// UpdateSelectedIndices replaces the configured public search surface. Every
// entry must resolve against the current cache snapshot, so stale or
// misspelled targets are rejected up front rather than silently ignored at
// query time.
func (h *Handler) UpdateSelectedIndices(c *fiber.Ctx) error {
	var req models.SelectedIndicesResponse
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Invalid request body: " + err.Error(),
				Path:    c.Path(),
			},
		})
	}

	snapshot := h.cache.Get("")
	for _, si := range req.Selected {
		if si.Index == "" {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "VALIDATION_ERROR",
					Message: "Selected entry is missing an index name",
					Path:    c.Path(),
				},
			})
		}
		if !si.Resolves(snapshot) {
			target := si.Index
			if si.Node != "" {
				target = si.Node + "/" + si.Index
			}
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "TARGET_NOT_FOUND",
					Message: "Selected target is not in the index cache: " + target,
					Path:    c.Path(),
				},
			})
		}
	}

	if err := h.registry.PutSelectedIndices(c.Context(), req.Selected); err != nil {
		h.logger.Error("Failed to store selected indices", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "Failed to store selected indices",
				Path:    c.Path(),
			},
		})
	}

	h.logger.Info("Selected indices updated", "count", len(req.Selected))
	return c.JSON(models.SelectedIndicesResponse{Selected: req.Selected})
}

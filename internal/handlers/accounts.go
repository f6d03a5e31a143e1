package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/leakdex/leakdex/internal/aggregator"
	"github.com/leakdex/leakdex/internal/models"
)

// Accounts handles the admin unmasked search. Admin callers may target any
// cached (node, index) pair, not just the selected public surface, and
// receive the raw line alongside the parsed fields.
func (h *Handler) Accounts(c *fiber.Ctx) error {
	req := aggregator.Request{
		Query: c.Query("q"),
		Page:  c.QueryInt("page", 1),
		Size:  c.QueryInt("size", 0),
		Node:  c.Query("node"),
		Index: c.Query("index"),
		Admin: true,
	}

	resp, err := h.aggregator.Search(c.Context(), req)
	if err != nil {
		if errors.Is(err, aggregator.ErrTargetNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "TARGET_NOT_FOUND",
					Message: err.Error(),
					Path:    c.Path(),
				},
			})
		}

		h.logger.Error("Admin search failed", "error", err, "query", req.Query)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "Search failed",
				Path:    c.Path(),
			},
		})
	}

	return c.JSON(resp)
}

// BulkDeleteRequest is the body of the bulk-delete endpoint.
type BulkDeleteRequest struct {
	Node  string   `json:"node"`
	Index string   `json:"index"`
	IDs   []string `json:"ids"`
}

// BulkDeleteAccounts starts an async chunked delete of documents by id.
func (h *Handler) BulkDeleteAccounts(c *fiber.Ctx) error {
	var req BulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Invalid request body: " + err.Error(),
				Path:    c.Path(),
			},
		})
	}

	taskID, err := h.ingest.BulkDelete(c.Context(), req.Node, req.Index, req.IDs)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
				Path:    c.Path(),
			},
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.AcceptedResponse{TaskID: taskID})
}

// CleanRequest is the body of the clean endpoint.
type CleanRequest struct {
	Node  string `json:"node"`
	Index string `json:"index"`
}

// CleanAccounts starts an async index reset: all documents dropped, parsed
// files moved back for re-ingestion.
func (h *Handler) CleanAccounts(c *fiber.Ctx) error {
	var req CleanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Invalid request body: " + err.Error(),
				Path:    c.Path(),
			},
		})
	}

	taskID, err := h.ingest.Clean(c.Context(), req.Node, req.Index)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
				Path:    c.Path(),
			},
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.AcceptedResponse{TaskID: taskID})
}

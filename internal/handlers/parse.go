package handlers

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/leakdex/leakdex/internal/models"
)

// ParseRequest optionally overrides the configured ingest target.
type ParseRequest struct {
	TargetNode  string `json:"target_node"`
	TargetIndex string `json:"target_index"`
}

// parseBody tolerates an empty request body; the configured defaults apply
// then.
func parseBody(c *fiber.Ctx) (ParseRequest, error) {
	var req ParseRequest
	if len(c.Body()) == 0 {
		return req, nil
	}
	return req, c.BodyParser(&req)
}

// ParseFile starts ingesting one named file from the unparsed directory.
func (h *Handler) ParseFile(c *fiber.Ctx) error {
	filename, err := urlDecodeParam(c, "filename")
	if err != nil || filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "A filename is required",
				Path:    c.Path(),
			},
		})
	}

	req, err := parseBody(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Invalid request body: " + err.Error(),
				Path:    c.Path(),
			},
		})
	}

	taskID, err := h.ingest.ParseFile(c.Context(), filename, req.TargetNode, req.TargetIndex)
	if err != nil {
		status := fiber.StatusBadRequest
		if strings.Contains(err.Error(), "not found") {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
				Path:    c.Path(),
			},
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.AcceptedResponse{TaskID: taskID})
}

// ParseAllUnparsed starts ingesting every waiting file, sequentially.
func (h *Handler) ParseAllUnparsed(c *fiber.Ctx) error {
	req, err := parseBody(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Invalid request body: " + err.Error(),
				Path:    c.Path(),
			},
		})
	}

	taskID, err := h.ingest.ParseAllUnparsed(c.Context(), req.TargetNode, req.TargetIndex)
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

// ListFiles lists ingestable and already-ingested files.
func (h *Handler) ListFiles(c *fiber.Ctx) error {
	unparsed, parsed, err := h.ingest.ListFiles()
	if err != nil {
		h.logger.Error("Failed to list ingest files", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "Failed to list files",
				Path:    c.Path(),
			},
		})
	}

	return c.JSON(models.FileListResponse{Unparsed: unparsed, Parsed: parsed})
}

// urlDecodeParam returns a path parameter with percent-encoding undone, so
// filenames with spaces round-trip.
func urlDecodeParam(c *fiber.Ctx, name string) (string, error) {
	return url.PathUnescape(c.Params(name))
}

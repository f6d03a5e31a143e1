package handlers

import (
	"errors"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/leakdex/leakdex/internal/models"
	"github.com/leakdex/leakdex/internal/registry"
	"github.com/leakdex/leakdex/internal/search"
)

var nodeNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ListNodes lists all registered nodes.
func (h *Handler) ListNodes(c *fiber.Ctx) error {
	nodes, err := h.registry.ListNodes(c.Context())
	if err != nil {
		h.logger.Error("Failed to list nodes", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "Failed to list nodes",
				Path:    c.Path(),
			},
		})
	}

	return c.JSON(models.NodeListResponse{Nodes: nodes})
}

// CreateNode registers or replaces a node.
func (h *Handler) CreateNode(c *fiber.Ctx) error {
	var node models.Node
	if err := c.BodyParser(&node); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Invalid request body: " + err.Error(),
				Path:    c.Path(),
			},
		})
	}

	if !nodeNameRegex.MatchString(node.Name) {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_NAME",
				Message: "Node name must contain only alphanumeric characters, underscores, and hyphens",
				Path:    c.Path(),
			},
		})
	}

	if err := node.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
				Path:    c.Path(),
			},
		})
	}

	if err := h.registry.PutNode(c.Context(), node); err != nil {
		h.logger.Error("Failed to store node", "error", err, "node", node.Name)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "Failed to store node",
				Path:    c.Path(),
			},
		})
	}

	h.logger.Info("Node registered", "node", node.Name, "host", node.Host, "port", node.Port)
	return c.Status(fiber.StatusCreated).JSON(node)
}

// DeleteNode removes a node from the registry and drops its cache entry.
// Selected indices that only resolved through it are pruned.
func (h *Handler) DeleteNode(c *fiber.Ctx) error {
	name := c.Params("name")

	if err := h.registry.DeleteNode(c.Context(), name); err != nil {
		if errors.Is(err, registry.ErrNodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "NODE_NOT_FOUND",
					Message: err.Error(),
					Path:    c.Path(),
				},
			})
		}

		h.logger.Error("Failed to delete node", "error", err, "node", name)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "Failed to delete node",
				Path:    c.Path(),
			},
		})
	}

	pruned := h.cache.Remove(c.Context(), name)

	h.logger.Info("Node deleted", "node", name, "pruned_targets", pruned)
	return c.JSON(fiber.Map{"deleted": name, "pruned_targets": pruned})
}

// CreateIndexRequest is the body of the index-creation endpoint.
type CreateIndexRequest struct {
	Node  string `json:"node"`
	Index string `json:"index"`
}

// CreateIndex creates an index on one node.
func (h *Handler) CreateIndex(c *fiber.Ctx) error {
	var req CreateIndexRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Invalid request body: " + err.Error(),
				Path:    c.Path(),
			},
		})
	}

	if req.Node == "" || req.Index == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "Both node and index are required",
				Path:    c.Path(),
			},
		})
	}

	node, err := h.registry.GetNode(c.Context(), req.Node)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NODE_NOT_FOUND",
				Message: err.Error(),
				Path:    c.Path(),
			},
		})
	}

	if err := h.clients(*node).CreateIndex(c.Context(), req.Index); err != nil {
		if search.KindOf(err) == search.KindConflict {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "INDEX_EXISTS",
					Message: "Index already exists: " + req.Index,
					Path:    c.Path(),
				},
			})
		}

		h.logger.Error("Failed to create index", "error", err, "node", req.Node, "index", req.Index)
		return c.Status(fiber.StatusBadGateway).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "REMOTE_CALL_FAILED",
				Message: "Failed to create index on node " + req.Node,
				Path:    c.Path(),
			},
		})
	}

	h.logger.Info("Index created", "node", req.Node, "index", req.Index)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"node": req.Node, "index": req.Index})
}

// DeleteIndex deletes an index from one node. The cache still shows the
// index until the next refresh, which is also when selected entries pointing
// at it get pruned.
func (h *Handler) DeleteIndex(c *fiber.Ctx) error {
	nodeName := c.Params("name")
	index := c.Params("index")

	node, err := h.registry.GetNode(c.Context(), nodeName)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NODE_NOT_FOUND",
				Message: err.Error(),
				Path:    c.Path(),
			},
		})
	}

	if err := h.clients(*node).DeleteIndex(c.Context(), index); err != nil {
		if search.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "INDEX_NOT_FOUND",
					Message: "Index not found: " + index,
					Path:    c.Path(),
				},
			})
		}

		h.logger.Error("Failed to delete index", "error", err, "node", nodeName, "index", index)
		return c.Status(fiber.StatusBadGateway).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "REMOTE_CALL_FAILED",
				Message: "Failed to delete index on node " + nodeName,
				Path:    c.Path(),
			},
		})
	}

	h.logger.Info("Index deleted", "node", nodeName, "index", index)
	return c.JSON(fiber.Map{"node": nodeName, "index": index, "deleted": true})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/leakdex/leakdex/internal/models"
)

// ListTasks returns all tracked tasks, newest first.
func (h *Handler) ListTasks(c *fiber.Ctx) error {
	return c.JSON(models.TaskListResponse{Tasks: h.tasks.List()})
}

// GetTask returns one task by id.
func (h *Handler) GetTask(c *fiber.Ctx) error {
	task, ok := h.tasks.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "TASK_NOT_FOUND",
				Message: "Task not found: " + c.Params("id"),
				Path:    c.Path(),
			},
		})
	}

	return c.JSON(models.TaskResponse{Task: task})
}

// TaskAction handles the clear actions. "clear" removes terminal tasks;
// "clear-all" removes every task, including in-flight ones, whose bodies
// keep running and mutate a missing record harmlessly.
func (h *Handler) TaskAction(c *fiber.Ctx) error {
	switch c.Params("action") {
	case "clear":
		return c.JSON(models.TaskActionResponse{Cleared: h.tasks.Clear()})
	case "clear-all":
		return c.JSON(models.TaskActionResponse{Cleared: h.tasks.ClearAll()})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: "Unknown task action: " + c.Params("action"),
				Path:    c.Path(),
			},
		})
	}
}

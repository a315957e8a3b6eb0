package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/interview-panel/internal/models"
	"alfredoptarigan/interview-panel/internal/services"
)

type KnowledgeHandler struct {
	knowledge services.KnowledgeService
	worker    services.Worker
}

func NewKnowledgeHandler(knowledge services.KnowledgeService, worker services.Worker) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledge: knowledge,
		worker:    worker,
	}
}

// HandleRebuild handles POST /knowledge/rebuild
func (h *KnowledgeHandler) HandleRebuild(c *fiber.Ctx) error {
	build, err := h.knowledge.RequestRebuild()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create knowledge build",
		})
	}

	h.worker.EnqueueJob(build.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.RebuildResponse{
		ID:     build.ID.String(),
		Status: string(build.Status),
	})
}

// HandleGetBuild handles GET /knowledge/rebuild/:id
func (h *KnowledgeHandler) HandleGetBuild(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid build ID format",
		})
	}

	build, err := h.knowledge.GetBuild(id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(build)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/interview-panel/internal/models"
	"alfredoptarigan/interview-panel/internal/services"
)

type CompareHandler struct {
	interviews services.InterviewService
}

func NewCompareHandler(interviews services.InterviewService) *CompareHandler {
	return &CompareHandler{interviews: interviews}
}

// HandleCompare handles POST /compare
func (h *CompareHandler) HandleCompare(c *fiber.Ctx) error {
	var req models.CompareRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.interviews.CompareAnswer(c.UserContext(), req.Question, req.UserAnswer, req.BestAnswer)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

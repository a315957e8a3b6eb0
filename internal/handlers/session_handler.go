package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/interview-panel/internal/interview"
	"alfredoptarigan/interview-panel/internal/models"
	"alfredoptarigan/interview-panel/internal/services"
)

type SessionHandler struct {
	interviews      services.InterviewService
	defaultRotation interview.RotationPolicy
	streamTimeout   time.Duration
}

func NewSessionHandler(interviews services.InterviewService, defaultRotation interview.RotationPolicy, streamTimeout time.Duration) *SessionHandler {
	if streamTimeout <= 0 {
		streamTimeout = 2 * time.Minute
	}
	return &SessionHandler{
		interviews:      interviews,
		defaultRotation: defaultRotation,
		streamTimeout:   streamTimeout,
	}
}

// HandleStart handles POST /sessions
func (h *SessionHandler) HandleStart(c *fiber.Ctx) error {
	var req models.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	policy := h.defaultRotation
	if req.Rotation != "" {
		parsed, err := interview.ParseRotationPolicy(req.Rotation)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		policy = parsed
	}

	id, err := h.interviews.StartSessionWithRotation(c.UserContext(), req.Resume, req.JobDescription, policy)
	if err != nil {
		return respondError(c, err)
	}

	progress, err := h.interviews.Progress(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.StartSessionResponse{
		SessionID: id.String(),
		Rotation:  policy.String(),
		Progress:  *progress,
	})
}

// HandleNextQuestion handles POST /sessions/:id/questions
func (h *SessionHandler) HandleNextQuestion(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	question, err := h.interviews.NextQuestion(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(question)
}

// HandleQuestionStream handles GET /sessions/:id/questions/stream. The
// question is sent as "fragment" events followed by one "question" event.
// Session errors known up front are answered with a plain status instead.
func (h *SessionHandler) HandleQuestionStream(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	if err := h.checkCanAsk(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	timeout := h.streamTimeout
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		sse := &sseWriter{w: w}
		question, err := h.interviews.NextQuestionStream(ctx, id, func(fragment string) error {
			return sse.event("fragment", fiber.Map{"text": fragment})
		})
		if err != nil {
			log.Printf("❌ Question stream for session %s failed: %v", id, err)
			sse.event("error", fiber.Map{"error": err.Error(), "code": StatusFor(err)}) //nolint:errcheck
			return
		}

		sse.event("question", question) //nolint:errcheck
	})

	return nil
}

// HandleSubmitAnswer handles POST /sessions/:id/answers
func (h *SessionHandler) HandleSubmitAnswer(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	var req models.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.interviews.SubmitAnswer(c.UserContext(), id, req.Answer)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

// HandleProgress handles GET /sessions/:id/progress
func (h *SessionHandler) HandleProgress(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	progress, err := h.interviews.Progress(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(progress)
}

// HandleTranscript handles GET /sessions/:id
func (h *SessionHandler) HandleTranscript(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	turns, err := h.interviews.Transcript(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"session_id": id.String(),
		"turns":      turns,
	})
}

// HandleEnd handles DELETE /sessions/:id
func (h *SessionHandler) HandleEnd(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	if err := h.interviews.EndSession(id); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// checkCanAsk rejects a question request that would fail before any
// generation starts. Races with other callers still surface as an
// "error" event on the stream.
func (h *SessionHandler) checkCanAsk(ctx context.Context, id uuid.UUID) error {
	progress, err := h.interviews.Progress(ctx, id)
	if err != nil {
		return err
	}
	if progress.IsCompleted {
		return interview.ErrInterviewCompleted
	}

	turns, err := h.interviews.Transcript(ctx, id)
	if err != nil {
		return err
	}
	if n := len(turns); n > 0 && turns[n-1].Answer == nil {
		return interview.ErrTurnAlreadyPending
	}
	return nil
}

func sessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid session ID format")
	}
	return id, nil
}

type sseWriter struct {
	w *bufio.Writer
}

func (s *sseWriter) event(name string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	return s.w.Flush()
}

package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/review"
	"github.com/resume-agent/backend/internal/storage/sqlite"
	"github.com/resume-agent/backend/pkg/logger"
)

type ReviewHandler struct {
	reviewService *review.Service
	db            *sqlite.Client
}

func NewReviewHandler(reviewService *review.Service, db *sqlite.Client) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		db:            db,
	}
}

// HandleReview runs a review directly through the API, bypassing the
// messaging channel. Used by the console and for testing integrations.
func (h *ReviewHandler) HandleReview(c *fiber.Ctx) error {
	var req review.Request

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	outcome, err := h.reviewService.ProcessReview(c.Context(), req)
	if errors.Is(err, review.ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		logger.Error("Failed to process review", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process review",
		})
	}

	return c.JSON(fiber.Map{
		"review_id":  outcome.ReviewID,
		"session_id": outcome.SessionID,
		"score":      outcome.Score,
		"narrative":  outcome.Narrative,
		"outbound":   outcome.Outbound,
	})
}

func (h *ReviewHandler) GetReviewHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}

	records, err := h.db.GetReviewHistory(sessionID, limit)
	if err != nil {
		logger.Error("Failed to load review history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load review history",
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"reviews":    records,
	})
}

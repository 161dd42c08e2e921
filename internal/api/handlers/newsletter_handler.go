package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/ingestion"
	"github.com/resume-agent/backend/pkg/logger"
)

type NewsletterHandler struct {
	processor *ingestion.Processor
}

func NewNewsletterHandler(processor *ingestion.Processor) *NewsletterHandler {
	return &NewsletterHandler{processor: processor}
}

// UploadArticle ingests one markdown newsletter article into the advice
// corpus. Re-uploading the same name replaces its chunks.
func (h *NewsletterHandler) UploadArticle(c *fiber.Ctx) error {
	var req struct {
		Name      string `json:"name"`
		SourceURL string `json:"source_url"`
		Content   string `json:"content"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name and content are required",
		})
	}

	chunks, err := h.processor.ProcessArticle(c.Context(), req.Name, req.SourceURL, req.Content)
	if err != nil {
		logger.Error("Failed to ingest article", zap.String("name", req.Name), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to ingest article",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"name":   req.Name,
		"chunks": chunks,
	})
}

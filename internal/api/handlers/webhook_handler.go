package handlers

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/compose"
	"github.com/resume-agent/backend/internal/conversation"
	"github.com/resume-agent/backend/internal/review"
	"github.com/resume-agent/backend/internal/session"
	"github.com/resume-agent/backend/pkg/logger"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// WebhookHandler receives inbound WhatsApp messages from Twilio. A
// message carrying URLs starts a new review (first URL is the resume,
// an optional second is the job posting); anything else advances the
// existing conversation.
type WebhookHandler struct {
	reviewService *review.Service
	engine        *conversation.Engine
	composer      *compose.Composer
	sender        conversation.Sender
}

func NewWebhookHandler(reviewService *review.Service, engine *conversation.Engine, composer *compose.Composer, sender conversation.Sender) *WebhookHandler {
	return &WebhookHandler{
		reviewService: reviewService,
		engine:        engine,
		composer:      composer,
		sender:        sender,
	}
}

// HandleWhatsApp processes one Twilio webhook POST. Twilio retries on
// non-2xx, so user-facing failures still return 200: the user hears
// about problems through the conversation itself.
func (h *WebhookHandler) HandleWhatsApp(c *fiber.Ctx) error {
	from := strings.TrimPrefix(c.FormValue("From"), "whatsapp:")
	body := strings.TrimSpace(c.FormValue("Body"))

	if from == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "From is required",
		})
	}

	logger.Info("inbound message",
		zap.String("from", from),
		zap.Int("chars", len(body)))

	urls := urlPattern.FindAllString(body, -1)

	// URLs always start a fresh review; everything else goes through the
	// conversation, which falls back to the help message when no session
	// exists yet. Greetings mid-conversation are turns, not help requests.
	if len(urls) > 0 {
		h.startReview(c, from, urls)
	} else {
		h.advanceConversation(c, from, body)
	}

	return twiml(c)
}

func (h *WebhookHandler) startReview(c *fiber.Ctx, from string, urls []string) {
	req := review.Request{
		SessionID: from,
		ResumeURL: urls[0],
	}
	if len(urls) > 1 {
		req.JobURL = urls[1]
	}

	_, err := h.reviewService.ProcessReview(c.Context(), req)
	if errors.Is(err, review.ErrValidation) {
		h.sendHelp(c, from)
		return
	}
	if err != nil {
		logger.Error("review failed", zap.String("from", from), zap.Error(err))
	}
}

func (h *WebhookHandler) advanceConversation(c *fiber.Ctx, from, body string) {
	_, err := h.engine.ProcessTurn(c.Context(), from, body)
	if errors.Is(err, session.ErrNotFound) {
		// No conversation yet and no resume link: explain how to start.
		h.sendHelp(c, from)
		return
	}
	if err != nil {
		logger.Error("turn failed", zap.String("from", from), zap.Error(err))
	}
}

func (h *WebhookHandler) sendHelp(c *fiber.Ctx, from string) {
	text := h.composer.Render(compose.NewIntent(compose.TemplateHelp, nil), nil, nil)
	if err := h.sender.Send(c.Context(), from, text, "help:"+from+":"+uuid.NewString()); err != nil {
		logger.Error("help message failed", zap.String("from", from), zap.Error(err))
	}
}

// twiml returns the empty TwiML document Twilio expects; all replies go
// out through the Messages API instead.
func twiml(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/xml")
	return c.SendString(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`)
}

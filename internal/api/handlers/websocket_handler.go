package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/conversation"
	"github.com/resume-agent/backend/internal/review"
	"github.com/resume-agent/backend/internal/session"
	"github.com/resume-agent/backend/pkg/logger"
)

// WebSocketHandler is the interactive console: it drives the same review
// pipeline and conversation engine as the WhatsApp channel, but the
// outbound messages are written back over the socket instead of Twilio.
type WebSocketHandler struct {
	reviewService *review.Service
	engine        *conversation.Engine
}

func NewWebSocketHandler(reviewService *review.Service, engine *conversation.Engine) *WebSocketHandler {
	return &WebSocketHandler{
		reviewService: reviewService,
		engine:        engine,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	// Each console connection gets its own session namespace so it never
	// collides with a real phone number.
	consoleSession := fmt.Sprintf("console:%d", time.Now().UnixNano())

	for {
		var msg struct {
			Type       string `json:"type"`
			Content    string `json:"content"`
			ResumeText string `json:"resume_text"`
			ResumeURL  string `json:"resume_url"`
			JobURL     string `json:"job_url"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		switch msg.Type {
		case "review":
			h.handleReview(c, consoleSession, msg.ResumeText, msg.ResumeURL, msg.JobURL)
		case "message":
			h.handleMessage(c, consoleSession, msg.Content)
		}
	}
}

func (h *WebSocketHandler) handleReview(c *websocket.Conn, sessionID, resumeText, resumeURL, jobURL string) {
	h.send(c, "status", "Reviewing your resume...")

	outcome, err := h.reviewService.ProcessReview(context.Background(), review.Request{
		SessionID:  sessionID,
		ResumeText: resumeText,
		ResumeURL:  resumeURL,
		JobURL:     jobURL,
	})
	if err != nil {
		logger.Error("console review failed", zap.Error(err))
		h.sendError(c, "Failed to process review")
		return
	}

	for _, out := range outcome.Outbound {
		h.send(c, "message", out.Body)
	}
}

func (h *WebSocketHandler) handleMessage(c *websocket.Conn, sessionID, content string) {
	outbound, err := h.engine.ProcessTurn(context.Background(), sessionID, content)
	if errors.Is(err, session.ErrNotFound) {
		h.sendError(c, "Start a review first")
		return
	}
	if err != nil {
		logger.Error("console turn failed", zap.Error(err))
		h.sendError(c, "Failed to process message")
		return
	}

	for _, out := range outbound {
		h.send(c, "message", out.Body)
	}
}

func (h *WebSocketHandler) send(c *websocket.Conn, msgType, content string) {
	msg := map[string]interface{}{
		"type":    msgType,
		"content": content,
	}
	if err := c.WriteJSON(msg); err != nil {
		logger.Debug("WebSocket write failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}
	c.WriteJSON(msg)
}

package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/resume-agent/backend/pkg/logger"
	"github.com/resume-agent/backend/pkg/retry"
)

// ErrDeliveryFailed means a message could not be sent after retries.
var ErrDeliveryFailed = errors.New("message delivery failed")

const dedupeTTL = 24 * time.Hour

// TwilioSender delivers WhatsApp messages through Twilio's Messages API.
// Sends are deduplicated by idempotency key so a replayed webhook or a
// crash-retry never produces a duplicate message.
type TwilioSender struct {
	httpClient *http.Client
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	retryCfg   retry.Config

	mu   sync.Mutex
	sent map[string]time.Time
}

func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.InitialDelay = 300 * time.Millisecond
	cfg.Logger = logger.GetLogger()

	return &TwilioSender{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    "https://api.twilio.com",
		retryCfg:   cfg,
	}
}

// SetBaseURL points the sender at a different API host. Tests only.
func (s *TwilioSender) SetBaseURL(base string) {
	s.baseURL = strings.TrimRight(base, "/")
}

// Send posts one message. A repeated idempotency key is a silent no-op.
func (s *TwilioSender) Send(ctx context.Context, to, body, idempotencyKey string) error {
	if s.markSent(idempotencyKey) {
		logger.Debug("duplicate send suppressed", zap.String("key", idempotencyKey))
		return nil
	}

	err := retry.Do(ctx, s.retryCfg, func() error {
		return s.post(ctx, to, body)
	})
	if err != nil {
		// Undo the dedupe mark so a later retry of the whole turn can send.
		s.unmarkSent(idempotencyKey)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	logger.Debug("message delivered",
		zap.String("to", to),
		zap.Int("chars", len(body)))
	return nil
}

func (s *TwilioSender) post(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	form := url.Values{}
	form.Set("From", whatsappAddr(s.fromNumber))
	form.Set("To", whatsappAddr(to))
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("twilio returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
}

// markSent records the key and reports whether it was already present.
// Old entries are swept opportunistically to bound memory.
func (s *TwilioSender) markSent(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sent == nil {
		s.sent = make(map[string]time.Time)
	}

	now := time.Now()
	if at, ok := s.sent[key]; ok && now.Sub(at) < dedupeTTL {
		return true
	}

	for k, at := range s.sent {
		if now.Sub(at) >= dedupeTTL {
			delete(s.sent, k)
		}
	}

	s.sent[key] = now
	return false
}

func (s *TwilioSender) unmarkSent(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sent, key)
}

// whatsappAddr prefixes a number with the WhatsApp channel scheme unless
// it already carries one.
func whatsappAddr(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// LogSender writes messages to the log instead of a channel. Used in
// local development and by the interactive console.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, body, idempotencyKey string) error {
	logger.Info("outbound message",
		zap.String("to", to),
		zap.String("body", body))
	return nil
}

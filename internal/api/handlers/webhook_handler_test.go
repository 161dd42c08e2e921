package handlers_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/resume-agent/backend/internal/api/handlers"
	"github.com/resume-agent/backend/internal/compose"
	"github.com/resume-agent/backend/internal/content"
	"github.com/resume-agent/backend/internal/conversation"
	"github.com/resume-agent/backend/internal/keywords"
	"github.com/resume-agent/backend/internal/review"
	"github.com/resume-agent/backend/internal/scoring"
	"github.com/resume-agent/backend/internal/session"
)

type capturingSender struct {
	mu     sync.Mutex
	bodies []string
}

func (s *capturingSender) Send(ctx context.Context, to, body, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, body)
	return nil
}

func (s *capturingSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bodies) == 0 {
		return ""
	}
	return s.bodies[len(s.bodies)-1]
}

type staticResume struct{}

func (staticResume) ExtractText(ctx context.Context, url string) (string, error) {
	return "Senior Go engineer. Kubernetes, PostgreSQL, distributed systems.", nil
}

func newWebhookApp(t *testing.T) (*fiber.App, *capturingSender, *conversation.Engine, session.Store) {
	t.Helper()

	extractor := keywords.NewExtractor()
	store := content.NewStore(extractor)
	store.Load([]content.Chunk{
		{ID: "guide_0", Text: "Customize your resume keywords for every job description.", OrderIndex: 0},
	})

	scorer := scoring.NewScorer(extractor, store, 5)
	composer := compose.NewComposer(1600)
	machine := conversation.NewMachine(conversation.DefaultConfig(), store.Label)
	sessions := session.NewMemoryStore()
	sender := &capturingSender{}
	engine := conversation.NewEngine(sessions, machine, composer, sender, nil)
	svc := review.NewService(scorer, store, staticResume{}, nil, nil, nil, engine)

	handler := handlers.NewWebhookHandler(svc, engine, composer, sender)
	app := fiber.New()
	app.Post("/api/v1/webhook/whatsapp", handler.HandleWhatsApp)
	return app, sender, engine, sessions
}

func postWebhook(t *testing.T, app *fiber.App, from, body string) *http.Response {
	t.Helper()

	form := url.Values{}
	form.Set("From", "whatsapp:"+from)
	form.Set("Body", body)

	req, err := http.NewRequest(http.MethodPost, "/api/v1/webhook/whatsapp", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestWebhookGreetingAdvancesActiveConversation(t *testing.T) {
	app, sender, engine, sessions := newWebhookApp(t)

	score := &scoring.Result{
		Confidence: 62,
		Band:       scoring.BandMedium,
		Citations:  []string{"guide_0"},
	}
	_, err := engine.StartSession(context.Background(), "+15551230001", score, "")
	require.NoError(t, err)

	// A greeting mid-conversation is a turn, not a help request.
	resp := postWebhook(t, app, "+15551230001", "hi")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Contains(t, sender.last(), "What should we dig into?")
	require.NotContains(t, sender.last(), "Send a link to your resume")

	sess, err := sessions.Get(context.Background(), "+15551230001")
	require.NoError(t, err)
	require.Equal(t, session.StateAwaitingChoice, sess.State)
}

func TestWebhookGreetingWithoutSessionSendsHelp(t *testing.T) {
	app, sender, _, _ := newWebhookApp(t)

	resp := postWebhook(t, app, "+15551230002", "hello")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, sender.last(), "Send a link to your resume")
}

func TestWebhookResumeURLStartsReview(t *testing.T) {
	app, sender, _, sessions := newWebhookApp(t)

	resp := postWebhook(t, app, "+15551230003", "https://example.com/resume.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, sender.last(), "Resume Review")

	sess, err := sessions.Get(context.Background(), "+15551230003")
	require.NoError(t, err)
	require.Equal(t, session.StateSummarySent, sess.State)
}

func TestWebhookMissingFromRejected(t *testing.T) {
	app, _, _, _ := newWebhookApp(t)

	form := url.Values{}
	form.Set("Body", "hi")
	req, err := http.NewRequest(http.MethodPost, "/api/v1/webhook/whatsapp", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

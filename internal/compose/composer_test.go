package compose_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resume-agent/backend/internal/compose"
	"github.com/resume-agent/backend/internal/scoring"
	"github.com/resume-agent/backend/internal/session"
)

func sampleScore() *scoring.Result {
	return &scoring.Result{
		Confidence:      62,
		Band:            scoring.BandMedium,
		MatchedKeywords: []string{"go", "python", "redis"},
		MissingKeywords: []string{"kafka", "kubernetes", "terraform"},
		Citations:       []string{"guide_0", "guide_3"},
	}
}

func TestRenderExecutiveSummary(t *testing.T) {
	c := compose.NewComposer(1600)
	sess := &session.Session{Narrative: "Your infra background is a strong base for this role."}

	got := c.Render(compose.NewIntent(compose.TemplateExecutiveSummary, nil), sampleScore(), sess)

	require.Contains(t, got, "Good foundation")
	require.Contains(t, got, "against the job description")
	require.Contains(t, got, "go, python, redis")
	require.Contains(t, got, "kafka, kubernetes, terraform")
	require.Contains(t, got, sess.Narrative)
	// Raw scores never reach the user.
	require.NotContains(t, got, "62")
	require.LessOrEqual(t, len([]rune(got)), 1600)
}

func TestRenderDegradedPrefix(t *testing.T) {
	c := compose.NewComposer(1600)
	score := sampleScore()
	score.Degraded = true

	got := c.Render(compose.NewIntent(compose.TemplateExecutiveSummary, nil), score, nil)
	require.Contains(t, got, "Partial review")
}

func TestRenderNilScore(t *testing.T) {
	c := compose.NewComposer(1600)

	got := c.Render(compose.NewIntent(compose.TemplateHelp, nil), nil, nil)
	require.NotEmpty(t, got)
	require.Contains(t, got, "resume")
}

func TestRenderBudgetDropsBoilerplateFirst(t *testing.T) {
	c := compose.NewComposer(120)

	got := c.Render(compose.NewIntent(compose.TemplateTopicMenu, nil), sampleScore(), nil)

	require.LessOrEqual(t, len([]rune(got)), 120)
	require.Contains(t, got, "Skills & Keywords")
	// The boilerplate reply hint is the first thing sacrificed.
	require.NotContains(t, got, "Reply with a number")
}

func TestRenderNeverSplitsLines(t *testing.T) {
	longNarrative := strings.Repeat("word ", 400) + "\nhttps://example.com/full-article-link"
	sess := &session.Session{Narrative: longNarrative}

	c := compose.NewComposer(200)
	got := c.Render(compose.NewIntent(compose.TemplateExecutiveSummary, nil), sampleScore(), sess)

	require.LessOrEqual(t, len([]rune(got)), 200)
	// Any URL present must be intact; a dropped URL must leave no stub.
	if strings.Contains(got, "http") {
		require.Contains(t, got, "https://example.com/full-article-link")
	}
}

func TestRenderMinimalFallback(t *testing.T) {
	// Budget too small for even one core line of the summary.
	huge := strings.Repeat("x", 500)
	sess := &session.Session{Narrative: huge}

	c := compose.NewComposer(140)
	got := c.Render(compose.NewIntent(compose.TemplateExecutiveSummary, nil), nil, sess)

	require.NotEmpty(t, got)
	require.LessOrEqual(t, len([]rune(got)), 140)
}

func TestRenderUnknownTemplate(t *testing.T) {
	c := compose.NewComposer(1600)
	got := c.Render(compose.NewIntent("no_such_template", nil), nil, nil)
	require.NotEmpty(t, got)
}

func TestRenderHonorsBudgetBelowFallbackLength(t *testing.T) {
	// A budget smaller than the fallback text itself still holds: the
	// fallback is hard-cut rather than overflowing.
	c := compose.NewComposer(10)

	for _, id := range []string{compose.TemplateExecutiveSummary, "no_such_template"} {
		got := c.Render(compose.NewIntent(id, nil), sampleScore(), nil)
		require.NotEmpty(t, got, "template %s", id)
		require.LessOrEqual(t, len([]rune(got)), 10, "template %s", id)
	}
}

func TestRenderVariableOverride(t *testing.T) {
	c := compose.NewComposer(1600)

	got := c.Render(compose.NewIntent(compose.TemplateDetailSkills, map[string]string{
		"citations": "Why customization matters",
	}), sampleScore(), nil)

	require.Contains(t, got, "Why customization matters")
	require.NotContains(t, got, "guide_0")
}

func TestRenderDetailTemplatesCarryActions(t *testing.T) {
	c := compose.NewComposer(1600)

	got := c.Render(compose.NewIntent(compose.TemplateDetailSkills, nil), sampleScore(), nil)

	require.Contains(t, got, "MISSING")
	require.Contains(t, got, `1. Work "kafka" into your skills section`)
}

package compose

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/resume-agent/backend/internal/scoring"
	"github.com/resume-agent/backend/internal/session"
)

const DefaultMaxChars = 1600

var placeholderPattern = regexp.MustCompile(`\{\{\w+\}\}`)

// Composer renders message intents into channel-ready text inside a hard
// character budget. Rendering is template substitution only; all business
// decisions happen upstream in the state machine.
type Composer struct {
	maxChars int
}

func NewComposer(maxChars int) *Composer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Composer{maxChars: maxChars}
}

// Render substitutes variables into the intent's template and enforces
// the character budget. Truncation drops the least-specific blocks first
// (boilerplate, then secondary content), then whole lines from the end —
// never mid-sentence and never inside a URL. If nothing substantive
// survives, a minimal fallback is returned instead of garbled text.
func (c *Composer) Render(intent Intent, score *scoring.Result, sess *session.Session) string {
	tpl, ok := templates[intent.TemplateID]
	if !ok {
		return c.fallback()
	}

	vars := defaultVariables(score, sess)
	for k, v := range intent.Variables {
		vars[k] = v
	}

	rendered := make([]block, 0, len(tpl.blocks))
	for _, b := range tpl.blocks {
		text := strings.TrimSpace(substitute(b.text, vars))
		if text == "" {
			continue
		}
		rendered = append(rendered, block{weight: b.weight, text: text})
	}

	text := join(rendered)
	if charLen(text) <= c.maxChars {
		return text
	}

	// Drop least-specific blocks first, from the end.
	for _, weight := range []int{weightBoilerplate, weightSecondary} {
		for charLen(text) > c.maxChars {
			idx := lastWithWeight(rendered, weight)
			if idx < 0 {
				break
			}
			rendered = append(rendered[:idx], rendered[idx+1:]...)
			text = join(rendered)
		}
		if charLen(text) <= c.maxChars {
			return text
		}
	}

	// Still over budget with only core blocks left: shed whole lines from
	// the end. Lines are never split, so URLs are dropped whole.
	lines := strings.Split(text, "\n")
	for len(lines) > 1 && charLen(strings.Join(lines, "\n")) > c.maxChars {
		lines = lines[:len(lines)-1]
	}
	text = strings.TrimSpace(strings.Join(lines, "\n"))

	if text == "" || charLen(text) > c.maxChars {
		return c.fallback()
	}
	return text
}

// fallback keeps the budget even when it is smaller than the fallback
// text itself; a hard cut is the last resort after every other policy.
func (c *Composer) fallback() string {
	if charLen(minimalFallback) <= c.maxChars {
		return minimalFallback
	}
	return string([]rune(minimalFallback)[:c.maxChars])
}

// MaxChars reports the configured budget.
func (c *Composer) MaxChars() int { return c.maxChars }

func substitute(text string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.Trim(match, "{}")
		return vars[key]
	})
}

func join(blocks []block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.text)
	}
	return strings.Join(parts, "\n\n")
}

func lastWithWeight(blocks []block, weight int) int {
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].weight == weight {
			return i
		}
	}
	return -1
}

func charLen(s string) int {
	return len([]rune(s))
}

func defaultVariables(score *scoring.Result, sess *session.Session) map[string]string {
	vars := map[string]string{
		"job_suffix":      "",
		"band_text":       "",
		"matched":         "—",
		"missing":         "—",
		"missing_count":   "0",
		"narrative":       "",
		"keyword_actions": "",
		"citations":       "",
	}

	if sess != nil {
		vars["narrative"] = sess.Narrative
	}

	if score == nil {
		return vars
	}

	vars["band_text"] = bandText(score.Band)
	if score.Degraded {
		vars["band_text"] = "Partial review — advice content was unavailable. " + vars["band_text"]
	}

	if len(score.MatchedKeywords) > 0 || len(score.MissingKeywords) > 0 {
		vars["job_suffix"] = " against the job description"
	}
	if len(score.MatchedKeywords) > 0 {
		vars["matched"] = strings.Join(head(score.MatchedKeywords, 6), ", ")
	}
	if len(score.MissingKeywords) > 0 {
		vars["missing"] = strings.Join(head(score.MissingKeywords, 6), ", ")
		vars["missing_count"] = fmt.Sprintf("%d", len(score.MissingKeywords))
		vars["keyword_actions"] = keywordActions(score.MissingKeywords)
	}
	if len(score.Citations) > 0 {
		vars["citations"] = strings.Join(head(score.Citations, 3), ", ")
	}

	return vars
}

// bandText is the user-facing vocabulary for confidence bands; raw scores
// are never shown.
func bandText(band scoring.Band) string {
	switch band {
	case scoring.BandHigh:
		return "Strong match — minor improvements needed"
	case scoring.BandMedium:
		return "Good foundation — needs customization"
	case scoring.BandLow:
		return "Some alignment — significant improvements needed"
	default:
		return "Needs major customization for this role"
	}
}

func keywordActions(missing []string) string {
	var b strings.Builder
	for i, kw := range head(missing, 3) {
		fmt.Fprintf(&b, "%d. Work %q into your skills section\n", i+1, kw)
	}
	return strings.TrimRight(b.String(), "\n")
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

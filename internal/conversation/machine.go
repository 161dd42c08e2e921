package conversation

import (
	"strings"
	"time"

	"github.com/resume-agent/backend/internal/compose"
	"github.com/resume-agent/backend/internal/session"
)

type Config struct {
	// RateCap is the outbound message budget per rolling RateWindow.
	RateCap    int
	RateWindow time.Duration
	// InactivityWindow auto-completes a session stuck awaiting followup.
	InactivityWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		RateCap:          9,
		RateWindow:       24 * time.Hour,
		InactivityWindow: 2 * time.Hour,
	}
}

// StepResult is the outcome of one pure transition: the state to persist,
// the intents to emit, and bookkeeping for the engine's read-modify-write.
type StepResult struct {
	NextState session.State
	Intents   []compose.Intent
	// Topic is set when this step delivered detail content.
	Topic session.Topic
	// RateLimited means the normal intents were replaced by a single
	// deferral and neither state nor the rate counter may change.
	RateLimited bool
	// WindowReset means the rolling rate window expired and the engine
	// should restart it at the current time.
	WindowReset bool
}

// Machine computes conversation transitions. It performs no I/O: the
// engine owns persistence, rendering, and delivery.
type Machine struct {
	cfg Config
	// citationLabel turns a chunk id into display text for citations.
	citationLabel func(chunkID string) string
}

func NewMachine(cfg Config, citationLabel func(string) string) *Machine {
	if cfg.RateCap <= 0 {
		cfg.RateCap = 9
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = 24 * time.Hour
	}
	if cfg.InactivityWindow <= 0 {
		cfg.InactivityWindow = 2 * time.Hour
	}
	if citationLabel == nil {
		citationLabel = func(id string) string { return id }
	}
	return &Machine{cfg: cfg, citationLabel: citationLabel}
}

// Step computes the transition for one inbound turn. An unrecognized
// input never advances the state and emits exactly one clarification.
func (m *Machine) Step(sess *session.Session, input string, now time.Time) StepResult {
	windowReset := !sess.RateWindowStart.IsZero() && now.Sub(sess.RateWindowStart) >= m.cfg.RateWindow
	effectiveCount := sess.RateWindowCount
	if windowReset || sess.RateWindowStart.IsZero() {
		effectiveCount = 0
	}

	// The budget check happens before any normal intent is emitted. A
	// deferred turn leaves state and counter untouched so the pending
	// transition replays on the next allowed turn.
	if effectiveCount >= m.cfg.RateCap {
		return StepResult{
			NextState:   sess.State,
			Intents:     []compose.Intent{compose.NewIntent(compose.TemplateDeferred, nil)},
			RateLimited: true,
			WindowReset: windowReset,
		}
	}

	res := m.transition(sess, input, now)
	res.WindowReset = windowReset
	return res
}

func (m *Machine) transition(sess *session.Session, input string, now time.Time) StepResult {
	normalized := normalizeInput(input)

	switch sess.State {
	case session.StateInit:
		return StepResult{
			NextState: session.StateSummarySent,
			Intents:   []compose.Intent{compose.NewIntent(compose.TemplateExecutiveSummary, nil)},
		}

	case session.StateSummarySent:
		return StepResult{
			NextState: session.StateAwaitingChoice,
			Intents:   []compose.Intent{compose.NewIntent(compose.TemplateTopicMenu, nil)},
		}

	case session.StateAwaitingChoice:
		if topic, ok := parseTopic(normalized); ok {
			return StepResult{
				NextState: session.StateAwaitingFollowup,
				Intents:   m.detailIntents(sess, topic),
				Topic:     topic,
			}
		}
		return m.clarify(sess)

	case session.StateAwaitingFollowup:
		if m.timedOut(sess, now) || isDone(normalized) {
			return StepResult{
				NextState: session.StateCompleted,
				Intents:   []compose.Intent{compose.NewIntent(compose.TemplateClosing, nil)},
			}
		}
		if topic, ok := parseTopic(normalized); ok {
			return StepResult{
				NextState: session.StateAwaitingFollowup,
				Intents:   m.detailIntents(sess, topic),
				Topic:     topic,
			}
		}
		return m.clarify(sess)

	case session.StateCompleted, session.StateError:
		// Restart path: any input reopens the review from the summary.
		return StepResult{
			NextState: session.StateSummarySent,
			Intents:   []compose.Intent{compose.NewIntent(compose.TemplateExecutiveSummary, nil)},
		}

	default:
		return StepResult{
			NextState: session.StateError,
			Intents:   []compose.Intent{compose.NewIntent(compose.TemplateApology, nil)},
		}
	}
}

// Failure maps a collaborator failure onto the absorbing error state with
// a single apology intent.
func (m *Machine) Failure(sess *session.Session) StepResult {
	return StepResult{
		NextState: session.StateError,
		Intents:   []compose.Intent{compose.NewIntent(compose.TemplateApology, nil)},
	}
}

func (m *Machine) clarify(sess *session.Session) StepResult {
	return StepResult{
		NextState: sess.State,
		Intents:   []compose.Intent{compose.NewIntent(compose.TemplateClarification, nil)},
	}
}

func (m *Machine) timedOut(sess *session.Session, now time.Time) bool {
	return !sess.LastActivity.IsZero() && now.Sub(sess.LastActivity) >= m.cfg.InactivityWindow
}

func (m *Machine) detailIntents(sess *session.Session, topic session.Topic) []compose.Intent {
	vars := map[string]string{}
	if sess.Score != nil && len(sess.Score.Citations) > 0 {
		labels := make([]string, 0, 3)
		for i, id := range sess.Score.Citations {
			if i >= 3 {
				break
			}
			labels = append(labels, m.citationLabel(id))
		}
		vars["citations"] = strings.Join(labels, "; ")
	}

	switch topic {
	case session.TopicSkills:
		return []compose.Intent{compose.NewIntent(compose.TemplateDetailSkills, vars)}
	case session.TopicExperience:
		return []compose.Intent{compose.NewIntent(compose.TemplateDetailExperience, vars)}
	case session.TopicFormatting:
		return []compose.Intent{compose.NewIntent(compose.TemplateDetailFormatting, vars)}
	default: // all
		return []compose.Intent{
			compose.NewIntent(compose.TemplateDetailSkills, vars),
			compose.NewIntent(compose.TemplateDetailExperience, vars),
			compose.NewIntent(compose.TemplateDetailFormatting, vars),
		}
	}
}

func normalizeInput(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

func parseTopic(normalized string) (session.Topic, bool) {
	switch normalized {
	case "1", "skills", "skill", "keywords", "skills & keywords":
		return session.TopicSkills, true
	case "2", "experience", "achievements", "experience & achievements":
		return session.TopicExperience, true
	case "3", "formatting", "ats", "format", "formatting & ats":
		return session.TopicFormatting, true
	case "4", "all", "complete", "everything", "all areas":
		return session.TopicAll, true
	}
	return "", false
}

func isDone(normalized string) bool {
	switch normalized {
	case "done", "no", "nope", "stop", "exit", "quit", "thanks", "thank you":
		return true
	}
	return false
}

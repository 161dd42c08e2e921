package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/compose"
	"github.com/resume-agent/backend/internal/metrics"
	"github.com/resume-agent/backend/internal/scoring"
	"github.com/resume-agent/backend/internal/session"
	"github.com/resume-agent/backend/pkg/logger"
)

// Sender delivers one rendered message to a recipient. Implementations
// must treat idempotencyKey as a dedupe token: a retried call with the
// same key must not produce a second message.
type Sender interface {
	Send(ctx context.Context, to, body, idempotencyKey string) error
}

// Auditor persists a per-turn audit record. Failures are logged, never
// surfaced to the user.
type Auditor interface {
	RecordTurn(ctx context.Context, sessionID string, turn int, state string, inbound string, templates []string) error
}

// Outbound is one delivered (or to-be-delivered) message.
type Outbound struct {
	To             string `json:"to"`
	Body           string `json:"body"`
	TemplateID     string `json:"template_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Engine drives conversation turns: read session, compute the pure
// transition, persist it with compare-and-swap, then render and deliver.
// Persistence happens before delivery so a crash mid-send can at worst
// duplicate a message (deduped by key), never lose state.
type Engine struct {
	store    session.Store
	machine  *Machine
	composer *compose.Composer
	sender   Sender
	auditor  Auditor
	now      func() time.Time
}

func NewEngine(store session.Store, machine *Machine, composer *compose.Composer, sender Sender, auditor Auditor) *Engine {
	return &Engine{
		store:    store,
		machine:  machine,
		composer: composer,
		sender:   sender,
		auditor:  auditor,
		now:      time.Now,
	}
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// StartSession creates (or resets) the session for a freshly scored
// review and delivers the opening turn.
func (e *Engine) StartSession(ctx context.Context, sessionID string, score *scoring.Result, narrative string) ([]Outbound, error) {
	if err := e.EnsureSession(ctx, sessionID, score, narrative); err != nil {
		return nil, err
	}
	return e.ProcessTurn(ctx, sessionID, "")
}

// EnsureSession creates the session or resets an existing one for a new
// review, without delivering anything. An existing session keeps its
// rate window and history; everything review-specific is replaced.
func (e *Engine) EnsureSession(ctx context.Context, sessionID string, score *scoring.Result, narrative string) error {
	now := e.now()
	sess := &session.Session{
		SessionID:       sessionID,
		State:           session.StateInit,
		CoveredTopics:   []string{},
		Score:           score,
		Narrative:       narrative,
		RateWindowStart: now,
		LastActivity:    now,
	}

	err := e.store.Create(ctx, sess)
	if errors.Is(err, session.ErrAlreadyExists) {
		err = e.resetSession(ctx, sessionID, score, narrative, now)
	}
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

func (e *Engine) resetSession(ctx context.Context, sessionID string, score *scoring.Result, narrative string, now time.Time) error {
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := e.store.Get(ctx, sessionID)
		if err != nil {
			return err
		}

		work := existing.Clone()
		work.State = session.StateInit
		work.Score = score
		work.Narrative = narrative
		work.LastChoice = ""
		work.CoveredTopics = []string{}
		work.LastActivity = now

		err = e.store.Update(ctx, work, existing.Version)
		if errors.Is(err, session.ErrStateConflict) && attempt == 0 {
			metrics.StateConflictRetries.Inc()
			continue
		}
		return err
	}
	return session.ErrStateConflict
}

// ProcessTurn handles one inbound message. The transition is recomputed
// from the freshest session on a version conflict, so a concurrent
// writer's work is never overwritten and no turn is double-applied.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, inbound string) ([]Outbound, error) {
	log := logger.GetLogger()

	for attempt := 0; attempt < 2; attempt++ {
		sess, err := e.store.Get(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}

		now := e.now()
		res := e.machine.Step(sess, inbound, now)

		work := e.apply(sess, res, inbound, now)

		err = e.store.Update(ctx, work, sess.Version)
		if errors.Is(err, session.ErrStateConflict) {
			if attempt == 0 {
				metrics.StateConflictRetries.Inc()
				log.Debug("session version conflict, retrying turn",
					zap.String("session_id", sessionID))
				continue
			}
			return nil, fmt.Errorf("failed to persist turn after retry: %w", err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to persist turn: %w", err)
		}

		metrics.TurnsTotal.WithLabelValues(string(sess.State)).Inc()
		if res.RateLimited {
			metrics.TurnsDeferred.Inc()
		}

		outbounds, err := e.deliver(ctx, sess, work, res)
		if err != nil {
			return e.failDelivery(ctx, sessionID, err)
		}
		return outbounds, nil
	}
	return nil, session.ErrStateConflict
}

// failDelivery maps a failed send onto the absorbing error state: the
// session is parked there with a single apology, so the next inbound
// restarts from the summary instead of resuming a conversation the user
// never received. The apology send may itself fail; the error state
// sticks either way because state is persisted before delivery.
func (e *Engine) failDelivery(ctx context.Context, sessionID string, cause error) ([]Outbound, error) {
	logger.GetLogger().Error("delivery failed, parking session in error state",
		zap.String("session_id", sessionID),
		zap.Error(cause))

	apology, err := e.ProcessFailure(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to deliver message: %w", cause)
	}
	return apology, nil
}

// ProcessFailure moves a session into the absorbing error state and
// sends a single apology. Used when a collaborator (generation,
// scoring) fails after the session already exists.
func (e *Engine) ProcessFailure(ctx context.Context, sessionID string) ([]Outbound, error) {
	for attempt := 0; attempt < 2; attempt++ {
		sess, err := e.store.Get(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}

		now := e.now()
		res := e.machine.Failure(sess)
		work := e.apply(sess, res, "", now)

		err = e.store.Update(ctx, work, sess.Version)
		if errors.Is(err, session.ErrStateConflict) && attempt == 0 {
			metrics.StateConflictRetries.Inc()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to persist error state: %w", err)
		}

		return e.deliver(ctx, sess, work, res)
	}
	return nil, session.ErrStateConflict
}

// apply folds a step result into a cloned session. The clone is what
// gets persisted; the original stays untouched for the CAS version.
func (e *Engine) apply(sess *session.Session, res StepResult, inbound string, now time.Time) *session.Session {
	work := sess.Clone()

	if res.WindowReset || work.RateWindowStart.IsZero() {
		work.RateWindowStart = now
		work.RateWindowCount = 0
	}

	templateIDs := make([]string, 0, len(res.Intents))
	for _, intent := range res.Intents {
		templateIDs = append(templateIDs, intent.TemplateID)
	}

	if !res.RateLimited {
		work.State = res.NextState
		work.RateWindowCount += len(res.Intents)
		if res.Topic != "" {
			work.LastChoice = res.Topic
			if res.Topic == session.TopicAll {
				work.Cover(session.TopicSkills)
				work.Cover(session.TopicExperience)
				work.Cover(session.TopicFormatting)
			}
			work.Cover(res.Topic)
		}
	}

	work.TurnCounter++
	work.LastActivity = now
	work.History = append(work.History, session.TurnRecord{
		InboundText:     inbound,
		OutboundIntents: templateIDs,
		Timestamp:       now,
	})

	return work
}

// deliver renders each intent and sends it. Keys are derived from the
// pre-transition state and turn counter, so a replayed webhook that
// recomputes the same transition reuses the same keys and the sender
// dedupes it.
func (e *Engine) deliver(ctx context.Context, before, after *session.Session, res StepResult) ([]Outbound, error) {
	log := logger.GetLogger()

	outbounds := make([]Outbound, 0, len(res.Intents))
	for i, intent := range res.Intents {
		body := e.composer.Render(intent, after.Score, after)
		outbounds = append(outbounds, Outbound{
			To:             after.SessionID,
			Body:           body,
			TemplateID:     intent.TemplateID,
			IdempotencyKey: fmt.Sprintf("%s:%s:%d:%d", after.SessionID, before.State, before.TurnCounter, i),
		})
		metrics.IntentsEmitted.WithLabelValues(intent.TemplateID).Inc()
	}

	for _, out := range outbounds {
		if err := e.sender.Send(ctx, out.To, out.Body, out.IdempotencyKey); err != nil {
			metrics.DeliveryFailures.Inc()
			log.Error("outbound delivery failed",
				zap.String("session_id", after.SessionID),
				zap.String("template", out.TemplateID),
				zap.Error(err))
			return outbounds, fmt.Errorf("failed to deliver message: %w", err)
		}
	}

	if e.auditor != nil {
		templateIDs := make([]string, 0, len(outbounds))
		for _, out := range outbounds {
			templateIDs = append(templateIDs, out.TemplateID)
		}
		if err := e.auditor.RecordTurn(ctx, after.SessionID, after.TurnCounter, string(after.State), lastInbound(after), templateIDs); err != nil {
			log.Warn("turn audit failed", zap.String("session_id", after.SessionID), zap.Error(err))
		}
	}

	return outbounds, nil
}

func lastInbound(sess *session.Session) string {
	if len(sess.History) == 0 {
		return ""
	}
	return sess.History[len(sess.History)-1].InboundText
}

package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/content"
	"github.com/resume-agent/backend/internal/conversation"
	"github.com/resume-agent/backend/internal/jd"
	"github.com/resume-agent/backend/internal/llm"
	"github.com/resume-agent/backend/internal/metrics"
	"github.com/resume-agent/backend/internal/scoring"
	"github.com/resume-agent/backend/internal/storage/models"
	"github.com/resume-agent/backend/internal/storage/sqlite"
	"github.com/resume-agent/backend/pkg/logger"
	"github.com/resume-agent/backend/pkg/utils"

	"github.com/google/uuid"
)

// ErrValidation covers caller mistakes: no resume, unreadable resume.
var ErrValidation = errors.New("invalid review request")

// TextExtractor resolves a resume URL into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, url string) (string, error)
}

// Request is one review to process. Exactly one of ResumeText or
// ResumeURL must be set; JobURL is optional.
type Request struct {
	SessionID  string `json:"session_id"`
	ResumeText string `json:"resume_text,omitempty"`
	ResumeURL  string `json:"resume_url,omitempty"`
	JobURL     string `json:"job_url,omitempty"`
}

// Outcome is the processed review: the persisted record id, the score,
// and the opening messages already delivered to the user.
type Outcome struct {
	ReviewID  string                  `json:"review_id"`
	SessionID string                  `json:"session_id"`
	Score     *scoring.Result         `json:"score"`
	Narrative string                  `json:"narrative,omitempty"`
	Outbound  []conversation.Outbound `json:"outbound"`
}

// Service orchestrates a review end to end: resolve inputs, score,
// generate the narrative, persist, and open the conversation.
type Service struct {
	scorer    *scoring.Scorer
	store     *content.Store
	extractor TextExtractor
	fetcher   *jd.Fetcher
	llmClient *llm.Client
	db        *sqlite.Client
	engine    *conversation.Engine
}

func NewService(
	scorer *scoring.Scorer,
	store *content.Store,
	extractor TextExtractor,
	fetcher *jd.Fetcher,
	llmClient *llm.Client,
	db *sqlite.Client,
	engine *conversation.Engine,
) *Service {
	return &Service{
		scorer:    scorer,
		store:     store,
		extractor: extractor,
		fetcher:   fetcher,
		llmClient: llmClient,
		db:        db,
		engine:    engine,
	}
}

// ProcessReview runs the whole pipeline. Job fetch failures are soft
// (the resume is reviewed alone); scoring-content unavailability
// degrades the result; narrative generation failure routes the session
// to its error state instead of blocking the review record.
func (s *Service) ProcessReview(ctx context.Context, req Request) (*Outcome, error) {
	log := logger.GetLogger()
	start := time.Now()

	resumeText, err := s.resolveResume(ctx, req)
	if err != nil {
		metrics.ReviewsTotal.WithLabelValues("validation_error").Inc()
		return nil, err
	}

	jobText, posting := s.resolveJob(ctx, req.JobURL)

	result, err := s.scorer.Score(resumeText, jobText)
	if errors.Is(err, content.ErrContentUnavailable) {
		log.Warn("content store unavailable, producing degraded review",
			zap.String("session_id", req.SessionID))
		result = s.scorer.DegradedResult(resumeText, jobText)
	} else if err != nil {
		metrics.ReviewsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to score resume: %w", err)
	}

	narrative, narrativeErr := s.generateNarrative(ctx, result)

	reviewID := uuid.New().String()
	s.persistReview(reviewID, req, posting, result, narrative, time.Since(start))

	if narrativeErr != nil {
		return s.failSession(ctx, req.SessionID, reviewID, result, narrativeErr)
	}

	outbound, err := s.engine.StartSession(ctx, req.SessionID, result, narrative)
	if err != nil {
		metrics.ReviewsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to open conversation: %w", err)
	}

	hasJob := "false"
	if jobText != "" {
		hasJob = "true"
	}
	metrics.ReviewDuration.WithLabelValues(hasJob).Observe(time.Since(start).Seconds())
	metrics.ReviewsTotal.WithLabelValues("success").Inc()
	metrics.ConfidenceScore.Observe(float64(result.Confidence))
	metrics.ConfidenceBand.WithLabelValues(string(result.Band)).Inc()

	log.Info("review processed",
		zap.String("review_id", reviewID),
		zap.String("session_id", req.SessionID),
		zap.Int("confidence", result.Confidence),
		zap.String("band", string(result.Band)),
		zap.Bool("degraded", result.Degraded))

	return &Outcome{
		ReviewID:  reviewID,
		SessionID: req.SessionID,
		Score:     result,
		Narrative: narrative,
		Outbound:  outbound,
	}, nil
}

func (s *Service) resolveResume(ctx context.Context, req Request) (string, error) {
	if req.SessionID == "" {
		return "", fmt.Errorf("%w: session_id is required", ErrValidation)
	}

	if req.ResumeText != "" {
		return req.ResumeText, nil
	}
	if req.ResumeURL == "" {
		return "", fmt.Errorf("%w: resume_text or resume_url is required", ErrValidation)
	}

	text, err := s.extractor.ExtractText(ctx, req.ResumeURL)
	if err != nil {
		return "", fmt.Errorf("%w: could not read resume at %s: %v", ErrValidation, req.ResumeURL, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: resume at %s is empty", ErrValidation, req.ResumeURL)
	}
	return text, nil
}

// resolveJob fetches the posting when a URL was given. Failure is soft:
// the review proceeds without a job comparison.
func (s *Service) resolveJob(ctx context.Context, jobURL string) (string, *jd.Posting) {
	if jobURL == "" || s.fetcher == nil {
		return "", nil
	}

	posting, err := s.fetcher.Fetch(ctx, jobURL)
	if err != nil {
		logger.Warn("job fetch failed, reviewing resume alone",
			zap.String("job_url", jobURL),
			zap.Error(err))
		return "", nil
	}
	return posting.JobText(), posting
}

func (s *Service) generateNarrative(ctx context.Context, result *scoring.Result) (string, error) {
	if s.llmClient == nil {
		return "", nil
	}

	labels := make([]string, 0, len(result.Citations))
	for _, id := range result.Citations {
		labels = append(labels, s.store.Label(id))
	}

	narrative, err := s.llmClient.GenerateReviewNarrative(ctx, result, labels)
	if err != nil {
		logger.Error("narrative generation failed", zap.Error(err))
		return "", err
	}
	return narrative, nil
}

// persistReview is best effort: a storage hiccup must not block the user
// from receiving their review.
func (s *Service) persistReview(reviewID string, req Request, posting *jd.Posting, result *scoring.Result, narrative string, latency time.Duration) {
	if s.db == nil {
		return
	}

	record := &models.ReviewRecord{
		ID:                  reviewID,
		SessionID:           req.SessionID,
		ResumeHash:          utils.HashPair(req.ResumeText, req.ResumeURL),
		JobURL:              req.JobURL,
		Confidence:          result.Confidence,
		Band:                string(result.Band),
		JDOverlapRatio:      result.JDOverlapRatio,
		NewsletterRelevance: result.NewsletterRelevanceRatio,
		Degraded:            result.Degraded,
		Narrative:           narrative,
		LatencyMS:           int(latency.Milliseconds()),
		CreatedAt:           time.Now(),
	}
	if posting != nil {
		record.JobPlatform = posting.Platform
	}

	if err := s.db.InsertReview(record); err != nil {
		logger.Warn("failed to persist review", zap.String("review_id", reviewID), zap.Error(err))
		return
	}

	for i, chunkID := range result.Citations {
		citation := &models.ReviewCitation{ReviewID: reviewID, ChunkID: chunkID, Rank: i + 1}
		if err := s.db.InsertReviewCitation(citation); err != nil {
			logger.Warn("failed to persist citation", zap.String("review_id", reviewID), zap.Error(err))
		}
	}
}

// failSession parks the conversation in its error state with an apology
// when narrative generation failed. The review record itself survives.
func (s *Service) failSession(ctx context.Context, sessionID, reviewID string, result *scoring.Result, cause error) (*Outcome, error) {
	metrics.ReviewsTotal.WithLabelValues("generation_error").Inc()

	// The session may not exist yet for a first-time user; create it so
	// the failure has somewhere to land.
	if err := s.engine.EnsureSession(ctx, sessionID, result, ""); err == nil {
		outbound, ferr := s.engine.ProcessFailure(ctx, sessionID)
		if ferr == nil {
			return &Outcome{
				ReviewID:  reviewID,
				SessionID: sessionID,
				Score:     result,
				Outbound:  outbound,
			}, nil
		}
	}

	return nil, fmt.Errorf("narrative generation failed: %w", cause)
}

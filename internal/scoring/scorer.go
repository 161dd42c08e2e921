package scoring

import (
	"math"

	"github.com/resume-agent/backend/internal/content"
	"github.com/resume-agent/backend/internal/keywords"
)

type Band string

const (
	BandVeryLow Band = "very_low"
	BandLow     Band = "low"
	BandMedium  Band = "medium"
	BandHigh    Band = "high"
)

// BandFor maps a confidence score onto its coarse band. Thresholds are
// fixed: <=20 very_low, 21..50 low, 51..80 medium, >80 high.
func BandFor(confidence int) Band {
	switch {
	case confidence <= 20:
		return BandVeryLow
	case confidence <= 50:
		return BandLow
	case confidence <= 80:
		return BandMedium
	default:
		return BandHigh
	}
}

// Result is the outcome of one scoring request. Immutable after creation;
// sessions cache it for their whole lifetime.
type Result struct {
	Confidence               int      `json:"confidence"`
	Band                     Band     `json:"band"`
	JDOverlapRatio           float64  `json:"jd_overlap_ratio"`
	NewsletterRelevanceRatio float64  `json:"newsletter_relevance_ratio"`
	MatchedKeywords          []string `json:"matched_keywords"`
	MissingKeywords          []string `json:"missing_keywords"`
	Citations                []string `json:"citations"`
	Degraded                 bool     `json:"degraded,omitempty"`
}

// Scorer combines job-description overlap and newsletter relevance into a
// single confidence score with supporting citations. Score is a pure
// function of its inputs and the current content snapshot, so it is safe
// to call concurrently.
type Scorer struct {
	extractor *keywords.Extractor
	store     *content.Store
	maxChunks int
}

func NewScorer(extractor *keywords.Extractor, store *content.Store, maxChunks int) *Scorer {
	if maxChunks <= 0 {
		maxChunks = 5
	}
	return &Scorer{
		extractor: extractor,
		store:     store,
		maxChunks: maxChunks,
	}
}

// Score evaluates resumeText against an optional job description. An
// empty jobText means no job was supplied: the JD overlap contributes
// zero and both keyword diff sets stay empty. A content store that has
// not been loaded propagates ErrContentUnavailable untouched; callers
// degrade via DegradedResult rather than hide it.
func (s *Scorer) Score(resumeText, jobText string) (*Result, error) {
	resumeKW := s.extractor.Extract(resumeText)

	jdOverlap, matched, missing := s.jobOverlap(resumeKW, jobText)

	chunks, err := s.store.Retrieve(resumeKW, s.maxChunks)
	if err != nil {
		return nil, err
	}

	var newsletterRelevance float64
	if len(chunks) > 0 {
		var sum float64
		for _, c := range chunks {
			sum += content.ChunkScore(resumeKW, c)
		}
		newsletterRelevance = sum / float64(len(chunks))
	}

	citations := make([]string, len(chunks))
	for i, c := range chunks {
		citations[i] = c.ID
	}

	confidence := combine(jdOverlap, newsletterRelevance)

	return &Result{
		Confidence:               confidence,
		Band:                     BandFor(confidence),
		JDOverlapRatio:           jdOverlap,
		NewsletterRelevanceRatio: newsletterRelevance,
		MatchedKeywords:          matched,
		MissingKeywords:          missing,
		Citations:                citations,
	}, nil
}

// DegradedResult is the citation-free fallback used when the content
// store is unavailable. Only the JD overlap contributes, and the result
// is flagged so downstream messaging never presents it as a full review.
func (s *Scorer) DegradedResult(resumeText, jobText string) *Result {
	resumeKW := s.extractor.Extract(resumeText)
	jdOverlap, matched, missing := s.jobOverlap(resumeKW, jobText)
	confidence := combine(jdOverlap, 0)

	return &Result{
		Confidence:      confidence,
		Band:            BandFor(confidence),
		JDOverlapRatio:  jdOverlap,
		MatchedKeywords: matched,
		MissingKeywords: missing,
		Citations:       []string{},
		Degraded:        true,
	}
}

func (s *Scorer) jobOverlap(resumeKW keywords.Set, jobText string) (float64, []string, []string) {
	if jobText == "" {
		return 0, []string{}, []string{}
	}

	jobKW := s.extractor.Extract(jobText)
	if jobKW.Len() == 0 {
		return 0, []string{}, []string{}
	}

	matched := resumeKW.Intersect(jobKW)
	missing := jobKW.Diff(resumeKW)
	ratio := float64(matched.Len()) / float64(jobKW.Len())

	return ratio, matched.Sorted(), missing.Sorted()
}

// combine applies the fixed 70/30 weighting and clamps to [0,100].
func combine(jdOverlap, newsletterRelevance float64) int {
	confidence := int(math.Round(70*jdOverlap + 30*newsletterRelevance))
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return confidence
}

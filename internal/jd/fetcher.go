package jd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/metrics"
	"github.com/resume-agent/backend/pkg/logger"
	"github.com/resume-agent/backend/pkg/retry"
)

const (
	maxBodyBytes     = 4 << 20
	defaultUserAgent = "Mozilla/5.0 (compatible; ResumeAgent/1.0)"
)

// Fetcher downloads and extracts job postings. A fetch failure is soft:
// callers fall back to reviewing the resume without a job comparison.
type Fetcher struct {
	client   *http.Client
	retryCfg retry.Config
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 2
	cfg.InitialDelay = 500 * time.Millisecond
	cfg.ShouldRetry = func(err error) bool {
		// Client-side rejections (403, 404) won't improve on retry.
		var status *statusError
		if errors.As(err, &status) {
			return status.code >= 500 || status.code == http.StatusTooManyRequests
		}
		return true
	}

	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		retryCfg: cfg,
	}
}

// Fetch downloads a posting URL and extracts it with the platform's
// selectors. The URL is cleaned of tracking parameters first.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Posting, error) {
	log := logger.GetLogger()

	cleaned := CleanURL(rawURL)
	platform := DetectPlatform(cleaned)

	html, err := retry.DoWithResult(ctx, f.retryCfg, func() (string, error) {
		return f.download(ctx, cleaned)
	})
	if err != nil {
		metrics.JobFetchTotal.WithLabelValues(string(platform), "fetch_error").Inc()
		return nil, fmt.Errorf("failed to fetch job posting: %w", err)
	}

	posting, err := Extract(platform, html, cleaned)
	if err != nil {
		metrics.JobFetchTotal.WithLabelValues(string(platform), "extract_error").Inc()
		return nil, fmt.Errorf("failed to extract job posting: %w", err)
	}

	metrics.JobFetchTotal.WithLabelValues(string(platform), "success").Inc()
	log.Info("job posting fetched",
		zap.String("platform", string(platform)),
		zap.String("title", posting.Title),
		zap.Int("description_chars", len(posting.Description)))
	return posting, nil
}

func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, url: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.code, e.url)
}

package jd_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resume-agent/backend/internal/jd"
)

const greenhousePage = `<html><body>
<h1 class="app-title">Senior Backend Engineer</h1>
<span class="company-name">Acme Corp</span>
<div id="content">
<p>We are looking for a backend engineer with Go, PostgreSQL and Kubernetes experience.
You will design distributed systems and own services end to end.</p>
</div>
</body></html>`

func TestExtractGreenhouse(t *testing.T) {
	posting, err := jd.Extract(jd.PlatformGreenhouse, greenhousePage, "https://boards.greenhouse.io/acme/1")
	require.NoError(t, err)

	require.Equal(t, "Senior Backend Engineer", posting.Title)
	require.Equal(t, "Acme Corp", posting.Company)
	require.Contains(t, posting.Description, "Go, PostgreSQL and Kubernetes")
	require.Equal(t, string(jd.PlatformGreenhouse), posting.Platform)
}

func TestExtractGenericFallback(t *testing.T) {
	page := `<html><body>
<h1>Platform Engineer</h1>
<main>
<p>Own our infrastructure. Terraform, AWS and CI/CD pipelines. Build tooling the whole company uses every day.</p>
</main>
</body></html>`

	posting, err := jd.Extract(jd.PlatformGeneric, page, "https://careers.example.com/1")
	require.NoError(t, err)
	require.Equal(t, "Platform Engineer", posting.Title)
	require.Contains(t, posting.Description, "Terraform, AWS")
}

func TestExtractPlatformSelectorsMissFallsBack(t *testing.T) {
	// LinkedIn selectors won't match; the generic set picks up the page.
	page := `<html><body>
<h1>Data Engineer</h1>
<article>` + strings.Repeat("Build pipelines with Spark and Airflow. ", 5) + `</article>
</body></html>`

	posting, err := jd.Extract(jd.PlatformLinkedIn, page, "https://www.linkedin.com/jobs/view/1")
	require.NoError(t, err)
	require.Equal(t, "Data Engineer", posting.Title)
	require.Contains(t, posting.Description, "Spark")
}

func TestExtractNoDescription(t *testing.T) {
	_, err := jd.Extract(jd.PlatformGeneric, `<html><body><h1>Job</h1></body></html>`, "https://x.test/1")
	require.True(t, errors.Is(err, jd.ErrNoDescription))
}

func TestPostingJobText(t *testing.T) {
	p := &jd.Posting{Title: "SRE", Description: "Keep things up."}
	require.Equal(t, "SRE\nKeep things up.", p.JobText())
}

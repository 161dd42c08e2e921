package jd_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resume-agent/backend/internal/jd"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want jd.Platform
	}{
		{"https://www.linkedin.com/jobs/view/123", jd.PlatformLinkedIn},
		{"https://www.indeed.com/viewjob?jk=abc", jd.PlatformIndeed},
		{"https://boards.greenhouse.io/acme/jobs/456", jd.PlatformGreenhouse},
		{"https://jobs.lever.co/acme/789", jd.PlatformLever},
		{"https://acme.wd1.myworkdayjobs.com/en-US/careers/job/Engineer", jd.PlatformWorkday},
		{"https://careers.example.com/openings/1", jd.PlatformGeneric},
		{"not a url at all ://", jd.PlatformGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			require.Equal(t, tt.want, jd.DetectPlatform(tt.url))
		})
	}
}

func TestCleanURLStripsTracking(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "utm parameters",
			in:   "https://example.com/job?id=1&utm_source=twitter&utm_campaign=x",
			want: "https://example.com/job?id=1",
		},
		{
			name: "linkedin tracking",
			in:   "https://www.linkedin.com/jobs/view/123?trk=share&refId=abc",
			want: "https://www.linkedin.com/jobs/view/123",
		},
		{
			name: "fragment dropped",
			in:   "https://example.com/job#apply",
			want: "https://example.com/job",
		},
		{
			name: "meaningful params kept",
			in:   "https://www.indeed.com/viewjob?jk=abc123",
			want: "https://www.indeed.com/viewjob?jk=abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, jd.CleanURL(tt.in))
		})
	}
}

package jd

import (
	"net/url"
	"strings"
)

// Platform identifies which job board a posting URL belongs to, which
// selects the HTML extraction strategy.
type Platform string

const (
	PlatformLinkedIn   Platform = "linkedin"
	PlatformIndeed     Platform = "indeed"
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformGeneric    Platform = "generic"
)

// DetectPlatform maps a posting URL to its platform by hostname. Unknown
// hosts fall back to the generic extractor rather than failing.
func DetectPlatform(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformGeneric
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "linkedin.com"):
		return PlatformLinkedIn
	case strings.Contains(host, "indeed.com"):
		return PlatformIndeed
	case strings.Contains(host, "greenhouse.io"):
		return PlatformGreenhouse
	case strings.Contains(host, "lever.co"):
		return PlatformLever
	case strings.Contains(host, "myworkdayjobs.com") || strings.Contains(host, "workday.com"):
		return PlatformWorkday
	default:
		return PlatformGeneric
	}
}

// CleanURL strips tracking parameters so the same posting shared through
// different channels hashes to the same job.
func CleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	for param := range q {
		lower := strings.ToLower(param)
		if strings.HasPrefix(lower, "utm_") || lower == "ref" || lower == "refid" ||
			lower == "trk" || lower == "trackingid" || lower == "gclid" || lower == "fbclid" {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

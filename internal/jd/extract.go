package jd

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoDescription means the page parsed but no usable description text
// was found. Callers treat the job as absent and review the resume alone.
var ErrNoDescription = errors.New("no job description found in page")

// Posting is an extracted job posting. Description is plain text with
// collapsed whitespace.
type Posting struct {
	URL         string `json:"url"`
	Platform    string `json:"platform"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

// JobText is the text fed to keyword extraction: title plus description.
func (p *Posting) JobText() string {
	return strings.TrimSpace(p.Title + "\n" + p.Description)
}

// selectorSet holds per-platform CSS selectors, tried in order. The
// generic set doubles as the fallback when platform selectors miss.
type selectorSet struct {
	title       []string
	company     []string
	description []string
}

var selectors = map[Platform]selectorSet{
	PlatformLinkedIn: {
		title:       []string{"h1.top-card-layout__title", "h1.topcard__title", "h1"},
		company:     []string{"a.topcard__org-name-link", "span.topcard__flavor", ".top-card-layout__second-subline a"},
		description: []string{"div.show-more-less-html__markup", "div.description__text", "section.description"},
	},
	PlatformIndeed: {
		title:       []string{"h1.jobsearch-JobInfoHeader-title", "h1[data-testid='jobsearch-JobInfoHeader-title']", "h1"},
		company:     []string{"div[data-testid='inlineHeader-companyName']", "div.jobsearch-CompanyInfoContainer a"},
		description: []string{"div#jobDescriptionText", "div.jobsearch-jobDescriptionText"},
	},
	PlatformGreenhouse: {
		title:       []string{"h1.app-title", "h1.section-header", "h1"},
		company:     []string{"span.company-name", "div.company-name"},
		description: []string{"div#content", "div.job__description", "section#grnhse_app"},
	},
	PlatformLever: {
		title:       []string{"h2.posting-headline", "div.posting-headline h2", "h2"},
		company:     []string{"a.main-header-logo img[alt]"},
		description: []string{"div.section-wrapper div[data-qa='job-description']", "div.posting-page div.section"},
	},
	PlatformWorkday: {
		title:       []string{"h1[data-automation-id='jobPostingHeader']", "h1"},
		company:     []string{"div[data-automation-id='company']"},
		description: []string{"div[data-automation-id='jobPostingDescription']"},
	},
	PlatformGeneric: {
		title:       []string{"h1", "title"},
		company:     []string{"meta[property='og:site_name']"},
		description: []string{"main", "article", "div[class*='description']", "body"},
	},
}

// Extract parses posting HTML with the platform's selectors, falling
// back to generic ones when they come up empty.
func Extract(platform Platform, html, sourceURL string) (*Posting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	set, ok := selectors[platform]
	if !ok {
		set = selectors[PlatformGeneric]
	}
	generic := selectors[PlatformGeneric]

	posting := &Posting{
		URL:         sourceURL,
		Platform:    string(platform),
		Title:       firstText(doc, set.title, generic.title),
		Company:     firstText(doc, set.company, generic.company),
		Description: firstText(doc, set.description, generic.description),
	}

	if posting.Description == "" || len(posting.Description) < 50 {
		return nil, ErrNoDescription
	}
	return posting, nil
}

func firstText(doc *goquery.Document, primary, fallback []string) string {
	for _, group := range [][]string{primary, fallback} {
		for _, sel := range group {
			node := doc.Find(sel).First()
			if node.Length() == 0 {
				continue
			}
			if text := normalizeText(nodeText(node)); text != "" {
				return text
			}
		}
	}
	return ""
}

func nodeText(node *goquery.Selection) string {
	if content, ok := node.Attr("content"); ok && content != "" {
		return content
	}
	if alt, ok := node.Attr("alt"); ok && alt != "" {
		return alt
	}
	return node.Text()
}

func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

package content

import (
	"fmt"
	"regexp"
	"strings"
)

var headerPattern = regexp.MustCompile(`(?m)^#{1,3}\s+`)

// topicVocabulary is the fixed set of topic tags assigned to chunks.
// Tags drive nothing in ranking; they exist for citation display and
// for grouping advice by review area.
var topicVocabulary = []string{
	"resume", "interview", "job", "experience", "skills", "keywords",
	"achievements", "bullet points", "customization", "ats", "screening",
	"archetype", "story", "narrative", "strengths", "weaknesses",
	"formatting",
}

// ChunkArticle splits a markdown article into header-delimited chunks.
// Chunk ids are stable for a given article name and section order, so
// reloading the same article yields the same citations.
func ChunkArticle(articleName, text string) []Chunk {
	sections := headerPattern.Split(text, -1)

	var chunks []Chunk
	index := 0
	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		lines := strings.SplitN(section, "\n", 2)
		title := strings.TrimSpace(lines[0])
		body := title
		if len(lines) > 1 && strings.TrimSpace(lines[1]) != "" {
			body = strings.TrimSpace(lines[1])
		}

		chunks = append(chunks, Chunk{
			ID:            chunkID(articleName, index),
			Text:          body,
			Section:       title,
			TopicTags:     extractTopics(body + " " + title),
			SourceArticle: articleName,
			OrderIndex:    index,
		})
		index++
	}

	return chunks
}

func chunkID(articleName string, index int) string {
	slug := strings.ToLower(articleName)
	slug = strings.Join(strings.Fields(slug), "_")
	return fmt.Sprintf("%s_%d", slug, index)
}

func extractTopics(text string) []string {
	lower := strings.ToLower(text)

	var topics []string
	for _, topic := range topicVocabulary {
		if strings.Contains(lower, topic) {
			topics = append(topics, topic)
		}
	}
	return topics
}

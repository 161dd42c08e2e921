package content_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resume-agent/backend/internal/content"
)

const sampleArticle = `# Customizing Your Resume

Tailor every section to the job you want.

## Keywords Matter

Screening systems look for exact keywords from the job description.

## Tell a Story

Your experience should read like a straight line to this role.
`

func TestChunkArticleSplitsOnHeaders(t *testing.T) {
	chunks := content.ChunkArticle("Resume Guide", sampleArticle)

	require.Len(t, chunks, 3)
	require.Equal(t, "Customizing Your Resume", chunks[0].Section)
	require.Equal(t, "Keywords Matter", chunks[1].Section)
	require.Equal(t, "Tell a Story", chunks[2].Section)

	for i, c := range chunks {
		require.Equal(t, i, c.OrderIndex)
		require.Equal(t, "Resume Guide", c.SourceArticle)
		require.NotEmpty(t, c.Text)
	}
}

func TestChunkArticleStableIDs(t *testing.T) {
	first := content.ChunkArticle("Resume Guide", sampleArticle)
	second := content.ChunkArticle("Resume Guide", sampleArticle)

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].ID, second[i].ID)
	}
	require.Equal(t, "resume_guide_0", first[0].ID)
}

func TestChunkArticleTopicTags(t *testing.T) {
	chunks := content.ChunkArticle("Guide", "# Keywords\n\nPut job keywords in your skills section.")

	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].TopicTags, "keywords")
	require.Contains(t, chunks[0].TopicTags, "skills")
}

func TestChunkArticleEmpty(t *testing.T) {
	require.Empty(t, content.ChunkArticle("Empty", ""))
	require.Empty(t, content.ChunkArticle("Whitespace", "   \n\n  "))
}

func TestDefaultArticleChunks(t *testing.T) {
	chunks := content.ChunkArticle(content.DefaultArticleName, content.DefaultArticleText)
	require.NotEmpty(t, chunks)
}

package content_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resume-agent/backend/internal/content"
	"github.com/resume-agent/backend/internal/keywords"
)

func newLoadedStore(chunks ...content.Chunk) *content.Store {
	s := content.NewStore(keywords.NewExtractor())
	s.Load(chunks)
	return s
}

func TestRetrieveUnloaded(t *testing.T) {
	s := content.NewStore(keywords.NewExtractor())

	_, err := s.Retrieve(keywords.NewSet("resume"), 5)
	require.True(t, errors.Is(err, content.ErrContentUnavailable))
}

func TestRetrieveRanksByRecall(t *testing.T) {
	// chunk a: 2 keywords, both hit -> recall 1.0
	// chunk b: 4 keywords, 2 hit   -> recall 0.5
	// chunk c: no overlap          -> excluded
	s := newLoadedStore(
		content.Chunk{ID: "a", OrderIndex: 0, Keywords: keywords.NewSet("resume", "keywords")},
		content.Chunk{ID: "b", OrderIndex: 1, Keywords: keywords.NewSet("resume", "keywords", "archetype", "story")},
		content.Chunk{ID: "c", OrderIndex: 2, Keywords: keywords.NewSet("interview", "negotiation")},
	)

	got, err := s.Retrieve(keywords.NewSet("resume", "keywords"), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].ID)
	require.Equal(t, "b", got[1].ID)
}

func TestRetrieveTiesBreakByOrderIndex(t *testing.T) {
	s := newLoadedStore(
		content.Chunk{ID: "later", OrderIndex: 7, Keywords: keywords.NewSet("resume", "skills")},
		content.Chunk{ID: "earlier", OrderIndex: 2, Keywords: keywords.NewSet("resume", "skills")},
	)

	got, err := s.Retrieve(keywords.NewSet("resume", "skills"), 5)
	require.NoError(t, err)
	require.Equal(t, []string{"earlier", "later"}, []string{got[0].ID, got[1].ID})
}

func TestRetrieveRespectsMaxChunks(t *testing.T) {
	chunks := make([]content.Chunk, 10)
	for i := range chunks {
		chunks[i] = content.Chunk{
			ID:         string(rune('a' + i)),
			OrderIndex: i,
			Keywords:   keywords.NewSet("resume"),
		}
	}
	s := newLoadedStore(chunks...)

	got, err := s.Retrieve(keywords.NewSet("resume"), 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
}

func TestRetrieveEmptyKeywords(t *testing.T) {
	s := newLoadedStore(
		content.Chunk{ID: "a", Keywords: keywords.NewSet("resume")},
	)

	got, err := s.Retrieve(keywords.NewSet(), 5)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestLoadDerivesKeywords(t *testing.T) {
	s := newLoadedStore(
		content.Chunk{ID: "a", OrderIndex: 0, Text: "Customize your resume for every job application."},
	)

	got, err := s.Retrieve(keywords.NewSet("resume", "customize"), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].ID)
}

func TestLoadReplacesSnapshot(t *testing.T) {
	s := newLoadedStore(
		content.Chunk{ID: "old", Keywords: keywords.NewSet("resume")},
	)
	s.Load([]content.Chunk{
		{ID: "new", Keywords: keywords.NewSet("resume")},
	})

	require.Equal(t, 1, s.Len())
	require.False(t, s.Contains("old"))
	require.True(t, s.Contains("new"))
}

func TestLabel(t *testing.T) {
	s := newLoadedStore(
		content.Chunk{ID: "a", Section: "Why customization matters", Keywords: keywords.NewSet("resume")},
		content.Chunk{ID: "b", Keywords: keywords.NewSet("resume")},
	)

	require.Equal(t, "Why customization matters", s.Label("a"))
	require.Equal(t, "b", s.Label("b"))
	require.Equal(t, "missing", s.Label("missing"))
}

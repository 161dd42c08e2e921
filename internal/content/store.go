package content

import (
	"errors"
	"sort"
	"sync"

	"github.com/resume-agent/backend/internal/keywords"
)

// ErrContentUnavailable means the advice corpus has not been loaded.
// It is fatal to scoring and must propagate to the caller.
var ErrContentUnavailable = errors.New("newsletter content not loaded")

// Chunk is one tagged unit of advice-corpus text. Immutable once loaded;
// identity is ID.
type Chunk struct {
	ID            string
	Text          string
	Section       string
	TopicTags     []string
	SourceArticle string
	OrderIndex    int
	Keywords      keywords.Set
}

// Store holds the newsletter corpus as an immutable snapshot. Load swaps
// the whole snapshot atomically so in-flight readers never observe a
// partially replaced corpus.
type Store struct {
	extractor *keywords.Extractor

	mu     sync.RWMutex
	chunks []Chunk
	loaded bool
}

func NewStore(extractor *keywords.Extractor) *Store {
	return &Store{extractor: extractor}
}

// Load replaces the corpus all-or-nothing. Chunk keyword sets are derived
// here so retrieval never re-tokenizes chunk text.
func (s *Store) Load(chunks []Chunk) {
	snapshot := make([]Chunk, len(chunks))
	for i, c := range chunks {
		if c.Keywords == nil {
			c.Keywords = s.extractor.Extract(c.Text)
		}
		snapshot[i] = c
	}

	s.mu.Lock()
	s.chunks = snapshot
	s.loaded = true
	s.mu.Unlock()
}

// Len reports the number of chunks in the current snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Contains reports whether a chunk id exists in the current snapshot.
func (s *Store) Contains(chunkID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chunks {
		if c.ID == chunkID {
			return true
		}
	}
	return false
}

// Get returns the chunk with the given id from the current snapshot.
func (s *Store) Get(chunkID string) (Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chunks {
		if c.ID == chunkID {
			return c, true
		}
	}
	return Chunk{}, false
}

type scoredChunk struct {
	chunk Chunk
	score float64
}

// Retrieve ranks chunks by keyword recall |kw ∩ chunkKW| / |chunkKW|,
// which favors small focused chunks. Ties break by ascending order index
// so earlier, foundational content wins deterministically. Chunks with
// zero overlap are excluded. Never mutates the store.
func (s *Store) Retrieve(kw keywords.Set, maxChunks int) ([]Chunk, error) {
	s.mu.RLock()
	snapshot := s.chunks
	loaded := s.loaded
	s.mu.RUnlock()

	if !loaded {
		return nil, ErrContentUnavailable
	}
	if maxChunks <= 0 || kw.Len() == 0 {
		return nil, nil
	}

	scored := make([]scoredChunk, 0, len(snapshot))
	for _, c := range snapshot {
		if c.Keywords.Len() == 0 {
			continue
		}
		overlap := kw.Intersect(c.Keywords).Len()
		if overlap == 0 {
			continue
		}
		scored = append(scored, scoredChunk{
			chunk: c,
			score: float64(overlap) / float64(c.Keywords.Len()),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].chunk.OrderIndex < scored[j].chunk.OrderIndex
	})

	if len(scored) > maxChunks {
		scored = scored[:maxChunks]
	}

	out := make([]Chunk, len(scored))
	for i, sc := range scored {
		out[i] = sc.chunk
	}
	return out, nil
}

// Label turns a chunk id into the display text used in citations.
// Unknown ids pass through unchanged so stale citations stay visible.
func (s *Store) Label(chunkID string) string {
	c, ok := s.Get(chunkID)
	if !ok || c.Section == "" {
		return chunkID
	}
	return c.Section
}

// ChunkScore exposes the recall ratio used for ranking so the scorer can
// reuse the same arithmetic.
func ChunkScore(kw keywords.Set, c Chunk) float64 {
	if c.Keywords.Len() == 0 {
		return 0
	}
	return float64(kw.Intersect(c.Keywords).Len()) / float64(c.Keywords.Len())
}

package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/content"
	"github.com/resume-agent/backend/internal/metrics"
	"github.com/resume-agent/backend/internal/storage/models"
	"github.com/resume-agent/backend/internal/storage/sqlite"
	"github.com/resume-agent/backend/pkg/logger"
	"github.com/resume-agent/backend/pkg/utils"
)

// Processor ingests newsletter articles: chunk the markdown, persist the
// chunks, then reload the in-memory corpus snapshot. Retrieval readers
// never see a partially ingested article.
type Processor struct {
	db    *sqlite.Client
	store *content.Store
}

func NewProcessor(db *sqlite.Client, store *content.Store) *Processor {
	return &Processor{db: db, store: store}
}

// ProcessArticle chunks and persists one article, then swaps the corpus
// snapshot. Re-ingesting the same name replaces its chunks.
func (p *Processor) ProcessArticle(ctx context.Context, name, sourceURL, text string) (int, error) {
	if name == "" || text == "" {
		return 0, fmt.Errorf("article name and content are required")
	}

	chunks := content.ChunkArticle(name, text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("article %q produced no chunks", name)
	}

	now := time.Now()
	articleID := utils.HashString(name)

	article := &models.Article{
		ID:         articleID,
		Name:       name,
		SourceURL:  sourceURL,
		RawContent: text,
		ChunkCount: len(chunks),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.db.UpsertArticle(article); err != nil {
		return 0, fmt.Errorf("failed to persist article: %w", err)
	}

	records := make([]models.ArticleChunk, len(chunks))
	for i, c := range chunks {
		records[i] = models.ArticleChunk{
			ID:         c.ID,
			ArticleID:  articleID,
			OrderIndex: c.OrderIndex,
			Section:    c.Section,
			Text:       c.Text,
			TopicTags:  c.TopicTags,
			CreatedAt:  now,
		}
	}
	if err := p.db.ReplaceArticleChunks(articleID, records); err != nil {
		return 0, fmt.Errorf("failed to persist chunks: %w", err)
	}

	if err := p.ReloadCorpus(ctx); err != nil {
		return 0, err
	}

	metrics.ArticlesIngested.Inc()
	logger.Info("article ingested",
		zap.String("article", name),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// ReloadCorpus rebuilds the in-memory snapshot from everything persisted.
func (p *Processor) ReloadCorpus(ctx context.Context) error {
	records, err := p.db.GetAllChunks()
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	chunks := make([]content.Chunk, len(records))
	for i, r := range records {
		chunks[i] = content.Chunk{
			ID:            r.ID,
			Text:          r.Text,
			Section:       r.Section,
			TopicTags:     r.TopicTags,
			SourceArticle: r.ArticleID,
			OrderIndex:    r.OrderIndex,
		}
	}

	p.store.Load(chunks)
	metrics.ChunksLoaded.Set(float64(len(chunks)))
	return nil
}

// EnsureDefaultContent seeds the bundled article on first boot so the
// agent can score reviews before any article is ingested through the API.
func (p *Processor) EnsureDefaultContent(ctx context.Context) error {
	existing, err := p.db.GetArticleByName(content.DefaultArticleName)
	if err != nil {
		return fmt.Errorf("failed to check default article: %w", err)
	}
	if existing != nil {
		return p.ReloadCorpus(ctx)
	}

	_, err = p.ProcessArticle(ctx, content.DefaultArticleName, content.DefaultArticleURL, content.DefaultArticleText)
	return err
}

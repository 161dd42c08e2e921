package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/storage/models"
	"github.com/resume-agent/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS newsletter_articles (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		source_url TEXT,
		raw_content TEXT,
		chunk_count INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS newsletter_chunks (
		id TEXT PRIMARY KEY,
		article_id TEXT NOT NULL,
		order_index INTEGER NOT NULL,
		section TEXT,
		text TEXT NOT NULL,
		topic_tags TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (article_id) REFERENCES newsletter_articles(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_article ON newsletter_chunks(article_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_order ON newsletter_chunks(article_id, order_index);

	CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		resume_hash TEXT NOT NULL,
		job_url TEXT,
		job_platform TEXT,
		confidence INTEGER NOT NULL,
		band TEXT NOT NULL,
		jd_overlap_ratio REAL,
		newsletter_relevance REAL,
		degraded INTEGER DEFAULT 0,
		narrative TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_session ON reviews(session_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_created ON reviews(created_at);

	CREATE TABLE IF NOT EXISTS review_citations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		review_id TEXT NOT NULL,
		chunk_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		FOREIGN KEY (review_id) REFERENCES reviews(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_citations_review ON review_citations(review_id);

	CREATE TABLE IF NOT EXISTS turn_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn_counter INTEGER NOT NULL,
		state TEXT NOT NULL,
		inbound_text TEXT,
		templates TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_session ON turn_audit(session_id);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON turn_audit(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertArticle(article *models.Article) error {
	query := `
		INSERT INTO newsletter_articles (id, name, source_url, raw_content, chunk_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			source_url = excluded.source_url,
			raw_content = excluded.raw_content,
			chunk_count = excluded.chunk_count,
			updated_at = excluded.updated_at
	`

	_, err := c.db.Exec(
		query,
		article.ID,
		article.Name,
		article.SourceURL,
		article.RawContent,
		article.ChunkCount,
		article.CreatedAt.Unix(),
		article.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert article: %w", err)
	}

	logger.Debug("Article stored", zap.String("article_id", article.ID), zap.String("name", article.Name))
	return nil
}

func (c *Client) GetArticleByName(name string) (*models.Article, error) {
	query := `SELECT id, name, source_url, raw_content, chunk_count, created_at, updated_at FROM newsletter_articles WHERE name = ?`

	var article models.Article
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, name).Scan(
		&article.ID,
		&article.Name,
		&article.SourceURL,
		&article.RawContent,
		&article.ChunkCount,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	article.CreatedAt = time.Unix(createdAt, 0)
	article.UpdatedAt = time.Unix(updatedAt, 0)

	return &article, nil
}

// ReplaceArticleChunks swaps an article's chunks atomically so a reload
// never exposes a half-written chunk set.
func (c *Client) ReplaceArticleChunks(articleID string, chunks []models.ArticleChunk) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM newsletter_chunks WHERE article_id = ?`, articleID)
	if err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO newsletter_chunks (id, article_id, order_index, section, text, topic_tags, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		tagsJSON, _ := json.Marshal(chunk.TopicTags)
		_, err := stmt.Exec(
			chunk.ID,
			articleID,
			chunk.OrderIndex,
			chunk.Section,
			chunk.Text,
			string(tagsJSON),
			chunk.CreatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

func (c *Client) GetAllChunks() ([]models.ArticleChunk, error) {
	query := `
		SELECT ch.id, ch.article_id, ch.order_index, ch.section, ch.text, ch.topic_tags, ch.created_at
		FROM newsletter_chunks ch
		ORDER BY ch.article_id, ch.order_index
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.ArticleChunk
	for rows.Next() {
		var ch models.ArticleChunk
		var tagsJSON string
		var createdAt int64

		err := rows.Scan(&ch.ID, &ch.ArticleID, &ch.OrderIndex, &ch.Section, &ch.Text, &tagsJSON, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(tagsJSON), &ch.TopicTags)
		ch.CreatedAt = time.Unix(createdAt, 0)
		chunks = append(chunks, ch)
	}

	return chunks, rows.Err()
}

func (c *Client) InsertReview(record *models.ReviewRecord) error {
	query := `
		INSERT INTO reviews (id, session_id, resume_hash, job_url, job_platform, confidence, band,
			jd_overlap_ratio, newsletter_relevance, degraded, narrative, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	degraded := 0
	if record.Degraded {
		degraded = 1
	}

	_, err := c.db.Exec(
		query,
		record.ID,
		record.SessionID,
		record.ResumeHash,
		record.JobURL,
		record.JobPlatform,
		record.Confidence,
		record.Band,
		record.JDOverlapRatio,
		record.NewsletterRelevance,
		degraded,
		record.Narrative,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	logger.Info("Review recorded",
		zap.String("review_id", record.ID),
		zap.String("session_id", record.SessionID),
		zap.Int("confidence", record.Confidence),
		zap.String("band", record.Band),
	)

	return nil
}

func (c *Client) InsertReviewCitation(citation *models.ReviewCitation) error {
	query := `INSERT INTO review_citations (review_id, chunk_id, rank) VALUES (?, ?, ?)`

	_, err := c.db.Exec(query, citation.ReviewID, citation.ChunkID, citation.Rank)
	if err != nil {
		return fmt.Errorf("failed to insert review citation: %w", err)
	}

	return nil
}

func (c *Client) GetReviewHistory(sessionID string, limit int) ([]models.ReviewRecord, error) {
	query := `
		SELECT id, session_id, resume_hash, job_url, confidence, band, degraded, created_at
		FROM reviews
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get review history: %w", err)
	}
	defer rows.Close()

	var records []models.ReviewRecord
	for rows.Next() {
		var r models.ReviewRecord
		var degraded int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.SessionID, &r.ResumeHash, &r.JobURL, &r.Confidence, &r.Band, &degraded, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Degraded = degraded != 0
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

// RecordTurn satisfies the conversation engine's Auditor interface.
func (c *Client) RecordTurn(ctx context.Context, sessionID string, turn int, state string, inbound string, templates []string) error {
	templatesJSON, _ := json.Marshal(templates)

	query := `INSERT INTO turn_audit (session_id, turn_counter, state, inbound_text, templates, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.ExecContext(ctx, query, sessionID, turn, state, inbound, string(templatesJSON), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}

	return nil
}

func (c *Client) GetTurnAudit(sessionID string, limit int) ([]models.TurnAudit, error) {
	query := `
		SELECT id, session_id, turn_counter, state, inbound_text, templates, created_at
		FROM turn_audit
		WHERE session_id = ?
		ORDER BY turn_counter DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get turn audit: %w", err)
	}
	defer rows.Close()

	var records []models.TurnAudit
	for rows.Next() {
		var r models.TurnAudit
		var templatesJSON string
		var createdAt int64

		err := rows.Scan(&r.ID, &r.SessionID, &r.TurnCounter, &r.State, &r.InboundText, &templatesJSON, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(templatesJSON), &r.Templates)
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

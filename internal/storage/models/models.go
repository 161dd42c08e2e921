package models

import "time"

type Article struct {
	ID         string
	Name       string
	SourceURL  string
	RawContent string
	ChunkCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ArticleChunk struct {
	ID         string
	ArticleID  string
	OrderIndex int
	Section    string
	Text       string
	TopicTags  []string
	CreatedAt  time.Time
}

type ReviewRecord struct {
	ID                  string
	SessionID           string
	ResumeHash          string
	JobURL              string
	JobPlatform         string
	Confidence          int
	Band                string
	JDOverlapRatio      float64
	NewsletterRelevance float64
	Degraded            bool
	Narrative           string
	LatencyMS           int
	CreatedAt           time.Time
}

type ReviewCitation struct {
	ID       int
	ReviewID string
	ChunkID  string
	Rank     int
}

type TurnAudit struct {
	ID          int
	SessionID   string
	TurnCounter int
	State       string
	InboundText string
	Templates   []string
	CreatedAt   time.Time
}

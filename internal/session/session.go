package session

import (
	"time"

	"github.com/resume-agent/backend/internal/scoring"
)

type State string

const (
	StateInit             State = "init"
	StateSummarySent      State = "summary_sent"
	StateAwaitingChoice   State = "awaiting_choice"
	StateAwaitingFollowup State = "awaiting_followup"
	StateCompleted        State = "completed"
	StateError            State = "error"
)

type Topic string

const (
	TopicSkills     Topic = "skills"
	TopicExperience Topic = "experience"
	TopicFormatting Topic = "formatting"
	TopicAll        Topic = "all"
)

// TurnRecord is one append-only audit entry inside a session.
type TurnRecord struct {
	InboundText     string    `json:"inbound_text"`
	OutboundIntents []string  `json:"outbound_intents"`
	Timestamp       time.Time `json:"timestamp"`
}

// Session is the durable conversation record, keyed by the sender's
// phone number. Mutation goes through the store's compare-and-swap on
// Version; a stale writer must re-read and recompute.
type Session struct {
	SessionID       string          `json:"session_id"`
	State           State           `json:"state"`
	LastChoice      Topic           `json:"last_choice,omitempty"`
	CoveredTopics   []string        `json:"covered_topics"`
	Score           *scoring.Result `json:"score_result"`
	Narrative       string          `json:"narrative,omitempty"`
	History         []TurnRecord    `json:"history"`
	RateWindowStart time.Time       `json:"rate_window_start"`
	RateWindowCount int             `json:"rate_window_count"`
	TurnCounter     int             `json:"turn_counter"`
	LastActivity    time.Time       `json:"last_activity"`
	Version         int64           `json:"version"`
}

// HasCovered reports whether a detail topic was already delivered.
func (s *Session) HasCovered(topic Topic) bool {
	for _, t := range s.CoveredTopics {
		if t == string(topic) {
			return true
		}
	}
	return false
}

// Cover records a delivered detail topic exactly once.
func (s *Session) Cover(topic Topic) {
	if !s.HasCovered(topic) {
		s.CoveredTopics = append(s.CoveredTopics, string(topic))
	}
}

// Clone returns a deep-enough copy for read-modify-write cycles: slices
// are copied so a failed CAS attempt cannot leak partial mutations into
// a retried one.
func (s *Session) Clone() *Session {
	out := *s
	out.CoveredTopics = append([]string(nil), s.CoveredTopics...)
	out.History = append([]TurnRecord(nil), s.History...)
	return &out
}

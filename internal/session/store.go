package session

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrStateConflict means the stored version moved underneath a writer.
	// Callers re-read the latest session and recompute their transition.
	ErrStateConflict = errors.New("session version conflict")
	ErrAlreadyExists = errors.New("session already exists")
)

// Store is durable, versioned persistence for conversation sessions.
// Update succeeds only when expectedVersion matches the stored version,
// which serializes concurrent turns for the same session.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	Create(ctx context.Context, sess *Session) error
	Update(ctx context.Context, sess *Session, expectedVersion int64) error
}

// MemoryStore is the in-process Store used in tests and single-node runs
// without Redis. Semantics mirror the Redis store exactly.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (m *MemoryStore) Create(ctx context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sess.SessionID]; ok {
		return ErrAlreadyExists
	}

	stored := sess.Clone()
	stored.Version = 1
	m.sessions[sess.SessionID] = stored
	sess.Version = 1
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, sess *Session, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[sess.SessionID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrStateConflict
	}

	next := sess.Clone()
	next.Version = expectedVersion + 1
	m.sessions[sess.SessionID] = next
	sess.Version = next.Version
	return nil
}

package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resume-agent/backend/internal/session"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	sess := &session.Session{SessionID: "+15551234567", State: session.StateInit}
	require.NoError(t, store.Create(ctx, sess))
	require.EqualValues(t, 1, sess.Version)

	got, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	require.Equal(t, session.StateInit, got.State)
	require.EqualValues(t, 1, got.Version)
}

func TestMemoryStoreCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	require.NoError(t, store.Create(ctx, &session.Session{SessionID: "a"}))
	err := store.Create(ctx, &session.Session{SessionID: "a"})
	require.True(t, errors.Is(err, session.ErrAlreadyExists))
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := session.NewMemoryStore()
	_, err := store.Get(context.Background(), "nobody")
	require.True(t, errors.Is(err, session.ErrNotFound))
}

func TestMemoryStoreUpdateCAS(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	sess := &session.Session{SessionID: "a", State: session.StateSummarySent}
	require.NoError(t, store.Create(ctx, sess))

	// Two writers read version 1; only one update may land.
	first, err := store.Get(ctx, "a")
	require.NoError(t, err)
	second, err := store.Get(ctx, "a")
	require.NoError(t, err)

	first.State = session.StateAwaitingChoice
	require.NoError(t, store.Update(ctx, first, 1))
	require.EqualValues(t, 2, first.Version)

	second.State = session.StateCompleted
	err = store.Update(ctx, second, 1)
	require.True(t, errors.Is(err, session.ErrStateConflict))

	// The losing writer re-reads and observes the winner's state.
	latest, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, session.StateAwaitingChoice, latest.State)
	require.EqualValues(t, 2, latest.Version)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	require.NoError(t, store.Create(ctx, &session.Session{
		SessionID:     "a",
		CoveredTopics: []string{"skills"},
	}))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	got.CoveredTopics = append(got.CoveredTopics, "experience")
	got.State = session.StateError

	fresh, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []string{"skills"}, fresh.CoveredTopics)
	require.NotEqual(t, session.StateError, fresh.State)
}

func TestSessionCoverTracksTopics(t *testing.T) {
	sess := &session.Session{}

	require.False(t, sess.HasCovered(session.TopicSkills))
	sess.Cover(session.TopicSkills)
	sess.Cover(session.TopicSkills)
	require.True(t, sess.HasCovered(session.TopicSkills))
	require.Len(t, sess.CoveredTopics, 1)
}

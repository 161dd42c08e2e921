package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/resume-agent/backend/internal/session"
	"github.com/resume-agent/backend/pkg/logger"
)

const keyPrefix = "session:"

// Store keeps sessions as JSON values in Redis. Optimistic concurrency is
// implemented with WATCH: the version check and the write happen inside
// one transaction, so a concurrent writer aborts the other instead of
// overwriting it.
type Store struct {
	client *redis.Client
}

func NewStore(host string, port int, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Session store initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	data, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *Store) Create(ctx context.Context, sess *session.Session) error {
	stored := sess.Clone()
	stored.Version = 1

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+sess.SessionID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return session.ErrAlreadyExists
	}

	sess.Version = 1
	return nil
}

func (s *Store) Update(ctx context.Context, sess *session.Session, expectedVersion int64) error {
	key := keyPrefix + sess.SessionID

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return session.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}

		var current session.Session
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		if current.Version != expectedVersion {
			return session.ErrStateConflict
		}

		next := sess.Clone()
		next.Version = expectedVersion + 1
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// The key changed between WATCH and EXEC. Same meaning as a
		// version mismatch.
		return session.ErrStateConflict
	}
	if err != nil {
		return err
	}

	sess.Version = expectedVersion + 1
	return nil
}

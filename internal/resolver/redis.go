/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultSnapshotTTL bounds how long a resolved media snapshot stays in Redis.
const DefaultSnapshotTTL = 1 * time.Hour

// KeySnapshot is the Redis key prefix for resolved media snapshots.
const KeySnapshot = "medley:resolve:" // + source_media_id

// SnapshotConfig contains Redis snapshot store configuration.
type SnapshotConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TTL time.Duration

	// If true, disable the store on Redis errors instead of retrying.
	DisableOnError bool
}

// DefaultSnapshotConfig returns default snapshot store configuration.
func DefaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		RedisAddr:      "localhost:6379",
		TTL:            DefaultSnapshotTTL,
		DisableOnError: true,
	}
}

// SnapshotStore persists resolved media in Redis so a restarted process can
// skip catalog round trips. Degrades gracefully when Redis is unreachable.
type SnapshotStore struct {
	client *redis.Client
	logger zerolog.Logger
	config SnapshotConfig

	mu       sync.RWMutex
	disabled bool
}

// NewSnapshotStore creates a snapshot store. A failed initial ping does not
// error; the store starts disabled and the resolver runs memory-only.
func NewSnapshotStore(cfg SnapshotConfig, logger zerolog.Logger) (*SnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, resolver running without snapshots")
		return &SnapshotStore{
			logger:   logger.With().Str("component", "resolver_snapshots").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("resolver snapshot store initialized")

	return &SnapshotStore{
		client: client,
		logger: logger.With().Str("component", "resolver_snapshots").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (s *SnapshotStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// IsAvailable returns true if the store is operational.
func (s *SnapshotStore) IsAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disabled && s.client != nil
}

func (s *SnapshotStore) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	s.logger.Debug().Err(err).Str("operation", operation).Msg("snapshot operation failed")

	if s.config.DisableOnError {
		s.mu.Lock()
		s.disabled = true
		s.mu.Unlock()
		s.logger.Warn().Msg("disabling snapshot store due to Redis error")
	}
}

// Get retrieves a snapshot by source media ID.
func (s *SnapshotStore) Get(ctx context.Context, sourceMediaID string) (ResolvedMedia, bool) {
	if !s.IsAvailable() {
		return ResolvedMedia{}, false
	}

	data, err := s.client.Get(ctx, KeySnapshot+sourceMediaID).Bytes()
	if err == redis.Nil {
		return ResolvedMedia{}, false
	}
	if err != nil {
		s.handleError(err, "get")
		return ResolvedMedia{}, false
	}

	var media ResolvedMedia
	if err := json.Unmarshal(data, &media); err != nil {
		s.logger.Debug().Err(err).Str("source_media_id", sourceMediaID).Msg("failed to unmarshal snapshot")
		return ResolvedMedia{}, false
	}

	s.logger.Debug().Str("source_media_id", sourceMediaID).Msg("snapshot hit")
	return media, true
}

// Set stores a snapshot with the configured TTL.
func (s *SnapshotStore) Set(ctx context.Context, media ResolvedMedia) error {
	if !s.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(media)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, KeySnapshot+media.SourceMediaID, data, s.config.TTL).Err(); err != nil {
		s.handleError(err, "set")
		return err
	}

	return nil
}

// Delete removes a snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, sourceMediaID string) error {
	if !s.IsAvailable() {
		return nil
	}

	if err := s.client.Del(ctx, KeySnapshot+sourceMediaID).Err(); err != nil {
		s.handleError(err, "delete")
		return err
	}

	return nil
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package nowplaying

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis keys and channels for now-playing data.
const (
	ChannelNowPlaying = "medley:nowplaying"
	KeyCurrent        = "medley:nowplaying:current"
)

// DefaultCurrentTTL bounds how long the current-track key survives a crash.
const DefaultCurrentTTL = 10 * time.Minute

// RedisPublisher publishes updates to a Redis channel and mirrors the latest
// update into a key for late joiners.
type RedisPublisher struct {
	client *redis.Client
	logger zerolog.Logger

	mu       sync.Mutex
	disabled bool
}

// NewRedisPublisher creates a Redis-backed publisher. A failed initial ping
// disables the publisher instead of erroring; updates are then dropped.
func NewRedisPublisher(addr, password string, db int, logger zerolog.Logger) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	log := logger.With().Str("component", "nowplaying_redis").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, now-playing updates will not be published")
		return &RedisPublisher{client: client, logger: log, disabled: true}
	}

	log.Info().Str("addr", addr).Msg("Redis now-playing publisher initialized")
	return &RedisPublisher{client: client, logger: log}
}

// Publish sends the update on the pub/sub channel and stores it under
// KeyCurrent.
func (p *RedisPublisher) Publish(ctx context.Context, update Update) error {
	p.mu.Lock()
	disabled := p.disabled
	p.mu.Unlock()
	if disabled {
		return nil
	}

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal now-playing update: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.client.Publish(pubCtx, ChannelNowPlaying, data).Err(); err != nil {
		return fmt.Errorf("publish now-playing update: %w", err)
	}

	if err := p.client.Set(pubCtx, KeyCurrent, data, DefaultCurrentTTL).Err(); err != nil {
		p.logger.Debug().Err(err).Msg("failed to store current track")
	}

	return nil
}

// Current returns the most recently published update, if any.
func (p *RedisPublisher) Current(ctx context.Context) (Update, bool) {
	p.mu.Lock()
	disabled := p.disabled
	p.mu.Unlock()
	if disabled {
		return Update{}, false
	}

	data, err := p.client.Get(ctx, KeyCurrent).Bytes()
	if err != nil {
		return Update{}, false
	}

	var update Update
	if err := json.Unmarshal(data, &update); err != nil {
		p.logger.Debug().Err(err).Msg("failed to unmarshal current track")
		return Update{}, false
	}
	return update, true
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package resolver turns source media IDs into playable media, memoizing
// results so repeated lookups for the same track never hit the catalog twice.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/medley/internal/catalog"
	"github.com/friendsincode/medley/internal/player"
	"github.com/friendsincode/medley/internal/telemetry"
)

// ResolvedMedia is the playable form of a catalog track.
type ResolvedMedia struct {
	SourceMediaID   string  `json:"source_media_id"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	DurationSeconds float64 `json:"duration_seconds"`
	ArtworkURL      string  `json:"artwork_url"`
	StreamURL       string  `json:"stream_url"`
}

// Handle returns the media handle the player loads.
func (m ResolvedMedia) Handle() player.MediaHandle {
	return player.MediaHandle{
		SourceMediaID: m.SourceMediaID,
		StreamURL:     m.StreamURL,
	}
}

// call tracks a single in-flight catalog lookup shared by concurrent callers.
type call struct {
	done  chan struct{}
	media ResolvedMedia
	err   error
}

// Resolver resolves source media IDs through the catalog with an in-memory
// memo and an optional Redis snapshot store. Concurrent resolves for the same
// ID share one catalog request.
type Resolver struct {
	lookup    catalog.Lookup
	snapshots *SnapshotStore // may be nil
	logger    zerolog.Logger

	mu       sync.Mutex
	memo     map[string]ResolvedMedia
	inflight map[string]*call
}

// New creates a resolver. snapshots may be nil to run memory-only.
func New(lookup catalog.Lookup, snapshots *SnapshotStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		lookup:    lookup,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "resolver").Logger(),
		memo:      make(map[string]ResolvedMedia),
		inflight:  make(map[string]*call),
	}
}

// Resolve returns playable media for a source media ID. Successful results are
// memoized for the lifetime of the resolver; failures are never memoized.
func (r *Resolver) Resolve(ctx context.Context, sourceMediaID string) (ResolvedMedia, error) {
	if sourceMediaID == "" {
		return ResolvedMedia{}, fmt.Errorf("resolve: empty source media id")
	}

	var c *call
	for {
		r.mu.Lock()
		if media, ok := r.memo[sourceMediaID]; ok {
			r.mu.Unlock()
			telemetry.ResolveCacheTotal.WithLabelValues("hit").Inc()
			return media, nil
		}

		pending, ok := r.inflight[sourceMediaID]
		if !ok {
			c = &call{done: make(chan struct{})}
			r.inflight[sourceMediaID] = c
			r.mu.Unlock()
			break
		}
		r.mu.Unlock()

		select {
		case <-pending.done:
			if pending.err == nil {
				return pending.media, nil
			}
			// The owning caller's cancellation says nothing about this
			// caller's request; take over the fetch instead of failing.
			if isContextErr(pending.err) && ctx.Err() == nil {
				continue
			}
			return pending.media, pending.err
		case <-ctx.Done():
			return ResolvedMedia{}, ctx.Err()
		}
	}

	c.media, c.err = r.fetch(ctx, sourceMediaID)

	r.mu.Lock()
	delete(r.inflight, sourceMediaID)
	if c.err == nil {
		r.memo[sourceMediaID] = c.media
	}
	r.mu.Unlock()
	// Wake waiters only after the map settles so a retrying waiter sees
	// either the memo entry or a free slot, never this finished call.
	close(c.done)

	return c.media, c.err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// fetch consults the snapshot store first, then the catalog.
func (r *Resolver) fetch(ctx context.Context, sourceMediaID string) (ResolvedMedia, error) {
	if r.snapshots != nil {
		if media, ok := r.snapshots.Get(ctx, sourceMediaID); ok {
			telemetry.ResolveCacheTotal.WithLabelValues("snapshot_hit").Inc()
			return media, nil
		}
	}

	info, err := r.lookup.LookupByID(ctx, sourceMediaID)
	if err != nil {
		telemetry.ResolveCacheTotal.WithLabelValues("error").Inc()
		r.logger.Warn().Err(err).Str("source_media_id", sourceMediaID).Msg("catalog lookup failed")
		return ResolvedMedia{}, fmt.Errorf("resolve %s: %w", sourceMediaID, err)
	}

	media := ResolvedMedia{
		SourceMediaID:   info.SourceMediaID,
		Title:           info.Title,
		Artist:          info.Artist,
		DurationSeconds: info.DurationSeconds,
		ArtworkURL:      info.ArtworkURL,
		StreamURL:       info.StreamURL,
	}

	telemetry.ResolveCacheTotal.WithLabelValues("miss").Inc()
	r.logger.Debug().
		Str("source_media_id", sourceMediaID).
		Float64("duration_seconds", media.DurationSeconds).
		Msg("resolved media")

	if r.snapshots != nil {
		if err := r.snapshots.Set(ctx, media); err != nil {
			r.logger.Debug().Err(err).Str("source_media_id", sourceMediaID).Msg("snapshot write failed")
		}
	}

	return media, nil
}

// Peek returns the memoized media for an ID without triggering a lookup.
func (r *Resolver) Peek(sourceMediaID string) (ResolvedMedia, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	media, ok := r.memo[sourceMediaID]
	return media, ok
}

// Invalidate drops a memoized entry, forcing the next resolve to refetch.
func (r *Resolver) Invalidate(ctx context.Context, sourceMediaID string) {
	r.mu.Lock()
	delete(r.memo, sourceMediaID)
	r.mu.Unlock()

	if r.snapshots != nil {
		if err := r.snapshots.Delete(ctx, sourceMediaID); err != nil {
			r.logger.Debug().Err(err).Str("source_media_id", sourceMediaID).Msg("snapshot delete failed")
		}
	}
}

// Size reports how many entries are memoized.
func (r *Resolver) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.memo)
}

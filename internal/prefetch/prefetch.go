/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package prefetch warms the resolver in the background so most transitions
// hit already-resolved media.
package prefetch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/medley/internal/artwork"
	"github.com/friendsincode/medley/internal/events"
	"github.com/friendsincode/medley/internal/medley"
	"github.com/friendsincode/medley/internal/resolver"
	"github.com/friendsincode/medley/internal/telemetry"
)

// Prefetcher resolves every playlist track in the background and warms the
// artwork cache for tracks that resolved. Failures are logged and skipped; a
// track that fails to prefetch is retried when playback actually reaches it.
type Prefetcher struct {
	resolver *resolver.Resolver
	artwork  *artwork.Fetcher
	bus      *events.Bus
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a prefetcher. art and bus may be nil.
func New(res *resolver.Resolver, art *artwork.Fetcher, bus *events.Bus, logger zerolog.Logger) *Prefetcher {
	return &Prefetcher{
		resolver: res,
		artwork:  art,
		bus:      bus,
		logger:   logger.With().Str("component", "prefetch").Logger(),
	}
}

// Start begins prefetching the given tracks. A previous run still in flight is
// cancelled first.
func (p *Prefetcher) Start(ctx context.Context, tracks []medley.Track) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Wait()

	p.wg.Add(1)
	go p.run(runCtx, tracks)
}

// Stop cancels any in-flight prefetch and waits for it to finish.
func (p *Prefetcher) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Prefetcher) run(ctx context.Context, tracks []medley.Track) {
	defer p.wg.Done()

	var resolved, failed int
	for _, track := range tracks {
		select {
		case <-ctx.Done():
			p.logger.Debug().Int("resolved", resolved).Msg("prefetch cancelled")
			return
		default:
		}

		media, err := p.resolver.Resolve(ctx, track.SourceMediaID)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Debug().Int("resolved", resolved).Msg("prefetch cancelled")
				return
			}
			failed++
			telemetry.PrefetchResultsTotal.WithLabelValues("error").Inc()
			p.logger.Warn().Err(err).
				Str("track_id", track.ID).
				Str("source_media_id", track.SourceMediaID).
				Msg("prefetch failed, will retry at playback time")
			continue
		}

		resolved++
		telemetry.PrefetchResultsTotal.WithLabelValues("ok").Inc()

		if p.artwork != nil && media.ArtworkURL != "" {
			if _, err := p.artwork.Fetch(ctx, media.ArtworkURL); err != nil && ctx.Err() == nil {
				p.logger.Debug().Err(err).
					Str("track_id", track.ID).
					Msg("artwork prefetch failed")
			}
		}
	}

	p.logger.Info().Int("resolved", resolved).Int("failed", failed).Msg("prefetch complete")

	if p.bus != nil {
		p.bus.Publish(events.EventPrefetchDone, events.Payload{
			"resolved": resolved,
			"failed":   failed,
		})
	}
}

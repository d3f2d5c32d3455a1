/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler drives gapless highlight playback: it owns the playback
// session, commands the remote player, and runs the boundary-watch loop that
// advances from one cued segment to the next.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/medley/internal/artwork"
	"github.com/friendsincode/medley/internal/events"
	"github.com/friendsincode/medley/internal/medley"
	"github.com/friendsincode/medley/internal/nowplaying"
	"github.com/friendsincode/medley/internal/player"
	"github.com/friendsincode/medley/internal/prefetch"
	"github.com/friendsincode/medley/internal/resolver"
	"github.com/friendsincode/medley/internal/telemetry"
	"github.com/friendsincode/medley/internal/transition"
)

// DefaultPollInterval is how often the boundary-watch loop samples the player
// position. It bounds the perceptible transition gap.
const DefaultPollInterval = 100 * time.Millisecond

// State is a snapshot of the playback session for external observers.
type State struct {
	IsPlaying       bool    `json:"is_playing"`
	IsPaused        bool    `json:"is_paused"`
	IsTransitioning bool    `json:"is_transitioning"`
	CurrentTrackID  string  `json:"current_track_id,omitempty"`
	CurrentIndex    int     `json:"current_index"`
	CueOut          float64 `json:"cue_out"`
}

// Options configures a Scheduler. Player and Resolver are required; the rest
// may be nil and their concern is skipped.
type Options struct {
	Player       player.Player
	Focus        player.FocusController
	Resolver     *resolver.Resolver
	Prefetcher   *prefetch.Prefetcher
	NowPlaying   nowplaying.Publisher
	Artwork      *artwork.Fetcher
	Bus          *events.Bus
	PollInterval time.Duration
	PlaylistID   string
	PlaylistName string
	Logger       zerolog.Logger
}

// Scheduler is the single owner of playback session state. All mutation goes
// through its mutex; awaited player and catalog calls run outside the lock and
// revalidate their generation token before touching state again.
type Scheduler struct {
	player       player.Player
	focus        player.FocusController
	resolver     *resolver.Resolver
	prefetcher   *prefetch.Prefetcher
	nowPlaying   nowplaying.Publisher
	artwork      *artwork.Fetcher
	bus          *events.Bus
	pollInterval time.Duration
	playlistID   string
	playlistName string
	logger       zerolog.Logger

	mu            sync.Mutex
	provider      medley.Provider
	playing       bool
	paused        bool
	transitioning bool
	currentID     string
	currentIndex  int
	activeHandle  player.MediaHandle
	cueOut        float64

	// generation is bumped by every new track load and by stop; a goroutine
	// holding a stale generation must not mutate state or publish.
	generation uint64

	sessionCtx    context.Context
	sessionCancel context.CancelFunc
	watchCancel   context.CancelFunc
}

// New creates a scheduler.
func New(opts Options) *Scheduler {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Scheduler{
		player:       opts.Player,
		focus:        opts.Focus,
		resolver:     opts.Resolver,
		prefetcher:   opts.Prefetcher,
		nowPlaying:   opts.NowPlaying,
		artwork:      opts.Artwork,
		bus:          opts.Bus,
		pollInterval: interval,
		playlistID:   opts.PlaylistID,
		playlistName: opts.PlaylistName,
		logger:       opts.Logger.With().Str("component", "scheduler").Logger(),
	}
}

// State returns a snapshot of the session.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		IsPlaying:       s.playing,
		IsPaused:        s.paused,
		IsTransitioning: s.transitioning,
		CurrentTrackID:  s.currentID,
		CurrentIndex:    s.currentIndex,
		CueOut:          s.cueOut,
	}
}

// Play starts a session from the first track.
func (s *Scheduler) Play(provider medley.Provider) {
	s.PlayFrom(provider, 0)
}

// PlayFromTrack starts a session at the track's current position in the
// provider's list, or index 0 if the track is not found.
func (s *Scheduler) PlayFromTrack(provider medley.Provider, trackID string) {
	index := 0
	tracks := provider()
	for i, t := range tracks {
		if t.ID == trackID {
			index = i
			break
		}
	}
	s.PlayFrom(provider, index)
}

// PlayFrom starts a session at the given index. An empty provider result is a
// logged no-op; an out-of-range index falls back to 0. Any existing session is
// torn down first.
func (s *Scheduler) PlayFrom(provider medley.Provider, index int) {
	tracks := provider()
	if len(tracks) == 0 {
		s.logger.Warn().Msg("refusing to start playback of empty playlist")
		return
	}
	if index < 0 || index >= len(tracks) {
		index = 0
	}

	s.mu.Lock()
	if s.sessionCancel != nil {
		s.sessionCancel()
	}
	s.sessionCtx, s.sessionCancel = context.WithCancel(context.Background())
	s.provider = provider
	s.playing = true
	s.paused = false
	s.transitioning = false
	ctx := s.sessionCtx
	s.mu.Unlock()

	if s.focus != nil {
		if err := s.focus.AcquireFocus(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to acquire audio focus")
		}
	}

	s.logger.Info().Int("index", index).Int("tracks", len(tracks)).Msg("starting playback session")
	s.loadTrack(ctx, index, "play")
}

// Stop tears the session down: cancels the boundary watch, any in-flight load
// and the prefetch walk, stops the player and releases audio focus. Idempotent.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	hadSession := s.sessionCancel != nil
	s.generation++
	s.playing = false
	s.paused = false
	s.transitioning = false
	s.currentID = ""
	s.currentIndex = 0
	s.cueOut = 0
	s.activeHandle = player.MediaHandle{}
	s.provider = nil
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.sessionCancel != nil {
		s.sessionCancel()
		s.sessionCancel = nil
	}
	s.mu.Unlock()

	if !hadSession {
		return
	}

	if s.prefetcher != nil {
		s.prefetcher.Stop()
	}
	if err := s.player.Stop(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("player stop failed")
	}
	if s.focus != nil {
		if err := s.focus.ReleaseFocus(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release audio focus")
		}
	}

	s.logger.Info().Msg("playback session stopped")
	s.publishState()
	if s.bus != nil {
		s.bus.Publish(events.EventSessionEnded, events.Payload{})
	}
}

// Pause suspends playback, keeping the session and player position intact.
func (s *Scheduler) Pause(ctx context.Context) {
	s.mu.Lock()
	if !s.playing || s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = true
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	s.mu.Unlock()

	if err := s.player.Pause(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("player pause failed")
	}
	s.logger.Debug().Msg("playback paused")
	s.publishState()
}

// Resume continues a paused session and restarts the boundary watch against
// the active track's cue-out.
func (s *Scheduler) Resume(ctx context.Context) {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	gen := s.generation
	cueOut := s.cueOut
	watchCtx, cancel := context.WithCancel(s.sessionCtx)
	s.watchCancel = cancel
	s.mu.Unlock()

	if err := s.player.Play(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("player resume failed")
	}
	go s.watch(watchCtx, gen, cueOut)
	s.logger.Debug().Msg("playback resumed")
	s.publishState()
}

// Next advances to the track after the current one in the fresh provider
// order, wrapping past the end to index 0. No-op while a transition is in
// flight.
func (s *Scheduler) Next() {
	s.advance("manual_next", transition.NextIndex)
}

// Previous is the mirror of Next, wrapping index -1 to the last track.
func (s *Scheduler) Previous() {
	s.advance("manual_previous", transition.PreviousIndex)
}

func (s *Scheduler) advance(trigger string, resolve func([]medley.Track, string) int) {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	if s.transitioning {
		s.mu.Unlock()
		s.logger.Debug().Str("trigger", trigger).Msg("ignoring skip during transition")
		return
	}
	provider := s.provider
	currentID := s.currentID
	ctx := s.sessionCtx
	s.mu.Unlock()

	tracks := provider()
	if len(tracks) == 0 {
		s.Stop(context.Background())
		return
	}

	index := transition.Wrap(resolve(tracks, currentID), len(tracks))
	if index == 0 && trigger != "manual_previous" {
		s.logger.Info().Str("trigger", trigger).Msg("wrapping to start of medley")
	}
	s.loadTrack(ctx, index, trigger)
}

// loadTrack runs one transition cycle: it claims a fresh generation, then
// tries successive indices until a track starts or every track in the list has
// failed, at which point the session ends.
func (s *Scheduler) loadTrack(ctx context.Context, index int, trigger string) {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	s.transitioning = true
	s.paused = false
	provider := s.provider
	s.mu.Unlock()
	s.publishState()

	attempts := 0
	for {
		tracks := provider()
		if len(tracks) == 0 {
			s.logger.Info().Msg("playlist emptied, ending session")
			s.Stop(context.Background())
			return
		}
		if index >= len(tracks) {
			s.logger.Info().Int("index", index).Int("tracks", len(tracks)).Msg("playlist shrank past current index, ending session")
			s.Stop(context.Background())
			return
		}
		if attempts >= len(tracks) {
			s.logger.Error().Int("attempts", attempts).Msg("no playable tracks, ending session")
			s.Stop(context.Background())
			return
		}

		track := tracks[index]
		err := s.startTrack(ctx, gen, track, index, trigger)
		if !s.alive(gen) {
			return
		}
		if err == nil {
			return
		}

		// Self-healing skip: one bad track must not stall the medley.
		attempts++
		telemetry.TrackSkipsTotal.WithLabelValues(trigger).Inc()
		s.logger.Warn().Err(err).
			Str("track_id", track.ID).
			Str("title", track.Title).
			Msg("skipping unplayable track")
		if s.bus != nil {
			s.bus.Publish(events.EventTrackSkipped, events.Payload{
				"track_id":        track.ID,
				"source_media_id": track.SourceMediaID,
				"title":           track.Title,
				"reason":          err.Error(),
			})
		}
		index = transition.Wrap(index+1, len(tracks))
		trigger = "skip"
	}
}

// startTrack resolves, loads, plays and seeks one track. Returns nil once the
// boundary watch for it is running.
func (s *Scheduler) startTrack(ctx context.Context, gen uint64, track medley.Track, index int, trigger string) error {
	ctx, span := telemetry.StartSpan(ctx, "scheduler", "track.load")
	defer span.End()
	span.SetAttributes(
		attribute.String("track.id", track.ID),
		attribute.String("media.source_id", track.SourceMediaID),
		attribute.String("transition.trigger", trigger),
	)

	media, cached := s.resolver.Peek(track.SourceMediaID)
	if cached {
		// Prefetched track: surface the new current track immediately.
		s.setCurrent(gen, track, index)
	} else {
		var err error
		media, err = s.resolver.Resolve(ctx, track.SourceMediaID)
		if err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		if !s.alive(gen) {
			return nil
		}
		s.setCurrent(gen, track, index)
	}

	start := time.Now()
	if err := s.player.Load(ctx, media.Handle()); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if !s.alive(gen) {
		return nil
	}

	if err := s.player.Play(ctx); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if !s.alive(gen) {
		return nil
	}

	// Seek only after playback has started; seeking a freshly loaded item
	// resets to 0 on some player backends.
	cueIn, cueOut := transition.CueWindow(track, media.DurationSeconds)
	if err := s.player.Seek(ctx, cueIn); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	telemetry.TrackLoadDuration.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return nil
	}
	s.activeHandle = media.Handle()
	s.currentID = track.ID
	s.currentIndex = index
	s.cueOut = cueOut
	s.transitioning = false
	paused := s.paused
	var watchCtx context.Context
	if !paused {
		var cancel context.CancelFunc
		watchCtx, cancel = context.WithCancel(s.sessionCtx)
		s.watchCancel = cancel
	}
	provider := s.provider
	sessionCtx := s.sessionCtx
	s.mu.Unlock()

	telemetry.TransitionsTotal.WithLabelValues(trigger).Inc()
	s.logger.Info().
		Str("track_id", track.ID).
		Str("title", track.Title).
		Int("index", index).
		Float64("cue_in", cueIn).
		Float64("cue_out", cueOut).
		Str("trigger", trigger).
		Msg("track playing")

	if paused {
		// Pause landed while this track was loading; honor it now that
		// the device has started. Resume restarts the boundary watch.
		if err := s.player.Pause(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("player pause failed")
		}
	} else {
		go s.watch(watchCtx, gen, cueOut)
	}
	s.publishState()

	if s.bus != nil {
		s.bus.Publish(events.EventTransition, events.Payload{
			"track_id": track.ID,
			"index":    index,
			"trigger":  trigger,
		})
	}

	if s.prefetcher != nil {
		s.prefetcher.Start(sessionCtx, provider())
	}

	s.publishNowPlaying(sessionCtx, gen, track, index, cueIn, cueOut, media)
	return nil
}

// watch is the boundary-watch loop: it samples the player position every poll
// interval and fires exactly one transition when the cue-out is crossed.
func (s *Scheduler) watch(ctx context.Context, gen uint64, cueOut float64) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			stale := s.generation != gen
			skip := s.paused || s.transitioning
			s.mu.Unlock()
			if stale {
				return
			}
			if skip {
				continue
			}

			telemetry.BoundaryPollsTotal.Inc()
			position, err := s.player.Position(ctx)
			if err != nil {
				s.logger.Debug().Err(err).Msg("position poll failed")
				continue
			}

			if transition.ShouldAdvance(position, cueOut) {
				s.logger.Debug().
					Float64("position", position).
					Float64("cue_out", cueOut).
					Msg("cue-out crossed")
				s.advance("boundary", transition.NextIndex)
				return
			}
		}
	}
}

// alive reports whether gen is still the authoritative load generation.
func (s *Scheduler) alive(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}

// setCurrent updates the visible current-track state if gen is still live.
func (s *Scheduler) setCurrent(gen uint64, track medley.Track, index int) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.currentID = track.ID
	s.currentIndex = index
	s.mu.Unlock()
	s.publishState()
}

// publishState emits the session snapshot on the bus.
func (s *Scheduler) publishState() {
	if s.bus == nil {
		return
	}
	state := s.State()
	s.bus.Publish(events.EventPlaybackState, events.Payload{
		"is_playing":       state.IsPlaying,
		"is_paused":        state.IsPaused,
		"is_transitioning": state.IsTransitioning,
		"current_track_id": state.CurrentTrackID,
		"current_index":    state.CurrentIndex,
	})
}

// publishNowPlaying sends a now-playing update in the background. The
// generation check before publishing keeps a superseded load from overwriting
// a newer track's update.
func (s *Scheduler) publishNowPlaying(ctx context.Context, gen uint64, track medley.Track, index int, cueIn, cueOut float64, media resolver.ResolvedMedia) {
	if s.nowPlaying == nil {
		return
	}

	go func() {
		update := nowplaying.Update{
			TrackID:         track.ID,
			SourceMediaID:   track.SourceMediaID,
			Title:           media.Title,
			Artist:          media.Artist,
			PlaylistID:      s.playlistID,
			PlaylistName:    s.playlistName,
			Index:           index,
			CueIn:           cueIn,
			CueOut:          cueOut,
			DurationSeconds: media.DurationSeconds,
			ArtworkURL:      media.ArtworkURL,
			StartedAt:       time.Now().UTC(),
		}

		if s.artwork != nil && media.ArtworkURL != "" {
			img, err := s.artwork.Fetch(ctx, media.ArtworkURL)
			if err != nil {
				s.logger.Debug().Err(err).Str("track_id", track.ID).Msg("artwork fetch failed")
			} else {
				update.Artwork = img.Data
				update.ArtworkType = img.ContentType
			}
		}

		if !s.alive(gen) {
			return
		}
		if err := s.nowPlaying.Publish(ctx, update); err != nil {
			s.logger.Warn().Err(err).Str("track_id", track.ID).Msg("now-playing publish failed")
		}
	}()
}

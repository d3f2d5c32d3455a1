/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package nowplaying publishes track metadata whenever playback lands on a new
// segment. Publishing is fire-and-forget: a slow or broken sink never delays
// a transition.
package nowplaying

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/medley/internal/events"
)

// Update describes the segment that just started playing.
type Update struct {
	TrackID         string    `json:"track_id"`
	SourceMediaID   string    `json:"source_media_id"`
	Title           string    `json:"title"`
	Artist          string    `json:"artist"`
	PlaylistID      string    `json:"playlist_id"`
	PlaylistName    string    `json:"playlist_name"`
	Index           int       `json:"index"`
	CueIn           float64   `json:"cue_in"`
	CueOut          float64   `json:"cue_out"`
	DurationSeconds float64   `json:"duration_seconds"`
	ArtworkURL      string    `json:"artwork_url,omitempty"`
	Artwork         []byte    `json:"artwork,omitempty"`
	ArtworkType     string    `json:"artwork_type,omitempty"`
	StartedAt       time.Time `json:"started_at"`
}

// Publisher delivers now-playing updates to one sink.
type Publisher interface {
	Publish(ctx context.Context, update Update) error
	Close() error
}

// BusPublisher forwards updates to the in-process event bus.
type BusPublisher struct {
	bus *events.Bus
}

// NewBusPublisher creates a bus-backed publisher.
func NewBusPublisher(bus *events.Bus) *BusPublisher {
	return &BusPublisher{bus: bus}
}

// Publish emits an EventNowPlaying on the bus.
func (p *BusPublisher) Publish(ctx context.Context, update Update) error {
	p.bus.Publish(events.EventNowPlaying, events.Payload{
		"track_id":         update.TrackID,
		"source_media_id":  update.SourceMediaID,
		"title":            update.Title,
		"artist":           update.Artist,
		"playlist_id":      update.PlaylistID,
		"playlist_name":    update.PlaylistName,
		"index":            update.Index,
		"cue_in":           update.CueIn,
		"cue_out":          update.CueOut,
		"duration_seconds": update.DurationSeconds,
		"artwork_url":      update.ArtworkURL,
		"started_at":       update.StartedAt,
	})
	return nil
}

// Close is a no-op; the bus outlives the publisher.
func (p *BusPublisher) Close() error { return nil }

// Fanout publishes to every configured sink, logging failures instead of
// returning them.
type Fanout struct {
	sinks  []Publisher
	logger zerolog.Logger
}

// NewFanout creates a fan-out publisher over the given sinks.
func NewFanout(logger zerolog.Logger, sinks ...Publisher) *Fanout {
	return &Fanout{
		sinks:  sinks,
		logger: logger.With().Str("component", "nowplaying").Logger(),
	}
}

// Publish delivers the update to all sinks. Always returns nil.
func (f *Fanout) Publish(ctx context.Context, update Update) error {
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, update); err != nil {
			f.logger.Warn().Err(err).
				Str("track_id", update.TrackID).
				Str("title", update.Title).
				Msg("now-playing sink failed")
		}
	}
	return nil
}

// Close closes all sinks, returning the first error seen.
func (f *Fanout) Close() error {
	var firstErr error
	for _, sink := range f.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

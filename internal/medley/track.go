/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package medley defines the domain entities shared across the playback core.
package medley

// Track is a playable unit in a medley. The playlist owns the value; the
// scheduler references tracks by ID and never mutates cue fields.
type Track struct {
	ID            string   `json:"id" yaml:"id"`
	SourceMediaID string   `json:"source_media_id" yaml:"source_media_id"`
	Title         string   `json:"title" yaml:"title"`
	Artist        string   `json:"artist" yaml:"artist"`
	CueIn         *float64 `json:"cue_in,omitempty" yaml:"cue_in,omitempty"`
	CueOut        *float64 `json:"cue_out,omitempty" yaml:"cue_out,omitempty"`
	Locked        bool     `json:"locked" yaml:"locked"`
}

// HasValidCue reports whether both cue points are set and well ordered.
func (t Track) HasValidCue() bool {
	return t.CueIn != nil && t.CueOut != nil && *t.CueOut > *t.CueIn
}

// CueInSeconds returns the cue-in offset, defaulting to 0 when unset.
func (t Track) CueInSeconds() float64 {
	if t.CueIn == nil || *t.CueIn < 0 {
		return 0
	}
	return *t.CueIn
}

// Playlist is a named, ordered medley.
type Playlist struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Tracks []Track `json:"tracks" yaml:"tracks"`
}

// TrackIDs returns the ids in playlist order.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// IndexOf returns the position of the track with the given id, or -1.
func (p *Playlist) IndexOf(trackID string) int {
	for i, t := range p.Tracks {
		if t.ID == trackID {
			return i
		}
	}
	return -1
}

// Provider returns the live ordered track list. The scheduler calls it before
// every transition so external reordering is observed without a restart.
type Provider func() []Track

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist holds the editable, ordered list of cued tracks. The store
// is safe to mutate while a playback session is running; the scheduler reads a
// fresh snapshot at every transition.
package playlist

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/medley/internal/medley"
)

var (
	// ErrTrackNotFound is returned when a track ID is not in the playlist.
	ErrTrackNotFound = errors.New("playlist: track not found")
	// ErrTrackLocked is returned when editing cues on a locked track.
	ErrTrackLocked = errors.New("playlist: track is locked")
)

// Store is an in-memory ordered playlist.
type Store struct {
	logger zerolog.Logger

	mu     sync.RWMutex
	id     string
	name   string
	tracks []medley.Track
}

// NewStore creates an empty playlist store.
func NewStore(name string, logger zerolog.Logger) *Store {
	return &Store{
		logger: logger.With().Str("component", "playlist").Logger(),
		id:     uuid.NewString(),
		name:   name,
	}
}

// playlistFile is the YAML shape of a playlist on disk.
type playlistFile struct {
	Name   string         `yaml:"name"`
	Tracks []medley.Track `yaml:"tracks"`
}

// LoadFile replaces the playlist contents from a YAML file.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read playlist file: %w", err)
	}

	var file playlistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse playlist file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if file.Name != "" {
		s.name = file.Name
	}
	s.tracks = s.tracks[:0]
	for _, track := range file.Tracks {
		if track.ID == "" {
			track.ID = uuid.NewString()
		}
		if track.SourceMediaID == "" {
			return fmt.Errorf("playlist file: track %q missing source_media_id", track.Title)
		}
		s.tracks = append(s.tracks, track)
	}

	s.logger.Info().Str("path", path).Int("tracks", len(s.tracks)).Msg("playlist loaded")
	return nil
}

// Snapshot returns a copy of the playlist in its current order.
func (s *Store) Snapshot() medley.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracks := make([]medley.Track, len(s.tracks))
	copy(tracks, s.tracks)
	return medley.Playlist{ID: s.id, Name: s.name, Tracks: tracks}
}

// Provider returns a callback yielding the current track order, for use by the
// playback session.
func (s *Store) Provider() medley.Provider {
	return func() []medley.Track {
		s.mu.RLock()
		defer s.mu.RUnlock()
		tracks := make([]medley.Track, len(s.tracks))
		copy(tracks, s.tracks)
		return tracks
	}
}

// Get returns a track by ID.
func (s *Store) Get(id string) (medley.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, track := range s.tracks {
		if track.ID == id {
			return track, nil
		}
	}
	return medley.Track{}, ErrTrackNotFound
}

// Len returns the number of tracks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// Append adds a track at the end of the playlist. An empty ID is assigned a
// fresh UUID. Returns the stored track.
func (s *Store) Append(track medley.Track) (medley.Track, error) {
	if track.SourceMediaID == "" {
		return medley.Track{}, fmt.Errorf("playlist: track missing source media id")
	}
	if track.ID == "" {
		track.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tracks {
		if existing.ID == track.ID {
			return medley.Track{}, fmt.Errorf("playlist: duplicate track id %s", track.ID)
		}
	}

	s.tracks = append(s.tracks, track)
	s.logger.Debug().Str("track_id", track.ID).Str("title", track.Title).Msg("track appended")
	return track, nil
}

// Remove deletes a track by ID.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, track := range s.tracks {
		if track.ID == id {
			s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
			s.logger.Debug().Str("track_id", id).Msg("track removed")
			return nil
		}
	}
	return ErrTrackNotFound
}

// Move repositions a track to the given index. The index is clamped to the
// playlist bounds.
func (s *Store) Move(id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := -1
	for i, track := range s.tracks {
		if track.ID == id {
			from = i
			break
		}
	}
	if from == -1 {
		return ErrTrackNotFound
	}

	if index < 0 {
		index = 0
	}
	if index >= len(s.tracks) {
		index = len(s.tracks) - 1
	}
	if index == from {
		return nil
	}

	track := s.tracks[from]
	s.tracks = append(s.tracks[:from], s.tracks[from+1:]...)
	s.tracks = append(s.tracks[:index], append([]medley.Track{track}, s.tracks[index:]...)...)

	s.logger.Debug().Str("track_id", id).Int("index", index).Msg("track moved")
	return nil
}

// Reorder replaces the playlist order with the given ID permutation. Every
// current track must appear exactly once.
func (s *Store) Reorder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) != len(s.tracks) {
		return fmt.Errorf("playlist: reorder has %d ids, playlist has %d tracks", len(ids), len(s.tracks))
	}

	byID := make(map[string]medley.Track, len(s.tracks))
	for _, track := range s.tracks {
		byID[track.ID] = track
	}

	reordered := make([]medley.Track, 0, len(ids))
	for _, id := range ids {
		track, ok := byID[id]
		if !ok {
			return fmt.Errorf("playlist: reorder references unknown track %s", id)
		}
		delete(byID, id)
		reordered = append(reordered, track)
	}

	s.tracks = reordered
	s.logger.Debug().Int("tracks", len(ids)).Msg("playlist reordered")
	return nil
}

// SetCues updates a track's cue points. Locked tracks reject cue edits.
func (s *Store) SetCues(id string, cueIn, cueOut *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, track := range s.tracks {
		if track.ID != id {
			continue
		}
		if track.Locked {
			return ErrTrackLocked
		}
		s.tracks[i].CueIn = cueIn
		s.tracks[i].CueOut = cueOut
		s.logger.Debug().Str("track_id", id).Msg("cues updated")
		return nil
	}
	return ErrTrackNotFound
}

// SetLocked toggles a track's lock flag.
func (s *Store) SetLocked(id string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, track := range s.tracks {
		if track.ID == id {
			s.tracks[i].Locked = locked
			return nil
		}
	}
	return ErrTrackNotFound
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package transition holds the pure decision logic for track advancement.
// No I/O happens here; the scheduler applies the results.
package transition

import "github.com/friendsincode/medley/internal/medley"

// NextIndex locates currentTrackID in tracks and returns the following index.
// A track that has been removed from the list resolves to 0 so playback
// restarts from the top instead of failing. The caller applies wraparound.
func NextIndex(tracks []medley.Track, currentTrackID string) int {
	for i, t := range tracks {
		if t.ID == currentTrackID {
			return i + 1
		}
	}
	return 0
}

// PreviousIndex is the mirror of NextIndex. The caller wraps negative results
// to len(tracks)-1.
func PreviousIndex(tracks []medley.Track, currentTrackID string) int {
	for i, t := range tracks {
		if t.ID == currentTrackID {
			return i - 1
		}
	}
	return 0
}

// Wrap normalizes an index into [0, length). Callers guarantee length > 0.
func Wrap(index, length int) int {
	if length <= 0 {
		return 0
	}
	if index >= length {
		return 0
	}
	if index < 0 {
		return length - 1
	}
	return index
}

// CueWindow computes the effective playback window for a track. An unset or
// malformed cue pair (end <= start) falls back to the full resolved duration.
func CueWindow(track medley.Track, resolvedDuration float64) (start, end float64) {
	start = track.CueInSeconds()
	end = resolvedDuration
	if track.CueOut != nil {
		end = *track.CueOut
	}
	if end <= start {
		return 0, resolvedDuration
	}
	return start, end
}

// ShouldAdvance reports whether the playback position has crossed the cue-out
// boundary of the active window.
func ShouldAdvance(position, cueOut float64) bool {
	return position >= cueOut
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package transition

import (
	"testing"

	"github.com/friendsincode/medley/internal/medley"
)

func floatPtr(v float64) *float64 { return &v }

var tracks = []medley.Track{
	{ID: "a"},
	{ID: "b"},
	{ID: "c"},
}

func TestNextIndex(t *testing.T) {
	tests := []struct {
		name      string
		currentID string
		want      int
	}{
		{"first track", "a", 1},
		{"middle track", "b", 2},
		{"last track yields length", "c", 3},
		{"removed track falls back to 0", "gone", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextIndex(tracks, tt.currentID); got != tt.want {
				t.Errorf("NextIndex(%q) = %d, want %d", tt.currentID, got, tt.want)
			}
		})
	}
}

func TestPreviousIndex(t *testing.T) {
	tests := []struct {
		name      string
		currentID string
		want      int
	}{
		{"first track yields -1", "a", -1},
		{"middle track", "b", 0},
		{"last track", "c", 1},
		{"removed track falls back to 0", "gone", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreviousIndex(tracks, tt.currentID); got != tt.want {
				t.Errorf("PreviousIndex(%q) = %d, want %d", tt.currentID, got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name   string
		index  int
		length int
		want   int
	}{
		{"in range", 1, 3, 1},
		{"past end wraps to 0", 3, 3, 0},
		{"negative wraps to last", -1, 3, 2},
		{"zero length", 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Wrap(tt.index, tt.length); got != tt.want {
				t.Errorf("Wrap(%d, %d) = %d, want %d", tt.index, tt.length, got, tt.want)
			}
		})
	}
}

func TestCueWindow(t *testing.T) {
	tests := []struct {
		name      string
		track     medley.Track
		duration  float64
		wantStart float64
		wantEnd   float64
	}{
		{
			name:      "both cues set",
			track:     medley.Track{CueIn: floatPtr(10), CueOut: floatPtr(15)},
			duration:  100,
			wantStart: 10,
			wantEnd:   15,
		},
		{
			name:      "no cue falls back to full duration",
			track:     medley.Track{},
			duration:  200,
			wantStart: 0,
			wantEnd:   200,
		},
		{
			name:      "cue-in only",
			track:     medley.Track{CueIn: floatPtr(30)},
			duration:  100,
			wantStart: 30,
			wantEnd:   100,
		},
		{
			name:      "cue-out only",
			track:     medley.Track{CueOut: floatPtr(45)},
			duration:  100,
			wantStart: 0,
			wantEnd:   45,
		},
		{
			name:      "malformed end before start plays full track",
			track:     medley.Track{CueIn: floatPtr(50), CueOut: floatPtr(20)},
			duration:  100,
			wantStart: 0,
			wantEnd:   100,
		},
		{
			name:      "equal cues treated as unset",
			track:     medley.Track{CueIn: floatPtr(10), CueOut: floatPtr(10)},
			duration:  100,
			wantStart: 0,
			wantEnd:   100,
		},
		{
			name:      "negative cue-in clamps to 0",
			track:     medley.Track{CueIn: floatPtr(-5), CueOut: floatPtr(15)},
			duration:  100,
			wantStart: 0,
			wantEnd:   15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := CueWindow(tt.track, tt.duration)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("CueWindow() = (%v, %v), want (%v, %v)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestShouldAdvance(t *testing.T) {
	if ShouldAdvance(29.9, 30) {
		t.Error("ShouldAdvance(29.9, 30) = true, want false")
	}
	if !ShouldAdvance(30, 30) {
		t.Error("ShouldAdvance(30, 30) = false, want true")
	}
	if !ShouldAdvance(31.2, 30) {
		t.Error("ShouldAdvance(31.2, 30) = false, want true")
	}
}

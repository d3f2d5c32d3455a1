/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player defines the remote playback device boundary.
package player

import "context"

// Status represents the device playback state.
type Status int

const (
	StatusIdle    Status = iota // nothing loaded or playback stopped
	StatusPlaying               // media playing
	StatusPaused                // media loaded, playback suspended
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MediaHandle identifies a loadable media item on the device.
type MediaHandle struct {
	SourceMediaID string `json:"source_media_id"`
	StreamURL     string `json:"stream_url"`
}

// Player drives a single shared remote playback device. The scheduler is the
// only writer while a session is active.
type Player interface {
	Load(ctx context.Context, handle MediaHandle) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
	Position(ctx context.Context) (float64, error)
	Status(ctx context.Context) (Status, error)
}

// FocusController manages ownership of the shared audio device: acquiring
// focus configures the output route for continuous background playback and
// stops any competing preview playback; releasing it hands the device back.
type FocusController interface {
	AcquireFocus(ctx context.Context) error
	ReleaseFocus(ctx context.Context) error
}

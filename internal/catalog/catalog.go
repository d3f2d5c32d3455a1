/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog defines the lookup boundary to the streaming catalog.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound indicates the catalog has no entry for the requested media id.
var ErrNotFound = errors.New("catalog: media not found")

// TrackInfo is the catalog's answer for a source media id.
type TrackInfo struct {
	SourceMediaID   string  `json:"source_media_id"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	DurationSeconds float64 `json:"duration_seconds"`
	ArtworkURL      string  `json:"artwork_url"`
	StreamURL       string  `json:"stream_url"`
}

// Lookup resolves a source media id to playable metadata.
type Lookup interface {
	LookupByID(ctx context.Context, sourceMediaID string) (TrackInfo, error)
}

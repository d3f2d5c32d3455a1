/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package artwork fetches and caches album art bytes for now-playing updates.
package artwork

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MaxArtworkBytes caps how much image data a single fetch will read.
const MaxArtworkBytes = 5 << 20 // 5 MiB

// Image holds fetched artwork bytes and their content type.
type Image struct {
	Data        []byte
	ContentType string
}

// Fetcher downloads artwork over HTTP and caches it by URL. Missing or broken
// artwork is never an error; now-playing updates just go out without an image.
type Fetcher struct {
	httpClient *http.Client
	logger     zerolog.Logger

	mu    sync.Mutex
	cache map[string]Image
}

// NewFetcher creates an artwork fetcher.
func NewFetcher(timeout time.Duration, logger zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "artwork").Logger(),
		cache:      make(map[string]Image),
	}
}

// Fetch returns artwork for a URL. Returns a zero Image with nil error when
// the URL is empty or the artwork is unavailable.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Image, error) {
	if url == "" {
		return Image{}, nil
	}

	f.mu.Lock()
	if img, ok := f.cache[url]; ok {
		f.mu.Unlock()
		return img, nil
	}
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, fmt.Errorf("build artwork request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	// No artwork available
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return Image{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		f.logger.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("skipping artwork")
		return Image{}, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxArtworkBytes))
	if err != nil {
		return Image{}, fmt.Errorf("read artwork body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	img := Image{Data: data, ContentType: contentType}

	f.mu.Lock()
	f.cache[url] = img
	f.mu.Unlock()

	return img, nil
}

// Size reports how many images are cached.
func (f *Fetcher) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cache)
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTPPlayer drives a remote playback device over HTTP/JSON.
type HTTPPlayer struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPPlayer creates a device client for the given base URL.
func NewHTTPPlayer(baseURL string, timeout time.Duration, logger zerolog.Logger) (*HTTPPlayer, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid player base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPPlayer{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "player").Logger(),
	}, nil
}

// Load implements Player.
func (p *HTTPPlayer) Load(ctx context.Context, handle MediaHandle) error {
	return p.post(ctx, "/v1/player/load", handle, nil)
}

// Play implements Player.
func (p *HTTPPlayer) Play(ctx context.Context) error {
	return p.post(ctx, "/v1/player/play", nil, nil)
}

// Pause implements Player.
func (p *HTTPPlayer) Pause(ctx context.Context) error {
	return p.post(ctx, "/v1/player/pause", nil, nil)
}

// Stop implements Player.
func (p *HTTPPlayer) Stop(ctx context.Context) error {
	return p.post(ctx, "/v1/player/stop", nil, nil)
}

// Seek implements Player.
func (p *HTTPPlayer) Seek(ctx context.Context, seconds float64) error {
	body := struct {
		Seconds float64 `json:"seconds"`
	}{Seconds: seconds}
	return p.post(ctx, "/v1/player/seek", body, nil)
}

// Position implements Player.
func (p *HTTPPlayer) Position(ctx context.Context) (float64, error) {
	var out struct {
		Seconds float64 `json:"seconds"`
	}
	if err := p.get(ctx, "/v1/player/position", &out); err != nil {
		return 0, err
	}
	return out.Seconds, nil
}

// Status implements Player.
func (p *HTTPPlayer) Status(ctx context.Context) (Status, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := p.get(ctx, "/v1/player/status", &out); err != nil {
		return StatusIdle, err
	}
	switch out.Status {
	case "playing":
		return StatusPlaying, nil
	case "paused":
		return StatusPaused, nil
	default:
		return StatusIdle, nil
	}
}

// AcquireFocus implements FocusController. The device stops any preview
// playback and switches the output route for long-form background playback.
func (p *HTTPPlayer) AcquireFocus(ctx context.Context) error {
	body := struct {
		Route string `json:"route"`
	}{Route: "background"}
	if err := p.post(ctx, "/v1/player/focus/acquire", body, nil); err != nil {
		return err
	}
	p.logger.Debug().Msg("playback focus acquired")
	return nil
}

// ReleaseFocus implements FocusController.
func (p *HTTPPlayer) ReleaseFocus(ctx context.Context) error {
	if err := p.post(ctx, "/v1/player/focus/release", nil, nil); err != nil {
		return err
	}
	p.logger.Debug().Msg("playback focus released")
	return nil
}

func (p *HTTPPlayer) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return p.do(req, out)
}

func (p *HTTPPlayer) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return p.do(req, out)
}

func (p *HTTPPlayer) do(req *http.Request, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("player request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("player %s returned %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode player response: %w", err)
		}
	}
	return nil
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestPlayer(t *testing.T, handler http.Handler) *HTTPPlayer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewHTTPPlayer(srv.URL, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	return p
}

func TestLoadPostsHandle(t *testing.T) {
	var got MediaHandle
	p := newTestPlayer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/player/load" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))

	handle := MediaHandle{SourceMediaID: "m-1", StreamURL: "http://cdn/m-1"}
	if err := p.Load(context.Background(), handle); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != handle {
		t.Errorf("device received %+v, want %+v", got, handle)
	}
}

func TestPositionAndStatus(t *testing.T) {
	p := newTestPlayer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/player/position":
			_, _ = w.Write([]byte(`{"seconds": 12.25}`))
		case "/v1/player/status":
			_, _ = w.Write([]byte(`{"status": "paused"}`))
		default:
			http.NotFound(w, r)
		}
	}))

	pos, err := p.Position(context.Background())
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos != 12.25 {
		t.Errorf("position = %v, want 12.25", pos)
	}

	status, err := p.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusPaused {
		t.Errorf("status = %v, want paused", status)
	}
}

func TestErrorStatusSurfaced(t *testing.T) {
	p := newTestPlayer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "device busy", http.StatusConflict)
	}))

	if err := p.Play(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx device response")
	}
}

func TestStatusStringer(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusIdle, "idle"},
		{StatusPlaying, "playing"},
		{StatusPaused, "paused"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

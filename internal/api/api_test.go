/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/medley/internal/catalog"
	"github.com/friendsincode/medley/internal/logbuffer"
	"github.com/friendsincode/medley/internal/medley"
	"github.com/friendsincode/medley/internal/player"
	"github.com/friendsincode/medley/internal/playlist"
	"github.com/friendsincode/medley/internal/resolver"
	"github.com/friendsincode/medley/internal/scheduler"
)

type noopPlayer struct{}

func (noopPlayer) Load(ctx context.Context, h player.MediaHandle) error      { return nil }
func (noopPlayer) Play(ctx context.Context) error                            { return nil }
func (noopPlayer) Pause(ctx context.Context) error                           { return nil }
func (noopPlayer) Stop(ctx context.Context) error                            { return nil }
func (noopPlayer) Seek(ctx context.Context, seconds float64) error           { return nil }
func (noopPlayer) Position(ctx context.Context) (float64, error)             { return 0, nil }
func (noopPlayer) Status(ctx context.Context) (player.Status, error)         { return player.StatusPlaying, nil }

type anyLookup struct{}

func (anyLookup) LookupByID(ctx context.Context, id string) (catalog.TrackInfo, error) {
	return catalog.TrackInfo{SourceMediaID: id, Title: "Track " + id, DurationSeconds: 120}, nil
}

func newTestAPI(t *testing.T, tracks ...medley.Track) (*httptest.Server, *playlist.Store, *scheduler.Scheduler) {
	t.Helper()

	store := playlist.NewStore("Test Medley", zerolog.Nop())
	for _, track := range tracks {
		if _, err := store.Append(track); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	sched := scheduler.New(scheduler.Options{
		Player:       noopPlayer{},
		Resolver:     resolver.New(anyLookup{}, nil, zerolog.Nop()),
		PollInterval: 5 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	t.Cleanup(func() { sched.Stop(context.Background()) })

	logBuf := logbuffer.New(100)
	a := New(sched, store, logBuf, nil, zerolog.Nop())

	r := chi.NewRouter()
	a.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store, sched
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func testTrack(id string) medley.Track {
	return medley.Track{ID: id, SourceMediaID: "m" + id, Title: "Track " + id}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestAPI(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestVersionEndpoint(t *testing.T) {
	srv, _, _ := newTestAPI(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/version", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	info := decode[map[string]any](t, resp)
	if info["current_version"] == "" {
		t.Errorf("missing current_version: %v", info)
	}
}

func TestPlaybackLifecycle(t *testing.T) {
	srv, _, _ := newTestAPI(t, testTrack("a"), testTrack("b"))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/playback/play", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("play status = %d, want 200", resp.StatusCode)
	}
	state := decode[scheduler.State](t, resp)
	if !state.IsPlaying || state.CurrentTrackID != "a" {
		t.Errorf("state after play = %+v", state)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/playback/next", nil)
	state = decode[scheduler.State](t, resp)
	if state.CurrentTrackID != "b" {
		t.Errorf("CurrentTrackID after next = %q, want b", state.CurrentTrackID)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/playback/pause", nil)
	state = decode[scheduler.State](t, resp)
	if !state.IsPaused {
		t.Error("not paused after pause")
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/playback/resume", nil)
	state = decode[scheduler.State](t, resp)
	if state.IsPaused {
		t.Error("still paused after resume")
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/playback/stop", nil)
	state = decode[scheduler.State](t, resp)
	if state.IsPlaying {
		t.Error("still playing after stop")
	}
}

func TestPlayFromTrack(t *testing.T) {
	srv, _, _ := newTestAPI(t, testTrack("a"), testTrack("b"), testTrack("c"))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/playback/play", map[string]string{"track_id": "b"})
	state := decode[scheduler.State](t, resp)
	if state.CurrentTrackID != "b" {
		t.Errorf("CurrentTrackID = %q, want b", state.CurrentTrackID)
	}
}

func TestPlaylistGet(t *testing.T) {
	srv, _, _ := newTestAPI(t, testTrack("a"), testTrack("b"))

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/playlist", nil)
	pl := decode[medley.Playlist](t, resp)
	if pl.Name != "Test Medley" || len(pl.Tracks) != 2 {
		t.Errorf("playlist = %+v", pl)
	}
}

func TestTrackAppend(t *testing.T) {
	srv, store, _ := newTestAPI(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/playlist/tracks", map[string]any{
		"source_media_id": "m1",
		"title":           "New Track",
		"cue_in":          10.0,
		"cue_out":         15.0,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	track := decode[medley.Track](t, resp)
	if track.ID == "" || track.Title != "New Track" {
		t.Errorf("track = %+v", track)
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() = %d, want 1", store.Len())
	}
}

func TestTrackAppendRejectsMissingSource(t *testing.T) {
	srv, _, _ := newTestAPI(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/playlist/tracks", map[string]string{"title": "Nameless"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestReorder(t *testing.T) {
	srv, store, _ := newTestAPI(t, testTrack("a"), testTrack("b"), testTrack("c"))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/playlist/reorder", map[string][]string{
		"track_ids": {"c", "a", "b"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	snap := store.Snapshot()
	if snap.Tracks[0].ID != "c" {
		t.Errorf("first track = %q, want c", snap.Tracks[0].ID)
	}
}

func TestReorderRejectsUnknownID(t *testing.T) {
	srv, _, _ := newTestAPI(t, testTrack("a"))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/playlist/reorder", map[string][]string{
		"track_ids": {"x"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTrackRemove(t *testing.T) {
	srv, store, _ := newTestAPI(t, testTrack("a"), testTrack("b"))

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/playlist/tracks/a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() = %d, want 1", store.Len())
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/playlist/tracks/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTrackCues(t *testing.T) {
	srv, store, _ := newTestAPI(t, testTrack("a"))

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/playlist/tracks/a/cues", map[string]float64{
		"cue_in":  20,
		"cue_out": 35,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	track, err := store.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if track.CueIn == nil || *track.CueIn != 20 || track.CueOut == nil || *track.CueOut != 35 {
		t.Errorf("cues = %v/%v, want 20/35", track.CueIn, track.CueOut)
	}
}

func TestTrackCuesValidation(t *testing.T) {
	srv, _, _ := newTestAPI(t, testTrack("a"))

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/playlist/tracks/a/cues", map[string]float64{
		"cue_in":  30,
		"cue_out": 10,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTrackCuesLockedConflict(t *testing.T) {
	srv, store, _ := newTestAPI(t, testTrack("a"))
	if err := store.SetLocked("a", true); err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/playlist/tracks/a/cues", map[string]float64{
		"cue_in":  1,
		"cue_out": 2,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestTrackLock(t *testing.T) {
	srv, store, _ := newTestAPI(t, testTrack("a"))

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/playlist/tracks/a/lock", map[string]bool{"locked": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	track, err := store.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if !track.Locked {
		t.Error("track not locked")
	}
}

func TestTrackMove(t *testing.T) {
	srv, store, _ := newTestAPI(t, testTrack("a"), testTrack("b"), testTrack("c"))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/playlist/tracks/c/move", map[string]int{"index": 0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	snap := store.Snapshot()
	if snap.Tracks[0].ID != "c" {
		t.Errorf("first track = %q, want c", snap.Tracks[0].ID)
	}
}

func TestLogsEndpoint(t *testing.T) {
	srv, _, _ := newTestAPI(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/logs?limit=10", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decode[map[string]any](t, resp)
	if _, ok := body["count"]; !ok {
		t.Errorf("response missing count: %v", body)
	}
}

func TestPlayEmptyPlaylistIsNoop(t *testing.T) {
	srv, _, sched := newTestAPI(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/playback/play", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if sched.State().IsPlaying {
		t.Error("empty playlist must not start playback")
	}
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package prefetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/medley/internal/artwork"
	"github.com/friendsincode/medley/internal/catalog"
	"github.com/friendsincode/medley/internal/events"
	"github.com/friendsincode/medley/internal/medley"
	"github.com/friendsincode/medley/internal/resolver"
)

type stubLookup struct {
	mu      sync.Mutex
	entries map[string]catalog.TrackInfo
	calls   int
}

func (s *stubLookup) LookupByID(ctx context.Context, id string) (catalog.TrackInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	info, ok := s.entries[id]
	if !ok {
		return catalog.TrackInfo{}, catalog.ErrNotFound
	}
	return info, nil
}

func (s *stubLookup) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestPrefetchResolvesAllTracks(t *testing.T) {
	lookup := &stubLookup{entries: map[string]catalog.TrackInfo{
		"m1": {SourceMediaID: "m1"},
		"m2": {SourceMediaID: "m2"},
		"m3": {SourceMediaID: "m3"},
	}}
	res := resolver.New(lookup, nil, zerolog.Nop())
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventPrefetchDone)
	defer bus.Unsubscribe(events.EventPrefetchDone, sub)

	p := New(res, nil, bus, zerolog.Nop())
	p.Start(context.Background(), []medley.Track{
		{ID: "a", SourceMediaID: "m1"},
		{ID: "b", SourceMediaID: "m2"},
		{ID: "c", SourceMediaID: "m3"},
	})

	select {
	case payload := <-sub:
		if payload["resolved"] != 3 {
			t.Errorf("resolved = %v, want 3", payload["resolved"])
		}
		if payload["failed"] != 0 {
			t.Errorf("failed = %v, want 0", payload["failed"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("prefetch did not complete")
	}

	if res.Size() != 3 {
		t.Errorf("resolver Size() = %d, want 3", res.Size())
	}
}

func TestPrefetchSkipsFailures(t *testing.T) {
	lookup := &stubLookup{entries: map[string]catalog.TrackInfo{
		"m1": {SourceMediaID: "m1"},
		"m3": {SourceMediaID: "m3"},
	}}
	res := resolver.New(lookup, nil, zerolog.Nop())
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventPrefetchDone)
	defer bus.Unsubscribe(events.EventPrefetchDone, sub)

	p := New(res, nil, bus, zerolog.Nop())
	p.Start(context.Background(), []medley.Track{
		{ID: "a", SourceMediaID: "m1"},
		{ID: "b", SourceMediaID: "m2"}, // not in catalog
		{ID: "c", SourceMediaID: "m3"},
	})

	select {
	case payload := <-sub:
		if payload["resolved"] != 2 {
			t.Errorf("resolved = %v, want 2", payload["resolved"])
		}
		if payload["failed"] != 1 {
			t.Errorf("failed = %v, want 1", payload["failed"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("prefetch did not complete")
	}
}

func TestPrefetchWarmsArtworkCache(t *testing.T) {
	art := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer art.Close()

	lookup := &stubLookup{entries: map[string]catalog.TrackInfo{
		"m1": {SourceMediaID: "m1", ArtworkURL: art.URL + "/cover.png"},
		"m2": {SourceMediaID: "m2"},
	}}
	res := resolver.New(lookup, nil, zerolog.Nop())
	fetcher := artwork.NewFetcher(time.Second, zerolog.Nop())
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventPrefetchDone)
	defer bus.Unsubscribe(events.EventPrefetchDone, sub)

	p := New(res, fetcher, bus, zerolog.Nop())
	p.Start(context.Background(), []medley.Track{
		{ID: "a", SourceMediaID: "m1"},
		{ID: "b", SourceMediaID: "m2"}, // no artwork URL
	})

	select {
	case <-sub:
	case <-time.After(2 * time.Second):
		t.Fatal("prefetch did not complete")
	}

	if got := fetcher.Size(); got != 1 {
		t.Errorf("artwork cache size = %d, want 1", got)
	}
}

func TestStopCancelsPrefetch(t *testing.T) {
	lookup := &stubLookup{entries: map[string]catalog.TrackInfo{}}
	res := resolver.New(lookup, nil, zerolog.Nop())

	p := New(res, nil, nil, zerolog.Nop())
	p.Start(context.Background(), nil)
	p.Stop()

	// Stop after completion is safe, as is a second Stop.
	p.Stop()

	if got := lookup.callCount(); got != 0 {
		t.Errorf("catalog called %d times for empty playlist, want 0", got)
	}
}

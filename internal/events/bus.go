/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// EventNowPlaying fires when a track has successfully become active.
	EventNowPlaying EventType = "now_playing"

	// EventPlaybackState fires on any isPlaying/isPaused/currentTrack change.
	EventPlaybackState EventType = "playback.state"

	// EventTransition fires when the boundary watch or a manual control
	// decides to move to another track.
	EventTransition EventType = "playback.transition"

	// EventTrackSkipped fires when an unplayable track is silently skipped.
	EventTrackSkipped EventType = "playback.track_skipped"

	// EventSessionEnded fires when a session terminates (stop, empty list,
	// or exhausted retry budget).
	EventSessionEnded EventType = "playback.session_ended"

	// EventPrefetchDone fires after a prefetch walk completes.
	EventPrefetchDone EventType = "prefetch.done"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub. Slow subscribers drop events
// rather than blocking the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. The read lock is held across the
// sends so Unsubscribe cannot close a channel mid-send; sends never block,
// so holding it is cheap.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}

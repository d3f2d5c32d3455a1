/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransitionsTotal counts track transitions by trigger.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medley_transitions_total",
		Help: "Track transitions by trigger (play, boundary, manual_next, manual_previous, skip).",
	}, []string{"trigger"})

	// TrackSkipsTotal counts tracks skipped by the self-healing policy.
	TrackSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medley_track_skips_total",
		Help: "Unplayable tracks silently skipped, by transition trigger.",
	}, []string{"trigger"})

	// BoundaryPollsTotal counts boundary-watch position polls.
	BoundaryPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medley_boundary_polls_total",
		Help: "Boundary-watch position polls issued to the remote player.",
	})

	// ResolveCacheTotal counts resolver cache outcomes.
	ResolveCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medley_resolve_cache_total",
		Help: "Media resolver lookups by outcome (hit, miss, snapshot_hit, error).",
	}, []string{"outcome"})

	// PrefetchResultsTotal counts prefetch walk results.
	PrefetchResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medley_prefetch_results_total",
		Help: "Prefetch resolutions by result (ok, error).",
	}, []string{"result"})

	// TrackLoadDuration observes the time from load decision to playback start.
	TrackLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "medley_track_load_duration_seconds",
		Help:    "Time from transition decision to confirmed playback start.",
		Buckets: prometheus.DefBuckets,
	})

	// APIRequestsTotal counts control API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medley_api_requests_total",
		Help: "Control API requests by method, endpoint, and status code.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes control API latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medley_api_request_duration_seconds",
		Help:    "Control API request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight control API requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "medley_api_active_connections",
		Help: "In-flight control API requests.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

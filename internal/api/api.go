/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP control surface for playback and playlist
// editing.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/medley/internal/logbuffer"
	"github.com/friendsincode/medley/internal/medley"
	"github.com/friendsincode/medley/internal/playlist"
	"github.com/friendsincode/medley/internal/scheduler"
	"github.com/friendsincode/medley/internal/version"
)

// API exposes HTTP handlers.
type API struct {
	scheduler *scheduler.Scheduler
	playlist  *playlist.Store
	logBuffer *logbuffer.Buffer
	updates   *version.Checker
	logger    zerolog.Logger
}

// New creates the API router wrapper. updates may be nil.
func New(sched *scheduler.Scheduler, store *playlist.Store, logBuf *logbuffer.Buffer, updates *version.Checker, logger zerolog.Logger) *API {
	return &API{
		scheduler: sched,
		playlist:  store,
		logBuffer: logBuf,
		updates:   updates,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all API routes on the router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Get("/version", a.handleVersion)

		r.Route("/playback", func(r chi.Router) {
			r.Get("/", a.handlePlaybackState)
			r.Post("/play", a.handlePlay)
			r.Post("/stop", a.handleStop)
			r.Post("/pause", a.handlePause)
			r.Post("/resume", a.handleResume)
			r.Post("/next", a.handleNext)
			r.Post("/previous", a.handlePrevious)
		})

		r.Route("/playlist", func(r chi.Router) {
			r.Get("/", a.handlePlaylistGet)
			r.Post("/tracks", a.handleTrackAppend)
			r.Post("/reorder", a.handlePlaylistReorder)
			r.Route("/tracks/{trackID}", func(r chi.Router) {
				r.Delete("/", a.handleTrackRemove)
				r.Post("/move", a.handleTrackMove)
				r.Patch("/cues", a.handleTrackCues)
				r.Patch("/lock", a.handleTrackLock)
			})
		})

		r.Get("/logs", a.handleLogs)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
	if a.updates == nil {
		writeJSON(w, http.StatusOK, version.UpdateInfo{CurrentVersion: version.Version})
		return
	}
	writeJSON(w, http.StatusOK, a.updates.Info())
}

func (a *API) handlePlaybackState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.scheduler.State())
}

type playRequest struct {
	TrackID string `json:"track_id,omitempty"`
	Index   *int   `json:"index,omitempty"`
}

func (a *API) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	provider := a.playlist.Provider()
	switch {
	case req.TrackID != "":
		a.scheduler.PlayFromTrack(provider, req.TrackID)
	case req.Index != nil:
		a.scheduler.PlayFrom(provider, *req.Index)
	default:
		a.scheduler.Play(provider)
	}

	writeJSON(w, http.StatusOK, a.scheduler.State())
}

func (a *API) handleStop(w http.ResponseWriter, r *http.Request) {
	a.scheduler.Stop(r.Context())
	writeJSON(w, http.StatusOK, a.scheduler.State())
}

func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	a.scheduler.Pause(r.Context())
	writeJSON(w, http.StatusOK, a.scheduler.State())
}

func (a *API) handleResume(w http.ResponseWriter, r *http.Request) {
	a.scheduler.Resume(r.Context())
	writeJSON(w, http.StatusOK, a.scheduler.State())
}

func (a *API) handleNext(w http.ResponseWriter, r *http.Request) {
	a.scheduler.Next()
	writeJSON(w, http.StatusOK, a.scheduler.State())
}

func (a *API) handlePrevious(w http.ResponseWriter, r *http.Request) {
	a.scheduler.Previous()
	writeJSON(w, http.StatusOK, a.scheduler.State())
}

func (a *API) handlePlaylistGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.playlist.Snapshot())
}

func (a *API) handleTrackAppend(w http.ResponseWriter, r *http.Request) {
	var track medley.Track
	if err := json.NewDecoder(r.Body).Decode(&track); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stored, err := a.playlist.Append(track)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (a *API) handleTrackRemove(w http.ResponseWriter, r *http.Request) {
	trackID := chi.URLParam(r, "trackID")
	if err := a.playlist.Remove(trackID); err != nil {
		writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type moveRequest struct {
	Index int `json:"index"`
}

func (a *API) handleTrackMove(w http.ResponseWriter, r *http.Request) {
	trackID := chi.URLParam(r, "trackID")

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := a.playlist.Move(trackID, req.Index); err != nil {
		writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.playlist.Snapshot())
}

type reorderRequest struct {
	TrackIDs []string `json:"track_ids"`
}

func (a *API) handlePlaylistReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := a.playlist.Reorder(req.TrackIDs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.playlist.Snapshot())
}

type cuesRequest struct {
	CueIn  *float64 `json:"cue_in"`
	CueOut *float64 `json:"cue_out"`
}

func (a *API) handleTrackCues(w http.ResponseWriter, r *http.Request) {
	trackID := chi.URLParam(r, "trackID")

	var req cuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CueIn != nil && req.CueOut != nil && *req.CueOut <= *req.CueIn {
		writeError(w, http.StatusBadRequest, "cue_out must be greater than cue_in")
		return
	}

	if err := a.playlist.SetCues(trackID, req.CueIn, req.CueOut); err != nil {
		writePlaylistError(w, err)
		return
	}

	track, err := a.playlist.Get(trackID)
	if err != nil {
		writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

type lockRequest struct {
	Locked bool `json:"locked"`
}

func (a *API) handleTrackLock(w http.ResponseWriter, r *http.Request) {
	trackID := chi.URLParam(r, "trackID")

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := a.playlist.SetLocked(trackID, req.Locked); err != nil {
		writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"locked": req.Locked})
}

func writePlaylistError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playlist.ErrTrackNotFound):
		writeError(w, http.StatusNotFound, "track not found")
	case errors.Is(err, playlist.ErrTrackLocked):
		writeError(w, http.StatusConflict, "track is locked")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeError(w, http.StatusServiceUnavailable, "log buffer not available")
		return
	}

	params := logbuffer.QueryParams{
		Level:     r.URL.Query().Get("level"),
		Component: r.URL.Query().Get("component"),
		TrackID:   r.URL.Query().Get("track_id"),
		Search:    r.URL.Query().Get("search"),
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			params.Limit = n
		}
	} else {
		params.Limit = 500
	}

	entries := a.logBuffer.Query(params)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/harrierhub/hareline/internal/bus"
	"github.com/harrierhub/hareline/internal/metrics"
	"github.com/harrierhub/hareline/internal/store"
)

// scrapeRequestBody is the optional JSON body of POST /scrape/{id}.
type scrapeRequestBody struct {
	Days  int  `json:"days,omitempty"`
	Force bool `json:"force,omitempty"`
}

// scrapePublisher is what the router needs from the bus.
type scrapePublisher interface {
	PublishScrape(bus.ScrapeRequest) error
}

func newRouter(st store.Store, pub scrapePublisher, met *metrics.Metrics, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", met.Handler())

	r.Get("/sources", func(w http.ResponseWriter, r *http.Request) {
		sources, err := st.ListSources(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, sources)
	})

	r.Get("/alerts", func(w http.ResponseWriter, r *http.Request) {
		alerts, err := st.OpenAlerts(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, alerts)
	})

	// Enqueues; the scrape itself runs on whichever worker wins the queue
	// group, which may or may not be this process.
	r.Post("/scrape/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := st.GetSource(r.Context(), id); err != nil {
			writeError(w, log, err)
			return
		}

		// An empty body is fine; a malformed one is not.
		var body scrapeRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
			return
		}

		if err := pub.PublishScrape(bus.ScrapeRequest{
			SourceID: id,
			Days:     body.Days,
			Force:    body.Force,
		}); err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"source_id": id, "status": "queued"})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	log.Error().Err(err).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

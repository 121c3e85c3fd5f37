// Package server exposes the query surface over HTTP for dashboard
// consumers.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/commandcenter/aggregator/export"
	"github.com/commandcenter/aggregator/models"
	"github.com/commandcenter/aggregator/query"
)

// Server routes HTTP requests to the query service.
type Server struct {
	svc *query.Service
}

// New builds a server over the query service.
func New(svc *query.Service) *Server {
	return &Server{svc: svc}
}

// Routes assembles the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/query", s.handleQuery)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/records/{id}", s.handleRecord)
		r.Get("/facets", s.handleFacets)
		r.Get("/export", s.handleExport)
	})

	return r
}

// filterFromRequest reads the search query and facet selections from the
// URL. Facet parameters repeat: ?year=2019&year=2020.
func filterFromRequest(r *http.Request) models.FilterState {
	q := r.URL.Query()
	return models.FilterState{
		Query:        q.Get("q"),
		Years:        q["year"],
		Authors:      q["author"],
		Publications: q["publication"],
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	pageNumber := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		pageNumber = parsed
	}

	result, err := s.svc.Query(r.Context(), filterFromRequest(r), pageNumber)
	if err != nil {
		slog.Error("query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	entry, err := s.svc.Refresh(r.Context())
	if err != nil {
		slog.Error("refresh failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records":           entry.Dataset.Len(),
		"failedCollections": entry.Failed,
		"fetchedAt":         entry.CreatedAt,
	})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := s.svc.Lookup(r.Context(), id)
	if err != nil {
		if errors.Is(err, query.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		slog.Error("record lookup failed", slog.String("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	facets, err := s.svc.Facets(r.Context())
	if err != nil {
		slog.Error("facet listing failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "facet listing failed")
		return
	}
	writeJSON(w, http.StatusOK, facets)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		writeError(w, http.StatusBadRequest, "format must be csv or json")
		return
	}

	records, fields, err := s.svc.Filtered(r.Context(), filterFromRequest(r))
	if err != nil {
		slog.Error("export failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="records.csv"`)
		err = export.WriteCSV(w, fields, records)
	case "json":
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Content-Disposition", `attachment; filename="records.jsonl"`)
		err = export.WriteJSON(w, records)
	}
	if err != nil {
		slog.Error("export write failed", slog.String("format", format), slog.Any("error", err))
	}
}

package api

import (
	"net/http"
	"strings"
)

// handleSearch runs a full-text search. An empty query lists every script.
// GET /api/search?q=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")

	var (
		scripts any
		count   int
	)
	if strings.TrimSpace(query) == "" {
		all, err := s.store.GetAllScripts(ctx)
		if err != nil {
			RespondStorageError(w, err)
			return
		}
		scripts, count = all, len(all)
	} else {
		found, err := s.store.SearchScripts(ctx, query)
		if err != nil {
			RespondStorageError(w, err)
			return
		}
		scripts, count = found, len(found)
	}

	RespondSuccess(w, map[string]any{
		"query":   query,
		"count":   count,
		"scripts": scripts,
	})
}

// handleCategories lists categories with their script counts.
// GET /api/categories
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.GetAllCategories(r.Context())
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	RespondSuccess(w, categories)
}

// handleCategory returns one category and its scripts.
// GET /api/categories/{slug}
func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category, found, err := s.store.GetCategoryBySlug(ctx, r.PathValue("slug"))
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	if !found {
		RespondNotFound(w)
		return
	}

	scripts, err := s.store.GetScriptsByCategory(ctx, category.ID)
	if err != nil {
		RespondStorageError(w, err)
		return
	}

	RespondSuccess(w, map[string]any{
		"category": category,
		"scripts":  scripts,
	})
}

// handleScripts lists every script, optionally filtered by KCS state.
// GET /api/scripts?state=
func (s *Server) handleScripts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if state := r.URL.Query().Get("state"); state != "" {
		scripts, err := s.store.GetScriptsByKCSState(ctx, state)
		if err != nil {
			RespondStorageError(w, err)
			return
		}
		RespondSuccess(w, scripts)
		return
	}

	scripts, err := s.store.GetAllScripts(ctx)
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	RespondSuccess(w, scripts)
}

// handleStats returns aggregate catalog counts.
// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	RespondSuccess(w, stats)
}

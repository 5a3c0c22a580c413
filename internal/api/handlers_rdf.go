package api

import (
	"net/http"

	"github.com/chis/kbcatalog/internal/jsonld"
)

// handleRDFCatalog returns the catalog as a DCAT catalog and SKOS scheme.
// GET /api/rdf/catalog
func (s *Server) handleRDFCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := s.store.GetAllCategories(ctx)
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		RespondStorageError(w, err)
		return
	}

	RespondJSONLD(w, jsonld.CatalogToJSONLD(categories, stats))
}

// handleRDFCategories returns every category as a SKOS concept.
// GET /api/rdf/categories
func (s *Server) handleRDFCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.GetAllCategories(r.Context())
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	RespondJSONLD(w, jsonld.CategoriesToJSONLD(categories))
}

// handleRDFScript returns one script as schema.org source code with its article.
// GET /api/rdf/scripts/{id}
func (s *Server) handleRDFScript(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()

	script, found, err := s.store.GetScriptByID(ctx, id)
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	if !found {
		RespondNotFound(w)
		return
	}

	params, err := s.store.GetParametersForScript(ctx, id)
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	tags, err := s.store.GetTagsForScript(ctx, id)
	if err != nil {
		RespondStorageError(w, err)
		return
	}

	RespondJSONLD(w, jsonld.ScriptToJSONLD(script, params, tags))
}

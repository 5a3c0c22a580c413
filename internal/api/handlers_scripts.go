package api

import (
	"net/http"

	"github.com/chis/kbcatalog/internal/events"
	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/storage"
)

// TransitionRequest moves a script through the KCS lifecycle.
type TransitionRequest struct {
	State string `json:"state"`
	Actor string `json:"actor"`
}

// ContributorRequest records a contributor on a script.
type ContributorRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// handleScriptByID returns a script's detail and counts the view.
// GET /api/scripts/{id}
func (s *Server) handleScriptByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	script, found, err := s.store.GetScriptByID(r.Context(), id)
	s.respondScriptDetail(w, r, script, found, err)
}

// handleScriptByName returns a script's detail by its unique name.
// GET /api/scripts/by-name/{name}
func (s *Server) handleScriptByName(w http.ResponseWriter, r *http.Request) {
	script, found, err := s.store.GetScriptByName(r.Context(), r.PathValue("name"))
	s.respondScriptDetail(w, r, script, found, err)
}

func (s *Server) respondScriptDetail(w http.ResponseWriter, r *http.Request, script storage.Script, found bool, err error) {
	ctx := r.Context()
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	if !found {
		RespondNotFound(w)
		return
	}

	if err := s.store.IncrementViewCount(ctx, script.ID); err != nil {
		// A failed counter must not hide the article
		logging.WarnContext(ctx, "Failed to count view of script %d: %v", script.ID, err)
	} else {
		script.ViewCount++
		s.eventBus.Publish(events.ScriptViewed(script.ID))
	}

	detail, err := storage.LoadScriptDetail(ctx, s.store, script)
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	RespondSuccess(w, detail)
}

// handleScriptView counts a view without returning the script.
// POST /api/scripts/{id}/view
func (s *Server) handleScriptView(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()

	if _, found, err := s.store.GetScriptByID(ctx, id); err != nil {
		RespondStorageError(w, err)
		return
	} else if !found {
		RespondNotFound(w)
		return
	}

	if err := s.store.IncrementViewCount(ctx, id); err != nil {
		RespondStorageError(w, err)
		return
	}
	s.eventBus.Publish(events.ScriptViewed(id))
	RespondNoContent(w)
}

// handleScriptTransition moves a script to a new KCS state.
// POST /api/scripts/{id}/transition
func (s *Server) handleScriptTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if !decodeJSONRequest(w, r, &req) {
		return
	}
	if !validateRequired(w, "state", req.State) || !validateRequired(w, "actor", req.Actor) {
		return
	}

	ctx := logging.WithScript(r.Context(), id, "")
	script, from, err := s.store.TransitionKCSState(ctx, id, req.State, req.Actor)
	if err != nil {
		RespondStorageError(w, err)
		return
	}

	logging.InfoContext(ctx, "Script %s moved %s -> %s by %s", script.Name, from, script.KCSState, req.Actor)
	s.eventBus.Publish(events.ScriptTransitioned(script.ID, script.Name, from, script.KCSState, req.Actor))
	RespondSuccess(w, script)
}

// handleAddContributor records a contributor on a script.
// POST /api/scripts/{id}/contributors
func (s *Server) handleAddContributor(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req ContributorRequest
	if !decodeJSONRequest(w, r, &req) {
		return
	}
	if !validateRequired(w, "name", req.Name) {
		return
	}
	if req.Role == "" {
		req.Role = storage.RoleContributor
	}

	ctx := logging.WithScript(r.Context(), id, "")
	contributor, err := s.store.AddContributor(ctx, id, req.Name, req.Role)
	if err != nil {
		RespondStorageError(w, err)
		return
	}
	logging.InfoContext(ctx, "Recorded %s as %s", contributor.Name, contributor.Role)

	s.eventBus.Publish(events.ContributorAdded(id, contributor.Name, contributor.Role))
	RespondCreated(w, contributor)
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/output"
)

// dockerTimeout bounds calls to the Docker daemon from request handlers
const dockerTimeout = 3 * time.Second

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Docker  string `json:"docker"`
	Scripts int    `json:"scripts"`
	Version string `json:"version"`
}

// handleHealth reports storage and Docker availability.
// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:  "healthy",
		Storage: "ok",
		Docker:  "not_configured",
		Version: output.Version,
	}

	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		logging.WarnContext(r.Context(), "Health check: storage unavailable: %v", err)
		health.Status = "degraded"
		health.Storage = "unavailable"
	} else {
		health.Scripts = stats.ScriptCount
	}

	if s.docker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), dockerTimeout)
		defer cancel()
		if err := s.docker.Ping(ctx); err != nil {
			health.Docker = "unreachable"
		} else {
			health.Docker = "ok"
		}
	}

	if health.Storage != "ok" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		output.WriteJSONData(w, health)
		return
	}
	RespondSuccess(w, health)
}

// handleDockerComponents lists the monitoring components. With live=true
// each component carries its container state when Docker is reachable.
// GET /api/docker-components?live=true
func (s *Server) handleDockerComponents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	components, err := s.store.GetAllDockerComponents(ctx)
	if err != nil {
		RespondStorageError(w, err)
		return
	}

	body := map[string]any{
		"components": components,
		"live":       false,
	}

	if parseBoolParam(r, "live") {
		if s.docker == nil {
			body["docker_error"] = "docker is not configured"
		} else {
			dctx, cancel := context.WithTimeout(ctx, dockerTimeout)
			defer cancel()

			statuses, err := s.docker.ComponentStatuses(dctx, components)
			if err != nil {
				logging.WarnContext(ctx, "Live component status unavailable: %v", err)
				body["docker_error"] = err.Error()
			} else {
				body["components"] = statuses
				body["live"] = true
			}
		}
	}

	RespondSuccess(w, body)
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chis/kbcatalog/internal/docker"
	"github.com/chis/kbcatalog/internal/events"
	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	store       storage.Storage
	docker      docker.Client
	eventBus    *events.Bus
	httpServer  *http.Server
	handler     http.Handler
	rateLimiter *PathRateLimiter
}

// Config holds configuration for the API server
type Config struct {
	Port      int
	Storage   storage.Storage
	Docker    docker.Client // optional; nil when the daemon is not configured
	EventBus  *events.Bus   // optional; a private bus is created when nil
	StaticDir string        // Directory containing static UI files (optional)
	RateLimit bool
	// RequestLogging logs every request with its status and duration
	RequestLogging bool
}

// NewServer creates a new API server with the given configuration
func NewServer(cfg Config) *Server {
	eventBus := cfg.EventBus
	if eventBus == nil {
		eventBus = events.NewBus()
	}

	// Create rate limiter with path-specific limits
	var rateLimiter *PathRateLimiter
	if cfg.RateLimit {
		rateLimiter = NewPathRateLimiter(DefaultRateLimitConfig())
		// Long-lived SSE connections
		rateLimiter.SetPathLimit("/api/events", RateLimitConfig{
			RequestsPerMinute: 10,
			BurstSize:         5,
			CleanupInterval:   5 * time.Minute,
		})
		rateLimiter.SetPathLimit("/api/health", RateLimitConfig{
			RequestsPerMinute: 120,
			BurstSize:         20,
			CleanupInterval:   5 * time.Minute,
		})
		// Browsing and search are the hot read paths
		rateLimiter.SetPathLimit("/api/search", RateLimitConfig{
			RequestsPerMinute: 300,
			BurstSize:         50,
			CleanupInterval:   5 * time.Minute,
		})
	} else {
		logging.Info("Rate limiting disabled")
	}

	s := &Server{
		store:       cfg.Storage,
		docker:      cfg.Docker,
		eventBus:    eventBus,
		rateLimiter: rateLimiter,
	}

	// Setup HTTP server with middleware chain
	mux := http.NewServeMux()
	s.registerRoutes(mux, cfg.StaticDir)

	// Apply middleware: CORS -> Correlation ID -> Recover -> Rate Limit (optional) -> Request Logging (optional) -> Handler
	middlewares := []func(http.Handler) http.Handler{
		corsMiddleware,
		CorrelationIDMiddleware,
		RecoverMiddleware,
	}
	if rateLimiter != nil {
		middlewares = append(middlewares, PathRateLimitMiddleware(rateLimiter))
	}
	if cfg.RequestLogging {
		middlewares = append(middlewares, RequestLoggingMiddleware)
	}
	s.handler = ChainMiddleware(mux, middlewares...)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// EventBus returns the bus the server publishes to and streams from.
func (s *Server) EventBus() *events.Bus {
	return s.eventBus
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes(mux *http.ServeMux, staticDir string) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// Catalog browsing
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/categories/{slug}", s.handleCategory)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	// Scripts and their knowledge articles
	mux.HandleFunc("GET /api/scripts", s.handleScripts)
	mux.HandleFunc("GET /api/scripts/{id}", s.handleScriptByID)
	mux.HandleFunc("GET /api/scripts/by-name/{name}", s.handleScriptByName)
	mux.HandleFunc("POST /api/scripts/{id}/view", s.handleScriptView)
	mux.HandleFunc("POST /api/scripts/{id}/transition", s.handleScriptTransition)
	mux.HandleFunc("POST /api/scripts/{id}/contributors", s.handleAddContributor)

	// Monitoring stack
	mux.HandleFunc("GET /api/docker-components", s.handleDockerComponents)

	// Linked data
	mux.HandleFunc("GET /api/rdf/catalog", s.handleRDFCatalog)
	mux.HandleFunc("GET /api/rdf/categories", s.handleRDFCategories)
	mux.HandleFunc("GET /api/rdf/scripts/{id}", s.handleRDFScript)

	// Server-Sent Events for catalog changes
	mux.HandleFunc("GET /api/events", s.handleEvents)

	// Serve static UI files if directory is configured
	if staticDir != "" {
		if _, err := os.Stat(staticDir); err == nil {
			logging.Info("Serving static UI from %s", staticDir)
			mux.Handle("/", spaHandler(staticDir))
		} else {
			logging.Warn("Static directory %s not found, UI will not be served", staticDir)
		}
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logging.Info("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")

	// Stop rate limiter cleanup goroutines
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// spaHandler serves static files and falls back to index.html for SPA routing
func spaHandler(staticDir string) http.Handler {
	fileServer := http.FileServer(http.Dir(staticDir))
	index := filepath.Join(staticDir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			RespondNotFound(w)
			return
		}

		path := filepath.Clean(r.URL.Path)
		if path == "/" {
			path = "/index.html"
		}

		info, err := os.Stat(filepath.Join(staticDir, path))
		switch {
		case os.IsNotExist(err) || (err == nil && info.IsDir()):
			if _, indexErr := os.Stat(index); indexErr != nil {
				http.NotFound(w, r)
				return
			}
			// HTML files: always validate (allows 304 responses)
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeFile(w, r, index)
			return
		case err != nil:
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if strings.HasSuffix(path, ".html") {
			w.Header().Set("Cache-Control", "no-cache")
		} else if strings.HasPrefix(path, "/assets/") {
			// Versioned assets (JS/CSS with hashes): cache forever
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}

		fileServer.ServeHTTP(w, r)
	})
}

// decodeJSONRequest decodes a JSON request body into the provided interface.
// Returns true if successful. If decoding fails, it writes the error response and returns false.
func decodeJSONRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		RespondBadRequest(w, fmt.Errorf("invalid request body"))
		return false
	}
	return true
}

// Package api exposes the service over REST and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/storyagent/storyagent-go/internal/config"
	"github.com/storyagent/storyagent-go/internal/export"
	"github.com/storyagent/storyagent-go/internal/generate"
	"github.com/storyagent/storyagent-go/internal/storage"
	"github.com/storyagent/storyagent-go/internal/tracker"
)

// Server is the REST API server. Tracker and generator are optional: the
// matching endpoints answer 503 when the capability is not configured.
type Server struct {
	config       *config.Config
	storage      storage.Storage
	tracker      tracker.Client
	generator    *generate.Client
	orchestrator *export.Orchestrator
	wsHub        *WebSocketHub

	mu      sync.RWMutex
	server  *http.Server
	running bool
}

// NewServer creates a new API server. Export progress events are forwarded
// to connected WebSocket clients.
func NewServer(cfg *config.Config, store storage.Storage, trk tracker.Client, gen *generate.Client, orch *export.Orchestrator) *Server {
	wsHub := NewWebSocketHub()
	wsHub.SetSecurityConfig(cfg.APIKey, cfg.CORSAllowedOrigins)

	s := &Server{
		config:       cfg,
		storage:      store,
		tracker:      trk,
		generator:    gen,
		orchestrator: orch,
		wsHub:        wsHub,
	}

	if orch != nil {
		orch.SetNotifier(func(event export.Event) {
			s.BroadcastMessage(event.Type, event)
		})
	}

	return s
}

// GetWebSocketHub returns the WebSocket hub
func (s *Server) GetWebSocketHub() *WebSocketHub {
	return s.wsHub
}

// Start starts the API server on the given port
func (s *Server) Start(port int) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop stops the API server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	s.wsHub.Stop()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.config.CORSAllowedOrigins))

	// Health check (public, no auth required)
	r.Get("/health", s.healthHandler)

	// API routes (protected by API key if configured)
	r.Route("/api", func(r chi.Router) {
		r.Use(apiKeyAuthMiddleware(s.config.APIKey))

		r.Post("/export", s.exportHandler)

		r.Route("/tracker", func(r chi.Router) {
			r.Get("/health", s.trackerHealthHandler)
			r.Get("/projects", s.trackerProjectsHandler)
			r.Get("/issues/{key}", s.trackerIssueHandler)
		})

		r.Route("/stories", func(r chi.Router) {
			r.Post("/generate", s.generateStoriesHandler)
			r.Post("/analyze", s.analyzeRequirementsHandler)
			r.Post("/download", s.downloadStoriesHandler)
		})

		r.Get("/history", s.listHistoryHandler)
		r.Get("/history/{id}", s.getHistoryHandler)
		r.Delete("/history/{id}", s.deleteHistoryHandler)

		r.Get("/stats", s.getStatsHandler)

		r.Get("/ws", s.websocketHandler)
	})

	return r
}

// corsMiddleware creates CORS middleware with the given allowed origins.
// No "*" default: origins must be configured explicitly.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	exactOrigins := make(map[string]bool)
	var patterns []string

	for _, origin := range allowedOrigins {
		if strings.Contains(origin, "*") {
			patterns = append(patterns, origin)
		} else {
			exactOrigins[origin] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if origin != "" {
				if exactOrigins[origin] {
					allowed = true
				} else {
					for _, pattern := range patterns {
						if matchOriginPattern(origin, pattern) {
							allowed = true
							break
						}
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// apiKeyAuthMiddleware creates middleware that validates the API key from
// the X-API-Key header or an Authorization bearer token
func apiKeyAuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// If no API key is configured, allow all requests (optional auth)
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get("X-API-Key")
			if providedKey == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					providedKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if providedKey != apiKey {
				http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchOriginPattern checks if an origin matches a pattern with wildcards
// e.g., "http://localhost:3000" matches "http://localhost:*"
func matchOriginPattern(origin, pattern string) bool {
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(origin, prefix)
	}
	// Wildcard subdomain (e.g., "*.example.com")
	if strings.HasPrefix(pattern, "*.") {
		suffix := strings.TrimPrefix(pattern, "*")
		parts := strings.SplitN(origin, "://", 2)
		if len(parts) == 2 {
			host := strings.Split(parts[1], "/")[0]
			host = strings.Split(host, ":")[0]
			return strings.HasSuffix(host, suffix) || host == strings.TrimPrefix(suffix, ".")
		}
	}
	return false
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// trackerErrorStatus maps the tracker error taxonomy onto HTTP statuses
func trackerErrorStatus(err error) int {
	switch tracker.KindOf(err) {
	case tracker.KindValidation:
		return http.StatusUnprocessableEntity
	case tracker.KindAuthentication:
		return http.StatusUnauthorized
	case tracker.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// BroadcastMessage sends a message to all connected WebSocket clients
func (s *Server) BroadcastMessage(msgType string, data interface{}) {
	msg := WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
	}
	s.wsHub.Broadcast(msg)
}

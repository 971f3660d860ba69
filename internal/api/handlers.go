package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/storyagent/storyagent-go/internal/analyze"
	"github.com/storyagent/storyagent-go/internal/domain"
	"github.com/storyagent/storyagent-go/internal/export"
	"github.com/storyagent/storyagent-go/internal/generate"
	"github.com/storyagent/storyagent-go/internal/render"
	"github.com/storyagent/storyagent-go/internal/storage"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	trackerState := "not_configured"
	if s.tracker != nil {
		trackerState = "configured"
	}

	model := ""
	generatorState := "not_configured"
	if s.generator != nil {
		generatorState = "configured"
		model = s.generator.Model()
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"tracker":   trackerState,
		"generator": generatorState,
		"model":     model,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type exportRequest struct {
	Stories     []domain.StoryRecord `json:"stories"`
	ProjectKey  string               `json:"project_key"`
	CreateGroup bool                 `json:"create_group"`
	GroupName   string               `json:"group_name"`
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		respondError(w, http.StatusServiceUnavailable, "tracker is not configured")
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.orchestrator.Export(r.Context(), export.Request{
		Stories:    req.Stories,
		ProjectKey: req.ProjectKey,
		Group: domain.GroupSpec{
			Create: req.CreateGroup,
			Name:   req.GroupName,
		},
	})
	if err != nil {
		respondError(w, trackerErrorStatus(err), err.Error())
		return
	}

	s.saveExportRecord(r, req.ProjectKey, result)

	respondJSON(w, http.StatusOK, result)
}

// saveExportRecord writes the audit record. Failures are logged, never
// surfaced: the tickets already exist in the tracker.
func (s *Server) saveExportRecord(r *http.Request, projectKey string, result *domain.ExportResult) {
	if s.storage == nil {
		return
	}

	rec := &storage.ExportRecord{
		ProjectKey: projectKey,
		Status:     result.Status,
		Outcomes:   result.Outcomes,
		Exported:   result.Exported,
		Failed:     result.Failed,
	}
	if result.Group != nil {
		rec.GroupKey = result.Group.Key
	}

	if err := s.storage.SaveExport(r.Context(), rec); err != nil {
		log.Printf("failed to save export record: %v", err)
	}
}

func (s *Server) trackerHealthHandler(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		respondError(w, http.StatusServiceUnavailable, "tracker is not configured")
		return
	}

	respondJSON(w, http.StatusOK, s.tracker.Ping(r.Context()))
}

func (s *Server) trackerProjectsHandler(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		respondError(w, http.StatusServiceUnavailable, "tracker is not configured")
		return
	}

	projects, err := s.tracker.ListProjects(r.Context())
	if err != nil {
		respondError(w, trackerErrorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	})
}

func (s *Server) trackerIssueHandler(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		respondError(w, http.StatusServiceUnavailable, "tracker is not configured")
		return
	}

	issue, err := s.tracker.FetchIssue(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, trackerErrorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, issue)
}

type requirementsRequest struct {
	Requirements string `json:"requirements"`
}

func (s *Server) generateStoriesHandler(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		respondError(w, http.StatusServiceUnavailable, "story generation is not configured")
		return
	}

	var req requirementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stories, err := s.generator.Generate(r.Context(), req.Requirements)
	if err != nil {
		if errors.Is(err, generate.ErrRequirementsTooShort) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	rec := &storage.GenerationRecord{
		Requirements: req.Requirements,
		Stories:      stories,
		Model:        s.generator.Model(),
	}
	if s.storage != nil {
		if err := s.storage.SaveGeneration(r.Context(), rec); err != nil {
			log.Printf("failed to save generation record: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_stories": stories,
		"id":           rec.ID,
		"created_at":   rec.CreatedAt.Format(time.RFC3339),
		"model":        rec.Model,
	})
}

func (s *Server) analyzeRequirementsHandler(w http.ResponseWriter, r *http.Request) {
	var req requirementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := analyze.Analyze(req.Requirements)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type downloadRequest struct {
	UserStories []domain.StoryRecord `json:"user_stories"`
	Format      string               `json:"format"`
}

func (s *Server) downloadStoriesHandler(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.UserStories) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "user stories must be a non-empty list")
		return
	}

	doc, err := render.Render(req.UserStories, req.Format)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) listHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		respondError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	records, err := s.storage.ListGenerations(r.Context(), offset, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total, _ := s.storage.CountGenerations(r.Context())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"generations": records,
		"count":       len(records),
		"total":       total,
		"offset":      offset,
		"limit":       limit,
	})
}

func (s *Server) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		respondError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	rec, err := s.storage.GetGeneration(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "generation not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		respondError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	err := s.storage.DeleteGeneration(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "generation not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) getStatsHandler(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		respondError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	stats, err := s.storage.GetStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	s.wsHub.ServeWs(w, r)
}

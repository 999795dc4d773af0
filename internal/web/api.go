package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rao305/Syntra.ai-sub006/internal/pipeline"
	"github.com/rao305/Syntra.ai-sub006/internal/schedule"
	"github.com/rao305/Syntra.ai-sub006/internal/store"
)

func (s *Server) registerAPI(mux *http.ServeMux) {
	// Planning and runs
	mux.HandleFunc("POST /api/plan", s.createPlan)
	mux.HandleFunc("POST /api/runs", s.createRun)
	mux.HandleFunc("POST /api/runs/stream", s.streamRun)
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.getRun)
	mux.HandleFunc("GET /api/runs/{id}/transcript", s.getTranscript)
	mux.HandleFunc("POST /api/runs/{id}/resume", s.resumeRun)
	mux.HandleFunc("POST /api/runs/{id}/cancel", s.cancelRun)

	// Model catalog
	mux.HandleFunc("GET /api/models", s.listModels)

	// Secrets
	mux.HandleFunc("GET /api/secrets", s.listSecrets)
	mux.HandleFunc("POST /api/secrets", s.createSecret)
	mux.HandleFunc("DELETE /api/secrets/{id}", s.deleteSecret)

	// Scheduled runs
	mux.HandleFunc("GET /api/schedules", s.listSchedules)
	mux.HandleFunc("POST /api/schedules", s.createSchedule)
	mux.HandleFunc("PUT /api/schedules/{id}", s.updateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", s.deleteSchedule)

	// System
	mux.HandleFunc("GET /api/status", s.getStatus)
}

type planRequest struct {
	Message       string `json:"message"`
	ThreadContext string `json:"threadContext,omitempty"`
	Settings      struct {
		Priority string `json:"priority"`
		MaxSteps int    `json:"maxSteps"`
	} `json:"settings"`
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var body planRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	message := body.Message
	if body.ThreadContext != "" {
		message = body.ThreadContext + "\n\n" + message
	}

	plan, err := s.controller.Plan(message, body.Settings.Priority)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	jsonResponse(w, map[string]any{
		"planSummary":    planSummary(plan),
		"steps":          plan.Steps,
		"planningTimeMs": plan.PlanningMs,
	})
}

func planSummary(plan *pipeline.Plan) string {
	return fmt.Sprintf("%d steps across %d models", len(plan.Steps), len(plan.ModelsUsed()))
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req pipeline.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	run, err := s.controller.Start(req)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Block until terminal; the run's own timeout bounds this.
	for range run.Events() {
	}

	jsonResponse(w, map[string]any{
		"runId":       run.ID,
		"status":      run.Status(),
		"finalAnswer": run.FinalAnswer(),
		"plan":        run.Plan.Steps,
		"stepResults": run.Results(),
		"totalTimeMs": run.TotalMs(),
		"modelsUsed":  run.Plan.ModelsUsed(),
		"degraded":    run.Plan.Degraded,
	})
}

// streamRun executes a run and pushes its event sequence as NDJSON, one
// event per line. Client disconnect cancels the run.
func (s *Server) streamRun(w http.ResponseWriter, r *http.Request) {
	var req pipeline.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	run, err := s.controller.Start(req)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Run-Id", run.ID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			_ = s.controller.Cancel(run.ID)
			// Drain so the run goroutine is not blocked on emit
			for range run.Events() {
			}
			return
		case ev, open := <-run.Events():
			if !open {
				return
			}
			if err := enc.Encode(ev); err != nil {
				_ = s.controller.Cancel(run.ID)
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []store.PipelineRun{}
	}
	jsonResponse(w, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, run)
}

func (s *Server) getTranscript(w http.ResponseWriter, r *http.Request) {
	tr, err := s.store.GetTranscript(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tr == nil {
		jsonError(w, "transcript not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(tr.Payload)
}

func (s *Server) resumeRun(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Resume(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	jsonResponse(w, map[string]string{"status": "resumed"})
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Cancel(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	jsonResponse(w, map[string]string{"status": "cancelling"})
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	models := s.registry.List()
	out := make([]map[string]any, 0, len(models))
	for _, m := range models {
		out = append(out, map[string]any{
			"id":               m.ID,
			"displayName":      m.DisplayName,
			"provider":         m.Provider(),
			"strengths":        m.Strengths,
			"costTier":         m.CostTier,
			"relativeLatency":  m.RelativeLatency,
			"maxContextTokens": m.MaxContextTokens,
			"available":        s.pool.Available(m.Provider()),
		})
	}
	jsonResponse(w, out)
}

func (s *Server) listSecrets(w http.ResponseWriter, r *http.Request) {
	secrets, err := s.store.ListSecrets()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(secrets))
	for _, sec := range secrets {
		out = append(out, map[string]any{
			"id":         sec.ID,
			"created_at": sec.CreatedAt,
			"updated_at": sec.UpdatedAt,
		})
	}
	jsonResponse(w, out)
}

func (s *Server) createSecret(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Name == "" || body.Value == "" {
		jsonError(w, "name and value are required", http.StatusBadRequest)
		return
	}
	if s.vault == nil {
		jsonError(w, "vault not configured", http.StatusConflict)
		return
	}

	if err := s.vault.StoreSecret(s.store, body.Name, []byte(body.Value)); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"id": body.Name})
}

func (s *Server) deleteSecret(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSecret(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.ListScheduledRuns()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(schedules))
	for _, sr := range schedules {
		out = append(out, map[string]any{
			"id":          sr.ID,
			"name":        sr.Name,
			"schedule":    sr.Schedule,
			"display":     schedule.Format(sr.Schedule),
			"message":     sr.Message,
			"strategy":    sr.Strategy,
			"status":      sr.Status,
			"next_run_at": sr.NextRunAt,
			"last_run_at": sr.LastRunAt,
			"last_status": sr.LastStatus,
			"last_error":  sr.LastError,
		})
	}
	jsonResponse(w, out)
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Schedule string `json:"schedule"`
		Message  string `json:"message"`
		Strategy string `json:"strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Name == "" || body.Schedule == "" || body.Message == "" {
		jsonError(w, "name, schedule and message are required", http.StatusBadRequest)
		return
	}

	normalized, err := schedule.Normalize(body.Schedule)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	next := schedule.NextRun(normalized)
	if next == nil {
		jsonError(w, "schedule has no future occurrence", http.StatusBadRequest)
		return
	}

	sr := &store.ScheduledRun{
		ID:        uuid.New().String(),
		Name:      body.Name,
		Schedule:  normalized,
		Message:   body.Message,
		Strategy:  body.Strategy,
		Status:    "active",
		NextRunAt: next,
	}
	if err := s.store.SaveScheduledRun(sr); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]any{"id": sr.ID, "next_run_at": sr.NextRunAt})
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	sr, err := s.store.GetScheduledRun(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sr == nil {
		jsonError(w, "schedule not found", http.StatusNotFound)
		return
	}

	var body struct {
		Name     *string `json:"name"`
		Schedule *string `json:"schedule"`
		Message  *string `json:"message"`
		Strategy *string `json:"strategy"`
		Status   *string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if body.Name != nil {
		sr.Name = *body.Name
	}
	if body.Message != nil {
		sr.Message = *body.Message
	}
	if body.Strategy != nil {
		sr.Strategy = *body.Strategy
	}
	if body.Status != nil {
		if *body.Status != "active" && *body.Status != "paused" {
			jsonError(w, "status must be 'active' or 'paused'", http.StatusBadRequest)
			return
		}
		sr.Status = *body.Status
	}
	if body.Schedule != nil {
		normalized, err := schedule.Normalize(*body.Schedule)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		sr.Schedule = normalized
		sr.NextRunAt = schedule.NextRun(normalized)
	}

	if err := s.store.SaveScheduledRun(sr); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "saved"})
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteScheduledRun(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	providers := s.pool.AvailableProviders()
	if providers == nil {
		providers = []string{}
	}

	jsonResponse(w, map[string]any{
		"version":             s.version,
		"uptime":              formatUptime(time.Since(s.startedAt)),
		"models":              s.registry.Len(),
		"available_providers": providers,
		"nats_connected":      s.nats != nil,
	})
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Package scheduler polls for due scheduled runs and submits them to the
// pipeline controller.
package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rao305/Syntra.ai-sub006/internal/config"
	"github.com/rao305/Syntra.ai-sub006/internal/natsbus"
	"github.com/rao305/Syntra.ai-sub006/internal/pipeline"
	"github.com/rao305/Syntra.ai-sub006/internal/schedule"
	"github.com/rao305/Syntra.ai-sub006/internal/store"
)

// Launcher starts a pipeline run. Satisfied by pipeline.Controller.
type Launcher interface {
	Start(req pipeline.RunRequest) (*pipeline.Run, error)
}

type Scheduler struct {
	store        *store.Store
	launcher     Launcher
	natsClient   *natsbus.Client
	pollInterval time.Duration
	reloadCh     chan struct{}
}

func New(s *store.Store, launcher Launcher, client *natsbus.Client, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		store:        s,
		launcher:     launcher,
		natsClient:   client,
		pollInterval: cfg.PollInterval,
		reloadCh:     make(chan struct{}, 1),
	}
}

// UpdateConfig changes the poll interval and signals the run loop to reset
// its ticker.
func (s *Scheduler) UpdateConfig(pollInterval time.Duration) {
	s.pollInterval = pollInterval
	select {
	case s.reloadCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if s.pollInterval == 0 {
		s.pollInterval = 30 * time.Second
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	slog.Info("scheduler started", "poll_interval", s.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-s.reloadCh:
			ticker.Reset(s.pollInterval)
			slog.Info("scheduler config reloaded", "poll_interval", s.pollInterval)
		case <-ticker.C:
			s.poll()
		}
	}
}

func (s *Scheduler) poll() {
	due, err := s.store.GetDueScheduledRuns(time.Now())
	if err != nil {
		slog.Error("failed to get due scheduled runs", "error", err)
		return
	}

	for _, sr := range due {
		s.execute(sr)
	}
}

func (s *Scheduler) execute(sr store.ScheduledRun) {
	slog.Info("launching scheduled run", "id", sr.ID, "name", sr.Name)

	run, err := s.launcher.Start(pipeline.RunRequest{
		Message:  sr.Message,
		Strategy: sr.Strategy,
		Mode:     "auto", // scheduled runs never pause for approval
	})

	var lastStatus, lastError, runID string
	if err != nil {
		lastStatus = "error"
		lastError = err.Error()
		slog.Error("scheduled run launch failed", "id", sr.ID, "error", err)
	} else {
		lastStatus = "success"
		runID = run.ID
	}

	nextRun := schedule.NextRun(sr.Schedule)
	if err := s.store.MarkScheduledRunExecuted(sr.ID, lastStatus, lastError, nextRun); err != nil {
		slog.Error("failed to record scheduled run execution", "id", sr.ID, "error", err)
	}
	if nextRun == nil {
		slog.Info("no next occurrence, scheduled run completed", "id", sr.ID, "name", sr.Name)
	}

	s.publishExecutedEvent(sr, lastStatus, runID)
}

func (s *Scheduler) publishExecutedEvent(sr store.ScheduledRun, status, runID string) {
	if s.natsClient == nil {
		return
	}

	event := map[string]any{
		"type":      "schedule_executed",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data": map[string]any{
			"id":     sr.ID,
			"name":   sr.Name,
			"status": status,
			"run_id": runID,
		},
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	_ = s.natsClient.Publish(natsbus.TopicSchedulerRun(sr.ID), data)
}

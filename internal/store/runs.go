package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PipelineRun is the persisted aggregate for one collaboration request.
// Plan, results and models_used are stored as JSON blobs owned by the
// pipeline package.
type PipelineRun struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Strategy    string          `json:"strategy"`
	Message     string          `json:"message"`
	Plan        json.RawMessage `json:"plan,omitempty"`
	Results     json.RawMessage `json:"results,omitempty"`
	FinalAnswer string          `json:"final_answer,omitempty"`
	ModelsUsed  json.RawMessage `json:"models_used,omitempty"`
	Degraded    bool            `json:"degraded"`
	TotalMs     int64           `json:"total_ms"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

const runColumns = `id, status, strategy, message, plan, results, final_answer, models_used, degraded, total_ms, started_at, completed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*PipelineRun, error) {
	r := &PipelineRun{}
	var plan, results, modelsUsed, finalAnswer *string
	err := sc.Scan(&r.ID, &r.Status, &r.Strategy, &r.Message, &plan, &results,
		&finalAnswer, &modelsUsed, &r.Degraded, &r.TotalMs, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		r.Plan = json.RawMessage(*plan)
	}
	if results != nil {
		r.Results = json.RawMessage(*results)
	}
	if modelsUsed != nil {
		r.ModelsUsed = json.RawMessage(*modelsUsed)
	}
	if finalAnswer != nil {
		r.FinalAnswer = *finalAnswer
	}
	return r, nil
}

func (s *Store) SaveRun(r *PipelineRun) error {
	_, err := s.db.Exec(`
		INSERT INTO pipeline_runs (id, status, strategy, message, plan, results, final_answer, models_used, degraded, total_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			plan = excluded.plan,
			results = excluded.results,
			final_answer = excluded.final_answer,
			models_used = excluded.models_used,
			degraded = excluded.degraded,
			total_ms = excluded.total_ms,
			completed_at = CASE WHEN excluded.status IN ('complete', 'failed', 'cancelled') THEN CURRENT_TIMESTAMP ELSE completed_at END`,
		r.ID, r.Status, r.Strategy, r.Message, nullable(r.Plan), nullable(r.Results),
		r.FinalAnswer, nullable(r.ModelsUsed), r.Degraded, r.TotalMs)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *Store) UpdateRunStatus(id, status string) error {
	_, err := s.db.Exec(`
		UPDATE pipeline_runs SET status = ?,
			completed_at = CASE WHEN ? IN ('complete', 'failed', 'cancelled') THEN CURRENT_TIMESTAMP ELSE completed_at END
		WHERE id = ?`, status, status, id)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

func (s *Store) UpdateRunResults(id string, results json.RawMessage) error {
	_, err := s.db.Exec(`UPDATE pipeline_runs SET results = ? WHERE id = ?`, string(results), id)
	if err != nil {
		return fmt.Errorf("update run results: %w", err)
	}
	return nil
}

func (s *Store) GetRun(id string) (*PipelineRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM pipeline_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

func (s *Store) ListRuns(limit int) ([]PipelineRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM pipeline_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []PipelineRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func nullable(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ScheduledRun is a recurring collaboration request: the same message is
// re-submitted whenever its schedule fires.
type ScheduledRun struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Schedule   string     `json:"schedule"` // schedule JSON, see internal/schedule
	Message    string     `json:"message"`
	Strategy   string     `json:"strategy"`
	Status     string     `json:"status"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastStatus string     `json:"last_status,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

const scheduledColumns = `id, name, schedule, message, strategy, status, next_run_at, last_run_at, last_status, last_error, created_at`

func scanScheduledRun(sc scanner) (*ScheduledRun, error) {
	r := &ScheduledRun{}
	var lastStatus, lastError *string
	err := sc.Scan(&r.ID, &r.Name, &r.Schedule, &r.Message, &r.Strategy, &r.Status,
		&r.NextRunAt, &r.LastRunAt, &lastStatus, &lastError, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastStatus != nil {
		r.LastStatus = *lastStatus
	}
	if lastError != nil {
		r.LastError = *lastError
	}
	return r, nil
}

func (s *Store) SaveScheduledRun(r *ScheduledRun) error {
	_, err := s.db.Exec(`
		INSERT INTO scheduled_runs (id, name, schedule, message, strategy, status, next_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			schedule = excluded.schedule,
			message = excluded.message,
			strategy = excluded.strategy,
			status = excluded.status,
			next_run_at = excluded.next_run_at`,
		r.ID, r.Name, r.Schedule, r.Message, r.Strategy, r.Status, r.NextRunAt)
	if err != nil {
		return fmt.Errorf("save scheduled run: %w", err)
	}
	return nil
}

// GetDueScheduledRuns returns active schedules whose next run time has
// passed.
func (s *Store) GetDueScheduledRuns(now time.Time) ([]ScheduledRun, error) {
	rows, err := s.db.Query(`
		SELECT `+scheduledColumns+` FROM scheduled_runs
		WHERE status = 'active' AND next_run_at IS NOT NULL AND next_run_at <= ?`, now)
	if err != nil {
		return nil, fmt.Errorf("get due scheduled runs: %w", err)
	}
	defer rows.Close()

	var due []ScheduledRun
	for rows.Next() {
		r, err := scanScheduledRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled run: %w", err)
		}
		due = append(due, *r)
	}
	return due, rows.Err()
}

// MarkScheduledRunExecuted records the outcome of one firing and arms the
// next one. A nil nextRun deactivates the schedule.
func (s *Store) MarkScheduledRunExecuted(id, lastStatus, lastError string, nextRun *time.Time) error {
	status := "active"
	if nextRun == nil {
		status = "completed"
	}
	_, err := s.db.Exec(`
		UPDATE scheduled_runs
		SET last_run_at = CURRENT_TIMESTAMP, last_status = ?, last_error = ?, next_run_at = ?, status = ?
		WHERE id = ?`,
		lastStatus, lastError, nextRun, status, id)
	if err != nil {
		return fmt.Errorf("mark scheduled run executed: %w", err)
	}
	return nil
}

func (s *Store) GetScheduledRun(id string) (*ScheduledRun, error) {
	row := s.db.QueryRow(`SELECT `+scheduledColumns+` FROM scheduled_runs WHERE id = ?`, id)
	r, err := scanScheduledRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduled run: %w", err)
	}
	return r, nil
}

func (s *Store) ListScheduledRuns() ([]ScheduledRun, error) {
	rows, err := s.db.Query(`SELECT ` + scheduledColumns + ` FROM scheduled_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list scheduled runs: %w", err)
	}
	defer rows.Close()

	var runs []ScheduledRun
	for rows.Next() {
		r, err := scanScheduledRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func (s *Store) DeleteScheduledRun(id string) error {
	_, err := s.db.Exec(`DELETE FROM scheduled_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scheduled run: %w", err)
	}
	return nil
}

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Transcript is the completed-run record consumed by the offline quality
// evaluator. Payload is the transcript JSON produced by internal/transcript.
type Transcript struct {
	RunID     string          `json:"run_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *Store) SaveTranscript(runID string, payload json.RawMessage) error {
	_, err := s.db.Exec(`
		INSERT INTO transcripts (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET payload = excluded.payload`,
		runID, string(payload))
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

func (s *Store) GetTranscript(runID string) (*Transcript, error) {
	row := s.db.QueryRow(`SELECT run_id, payload, created_at FROM transcripts WHERE run_id = ?`, runID)
	t := &Transcript{}
	var payload string
	err := row.Scan(&t.RunID, &payload, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	t.Payload = json.RawMessage(payload)
	return t, nil
}

func (s *Store) ListTranscripts() ([]Transcript, error) {
	rows, err := s.db.Query(`SELECT run_id, payload, created_at FROM transcripts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		t := Transcript{}
		var payload string
		if err := rows.Scan(&t.RunID, &payload, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		t.Payload = json.RawMessage(payload)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Package transcript produces the run transcripts consumed by the offline
// quality evaluator, and archives them for export.
package transcript

import (
	"encoding/json"
	"fmt"

	"github.com/rao305/Syntra.ai-sub006/internal/store"
)

// RoutedStep records which model a plan step was bound to.
type RoutedStep struct {
	StepIndex    int      `json:"stepIndex"`
	Role         string   `json:"role"`
	ModelID      string   `json:"modelId"`
	FanOutModels []string `json:"fanOutModels,omitempty"`
}

// Transcript is the evaluator-facing record of one completed run.
type Transcript struct {
	RunID          string       `json:"runId"`
	Routing        []RoutedStep `json:"routing"`
	RepairAttempts int          `json:"repairAttempts"`
	FallbackUsed   bool         `json:"fallbackUsed"`
	FinalOutput    string       `json:"finalOutput"`
}

// FromRun rebuilds a transcript from a persisted run's plan and result blobs.
func FromRun(run *store.PipelineRun) (*Transcript, error) {
	if run == nil {
		return nil, fmt.Errorf("nil run")
	}

	t := &Transcript{
		RunID:        run.ID,
		FallbackUsed: run.Degraded,
		FinalOutput:  run.FinalAnswer,
	}

	if len(run.Plan) > 0 {
		var steps []RoutedStep
		if err := json.Unmarshal(run.Plan, &steps); err != nil {
			return nil, fmt.Errorf("decode plan: %w", err)
		}
		t.Routing = steps
	}

	if len(run.Results) > 0 {
		var results []struct {
			Attempts int `json:"attempts"`
		}
		if err := json.Unmarshal(run.Results, &results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
		for _, r := range results {
			if r.Attempts > 1 {
				t.RepairAttempts += r.Attempts - 1
			}
		}
	}

	return t, nil
}

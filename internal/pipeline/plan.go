package pipeline

import (
	"fmt"
	"time"

	"github.com/rao305/Syntra.ai-sub006/internal/registry"
	"github.com/rao305/Syntra.ai-sub006/internal/router"
)

// Step is one planned execution of a role bound to a specific model. For the
// fan-out creator role, FanOutModels carries all parallel assignments and
// ModelID the first of them.
type Step struct {
	Index        int           `json:"stepIndex"`
	Role         registry.Role `json:"role"`
	ModelID      string        `json:"modelId"`
	Purpose      string        `json:"purpose"`
	FanOutModels []string      `json:"fanOutModels,omitempty"`
}

// Plan is the immutable collaboration plan for one run. It does not change
// during execution even when a later step fails.
type Plan struct {
	Steps      []Step `json:"steps"`
	Degraded   bool   `json:"degraded,omitempty"`
	PlanningMs int64  `json:"planningMs"`
}

// ModelsUsed returns the distinct model ids in plan order.
func (p *Plan) ModelsUsed() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, s := range p.Steps {
		if len(s.FanOutModels) > 0 {
			for _, id := range s.FanOutModels {
				add(id)
			}
			continue
		}
		add(s.ModelID)
	}
	return out
}

// StepResult records one settled step execution. Fan-out sub-results share
// the step index and are distinguished by SubIndex. Immutable once appended.
type StepResult struct {
	Index      int           `json:"stepIndex"`
	SubIndex   int           `json:"subIndex"`
	Role       registry.Role `json:"role"`
	ModelID    string        `json:"modelId"`
	Content    string        `json:"content,omitempty"`
	DurationMs int64         `json:"executionTimeMs"`
	Success    bool          `json:"success"`
	ErrorType  string        `json:"errorType,omitempty"`
	Error      string        `json:"error,omitempty"`
	Attempts   int           `json:"attempts,omitempty"`
}

// buildPlan routes every role in pipeline order. The router is constructed
// per plan so the seeded tie-break stays local to one run.
func (c *Controller) buildPlan(message string, strat router.Strategy, seed int64) (*Plan, error) {
	started := time.Now()

	rtr := router.New(c.registry, c.pool, seed)
	feats := router.ExtractFeatures(message)
	used := make(map[string]bool)

	plan := &Plan{}
	degraded := false

	for i, role := range registry.Roles() {
		step := Step{
			Index:   i,
			Role:    role,
			Purpose: stageSpecs[role].Purpose,
		}

		if role == registry.RoleCreator {
			picks, err := rtr.SelectCreators(c.cfg.Pipeline.CreatorFanOut, strat, feats, used)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", role, err)
			}
			for _, p := range picks {
				step.FanOutModels = append(step.FanOutModels, p.Capability.ID)
				used[p.Capability.ID] = true
				degraded = degraded || p.Degraded
			}
			step.ModelID = step.FanOutModels[0]
		} else {
			sel, err := rtr.Select(role, strat, feats, used)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", role, err)
			}
			step.ModelID = sel.Capability.ID
			used[sel.Capability.ID] = true
			degraded = degraded || sel.Degraded
		}

		plan.Steps = append(plan.Steps, step)
	}

	plan.Degraded = degraded
	plan.PlanningMs = time.Since(started).Milliseconds()
	return plan, nil
}

// Package pipeline drives the staged multi-model collaboration: it builds a
// routed plan for a request, executes the role graph with fan-out for the
// creator stage, and streams lifecycle events for each run.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rao305/Syntra.ai-sub006/internal/config"
	"github.com/rao305/Syntra.ai-sub006/internal/natsbus"
	"github.com/rao305/Syntra.ai-sub006/internal/provider"
	"github.com/rao305/Syntra.ai-sub006/internal/registry"
	"github.com/rao305/Syntra.ai-sub006/internal/router"
	"github.com/rao305/Syntra.ai-sub006/internal/store"
	"github.com/rao305/Syntra.ai-sub006/internal/stream"
	"github.com/rao305/Syntra.ai-sub006/internal/transcript"
)

// Run statuses.
const (
	StatusPlanning         = "planning"
	StatusExecuting        = "executing"
	StatusAwaitingApproval = "awaiting_approval"
	StatusComplete         = "complete"
	StatusFailed           = "failed"
	StatusCancelled        = "cancelled"
)

const previewLimit = 150

// RunRequest starts one collaboration run.
type RunRequest struct {
	Message  string `json:"message"`
	Strategy string `json:"strategy,omitempty"`
	// Mode overrides the configured pipeline mode ("auto" or "manual").
	Mode string `json:"mode,omitempty"`
}

// Run is the live aggregate for one request: the immutable plan plus the
// results appended as steps settle.
type Run struct {
	ID        string
	Strategy  string
	Message   string
	Mode      string
	Plan      *Plan
	StartedAt time.Time

	emitter   *stream.Emitter
	cancel    context.CancelFunc
	approveCh chan struct{}

	mu          sync.RWMutex
	status      string
	results     []StepResult
	finalAnswer string
	totalMs     int64
	finishedAt  time.Time
}

// Events returns the run's ordered event sequence. The channel closes after
// the done event.
func (r *Run) Events() <-chan stream.Event {
	return r.emitter.Events()
}

func (r *Run) Status() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Run) FinalAnswer() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finalAnswer
}

func (r *Run) TotalMs() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalMs
}

// Results returns a copy of the settled step results so far.
func (r *Run) Results() []StepResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StepResult, len(r.results))
	copy(out, r.results)
	return out
}

// terminalSince reports when the run reached a terminal status.
func (r *Run) terminalSince() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch r.status {
	case StatusComplete, StatusFailed, StatusCancelled:
		return r.finishedAt, true
	}
	return time.Time{}, false
}

func (r *Run) setStatus(s string) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

func (r *Run) appendResults(results ...StepResult) {
	r.mu.Lock()
	r.results = append(r.results, results...)
	r.mu.Unlock()
}

// stepFailure is a step's fatal settlement, carried up to the run loop.
type stepFailure struct {
	stageID string
	modelID string
	errType provider.ErrorType
	message string
}

func (f *stepFailure) Error() string {
	return fmt.Sprintf("step %s failed (%s, model %s): %s", f.stageID, f.errType, f.modelID, f.message)
}

// Controller owns all live runs. Safe for concurrent use; runs share no
// mutable state with each other.
type Controller struct {
	cfg      *config.Config
	registry *registry.Registry
	pool     *provider.Pool
	store    *store.Store
	pub      stream.Publisher
	retry    provider.RetryConfig

	mu         sync.RWMutex
	runs       map[string]*Run
	onTerminal []func(*Run)
}

// New builds a controller. pub may be nil for local-only runs; st may be nil
// to skip persistence (tests).
func New(cfg *config.Config, reg *registry.Registry, pool *provider.Pool, st *store.Store, pub stream.Publisher) *Controller {
	return &Controller{
		cfg:      cfg,
		registry: reg,
		pool:     pool,
		store:    st,
		pub:      pub,
		retry:    provider.DefaultRetry(),
		runs:     make(map[string]*Run),
	}
}

// OnTerminal registers a listener invoked after a run reaches a terminal
// status and its done event has been emitted.
func (c *Controller) OnTerminal(fn func(*Run)) {
	c.mu.Lock()
	c.onTerminal = append(c.onTerminal, fn)
	c.mu.Unlock()
}

func (c *Controller) seed() int64 {
	if c.cfg.Pipeline.Seed != 0 {
		return c.cfg.Pipeline.Seed
	}
	return time.Now().UnixNano()
}

// Plan builds a collaboration plan without executing it.
func (c *Controller) Plan(message, strategy string) (*Plan, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("empty message")
	}
	return c.buildPlan(message, router.ParseStrategy(strategy), c.seed())
}

// Start plans and launches a run. The run executes on its own goroutine so
// it outlives the originating HTTP request; progress is observable through
// Events and the run's NATS topic.
func (c *Controller) Start(req RunRequest) (*Run, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("empty message")
	}

	strat := router.ParseStrategy(req.Strategy)
	plan, err := c.buildPlan(req.Message, strat, c.seed())
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}

	mode := req.Mode
	if mode == "" {
		mode = c.cfg.Pipeline.Mode
	}
	mode = parseMode(mode)

	id := uuid.New().String()
	run := &Run{
		ID:        id,
		Strategy:  string(strat),
		Message:   req.Message,
		Mode:      mode,
		Plan:      plan,
		StartedAt: time.Now(),
		emitter:   stream.NewEmitter(id, natsbus.TopicRunEvents(id), c.pub),
		approveCh: make(chan struct{}, 1),
		status:    StatusExecuting,
	}

	ctx, cancel := context.WithCancel(context.Background())
	run.cancel = cancel

	c.mu.Lock()
	c.runs[id] = run
	c.mu.Unlock()

	c.persist(run)

	slog.Info("run started", "run", id, "strategy", strat, "mode", mode, "steps", len(plan.Steps))
	go func() {
		if c.cfg.Pipeline.RunTimeout > 0 {
			tctx, tcancel := context.WithTimeout(ctx, c.cfg.Pipeline.RunTimeout)
			defer tcancel()
			c.execute(tctx, run)
			return
		}
		c.execute(ctx, run)
	}()

	return run, nil
}

// StartReaper evicts terminal runs from the live map once their retention
// window passes. Completed run history stays readable through the store.
func (c *Controller) StartReaper(ctx context.Context) {
	if c.cfg.Pipeline.RetainTerminal == 0 {
		return
	}

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reapTerminal(time.Now())
		}
	}
}

func (c *Controller) reapTerminal(now time.Time) {
	retain := c.cfg.Pipeline.RetainTerminal

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, run := range c.runs {
		finished, terminal := run.terminalSince()
		if terminal && now.Sub(finished) >= retain {
			delete(c.runs, id)
			slog.Info("evicted terminal run", "run", id, "status", run.Status())
		}
	}
}

// parseMode normalizes a pipeline mode string, defaulting to auto.
func parseMode(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "manual") {
		return "manual"
	}
	return "auto"
}

// Get returns a live run by id.
func (c *Controller) Get(id string) (*Run, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	run, ok := c.runs[id]
	return run, ok
}

// Resume advances a run paused in awaiting_approval.
func (c *Controller) Resume(id string) error {
	run, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	if run.Status() != StatusAwaitingApproval {
		return fmt.Errorf("run %s is not awaiting approval", id)
	}
	select {
	case run.approveCh <- struct{}{}:
	default:
	}
	return nil
}

// Cancel stops an in-flight run. Propagates to all in-flight provider calls
// for the current step; the run records a cancelled terminal status.
func (c *Controller) Cancel(id string) error {
	run, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	switch run.Status() {
	case StatusComplete, StatusFailed, StatusCancelled:
		return fmt.Errorf("run %s already terminal", id)
	}
	run.cancel()
	return nil
}

func (c *Controller) execute(ctx context.Context, run *Run) {
	for i, step := range run.Plan.Steps {
		if ctx.Err() != nil {
			c.finishInterrupted(ctx, run, step)
			return
		}
		if unmet := c.unmetDependency(run, step.Role); unmet != "" {
			// Unreachable when the loop stops on first failure, kept as a
			// hard guard on the ordering invariant.
			c.fail(run, &stepFailure{
				stageID: string(step.Role),
				errType: provider.ErrorUnknown,
				message: fmt.Sprintf("dependency %s has no successful result", unmet),
			})
			return
		}

		if err := c.executeStep(ctx, run, step); err != nil {
			if ctx.Err() != nil {
				c.finishInterrupted(ctx, run, step)
				return
			}
			var sf *stepFailure
			if errors.As(err, &sf) {
				c.fail(run, sf)
			} else {
				c.fail(run, &stepFailure{
					stageID: string(step.Role),
					modelID: step.ModelID,
					errType: provider.ErrorUnknown,
					message: err.Error(),
				})
			}
			return
		}

		if run.Mode == "manual" && step.Role != registry.RoleSynthesizer && step.Role != registry.RoleCreator {
			run.setStatus(StatusAwaitingApproval)
			c.persist(run)
			select {
			case <-run.approveCh:
				run.setStatus(StatusExecuting)
				c.persist(run)
			case <-ctx.Done():
				// The current step already succeeded; a timeout here belongs
				// to the stage that never got to start.
				next := step
				if i+1 < len(run.Plan.Steps) {
					next = run.Plan.Steps[i+1]
				}
				c.finishInterrupted(ctx, run, next)
				return
			}
		}
	}

	c.finish(run, StatusComplete)
}

// finishInterrupted settles a run whose context ended mid-step: cancellation
// suppresses further stage events, a run-level deadline surfaces as a
// timeout error.
func (c *Controller) finishInterrupted(ctx context.Context, run *Run, step Step) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.fail(run, &stepFailure{
			stageID: string(step.Role),
			modelID: step.ModelID,
			errType: provider.ErrorTimeout,
			message: "run timed out",
		})
		return
	}
	run.emitter.Suppress()
	c.finish(run, StatusCancelled)
}

func (c *Controller) fail(run *Run, sf *stepFailure) {
	slog.Warn("run failed", "run", run.ID, "stage", sf.stageID, "model", sf.modelID, "type", sf.errType)
	run.emitter.Error(sf.stageID, sf.modelID, string(sf.errType), sf.message)
	c.finish(run, StatusFailed)
}

func (c *Controller) finish(run *Run, status string) {
	run.mu.Lock()
	run.status = status
	run.totalMs = time.Since(run.StartedAt).Milliseconds()
	run.finishedAt = time.Now()
	run.mu.Unlock()

	c.persist(run)
	if status == StatusComplete {
		c.saveTranscript(run)
	}
	run.emitter.Done()

	slog.Info("run finished", "run", run.ID, "status", status, "total_ms", run.TotalMs())

	c.mu.RLock()
	listeners := make([]func(*Run), len(c.onTerminal))
	copy(listeners, c.onTerminal)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(run)
	}
}

// unmetDependency returns the first dependency role lacking a successful
// result, or empty when the step may start.
func (c *Controller) unmetDependency(run *Run, role registry.Role) string {
	results := run.Results()
	for _, dep := range Dependencies(role) {
		ok := false
		for _, r := range results {
			if r.Role == dep && r.Success {
				ok = true
				break
			}
		}
		if !ok {
			return string(dep)
		}
	}
	return ""
}

func (c *Controller) executeStep(ctx context.Context, run *Run, step Step) error {
	switch step.Role {
	case registry.RoleCreator:
		return c.executeFanOut(ctx, run, step)
	case registry.RoleCouncil:
		return c.executeCouncil(ctx, run, step)
	default:
		return c.executeSequential(ctx, run, step)
	}
}

func (c *Controller) executeSequential(ctx context.Context, run *Run, step Step) error {
	stageID := string(step.Role)
	run.emitter.StageStart(stageID, Label(step.Role), step.ModelID)
	started := time.Now()

	payload := buildPayload(run.Message, run.Results(), step.Role)
	content, attempts, err := c.callModel(ctx, step.ModelID, stageSpecs[step.Role].System, payload, false, c.stepTimeout(step.Role))
	duration := time.Since(started).Milliseconds()

	result := StepResult{
		Index:      step.Index,
		Role:       step.Role,
		ModelID:    step.ModelID,
		DurationMs: duration,
		Attempts:   attempts,
	}
	if err != nil {
		result.ErrorType = string(provider.TypeOf(err))
		result.Error = err.Error()
		run.appendResults(result)
		c.persistResults(run)
		return &stepFailure{
			stageID: stageID,
			modelID: step.ModelID,
			errType: provider.TypeOf(err),
			message: err.Error(),
		}
	}

	result.Content = content
	result.Success = true
	run.appendResults(result)
	c.persistResults(run)

	run.emitter.StageEnd(stageID, preview(content), duration)

	if step.Role == registry.RoleSynthesizer {
		run.mu.Lock()
		run.finalAnswer = content
		run.mu.Unlock()
		run.emitter.FinalAnswerStart()
		for _, chunk := range chunkText(content, 512) {
			run.emitter.FinalAnswerDelta(chunk)
		}
		run.emitter.FinalAnswerEnd(content)
	}
	return nil
}

// executeFanOut invokes all assigned creator models concurrently and joins
// them. All sub-results are appended in completion order before the next
// step starts; at least one success is required to continue.
func (c *Controller) executeFanOut(ctx context.Context, run *Run, step Step) error {
	stageID := string(step.Role)
	run.emitter.StageStart(stageID, Label(step.Role), strings.Join(step.FanOutModels, ","))
	started := time.Now()

	payload := buildPayload(run.Message, run.Results(), step.Role)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled []StepResult
	)
	for sub, modelID := range step.FanOutModels {
		wg.Add(1)
		go func(sub int, modelID string) {
			defer wg.Done()
			callStart := time.Now()
			content, attempts, err := c.callModel(ctx, modelID, stageSpecs[step.Role].System, payload, false, c.stepTimeout(step.Role))

			r := StepResult{
				Index:      step.Index,
				SubIndex:   sub,
				Role:       step.Role,
				ModelID:    modelID,
				DurationMs: time.Since(callStart).Milliseconds(),
				Attempts:   attempts,
			}
			if err != nil {
				r.ErrorType = string(provider.TypeOf(err))
				r.Error = err.Error()
				slog.Warn("creator draft failed", "run", run.ID, "model", modelID, "type", r.ErrorType)
			} else {
				r.Content = content
				r.Success = true
			}

			mu.Lock()
			settled = append(settled, r)
			mu.Unlock()
		}(sub, modelID)
	}
	wg.Wait()

	run.appendResults(settled...)
	c.persistResults(run)

	if ctx.Err() != nil {
		return ctx.Err()
	}

	succeeded := 0
	var lastErrType provider.ErrorType
	var lastErr, lastModel string
	for _, r := range settled {
		if r.Success {
			succeeded++
		} else {
			lastErrType = provider.ErrorType(r.ErrorType)
			lastErr = r.Error
			lastModel = r.ModelID
		}
	}
	if succeeded == 0 {
		return &stepFailure{
			stageID: stageID,
			modelID: lastModel,
			errType: lastErrType,
			message: fmt.Sprintf("all %d drafts failed: %s", len(settled), lastErr),
		}
	}

	run.emitter.StageEnd(stageID,
		fmt.Sprintf("%d of %d drafts completed", succeeded, len(settled)),
		time.Since(started).Milliseconds())
	return nil
}

// councilVerdict is the JSON shape each council review must produce.
type councilVerdict struct {
	Stance   string `json:"stance"`
	Critique string `json:"critique"`
}

// executeCouncil reviews every surviving creator draft independently with
// one JSON-mode call each, emitting council_progress after each review. The
// step fails only when every review fails.
func (c *Controller) executeCouncil(ctx context.Context, run *Run, step Step) error {
	stageID := string(step.Role)
	run.emitter.StageStart(stageID, Label(step.Role), step.ModelID)
	started := time.Now()

	var drafts []StepResult
	for _, r := range run.Results() {
		if r.Role == registry.RoleCreator && r.Success {
			drafts = append(drafts, r)
		}
	}

	stances := map[string]int{"agree": 0, "mixed": 0, "disagree": 0}
	var verdicts []string
	reviewed := 0
	attempts := 0
	var lastErr error

	for i, draft := range drafts {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		payload := fmt.Sprintf("## Original Request\n\n%s\n\n## Draft %d (%s)\n\n%s",
			run.Message, i+1, draft.ModelID, draft.Content)
		content, a, err := c.callModel(ctx, step.ModelID, stageSpecs[step.Role].System, payload, true, c.stepTimeout(step.Role))
		attempts += a
		if err != nil {
			lastErr = err
			run.emitter.CouncilProgress(reviewed, len(drafts), stances)
			continue
		}

		var v councilVerdict
		if jsonErr := json.Unmarshal([]byte(content), &v); jsonErr != nil || !validStance(v.Stance) {
			// Unparseable review still counts; a middling stance keeps the
			// tally honest without inventing a verdict.
			v = councilVerdict{Stance: "mixed", Critique: content}
		}
		stances[v.Stance]++
		reviewed++
		verdicts = append(verdicts, fmt.Sprintf("Draft %d (%s): %s — %s", i+1, draft.ModelID, v.Stance, v.Critique))
		run.emitter.CouncilProgress(reviewed, len(drafts), stances)
	}

	duration := time.Since(started).Milliseconds()
	result := StepResult{
		Index:      step.Index,
		Role:       step.Role,
		ModelID:    step.ModelID,
		DurationMs: duration,
		Attempts:   attempts,
	}

	if reviewed == 0 {
		errType := provider.ErrorUnknown
		msg := "no drafts to review"
		if lastErr != nil {
			errType = provider.TypeOf(lastErr)
			msg = lastErr.Error()
		}
		result.ErrorType = string(errType)
		result.Error = msg
		run.appendResults(result)
		c.persistResults(run)
		return &stepFailure{stageID: stageID, modelID: step.ModelID, errType: errType, message: msg}
	}

	content := fmt.Sprintf("Council verdict (%d/%d drafts reviewed; agree=%d mixed=%d disagree=%d):\n%s",
		reviewed, len(drafts), stances["agree"], stances["mixed"], stances["disagree"],
		strings.Join(verdicts, "\n"))
	result.Content = content
	result.Success = true
	run.appendResults(result)
	c.persistResults(run)

	run.emitter.StageEnd(stageID, preview(content), duration)
	return nil
}

func validStance(s string) bool {
	return s == "agree" || s == "mixed" || s == "disagree"
}

func (c *Controller) stepTimeout(role registry.Role) time.Duration {
	// Research and synthesis read long contexts; give them the longer timeout.
	if role == registry.RoleResearcher || role == registry.RoleSynthesizer {
		return c.cfg.Pipeline.ResearchTimeout
	}
	return c.cfg.Pipeline.StepTimeout
}

func (c *Controller) callModel(ctx context.Context, modelID, system, payload string, jsonMode bool, timeout time.Duration) (string, int, error) {
	m, ok := c.registry.Get(modelID)
	if !ok {
		return "", 0, &provider.CallError{
			Type: provider.ErrorConfig, Provider: "registry", Model: modelID,
			Err: fmt.Errorf("model not in registry"),
		}
	}
	caller, ok := c.pool.For(m.Provider())
	if !ok {
		return "", 0, &provider.CallError{
			Type: provider.ErrorConfig, Provider: m.Provider(), Model: modelID,
			Err: fmt.Errorf("no adapter for provider"),
		}
	}

	cctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return provider.CallWithRetry(cctx, caller, provider.Request{
		Model:        m.ModelName(),
		SystemPrompt: system,
		Payload:      payload,
		MaxTokens:    c.cfg.Pipeline.MaxTokens,
		Temperature:  c.cfg.Pipeline.Temperature,
		JSONMode:     jsonMode,
	}, c.retry)
}

// buildPayload assembles a step's context bundle: the original request plus
// the content of every successful prior result from the step's dependency
// roles, in step order.
func buildPayload(message string, results []StepResult, role registry.Role) string {
	var sb strings.Builder
	sb.WriteString("## Original Request\n\n")
	sb.WriteString(message)

	deps := make(map[registry.Role]bool)
	for _, d := range Dependencies(role) {
		deps[d] = true
	}

	draftNum := 0
	for _, r := range results {
		if !r.Success || !deps[r.Role] {
			continue
		}
		if r.Role == registry.RoleCreator {
			draftNum++
			fmt.Fprintf(&sb, "\n\n## Draft %d (%s)\n\n%s", draftNum, r.ModelID, r.Content)
			continue
		}
		fmt.Fprintf(&sb, "\n\n## %s Output (%s)\n\n%s", Label(r.Role), r.ModelID, r.Content)
	}
	return sb.String()
}

func (c *Controller) persist(run *Run) {
	if c.store == nil {
		return
	}
	planJSON, _ := json.Marshal(run.Plan.Steps)
	resultsJSON, _ := json.Marshal(run.Results())
	modelsJSON, _ := json.Marshal(run.Plan.ModelsUsed())
	err := c.store.SaveRun(&store.PipelineRun{
		ID:          run.ID,
		Status:      run.Status(),
		Strategy:    run.Strategy,
		Message:     run.Message,
		Plan:        planJSON,
		Results:     resultsJSON,
		FinalAnswer: run.FinalAnswer(),
		ModelsUsed:  modelsJSON,
		Degraded:    run.Plan.Degraded,
		TotalMs:     run.TotalMs(),
		StartedAt:   run.StartedAt,
	})
	if err != nil {
		slog.Error("persist run failed", "run", run.ID, "error", err)
	}
}

func (c *Controller) persistResults(run *Run) {
	if c.store == nil {
		return
	}
	resultsJSON, _ := json.Marshal(run.Results())
	if err := c.store.UpdateRunResults(run.ID, resultsJSON); err != nil {
		slog.Error("persist results failed", "run", run.ID, "error", err)
	}
}

func (c *Controller) saveTranscript(run *Run) {
	if c.store == nil {
		return
	}

	t := transcript.Transcript{
		RunID:        run.ID,
		FallbackUsed: run.Plan.Degraded,
		FinalOutput:  run.FinalAnswer(),
	}
	for _, s := range run.Plan.Steps {
		t.Routing = append(t.Routing, transcript.RoutedStep{
			StepIndex:    s.Index,
			Role:         string(s.Role),
			ModelID:      s.ModelID,
			FanOutModels: s.FanOutModels,
		})
	}
	for _, r := range run.Results() {
		if r.Attempts > 1 {
			t.RepairAttempts += r.Attempts - 1
		}
	}

	payload, err := json.Marshal(t)
	if err != nil {
		slog.Error("marshal transcript failed", "run", run.ID, "error", err)
		return
	}
	if err := c.store.SaveTranscript(run.ID, payload); err != nil {
		slog.Error("save transcript failed", "run", run.ID, "error", err)
	}
}

// runeCut returns the largest index <= max that does not split a rune.
func runeCut(s string, max int) int {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return max
	}
	return cut
}

func preview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:runeCut(s, previewLimit)] + "..."
}

func chunkText(s string, size int) []string {
	if s == "" {
		return nil
	}
	var out []string
	for len(s) > size {
		cut := runeCut(s, size)
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return append(out, s)
}

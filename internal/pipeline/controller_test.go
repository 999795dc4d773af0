package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rao305/Syntra.ai-sub006/internal/config"
	"github.com/rao305/Syntra.ai-sub006/internal/provider"
	"github.com/rao305/Syntra.ai-sub006/internal/registry"
	"github.com/rao305/Syntra.ai-sub006/internal/store"
	"github.com/rao305/Syntra.ai-sub006/internal/stream"
)

type fakeCaller struct {
	name      string
	available bool
	fn        func(ctx context.Context, req provider.Request) (string, error)
}

func (f *fakeCaller) Call(ctx context.Context, req provider.Request) (string, error) {
	return f.fn(ctx, req)
}

func (f *fakeCaller) Name() string    { return f.name }
func (f *fakeCaller) Available() bool { return f.available }

func answering(name string) *fakeCaller {
	return &fakeCaller{name: name, available: true, fn: func(_ context.Context, req provider.Request) (string, error) {
		if req.JSONMode {
			return `{"stance":"agree","critique":"solid reasoning"}`, nil
		}
		return "output from " + name + " for " + req.Model, nil
	}}
}

func allStrengths(v float64) map[registry.Role]float64 {
	m := make(map[registry.Role]float64)
	for _, r := range registry.Roles() {
		m[r] = v
	}
	return m
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Capability{
		{ID: "anthropic:sonnet", DisplayName: "Sonnet", Strengths: allStrengths(0.9), CostTier: "high", RelativeLatency: 0.6, MaxContextTokens: 200000},
		{ID: "openai:gpt-4o", DisplayName: "GPT-4o", Strengths: allStrengths(0.85), CostTier: "high", RelativeLatency: 0.5, MaxContextTokens: 128000},
		{ID: "groq:llama", DisplayName: "Llama", Strengths: allStrengths(0.7), CostTier: "low", RelativeLatency: 0.1, MaxContextTokens: 32000},
		{ID: "xai:grok", DisplayName: "Grok", Strengths: allStrengths(0.75), CostTier: "medium", RelativeLatency: 0.4, MaxContextTokens: 131072},
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			Mode:            "auto",
			CreatorFanOut:   3,
			StepTimeout:     2 * time.Second,
			ResearchTimeout: 2 * time.Second,
			RunTimeout:      10 * time.Second,
			MaxTokens:       256,
			Temperature:     0.2,
			Seed:            42,
		},
	}
}

func newTestController(t *testing.T, callers ...provider.Caller) *Controller {
	t.Helper()
	if len(callers) == 0 {
		callers = []provider.Caller{
			answering("anthropic"), answering("openai"), answering("groq"), answering("xai"),
		}
	}
	return New(testConfig(), testRegistry(t), provider.NewPoolWithCallers(callers...), nil, nil)
}

func collectEvents(t *testing.T, run *Run) []stream.Event {
	t.Helper()
	var events []stream.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-run.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d so far", len(events))
		}
	}
}

func countType(events []stream.Event, typ stream.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func indexOf(events []stream.Event, match func(stream.Event) bool) int {
	for i, ev := range events {
		if match(ev) {
			return i
		}
	}
	return -1
}

func TestRunCompletes(t *testing.T) {
	c := newTestController(t)

	run, err := c.Start(RunRequest{Message: "Compare NVIDIA GPUs and Google TPUs", Strategy: "auto"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}

	if len(run.Plan.Steps) != 6 {
		t.Fatalf("expected 6 plan steps, got %d", len(run.Plan.Steps))
	}
	creatorStep := run.Plan.Steps[2]
	if creatorStep.Role != registry.RoleCreator || len(creatorStep.FanOutModels) != 3 {
		t.Fatalf("expected creator fan-out of 3, got %+v", creatorStep)
	}

	events := collectEvents(t, run)

	if run.Status() != StatusComplete {
		t.Fatalf("expected complete, got %s", run.Status())
	}
	if run.FinalAnswer() == "" {
		t.Error("expected a final answer")
	}

	if events[len(events)-1].Type != stream.EventDone {
		t.Errorf("last event must be done, got %s", events[len(events)-1].Type)
	}
	if countType(events, stream.EventDone) != 1 {
		t.Error("done must appear exactly once")
	}
	if starts, ends := countType(events, stream.EventStageStart), countType(events, stream.EventStageEnd); starts != 6 || ends != 6 {
		t.Errorf("expected 6 stage_start and 6 stage_end, got %d/%d", starts, ends)
	}
	if countType(events, stream.EventError) != 0 {
		t.Error("unexpected error event")
	}

	// Synthesizer's stage_end must precede final_answer_start.
	synthEnd := indexOf(events, func(ev stream.Event) bool {
		return ev.Type == stream.EventStageEnd && ev.StageID == "synthesizer"
	})
	faStart := indexOf(events, func(ev stream.Event) bool {
		return ev.Type == stream.EventFinalAnswerStart
	})
	if synthEnd == -1 || faStart == -1 || synthEnd > faStart {
		t.Errorf("synthesizer stage_end (%d) must precede final_answer_start (%d)", synthEnd, faStart)
	}

	// Fan-out produced three sub-results, one per model.
	creators := 0
	for _, r := range run.Results() {
		if r.Role == registry.RoleCreator {
			creators++
			if !r.Success {
				t.Errorf("creator sub-result %d failed: %s", r.SubIndex, r.Error)
			}
		}
	}
	if creators != 3 {
		t.Errorf("expected 3 creator sub-results, got %d", creators)
	}

	// Council reviewed every draft.
	lastProgress := -1
	for _, ev := range events {
		if ev.Type == stream.EventCouncilProgress {
			if ev.Total != 3 {
				t.Errorf("expected council total 3, got %d", ev.Total)
			}
			lastProgress = ev.Completed
		}
	}
	if lastProgress != 3 {
		t.Errorf("expected final council progress 3, got %d", lastProgress)
	}
}

func TestSingleProviderStillCompletes(t *testing.T) {
	c := newTestController(t,
		&fakeCaller{name: "anthropic", available: false, fn: func(context.Context, provider.Request) (string, error) {
			return "", fmt.Errorf("not configured")
		}},
		&fakeCaller{name: "openai", available: false, fn: func(context.Context, provider.Request) (string, error) {
			return "", fmt.Errorf("not configured")
		}},
		answering("groq"),
		&fakeCaller{name: "xai", available: false, fn: func(context.Context, provider.Request) (string, error) {
			return "", fmt.Errorf("not configured")
		}},
	)

	run, err := c.Start(RunRequest{Message: "explain quicksort"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}

	for _, step := range run.Plan.Steps {
		if step.ModelID != "groq:llama" {
			t.Errorf("step %s routed to %s, expected the only available model", step.Role, step.ModelID)
		}
	}

	collectEvents(t, run)
	if run.Status() != StatusComplete {
		t.Fatalf("expected complete, got %s", run.Status())
	}
}

func TestAllProvidersDownDegradesPlan(t *testing.T) {
	down := func(name string) *fakeCaller {
		return &fakeCaller{name: name, available: false, fn: func(_ context.Context, req provider.Request) (string, error) {
			if req.JSONMode {
				return `{"stance":"mixed","critique":"ok"}`, nil
			}
			return "degraded output", nil
		}}
	}
	c := newTestController(t, down("anthropic"), down("openai"), down("groq"), down("xai"))

	run, err := c.Start(RunRequest{Message: "explain quicksort"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if !run.Plan.Degraded {
		t.Error("expected plan flagged as degraded with no provider available")
	}
	collectEvents(t, run)
	if run.Status() != StatusComplete {
		t.Fatalf("expected complete, got %s", run.Status())
	}
}

func TestResearcherTimeoutFailsRun(t *testing.T) {
	hang := func(name string) *fakeCaller {
		return &fakeCaller{name: name, available: true, fn: func(ctx context.Context, req provider.Request) (string, error) {
			if strings.Contains(req.SystemPrompt, "You are the researcher") {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "ok", nil
		}}
	}
	c := newTestController(t, hang("anthropic"), hang("openai"), hang("groq"), hang("xai"))
	c.cfg.Pipeline.StepTimeout = 100 * time.Millisecond
	c.cfg.Pipeline.ResearchTimeout = 100 * time.Millisecond

	run, err := c.Start(RunRequest{Message: "explain quicksort"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	events := collectEvents(t, run)

	if run.Status() != StatusFailed {
		t.Fatalf("expected failed, got %s", run.Status())
	}

	errIdx := indexOf(events, func(ev stream.Event) bool { return ev.Type == stream.EventError })
	if errIdx == -1 {
		t.Fatal("expected an error event")
	}
	errEv := events[errIdx]
	if errEv.StageID != "researcher" || errEv.ErrorType != "timeout" {
		t.Errorf("expected error{researcher, timeout}, got {%s, %s}", errEv.StageID, errEv.ErrorType)
	}
	if events[len(events)-1].Type != stream.EventDone {
		t.Error("done must follow the error")
	}

	// No dependent stage may have started.
	for _, ev := range events {
		if ev.Type == stream.EventStageStart {
			switch ev.StageID {
			case "creator", "critic", "council", "synthesizer":
				t.Errorf("stage %s must not start after a failed dependency", ev.StageID)
			}
		}
	}

	// Mid-step failure: one more start than end.
	if starts, ends := countType(events, stream.EventStageStart), countType(events, stream.EventStageEnd); starts != ends+1 {
		t.Errorf("expected starts == ends+1 on mid-step error, got %d/%d", starts, ends)
	}
}

func TestAllCreatorDraftsFailFailsRun(t *testing.T) {
	badCreator := func(name string) *fakeCaller {
		return &fakeCaller{name: name, available: true, fn: func(_ context.Context, req provider.Request) (string, error) {
			if strings.Contains(req.SystemPrompt, "independent drafters") {
				return "", &provider.CallError{Type: provider.ErrorConfig, Provider: name, Model: req.Model, Err: fmt.Errorf("key revoked")}
			}
			return "ok", nil
		}}
	}
	c := newTestController(t, badCreator("anthropic"), badCreator("openai"), badCreator("groq"), badCreator("xai"))

	run, err := c.Start(RunRequest{Message: "explain quicksort"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	events := collectEvents(t, run)

	if run.Status() != StatusFailed {
		t.Fatalf("expected failed, got %s", run.Status())
	}
	errIdx := indexOf(events, func(ev stream.Event) bool { return ev.Type == stream.EventError })
	if errIdx == -1 {
		t.Fatal("expected an error event")
	}
	if ev := events[errIdx]; ev.StageID != "creator" || ev.ErrorType != "config" {
		t.Errorf("expected error{creator, config}, got {%s, %s}", ev.StageID, ev.ErrorType)
	}
}

func TestCancelSuppressesLaterEvents(t *testing.T) {
	started := make(chan struct{}, 1)
	blockCreator := func(name string) *fakeCaller {
		return &fakeCaller{name: name, available: true, fn: func(ctx context.Context, req provider.Request) (string, error) {
			if strings.Contains(req.SystemPrompt, "independent drafters") {
				select {
				case started <- struct{}{}:
				default:
				}
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "ok", nil
		}}
	}
	c := newTestController(t, blockCreator("anthropic"), blockCreator("openai"), blockCreator("groq"), blockCreator("xai"))

	run, err := c.Start(RunRequest{Message: "explain quicksort"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}

	var events []stream.Event
	cancelled := false
	timeout := time.After(10 * time.Second)
drain:
	for {
		select {
		case <-started:
			if !cancelled {
				cancelled = true
				if err := c.Cancel(run.ID); err != nil {
					t.Fatalf("cancel: %v", err)
				}
			}
		case ev, ok := <-run.Events():
			if !ok {
				break drain
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for cancellation")
		}
	}

	if run.Status() != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", run.Status())
	}
	if events[len(events)-1].Type != stream.EventDone {
		t.Error("done must still terminate a cancelled run")
	}
	if countType(events, stream.EventError) != 0 {
		t.Error("cancellation must not surface as an error event")
	}
	// No stage events for the interrupted step or anything after it.
	for _, ev := range events {
		if ev.Type == stream.EventStageEnd && ev.StageID == "creator" {
			t.Error("creator stage_end must be suppressed after cancel")
		}
		if ev.Type == stream.EventStageStart {
			switch ev.StageID {
			case "critic", "council", "synthesizer":
				t.Errorf("stage %s must not start after cancel", ev.StageID)
			}
		}
	}
}

func TestManualModePausesAndResumes(t *testing.T) {
	c := newTestController(t)

	run, err := c.Start(RunRequest{Message: "explain quicksort", Mode: "manual"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}

	// Approve every pause as it appears.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tick := time.NewTicker(5 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				if run.Status() == StatusAwaitingApproval {
					_ = c.Resume(run.ID)
				}
			}
		}
	}()

	collectEvents(t, run)
	if run.Status() != StatusComplete {
		t.Fatalf("expected complete, got %s", run.Status())
	}

	if err := c.Resume(run.ID); err == nil {
		t.Error("resume on a terminal run must fail")
	}
}

func TestPlanDeterministicWithSeed(t *testing.T) {
	c := newTestController(t)

	first, err := c.Plan("Compare NVIDIA GPUs and Google TPUs", "auto")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := c.Plan("Compare NVIDIA GPUs and Google TPUs", "auto")
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		for j := range first.Steps {
			if first.Steps[j].ModelID != next.Steps[j].ModelID {
				t.Fatalf("plan not deterministic at step %d: %s vs %s", j, first.Steps[j].ModelID, next.Steps[j].ModelID)
			}
		}
	}

	seen := make(map[string]bool)
	for _, id := range first.Steps[2].FanOutModels {
		if seen[id] {
			t.Errorf("duplicate creator model %s", id)
		}
		seen[id] = true
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	c := newTestController(t)
	if _, err := c.Start(RunRequest{Message: "   "}); err == nil {
		t.Error("expected error for empty message")
	}
	if _, err := c.Plan("", "auto"); err == nil {
		t.Error("expected error for empty plan message")
	}
}

func TestRunPersistedWithTranscript(t *testing.T) {
	st, err := store.New(config.StoreConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()

	c := New(testConfig(), testRegistry(t), provider.NewPoolWithCallers(
		answering("anthropic"), answering("openai"), answering("groq"), answering("xai"),
	), st, nil)

	run, err := c.Start(RunRequest{Message: "explain quicksort"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	collectEvents(t, run)

	row, err := st.GetRun(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row == nil || row.Status != StatusComplete {
		t.Fatalf("expected persisted complete run, got %+v", row)
	}
	if row.FinalAnswer == "" || len(row.Plan) == 0 || len(row.Results) == 0 {
		t.Error("persisted run missing plan, results or final answer")
	}

	tr, err := st.GetTranscript(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if tr == nil {
		t.Fatal("expected a transcript for the completed run")
	}
	if !strings.Contains(string(tr.Payload), run.ID) {
		t.Error("transcript payload missing run id")
	}
}

func TestOnTerminalListener(t *testing.T) {
	c := newTestController(t)

	got := make(chan string, 1)
	c.OnTerminal(func(r *Run) { got <- r.Status() })

	run, err := c.Start(RunRequest{Message: "explain quicksort"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	collectEvents(t, run)

	select {
	case status := <-got:
		if status != StatusComplete {
			t.Errorf("expected terminal status complete, got %s", status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("terminal listener not invoked")
	}
}

func TestTerminalRunsReaped(t *testing.T) {
	c := newTestController(t)
	c.cfg.Pipeline.RetainTerminal = 50 * time.Millisecond

	run, err := c.Start(RunRequest{Message: "explain quicksort"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	collectEvents(t, run)

	if _, ok := c.Get(run.ID); !ok {
		t.Fatal("terminal run should survive until the retention window passes")
	}

	// A run still executing is never evicted, no matter how old.
	paused, err := c.Start(RunRequest{Message: "explain mergesort", Mode: "manual"})
	if err != nil {
		t.Fatalf("start paused run: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for paused.Status() != StatusAwaitingApproval {
		select {
		case <-deadline:
			t.Fatal("run never paused")
		case <-time.After(5 * time.Millisecond):
		}
	}

	c.reapTerminal(time.Now().Add(time.Second))

	if _, ok := c.Get(run.ID); ok {
		t.Error("terminal run still retained after the retention window")
	}
	if _, ok := c.Get(paused.ID); !ok {
		t.Error("in-flight run must not be evicted")
	}

	_ = c.Cancel(paused.ID)
	collectEvents(t, paused)
}

func TestPreviewAndChunksKeepRuneBoundaries(t *testing.T) {
	s := strings.Repeat("é", 200)

	p := preview(s)
	if !utf8.ValidString(p) {
		t.Fatalf("preview split a rune: %q", p[len(p)-8:])
	}
	if !strings.HasSuffix(p, "...") {
		t.Fatal("long content should be truncated with an ellipsis")
	}

	// An odd chunk size lands every cut in the middle of a 2-byte rune.
	chunks := chunkText(s, 51)
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d split a rune", i)
		}
	}
	if strings.Join(chunks, "") != s {
		t.Fatal("chunks must reassemble to the original content")
	}
}

func TestRunTimeoutWhilePausedBlamesPendingStage(t *testing.T) {
	c := newTestController(t)
	c.cfg.Pipeline.RunTimeout = 150 * time.Millisecond

	// Manual mode with no approval: the run parks after the analyst until
	// the run-level deadline fires.
	run, err := c.Start(RunRequest{Message: "explain quicksort", Mode: "manual"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	events := collectEvents(t, run)

	if run.Status() != StatusFailed {
		t.Fatalf("expected failed, got %s", run.Status())
	}
	i := indexOf(events, func(ev stream.Event) bool { return ev.Type == stream.EventError })
	if i < 0 {
		t.Fatal("no error event emitted")
	}
	if events[i].ErrorType != "timeout" {
		t.Fatalf("error type = %q, want timeout", events[i].ErrorType)
	}
	if events[i].StageID != string(registry.RoleResearcher) {
		t.Fatalf("timeout blamed stage %q, want the pending researcher", events[i].StageID)
	}
	if events[len(events)-1].Type != stream.EventDone {
		t.Fatal("done must be the last event")
	}
}

func TestModeNormalized(t *testing.T) {
	c := newTestController(t)

	run, err := c.Start(RunRequest{Message: "explain quicksort", Mode: " Manual "})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if run.Mode != "manual" {
		t.Fatalf("mode = %q, want manual", run.Mode)
	}

	deadline := time.After(2 * time.Second)
	for run.Status() != StatusAwaitingApproval {
		select {
		case <-deadline:
			t.Fatalf("mis-cased manual mode never paused, status %s", run.Status())
		case <-time.After(5 * time.Millisecond):
		}
	}
	_ = c.Cancel(run.ID)
	collectEvents(t, run)

	auto, err := c.Start(RunRequest{Message: "explain quicksort", Mode: "turbo"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if auto.Mode != "auto" {
		t.Fatalf("mode = %q, want auto", auto.Mode)
	}
	collectEvents(t, auto)
	if auto.Status() != StatusComplete {
		t.Fatalf("unknown mode should run in auto and complete, got %s", auto.Status())
	}
}

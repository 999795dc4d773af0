package transcript

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rao305/Syntra.ai-sub006/internal/config"
	"github.com/rao305/Syntra.ai-sub006/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(config.StoreConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestFromRun(t *testing.T) {
	run := &store.PipelineRun{
		ID:          "run-1",
		Status:      "complete",
		Degraded:    true,
		FinalAnswer: "the answer",
		Plan:        json.RawMessage(`[{"stepIndex":0,"role":"analyst","modelId":"openai:gpt-4o"}]`),
		Results:     json.RawMessage(`[{"stepIndex":0,"attempts":3},{"stepIndex":1,"attempts":1}]`),
	}

	tr, err := FromRun(run)
	if err != nil {
		t.Fatalf("from run: %v", err)
	}
	if tr.RunID != "run-1" || !tr.FallbackUsed || tr.FinalOutput != "the answer" {
		t.Errorf("unexpected transcript: %+v", tr)
	}
	if len(tr.Routing) != 1 || tr.Routing[0].ModelID != "openai:gpt-4o" {
		t.Errorf("unexpected routing: %+v", tr.Routing)
	}
	if tr.RepairAttempts != 2 {
		t.Errorf("expected 2 repair attempts, got %d", tr.RepairAttempts)
	}
}

func TestFromRunNil(t *testing.T) {
	if _, err := FromRun(nil); err == nil {
		t.Error("expected error for nil run")
	}
}

func TestExportRoundTrip(t *testing.T) {
	st := newTestStore(t)

	for _, id := range []string{"run-a", "run-b"} {
		if err := st.SaveRun(&store.PipelineRun{ID: id, Status: "complete", Strategy: "auto", Message: "m"}); err != nil {
			t.Fatal(err)
		}
		payload, _ := json.Marshal(Transcript{RunID: id, FinalOutput: "answer for " + id})
		if err := st.SaveTranscript(id, payload); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	n, err := Export(st, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 exported transcripts, got %d", n)
	}

	got, err := ReadArchive(&buf)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transcripts in archive, got %d", len(got))
	}
	if got["run-a"].FinalOutput != "answer for run-a" {
		t.Errorf("unexpected payload: %+v", got["run-a"])
	}
}

func TestExportEmptyStore(t *testing.T) {
	st := newTestStore(t)

	var buf bytes.Buffer
	n, err := Export(st, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 transcripts, got %d", n)
	}

	got, err := ReadArchive(&buf)
	if err != nil {
		t.Fatalf("read empty archive: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty archive, got %d entries", len(got))
	}
}

package router

import (
	"errors"
	"testing"

	"github.com/rao305/Syntra.ai-sub006/internal/registry"
)

type staticAvail map[string]bool

func (s staticAvail) Available(provider string) bool { return s[provider] }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Capability{
		{
			ID: "anthropic:claude-sonnet-4", CostTier: "medium", RelativeLatency: 0.4,
			MaxContextTokens: 200000,
			Strengths: map[registry.Role]float64{
				registry.RoleAnalyst: 0.92, registry.RoleResearcher: 0.85,
				registry.RoleCreator: 0.90, registry.RoleCritic: 0.93,
				registry.RoleCouncil: 0.91, registry.RoleSynthesizer: 0.94,
			},
		},
		{
			ID: "openai:gpt-4o", CostTier: "medium", RelativeLatency: 0.4,
			MaxContextTokens: 128000,
			Strengths: map[registry.Role]float64{
				registry.RoleAnalyst: 0.90, registry.RoleResearcher: 0.88,
				registry.RoleCreator: 0.87, registry.RoleCritic: 0.86,
				registry.RoleCouncil: 0.88, registry.RoleSynthesizer: 0.89,
			},
		},
		{
			ID: "groq:llama-3.3-70b", CostTier: "low", RelativeLatency: 0.05,
			MaxContextTokens: 131072,
			Strengths: map[registry.Role]float64{
				registry.RoleAnalyst: 0.78, registry.RoleResearcher: 0.72,
				registry.RoleCreator: 0.80, registry.RoleCritic: 0.70,
				registry.RoleCouncil: 0.73, registry.RoleSynthesizer: 0.71,
			},
		},
		{
			ID: "xai:grok-3", CostTier: "high", RelativeLatency: 0.55,
			MaxContextTokens: 131072,
			Strengths: map[registry.Role]float64{
				registry.RoleAnalyst: 0.84, registry.RoleResearcher: 0.90,
				registry.RoleCreator: 0.83, registry.RoleCritic: 0.80,
				registry.RoleCouncil: 0.82, registry.RoleSynthesizer: 0.81,
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func allAvailable() staticAvail {
	return staticAvail{"anthropic": true, "openai": true, "groq": true, "xai": true}
}

func TestSelectDeterministicForFixedSeed(t *testing.T) {
	reg := testRegistry(t)
	feats := Features{HasCode: true}

	var first string
	for i := 0; i < 5; i++ {
		r := New(reg, allAvailable(), 42)
		sel, err := r.Select(registry.RoleAnalyst, StrategyQuality, feats, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if i == 0 {
			first = sel.Capability.ID
			continue
		}
		if sel.Capability.ID != first {
			t.Fatalf("same seed produced different picks: %q vs %q", first, sel.Capability.ID)
		}
	}
}

func TestSelectNeverFailsWithCandidates(t *testing.T) {
	reg := testRegistry(t)
	r := New(reg, allAvailable(), 1)
	for _, role := range registry.Roles() {
		if _, err := r.Select(role, StrategyBalanced, Features{}, nil); err != nil {
			t.Errorf("role %s: unexpected error: %v", role, err)
		}
	}
}

func TestSelectNoCandidates(t *testing.T) {
	reg, err := registry.New([]registry.Capability{
		{
			ID: "openai:gpt-4o", CostTier: "medium",
			Strengths: map[registry.Role]float64{registry.RoleAnalyst: 0.9},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	r := New(reg, allAvailable(), 1)
	_, err = r.Select(registry.RoleSynthesizer, StrategyAuto, Features{}, nil)
	if !errors.Is(err, ErrNoModelAvailable) {
		t.Fatalf("expected ErrNoModelAvailable, got %v", err)
	}
}

func TestSelectSoftDegradation(t *testing.T) {
	reg := testRegistry(t)
	r := New(reg, staticAvail{}, 7)

	sel, err := r.Select(registry.RoleAnalyst, StrategyQuality, Features{}, nil)
	if err != nil {
		t.Fatalf("expected degraded selection, got error: %v", err)
	}
	if !sel.Degraded {
		t.Error("expected Degraded flag when no provider is available")
	}
}

func TestSelectSingleAvailableProvider(t *testing.T) {
	reg := testRegistry(t)
	r := New(reg, staticAvail{"groq": true}, 7)

	for _, role := range registry.Roles() {
		sel, err := r.Select(role, StrategyAuto, Features{}, nil)
		if err != nil {
			t.Fatalf("role %s: %v", role, err)
		}
		if sel.Capability.Provider() != "groq" {
			t.Errorf("role %s: expected groq model, got %s", role, sel.Capability.ID)
		}
		if sel.Degraded {
			t.Errorf("role %s: one reachable provider is not a degradation", role)
		}
	}
}

func TestSelectDiversityPreference(t *testing.T) {
	reg := testRegistry(t)
	// Quality strategy: sonnet (0.92) and gpt-4o (0.90) are within tolerance
	// for analyst. With sonnet already used, the router should prefer gpt-4o.
	for seed := int64(0); seed < 10; seed++ {
		r := New(reg, allAvailable(), seed)
		used := map[string]bool{"anthropic:claude-sonnet-4": true}
		sel, err := r.Select(registry.RoleAnalyst, StrategyQuality, Features{}, used)
		if err != nil {
			t.Fatal(err)
		}
		if used[sel.Capability.ID] {
			t.Fatalf("seed %d: picked an already-used model %s despite unused peers in tolerance", seed, sel.Capability.ID)
		}
	}
}

func TestSelectCreatorsDistinct(t *testing.T) {
	reg := testRegistry(t)
	r := New(reg, allAvailable(), 3)

	picks, err := r.SelectCreators(3, StrategyAuto, Features{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(picks) != 3 {
		t.Fatalf("expected 3 creators, got %d", len(picks))
	}
	seen := map[string]bool{}
	for _, p := range picks {
		if seen[p.Capability.ID] {
			t.Fatalf("duplicate creator model %s", p.Capability.ID)
		}
		seen[p.Capability.ID] = true
	}
}

func TestSelectCreatorsFewerCandidates(t *testing.T) {
	reg, err := registry.New([]registry.Capability{
		{
			ID: "openai:gpt-4o", CostTier: "medium",
			Strengths: map[registry.Role]float64{registry.RoleCreator: 0.9},
		},
		{
			ID: "groq:llama-3.3-70b", CostTier: "low",
			Strengths: map[registry.Role]float64{registry.RoleCreator: 0.8},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	r := New(reg, allAvailable(), 3)
	picks, err := r.SelectCreators(3, StrategyAuto, Features{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(picks) != 2 {
		t.Fatalf("expected 2 creators from a 2-model catalog, got %d", len(picks))
	}
}

func TestStrategySpeedPrefersLowLatency(t *testing.T) {
	reg := testRegistry(t)
	// Count groq wins over many seeds; the latency penalty should make the
	// fast model win the creator slot most of the time.
	wins := 0
	for seed := int64(0); seed < 20; seed++ {
		r := New(reg, allAvailable(), seed)
		sel, err := r.Select(registry.RoleCreator, StrategySpeed, Features{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if sel.Capability.Provider() == "groq" {
			wins++
		}
	}
	if wins == 0 {
		t.Error("speed strategy never selected the lowest-latency model")
	}
}

func TestExtractFeatures(t *testing.T) {
	tests := []struct {
		name    string
		message string
		check   func(Features) bool
	}{
		{"code fence", "fix this:\n```go\nfunc main() {}\n```", func(f Features) bool { return f.HasCode }},
		{"math", "solve 3 + 4 = x for me", func(f Features) bool { return f.HasMath }},
		{"research", "Compare NVIDIA GPUs and Google TPUs", func(f Features) bool { return f.WantsResearch }},
		{"creative", "write a short story about otters", func(f Features) bool { return f.WantsCreative }},
		{"plain", "hello there", func(f Features) bool {
			return !f.HasCode && !f.HasMath && !f.WantsResearch && !f.WantsCreative
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(ExtractFeatures(tt.message)) {
				t.Errorf("feature check failed for %q", tt.message)
			}
		})
	}
}

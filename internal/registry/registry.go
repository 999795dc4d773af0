package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var defaultCatalog []byte

// Capability describes one backend model: identity, per-role strength
// scores, cost tier and relative latency. Loaded once at startup and never
// mutated afterwards.
type Capability struct {
	ID               string           `yaml:"id" json:"id"`
	DisplayName      string           `yaml:"display_name" json:"display_name"`
	Strengths        map[Role]float64 `yaml:"strengths" json:"strengths"`
	CostTier         string           `yaml:"cost_tier" json:"cost_tier"`
	RelativeLatency  float64          `yaml:"relative_latency" json:"relative_latency"`
	MaxContextTokens int              `yaml:"max_context_tokens" json:"max_context_tokens"`
}

// Provider returns the provider part of the capability ID ("openai:gpt-4o"
// -> "openai").
func (c Capability) Provider() string {
	if i := strings.IndexByte(c.ID, ':'); i > 0 {
		return c.ID[:i]
	}
	return c.ID
}

// ModelName returns the provider-native model identifier.
func (c Capability) ModelName() string {
	if i := strings.IndexByte(c.ID, ':'); i >= 0 {
		return c.ID[i+1:]
	}
	return c.ID
}

// Registry is the read-only model capability catalog.
type Registry struct {
	models []Capability
	byID   map[string]Capability
}

type catalogFile struct {
	Models []Capability `yaml:"models"`
}

// New builds a registry from a list of capabilities, validating IDs and
// score ranges.
func New(models []Capability) (*Registry, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("model catalog is empty")
	}

	byID := make(map[string]Capability, len(models))
	for _, m := range models {
		if m.ID == "" {
			return nil, fmt.Errorf("model with empty id in catalog")
		}
		if !strings.Contains(m.ID, ":") {
			return nil, fmt.Errorf("model id %q must be provider:model", m.ID)
		}
		if _, dup := byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		for role, score := range m.Strengths {
			if !role.Valid() {
				return nil, fmt.Errorf("model %s: unknown role %q", m.ID, role)
			}
			if score < 0 || score > 1 {
				return nil, fmt.Errorf("model %s: strength for %s out of [0,1]: %v", m.ID, role, score)
			}
		}
		if m.RelativeLatency < 0 || m.RelativeLatency > 1 {
			return nil, fmt.Errorf("model %s: relative_latency out of [0,1]: %v", m.ID, m.RelativeLatency)
		}
		switch m.CostTier {
		case "low", "medium", "high":
		default:
			return nil, fmt.Errorf("model %s: unknown cost tier %q", m.ID, m.CostTier)
		}
		byID[m.ID] = m
	}

	sorted := make([]Capability, len(models))
	copy(sorted, models)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	return &Registry{models: sorted, byID: byID}, nil
}

// Load reads the catalog from path, or the built-in catalog when path is
// empty.
func Load(path string) (*Registry, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model catalog: %w", err)
		}
		data = b
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	return New(file.Models)
}

// List returns all capabilities, sorted by ID. The returned slice is a copy.
func (r *Registry) List() []Capability {
	out := make([]Capability, len(r.models))
	copy(out, r.models)
	return out
}

// Get looks up a capability by ID.
func (r *Registry) Get(id string) (Capability, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// ForRole returns all capabilities with a positive strength score for role,
// sorted by ID.
func (r *Registry) ForRole(role Role) []Capability {
	var out []Capability
	for _, m := range r.models {
		if m.Strengths[role] > 0 {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the catalog size.
func (r *Registry) Len() int {
	return len(r.models)
}

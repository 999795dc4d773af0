// Package router scores every registered model for a pipeline role and
// picks the best candidate under the requested strategy, with availability
// and diversity constraints.
package router

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/rao305/Syntra.ai-sub006/internal/registry"
)

// Strategy weights the trade-off between quality, latency and cost.
type Strategy string

const (
	StrategyAuto     Strategy = "auto"
	StrategyQuality  Strategy = "quality"
	StrategyBalanced Strategy = "balanced"
	StrategySpeed    Strategy = "speed"
	StrategyCost     Strategy = "cost"
)

// ParseStrategy normalizes a strategy string, defaulting to auto.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyQuality, StrategyBalanced, StrategySpeed, StrategyCost:
		return Strategy(s)
	}
	return StrategyAuto
}

// ErrNoModelAvailable is returned when the registry has zero candidates for
// a role. The pipeline controller treats it as fatal for that step.
var ErrNoModelAvailable = errors.New("no model available for role")

// Availability reports whether a provider currently has credentials
// configured. Satisfied by provider.Pool.
type Availability interface {
	Available(provider string) bool
}

// Selection is one routed model choice.
type Selection struct {
	Capability registry.Capability
	Score      float64
	// Degraded is set when no provider was available and the router fell
	// back to the full candidate set rather than failing the plan.
	Degraded bool
}

// Router holds no per-run mutable state beyond its seeded tie-break source;
// construct one per plan.
type Router struct {
	reg   *registry.Registry
	avail Availability
	rng   *rand.Rand
}

// New builds a router with a seeded tie-break source so tests can pin the
// seed and assert determinism.
func New(reg *registry.Registry, avail Availability, seed int64) *Router {
	return &Router{
		reg:   reg,
		avail: avail,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

const (
	// featureBonus is added per matching context signal. Bonuses are bounded
	// so no single signal can invert a large base-score gap.
	featureBonus     = 0.06
	maxFeatureAdjust = 0.12
	// tieTolerance is the fraction of the observed score range within which
	// candidates are considered interchangeable.
	tieTolerance = 0.15
)

func costPenalty(tier string) float64 {
	switch tier {
	case "medium":
		return 0.15
	case "high":
		return 0.3
	}
	return 0
}

func (r *Router) score(c registry.Capability, role registry.Role, strat Strategy, feats Features) float64 {
	base := c.Strengths[role]

	var adjust float64
	provider := c.Provider()
	if feats.HasCode && (role == registry.RoleAnalyst || role == registry.RoleCritic) &&
		(provider == "anthropic" || provider == "openai") {
		adjust += featureBonus
	}
	if feats.HasMath && (role == registry.RoleAnalyst || role == registry.RoleSynthesizer) &&
		provider == "openai" {
		adjust += featureBonus
	}
	if feats.WantsResearch && role == registry.RoleResearcher &&
		(provider == "xai" || provider == "openai") {
		adjust += featureBonus
	}
	if feats.WantsCreative && role == registry.RoleCreator && provider == "anthropic" {
		adjust += featureBonus
	}
	if feats.LongForm && c.MaxContextTokens >= 150000 {
		adjust += featureBonus
	}
	if adjust > maxFeatureAdjust {
		adjust = maxFeatureAdjust
	}

	var penalty float64
	switch strat {
	case StrategyQuality:
		// base score only
	case StrategySpeed:
		penalty = 0.35 * c.RelativeLatency
	case StrategyCost:
		penalty = costPenalty(c.CostTier)
	default: // balanced, auto
		penalty = 0.12*c.RelativeLatency + 0.08*costPenalty(c.CostTier)
	}

	return base + adjust - penalty
}

type scored struct {
	sel   Selection
	score float64
}

// rank scores and orders the role's candidates, applying the availability
// filter with the "better degraded than blocked" fallback.
func (r *Router) rank(role registry.Role, strat Strategy, feats Features) ([]scored, bool, error) {
	cands := r.reg.ForRole(role)
	if len(cands) == 0 {
		return nil, false, ErrNoModelAvailable
	}

	available := cands[:0:0]
	for _, c := range cands {
		if r.avail == nil || r.avail.Available(c.Provider()) {
			available = append(available, c)
		}
	}
	degraded := false
	if len(available) == 0 {
		available = cands
		degraded = true
	}

	out := make([]scored, 0, len(available))
	for _, c := range available {
		out = append(out, scored{
			sel:   Selection{Capability: c, Degraded: degraded},
			score: r.score(c, role, strat, feats),
		})
	}
	// Stable base order before the seeded shuffle of the tie group.
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].sel.Capability.ID < out[j].sel.Capability.ID
	})
	for i := range out {
		out[i].sel.Score = out[i].score
	}
	return out, degraded, nil
}

// tieGroupEnd returns the count of leading candidates whose score is within
// the tolerance of the top score.
func tieGroupEnd(ranked []scored) int {
	top := ranked[0].score
	bottom := ranked[len(ranked)-1].score
	tol := tieTolerance * (top - bottom)
	end := 1
	for end < len(ranked) && top-ranked[end].score <= tol {
		end++
	}
	return end
}

// Select returns the best candidate for role under the strategy, preferring
// a model not already used elsewhere in the plan when the score gap is
// within the tie tolerance.
func (r *Router) Select(role registry.Role, strat Strategy, feats Features, used map[string]bool) (Selection, error) {
	ranked, _, err := r.rank(role, strat, feats)
	if err != nil {
		return Selection{}, err
	}

	end := tieGroupEnd(ranked)
	// Seeded shuffle of interchangeable candidates avoids a fixed
	// provider-to-role binding across runs.
	r.rng.Shuffle(end, func(i, j int) {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	})

	for i := 0; i < end; i++ {
		if !used[ranked[i].sel.Capability.ID] {
			return ranked[i].sel, nil
		}
	}
	return ranked[0].sel, nil
}

// SelectCreators returns up to k distinct models to run the fan-out creator
// stage in parallel. It returns fewer than k only when the registry has
// fewer distinct candidates.
func (r *Router) SelectCreators(k int, strat Strategy, feats Features, used map[string]bool) ([]Selection, error) {
	if k < 1 {
		k = 1
	}
	ranked, _, err := r.rank(registry.RoleCreator, strat, feats)
	if err != nil {
		return nil, err
	}

	end := tieGroupEnd(ranked)
	r.rng.Shuffle(end, func(i, j int) {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	})

	seen := make(map[string]bool, k)
	picks := make([]Selection, 0, k)

	// First pass prefers models unused elsewhere in the plan.
	for _, s := range ranked {
		if len(picks) == k {
			break
		}
		id := s.sel.Capability.ID
		if seen[id] || used[id] {
			continue
		}
		seen[id] = true
		picks = append(picks, s.sel)
	}
	// Diversity is a preference, not a hard constraint: top up with used
	// models when the catalog is small.
	for _, s := range ranked {
		if len(picks) == k {
			break
		}
		id := s.sel.Capability.ID
		if seen[id] {
			continue
		}
		seen[id] = true
		picks = append(picks, s.sel)
	}
	return picks, nil
}

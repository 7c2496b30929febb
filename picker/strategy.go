package picker

import (
	"slices"

	"gonum.org/v1/gonum/floats"

	"lottery-insight-server/analytics"
	"lottery-insight-server/apperrors"
	"lottery-insight-server/game"
)

// Built-in strategy names.
const (
	StrategyRandom   = "random"
	StrategyBalanced = "balanced"
	StrategyHot      = "hot"
	StrategyCold     = "cold"
)

// DefaultBalancedSmoothing is the extra weight the balanced strategy gives
// to numbers that are neither top-hot nor top-cold.
const DefaultBalancedSmoothing = 0.5

// Strategy turns analytics into a weight per main-pool number.
type Strategy interface {
	Name() string
	// NeedsAnalytics reports whether Weights reads res. When false the
	// caller may skip the analytics pass entirely.
	NeedsAnalytics() bool
	// Weights returns one strictly positive weight per number of the main
	// pool, indexed by n - rules.MainMin. A nil res must yield uniform
	// weights.
	Weights(rules game.Rules, res *analytics.Result) []float64
}

// Weights is a strategy's output for one request, computed once and shared
// across every line of that request.
type Weights struct {
	Strategy string
	Values   []float64
}

// BuildWeights evaluates s over the main pool of rules.
func BuildWeights(s Strategy, rules game.Rules, res *analytics.Result) Weights {
	return Weights{Strategy: s.Name(), Values: s.Weights(rules, res)}
}

// Uniform returns equal weights over the main pool of rules.
func Uniform(rules game.Rules) Weights {
	return Weights{Strategy: StrategyRandom, Values: uniform(rules.PoolSize())}
}

func uniform(n int) []float64 {
	w := make([]float64, n)
	floats.AddConst(1, w)
	return w
}

// Registry holds the available strategies by name.
type Registry struct {
	strategies map[string]Strategy
	order      []string // registration order for Names()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry returns a registry with the four built-in strategies.
func DefaultRegistry(balancedSmoothing float64) *Registry {
	r := NewRegistry()
	r.Register(RandomStrategy{})
	r.Register(BalancedStrategy{Smoothing: balancedSmoothing})
	r.Register(HotStrategy{})
	r.Register(ColdStrategy{})
	return r
}

// Register adds or replaces a strategy.
func (r *Registry) Register(s Strategy) {
	name := s.Name()
	if _, exists := r.strategies[name]; !exists {
		r.order = append(r.order, name)
	}
	r.strategies[name] = s
}

// Get looks up a strategy, returning a validation error for unknown names.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, apperrors.Validation("unsupported strategy %q", name)
	}
	return s, nil
}

// Names returns the registered strategy names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// RandomStrategy weights every number equally.
type RandomStrategy struct{}

func (RandomStrategy) Name() string         { return StrategyRandom }
func (RandomStrategy) NeedsAnalytics() bool { return false }
func (RandomStrategy) Weights(rules game.Rules, _ *analytics.Result) []float64 {
	return uniform(rules.PoolSize())
}

// BalancedStrategy favors numbers that sit in neither the top-hot nor the
// top-cold list by adding Smoothing to their base weight of 1.
type BalancedStrategy struct {
	Smoothing float64
}

func (BalancedStrategy) Name() string         { return StrategyBalanced }
func (BalancedStrategy) NeedsAnalytics() bool { return true }
func (s BalancedStrategy) Weights(rules game.Rules, res *analytics.Result) []float64 {
	w := uniform(rules.PoolSize())
	if res == nil {
		return w
	}
	extreme := make(map[int]struct{}, len(res.Main.TopHot)+len(res.Main.TopCold))
	for _, e := range res.Main.TopHot {
		extreme[e.N] = struct{}{}
	}
	for _, e := range res.Main.TopCold {
		extreme[e.N] = struct{}{}
	}
	smoothing := s.Smoothing
	if smoothing < 0 {
		smoothing = 0
	}
	for i := range w {
		if _, ok := extreme[rules.MainMin+i]; !ok {
			w[i] += smoothing
		}
	}
	return w
}

// HotStrategy weights each number by count+1 over the analytics window.
type HotStrategy struct{}

func (HotStrategy) Name() string         { return StrategyHot }
func (HotStrategy) NeedsAnalytics() bool { return true }
func (HotStrategy) Weights(rules game.Rules, res *analytics.Result) []float64 {
	w := uniform(rules.PoolSize())
	if res == nil {
		return w
	}
	for i := range w {
		if st, ok := res.Stat(rules.MainMin + i); ok {
			w[i] = float64(st.Count + 1)
		}
	}
	return w
}

// ColdStrategy weights each number by last_seen+1. Numbers never seen in
// the window get one more than the largest finite weight so they are the
// most favored.
type ColdStrategy struct{}

func (ColdStrategy) Name() string         { return StrategyCold }
func (ColdStrategy) NeedsAnalytics() bool { return true }
func (ColdStrategy) Weights(rules game.Rules, res *analytics.Result) []float64 {
	w := uniform(rules.PoolSize())
	if res == nil {
		return w
	}
	maxFinite := 0.0
	unseen := make([]int, 0)
	for i := range w {
		st, ok := res.Stat(rules.MainMin + i)
		if !ok {
			continue
		}
		if st.LastSeen == nil {
			unseen = append(unseen, i)
			continue
		}
		w[i] = float64(*st.LastSeen + 1)
		maxFinite = max(maxFinite, w[i])
	}
	for _, i := range unseen {
		w[i] = maxFinite + 1
	}
	return w
}

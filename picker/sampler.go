// Package picker draws candidate lines: strategy weights, weighted sampling
// without replacement and constraint checks.
package picker

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/sampleuv"

	"lottery-insight-server/apperrors"
	"lottery-insight-server/game"
)

// DefaultMaxAttempts bounds the rejection loop for one line.
const DefaultMaxAttempts = 200

// Meta describes how a line was produced. ScoreHint is informational only.
type Meta struct {
	Strategy  string  `json:"strategy"`
	ScoreHint float64 `json:"score_hint"`
	Relaxed   bool    `json:"relaxed,omitempty"`
}

// Line is one generated candidate. Main and Bonus are ascending.
type Line struct {
	Main  []int `json:"main"`
	Bonus []int `json:"bonus,omitempty"`
	Meta  Meta  `json:"meta"`
}

// Sampler draws lines. A Sampler owns its random source and must not be
// shared between goroutines.
type Sampler struct {
	MaxAttempts int

	src rand.Source
	rng *rand.Rand
}

// NewSampler returns a sampler reading from src. A nil src is seeded from
// the runtime's random generator.
func NewSampler(maxAttempts int, src rand.Source) *Sampler {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{MaxAttempts: maxAttempts, src: src, rng: rand.New(src)}
}

// SampleLine draws rules.MainCount distinct main numbers with probability
// proportional to w, retrying until c accepts the set or MaxAttempts runs
// out, in which case the error matches apperrors.ErrConstraintUnsatisfiable.
// Bonus numbers, when the game has them, are drawn uniformly.
//
// Rules are assumed validated and w.Values must cover the main pool.
func (s *Sampler) SampleLine(rules game.Rules, w Weights, c Constraints) (Line, error) {
	if len(w.Values) != rules.PoolSize() {
		return Line{}, apperrors.Service(fmt.Errorf("weights cover %d numbers, pool has %d", len(w.Values), rules.PoolSize()))
	}
	for attempt := 0; attempt < s.MaxAttempts; attempt++ {
		main := s.weightedPick(rules.MainMin, rules.MainCount, w.Values)
		if !c.Accepts(main) {
			continue
		}
		line := Line{
			Main: main,
			Meta: Meta{Strategy: w.Strategy, ScoreHint: scoreHint(main, rules.MainMin, w.Values)},
		}
		if rules.HasBonus() {
			line.Bonus = s.uniformPick(rules.BonusMin, rules.BonusCount, rules.BonusPoolSize())
		}
		return line, nil
	}
	return Line{}, fmt.Errorf("%w: no line satisfied %s after %d attempts", apperrors.ErrConstraintUnsatisfiable, describe(c), s.MaxAttempts)
}

// weightedPick draws k distinct numbers starting at lo. Each Take zeroes
// the chosen weight, so later draws are proportional among the rest.
func (s *Sampler) weightedPick(lo, k int, weights []float64) []int {
	ws := sampleuv.NewWeighted(weights, s.src)
	out := make([]int, 0, k)
	for len(out) < k {
		idx, ok := ws.Take()
		if !ok {
			break
		}
		out = append(out, lo+idx)
	}
	slices.Sort(out)
	return out
}

func (s *Sampler) uniformPick(lo, k, size int) []int {
	perm := s.rng.Perm(size)[:k]
	out := make([]int, k)
	for i, p := range perm {
		out[i] = lo + p
	}
	slices.Sort(out)
	return out
}

// scoreHint is the mean weight of the chosen numbers relative to the mean
// weight of the pool; 1 means no preference.
func scoreHint(main []int, lo int, weights []float64) float64 {
	chosen := make([]float64, len(main))
	for i, n := range main {
		chosen[i] = weights[n-lo]
	}
	poolMean := stat.Mean(weights, nil)
	if poolMean == 0 {
		return 0
	}
	return stat.Mean(chosen, nil) / poolMean
}

func describe(c Constraints) string {
	mode := c.OddEven
	if mode == "" {
		mode = OddEvenAny
	}
	return fmt.Sprintf("odd_even=%s avoid_runs=%t", mode, c.AvoidRuns)
}

// Package generator turns a generate request into lines: it validates the
// request, runs analytics once, and samples each line with the relaxation
// policy for unsatisfiable constraints.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"lottery-insight-server/analytics"
	"lottery-insight-server/apperrors"
	"lottery-insight-server/game"
	"lottery-insight-server/picker"
)

// DefaultMaxLines is the upper bound on n_lines per request.
const DefaultMaxLines = 50

// Request is a validated-at-entry generate call.
type Request struct {
	NLines      int
	Strategy    string
	Constraints picker.Constraints
}

// Observer receives per-line outcomes. Optional.
type Observer interface {
	LineGenerated(strategy string)
	LineRelaxed(strategy string)
	Unsatisfiable(strategy string)
}

// Options configures a Generator. Zero fields take defaults.
type Options struct {
	Registry    *picker.Registry
	TopN        int
	Window      int
	MaxLines    int
	MaxAttempts int
	Workers     int
	Observer    Observer
	// Seed makes output reproducible when set: line i draws from a PCG
	// seeded with (Seed, i).
	Seed *uint64
}

// Generator produces lines. It holds no per-request state and is safe for
// concurrent use.
type Generator struct {
	registry    *picker.Registry
	engine      analytics.Engine
	window      int
	maxLines    int
	maxAttempts int
	workers     int
	observer    Observer
	seed        *uint64
}

// New builds a Generator from opts.
func New(opts Options) *Generator {
	g := &Generator{
		registry:    opts.Registry,
		engine:      analytics.Engine{TopN: opts.TopN},
		window:      opts.Window,
		maxLines:    opts.MaxLines,
		maxAttempts: opts.MaxAttempts,
		workers:     opts.Workers,
		observer:    opts.Observer,
		seed:        opts.Seed,
	}
	if g.registry == nil {
		g.registry = picker.DefaultRegistry(picker.DefaultBalancedSmoothing)
	}
	if g.window <= 0 {
		g.window = 150
	}
	if g.maxLines <= 0 {
		g.maxLines = DefaultMaxLines
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = picker.DefaultMaxAttempts
	}
	if g.workers <= 0 {
		g.workers = 4
	}
	return g
}

// MaxLines returns the configured n_lines bound.
func (g *Generator) MaxLines() int { return g.maxLines }

// Strategies lists the strategy names this generator accepts.
func (g *Generator) Strategies() []string { return g.registry.Names() }

// Generate returns req.NLines lines for a game with the given rules and
// history (most-recent-first). All lines share one analytics snapshot.
// Lines are independent; duplicates across the result are allowed.
func (g *Generator) Generate(ctx context.Context, rules game.Rules, draws []game.Draw, req Request) ([]picker.Line, error) {
	if req.NLines < 1 || req.NLines > g.maxLines {
		return nil, apperrors.Validation("n_lines must be between 1 and %d", g.maxLines)
	}
	strategy, err := g.registry.Get(req.Strategy)
	if err != nil {
		return nil, err
	}
	if _, err := picker.ParseOddEven(string(req.Constraints.OddEven)); err != nil {
		return nil, err
	}

	var res *analytics.Result
	if strategy.NeedsAnalytics() {
		res = g.engine.Analyze(rules, draws, g.window)
	}
	weights := picker.BuildWeights(strategy, rules, res)

	lines := make([]picker.Line, req.NLines)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := range lines {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			line, err := g.sampleWithRelaxation(g.sampler(i), rules, weights, req.Constraints)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			lines[i] = line
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if errors.Is(err, apperrors.ErrConstraintUnsatisfiable) && g.observer != nil {
			g.observer.Unsatisfiable(strategy.Name())
		}
		return nil, err
	}
	return lines, nil
}

// sampleWithRelaxation draws one line; when the constraints cannot be met
// and avoid_runs was requested, it retries once without it.
func (g *Generator) sampleWithRelaxation(s *picker.Sampler, rules game.Rules, w picker.Weights, c picker.Constraints) (picker.Line, error) {
	line, err := s.SampleLine(rules, w, c)
	if err == nil {
		g.observeLine(w.Strategy)
		return line, nil
	}
	if !errors.Is(err, apperrors.ErrConstraintUnsatisfiable) || !c.AvoidRuns {
		return picker.Line{}, err
	}

	relaxed := c
	relaxed.AvoidRuns = false
	slog.Info("relaxing avoid_runs", "tag", "generator", "strategy", w.Strategy, "odd_even", string(c.OddEven), "pool", rules.PoolSize(), "count", rules.MainCount)
	line, err = s.SampleLine(rules, w, relaxed)
	if err != nil {
		return picker.Line{}, err
	}
	line.Meta.Relaxed = true
	if g.observer != nil {
		g.observer.LineRelaxed(w.Strategy)
	}
	g.observeLine(w.Strategy)
	return line, nil
}

func (g *Generator) observeLine(strategy string) {
	if g.observer != nil {
		g.observer.LineGenerated(strategy)
	}
}

func (g *Generator) sampler(i int) *picker.Sampler {
	var src rand.Source
	if g.seed != nil {
		src = rand.NewPCG(*g.seed, uint64(i))
	}
	return picker.NewSampler(g.maxAttempts, src)
}

// Package insight resolves games and draw history from storage and runs
// the analytics engine and the line generator over them. It is the layer
// the HTTP API and the live feed share.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lottery-insight-server/analytics"
	"lottery-insight-server/apperrors"
	"lottery-insight-server/config"
	"lottery-insight-server/game"
	"lottery-insight-server/generator"
	"lottery-insight-server/picker"
	"lottery-insight-server/storage"
)

// NoteNonNumeric marks analytics for games whose rules are not number pools.
const NoteNonNumeric = "non_numeric_game"

// WarningNonNumeric is returned instead of lines for such games.
const WarningNonNumeric = "This game uses a custom (non-numeric) format. Generator is enabled only for numeric games."

// Draw list bounds.
const (
	DefaultDrawLimit = 50
	MaxDrawLimit     = 500
)

// AnalyticsView is the analytics payload for one game.
type AnalyticsView struct {
	*analytics.Result
	Note string `json:"note,omitempty"`
}

// GenerateRequest is the decoded body of a generate call. Nil fields take
// defaults.
type GenerateRequest struct {
	GameID      string              `json:"game_id"`
	NLines      *int                `json:"n_lines"`
	Strategy    string              `json:"strategy"`
	Constraints *ConstraintsRequest `json:"constraints"`
}

// ConstraintsRequest is the constraints object of a generate call.
type ConstraintsRequest struct {
	OddEven   string `json:"odd_even"`
	AvoidRuns *bool  `json:"avoid_runs"`
}

// GenerateResult holds the generated lines, or a warning for games the
// generator cannot serve.
type GenerateResult struct {
	Lines   []picker.Line `json:"lines"`
	Warning string        `json:"warning,omitempty"`
}

// Service answers analytics and generate queries.
type Service struct {
	store        storage.Repository
	gen          *generator.Generator
	engine       analytics.Engine
	analytics    config.AnalyticsConfig
	defaultLines int
	historyLimit int
}

// New wires a Service.
func New(store storage.Repository, gen *generator.Generator, cfg *config.Config) *Service {
	return &Service{
		store:        store,
		gen:          gen,
		engine:       analytics.Engine{TopN: cfg.Analytics.TopN},
		analytics:    cfg.Analytics,
		defaultLines: cfg.Generator.DefaultLines,
		historyLimit: cfg.Generator.HistoryLimit,
	}
}

// Games lists active games.
func (s *Service) Games(ctx context.Context) ([]game.Game, error) {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, apperrors.Service(err)
	}
	return games, nil
}

// Draws returns up to limit draws of a game, most recent first. A zero
// limit means the default.
func (s *Service) Draws(ctx context.Context, gameID string, limit int) ([]game.Draw, error) {
	if limit == 0 {
		limit = DefaultDrawLimit
	}
	if limit < 1 || limit > MaxDrawLimit {
		return nil, apperrors.Validation("limit must be between 1 and %d", MaxDrawLimit)
	}
	g, err := s.lookup(ctx, gameID)
	if err != nil {
		return nil, err
	}
	draws, err := s.store.ListDraws(ctx, g.ID, limit)
	if err != nil {
		return nil, apperrors.Service(err)
	}
	return draws, nil
}

// Analytics analyzes the most recent window draws of a game. A zero window
// means the configured default.
func (s *Service) Analytics(ctx context.Context, gameID string, window int) (*AnalyticsView, error) {
	if window == 0 {
		window = s.analytics.DefaultWindow
	}
	if window < s.analytics.MinWindow || window > s.analytics.MaxWindow {
		return nil, apperrors.Validation("window must be between %d and %d", s.analytics.MinWindow, s.analytics.MaxWindow)
	}
	g, err := s.lookup(ctx, gameID)
	if err != nil {
		return nil, err
	}
	rules, err := game.ParseRules(g.RawRules)
	if errors.Is(err, game.ErrNonNumericGame) {
		return &AnalyticsView{Result: analytics.Empty(), Note: NoteNonNumeric}, nil
	}
	if err != nil {
		return nil, apperrors.Service(fmt.Errorf("stored rules for %s: %w", g.Key, err))
	}
	draws, err := s.store.ListDraws(ctx, g.ID, window)
	if err != nil {
		return nil, apperrors.Service(err)
	}
	return &AnalyticsView{Result: s.engine.Analyze(rules, draws, window)}, nil
}

// Generate runs the generator for a game with request defaults applied:
// n_lines 5, strategy balanced, odd_even any, avoid_runs true.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return nil, apperrors.Validation("game_id is required")
	}
	genReq, err := s.generatorRequest(req)
	if err != nil {
		return nil, err
	}
	g, err := s.lookup(ctx, req.GameID)
	if err != nil {
		return nil, err
	}
	rules, err := game.ParseRules(g.RawRules)
	if errors.Is(err, game.ErrNonNumericGame) {
		return &GenerateResult{Lines: []picker.Line{}, Warning: WarningNonNumeric}, nil
	}
	if err != nil {
		return nil, apperrors.Service(fmt.Errorf("stored rules for %s: %w", g.Key, err))
	}
	draws, err := s.store.ListDraws(ctx, g.ID, s.historyLimit)
	if err != nil {
		return nil, apperrors.Service(err)
	}
	lines, err := s.gen.Generate(ctx, rules, draws, genReq)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Lines: lines}, nil
}

func (s *Service) generatorRequest(req GenerateRequest) (generator.Request, error) {
	out := generator.Request{
		NLines:      s.defaultLines,
		Strategy:    req.Strategy,
		Constraints: picker.Constraints{OddEven: picker.OddEvenAny, AvoidRuns: true},
	}
	if req.NLines != nil {
		out.NLines = *req.NLines
	}
	if out.Strategy == "" {
		out.Strategy = picker.StrategyBalanced
	}
	if c := req.Constraints; c != nil {
		oe, err := picker.ParseOddEven(c.OddEven)
		if err != nil {
			return generator.Request{}, err
		}
		out.Constraints.OddEven = oe
		if c.AvoidRuns != nil {
			out.Constraints.AvoidRuns = *c.AvoidRuns
		}
	}
	return out, nil
}

func (s *Service) lookup(ctx context.Context, gameID string) (*game.Game, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, apperrors.NotFound("game_not_found")
	}
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, apperrors.Service(err)
	}
	if g == nil {
		return nil, apperrors.NotFound("game_not_found")
	}
	return g, nil
}

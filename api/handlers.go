package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"lottery-insight-server/apperrors"
	"lottery-insight-server/game"
	"lottery-insight-server/importer"
	"lottery-insight-server/insight"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	OK          bool   `json:"ok"`
	Name        string `json:"name"`
	Environment string `json:"environment"`
}

// GameView is a game as listed by /v1/games.
type GameView struct {
	ID       string        `json:"id"`
	Key      string        `json:"key"`
	Name     string        `json:"name"`
	Region   string        `json:"region"`
	GameType game.GameType `json:"game_type"`
	Rules    game.RawRules `json:"rules"`
}

// DrawView is a draw as listed by /v1/draws.
type DrawView struct {
	DrawDate string       `json:"draw_date"`
	Numbers  game.Numbers `json:"numbers"`
}

// ImportRequest is the body of POST /v1/import.
type ImportRequest struct {
	GameID    string `json:"game_id"`
	GameKey   string `json:"game_key"`
	Mode      string `json:"mode"`
	SourceURL string `json:"source_url"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "tag", "api", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "tag", "api", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: apperrors.Message(err)})
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation("%s must be an integer", name)
	}
	return n, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return apperrors.Validation("invalid JSON body")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{OK: true, Name: s.deps.Config.AppName, Environment: s.deps.Config.Environment})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.deps.Service.Games(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]GameView, 0, len(games))
	for _, g := range games {
		rules := g.RawRules
		if rules == nil {
			rules = game.RawRules{}
		}
		out = append(out, GameView{ID: g.ID, Key: g.Key, Name: g.Name, Region: g.Region, GameType: g.Type, Rules: rules})
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": out})
}

func (s *Server) handleDraws(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	draws, err := s.deps.Service.Draws(r.Context(), r.URL.Query().Get("game_id"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]DrawView, 0, len(draws))
	for _, d := range draws {
		out = append(out, DrawView{DrawDate: d.DrawDate.Format(time.DateOnly), Numbers: game.Numbers{Main: d.Main, Bonus: d.Bonus}})
	}
	writeJSON(w, http.StatusOK, map[string]any{"draws": out})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	window, err := queryInt(r, "window")
	if err != nil {
		writeError(w, r, err)
		return
	}
	gameID := r.URL.Query().Get("game_id")
	view, err := s.deps.Service.Analytics(r.Context(), gameID, window)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.AnalyticsServed(gameID)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req insight.GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start := time.Now()
	res, err := s.deps.Service.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.deps.Metrics != nil && len(res.Lines) > 0 {
		s.deps.Metrics.ObserveGenerate(res.Lines[0].Meta.Strategy, time.Since(start))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Admin.Authorize(r); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			slog.Warn("import rejected", "tag", "api", "remote", r.RemoteAddr)
		}
		writeError(w, r, err)
		return
	}
	var req ImportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Importer.Import(r.Context(), importer.Request{
		GameID:    req.GameID,
		GameKey:   req.GameKey,
		Mode:      req.Mode,
		SourceURL: req.SourceURL,
		Source:    "admin_import",
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

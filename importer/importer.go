// Package importer loads historical draws from remote CSV or JSON feeds
// into the draw history store, and re-imports registered feeds on a
// schedule.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"lottery-insight-server/apperrors"
	"lottery-insight-server/game"
	"lottery-insight-server/storage"
)

// Feed formats.
const (
	ModeCSV  = "csv"
	ModeJSON = "json"
)

// Request describes one import. Exactly one of GameID or GameKey is needed.
type Request struct {
	GameID    string
	GameKey   string
	Mode      string
	SourceURL string
	Source    string
}

// Result summarizes an import.
type Result struct {
	BatchID  string `json:"batch_id"`
	GameID   string `json:"game_id"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// Observer is told about finished imports, e.g. to refresh live feeds or
// count draws. Optional.
type Observer interface {
	DrawsImported(ctx context.Context, gameID string, n int)
}

// Importer fetches feeds and upserts their draws.
type Importer struct {
	store     storage.Repository
	client    *http.Client
	observers []Observer
}

// New returns an Importer using an HTTP client with the given timeout.
func New(store storage.Repository, timeout time.Duration, observers ...Observer) *Importer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Importer{
		store:     store,
		client:    &http.Client{Timeout: timeout},
		observers: observers,
	}
}

// Import resolves the game, fetches the feed and stores every valid draw.
func (im *Importer) Import(ctx context.Context, req Request) (Result, error) {
	if req.SourceURL == "" {
		return Result{}, apperrors.Validation("source_url is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeCSV
	}
	if mode != ModeCSV && mode != ModeJSON {
		return Result{}, apperrors.Validation("unsupported mode %q", req.Mode)
	}

	g, err := im.resolveGame(ctx, req)
	if err != nil {
		return Result{}, err
	}
	rules, err := game.ParseRules(g.RawRules)
	if errors.Is(err, game.ErrNonNumericGame) {
		return Result{}, apperrors.Validation("game %q uses a non-numeric format", g.Key)
	}
	if err != nil {
		return Result{}, apperrors.Service(fmt.Errorf("stored rules for %q: %w", g.Key, err))
	}

	body, err := im.fetch(ctx, req.SourceURL)
	if err != nil {
		return Result{}, apperrors.Service(err)
	}
	defer body.Close()

	var parsed Parsed
	if mode == ModeJSON {
		parsed, err = ParseJSON(body, rules)
	} else {
		parsed, err = ParseCSV(body, rules)
	}
	if err != nil {
		return Result{}, err
	}

	source := req.Source
	if source == "" {
		source = "manual_import"
	}
	res := Result{BatchID: uuid.NewString(), GameID: g.ID, Skipped: parsed.Skipped}
	for _, d := range parsed.Draws {
		d.GameID = g.ID
		if err := im.store.UpsertDraw(ctx, d, source); err != nil {
			return res, apperrors.Service(fmt.Errorf("upsert draw %s: %w", d.DrawDate.Format(time.DateOnly), err))
		}
		res.Imported++
	}

	srcType := "official_csv"
	if mode == ModeJSON {
		srcType = "official_json"
	}
	if err := im.store.RecordSource(ctx, storage.Source{
		GameID:       g.ID,
		SourceType:   srcType,
		SourceURL:    req.SourceURL,
		Notes:        "Imported via admin import.",
		LastImportAt: time.Now().UTC(),
	}); err != nil {
		return res, apperrors.Service(fmt.Errorf("record source: %w", err))
	}

	slog.Info("import finished", "tag", "importer", "batch", res.BatchID, "game", g.Key, "imported", res.Imported, "skipped", res.Skipped)
	for _, o := range im.observers {
		o.DrawsImported(ctx, g.ID, res.Imported)
	}
	return res, nil
}

func (im *Importer) resolveGame(ctx context.Context, req Request) (*game.Game, error) {
	var (
		g   *game.Game
		err error
	)
	switch {
	case req.GameID != "":
		g, err = im.store.GetGame(ctx, req.GameID)
	case req.GameKey != "":
		g, err = im.store.GetGameByKey(ctx, req.GameKey)
	default:
		return nil, apperrors.Validation("game_id or game_key is required")
	}
	if err != nil {
		return nil, apperrors.Service(err)
	}
	if g == nil {
		return nil, apperrors.NotFound("game_not_found")
	}
	return g, nil
}

func (im *Importer) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

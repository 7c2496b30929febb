package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lottery-insight-server/game"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS games (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	key        TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	region     TEXT NOT NULL DEFAULT '',
	game_type  TEXT NOT NULL DEFAULT 'national',
	rules      JSONB NOT NULL DEFAULT '{}'::jsonb,
	is_active  BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS draws (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	game_id    UUID NOT NULL REFERENCES games(id),
	draw_date  DATE NOT NULL,
	numbers    JSONB NOT NULL,
	source     TEXT NOT NULL DEFAULT 'manual_import',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (game_id, draw_date)
);
CREATE INDEX IF NOT EXISTS idx_draws_game_date ON draws(game_id, draw_date DESC);
CREATE TABLE IF NOT EXISTS game_sources (
	id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	game_id        UUID NOT NULL REFERENCES games(id),
	source_type    TEXT NOT NULL,
	source_url     TEXT NOT NULL,
	notes          TEXT NOT NULL DEFAULT '',
	last_import_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_game_sources_game_url ON game_sources(game_id, source_url);
`

// Store reads games and draws from Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the tables exist.
// If databaseURL is empty, NewStore returns (nil, nil) and the caller
// should fall back to a MemoryStore.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

const gameColumns = `id::text, key, name, region, game_type, rules, is_active`

func scanGame(row pgx.Row) (*game.Game, error) {
	var g game.Game
	var gameType string
	if err := row.Scan(&g.ID, &g.Key, &g.Name, &g.Region, &gameType, &g.RawRules, &g.Active); err != nil {
		return nil, err
	}
	g.Type = game.GameType(gameType)
	return &g, nil
}

// ListGames returns active games ordered by game_type, name.
func (s *Store) ListGames(ctx context.Context) ([]game.Game, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE is_active = true
		ORDER BY game_type, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []game.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// GetGame looks a game up by id. Comparing on id::text keeps malformed ids
// a plain miss instead of a cast error.
func (s *Store) GetGame(ctx context.Context, id string) (*game.Game, error) {
	g, err := scanGame(s.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

// GetGameByKey looks a game up by its stable key (e.g. "powerball").
func (s *Store) GetGameByKey(ctx context.Context, key string) (*game.Game, error) {
	g, err := scanGame(s.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

// ListDraws returns up to limit draws for gameID ordered by draw_date DESC.
// Rows whose numbers document has no main list are skipped.
func (s *Store) ListDraws(ctx context.Context, gameID string, limit int) ([]game.Draw, error) {
	if limit <= 0 {
		return []game.Draw{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT draw_date, numbers
		FROM draws
		WHERE game_id::text = $1
		ORDER BY draw_date DESC
		LIMIT $2`,
		gameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []game.Draw{}
	for rows.Next() {
		d := game.Draw{GameID: gameID}
		var nums game.Numbers
		if err := rows.Scan(&d.DrawDate, &nums); err != nil {
			return nil, err
		}
		if len(nums.Main) == 0 {
			continue
		}
		d.Main, d.Bonus = nums.Main, nums.Bonus
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpsertDraw inserts d, replacing numbers and source of an existing draw on
// the same game and date.
func (s *Store) UpsertDraw(ctx context.Context, d game.Draw, source string) error {
	if source == "" {
		source = "manual_import"
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO draws (game_id, draw_date, numbers, source)
		VALUES ($1::uuid, $2::date, $3::jsonb, $4)
		ON CONFLICT (game_id, draw_date) DO UPDATE SET numbers = excluded.numbers, source = excluded.source`,
		d.GameID, d.DrawDate, game.Numbers{Main: d.Main, Bonus: d.Bonus}, source)
	return err
}

// RecordSource upserts an import source keyed by game and URL.
func (s *Store) RecordSource(ctx context.Context, src Source) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_sources (game_id, source_type, source_url, notes, last_import_at)
		VALUES ($1::uuid, $2, $3, $4, $5)
		ON CONFLICT (game_id, source_url) DO UPDATE SET source_type = excluded.source_type, notes = excluded.notes, last_import_at = excluded.last_import_at`,
		src.GameID, src.SourceType, src.SourceURL, src.Notes, src.LastImportAt)
	return err
}

// ListSources returns all import sources, oldest import first.
func (s *Store) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, game_id::text, source_type, source_url, notes, last_import_at
		FROM game_sources
		ORDER BY last_import_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Source{}
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.GameID, &src.SourceType, &src.SourceURL, &src.Notes, &src.LastImportAt); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// UpsertGame inserts or updates a game by key and returns its id. Used to
// seed Postgres from the YAML catalog.
func (s *Store) UpsertGame(ctx context.Context, g game.Game) (string, error) {
	if g.RawRules == nil {
		g.RawRules = game.RawRules{}
	}
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO games (key, name, region, game_type, rules, is_active)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		ON CONFLICT (key) DO UPDATE SET name = excluded.name, region = excluded.region, game_type = excluded.game_type, rules = excluded.rules, is_active = excluded.is_active
		RETURNING id::text`,
		g.Key, g.Name, g.Region, string(g.Type), g.RawRules, g.Active).Scan(&id)
	return id, err
}

package storage

import (
	"context"
	"time"

	"lottery-insight-server/game"
)

// Catalog is the read side of the game rule store.
type Catalog interface {
	// ListGames returns active games ordered by type then name.
	ListGames(ctx context.Context) ([]game.Game, error)
	// GetGame returns the game with the given id, or (nil, nil) if there is none.
	GetGame(ctx context.Context, id string) (*game.Game, error)
	// GetGameByKey returns the game with the given key, or (nil, nil) if there is none.
	GetGameByKey(ctx context.Context, key string) (*game.Game, error)
}

// History is the draw history store.
type History interface {
	// ListDraws returns up to limit draws for a game, most recent first.
	ListDraws(ctx context.Context, gameID string, limit int) ([]game.Draw, error)
	// UpsertDraw inserts a draw or replaces the numbers of the draw on the same date.
	UpsertDraw(ctx context.Context, d game.Draw, source string) error
	// RecordSource registers (or refreshes) an import source for a game.
	RecordSource(ctx context.Context, src Source) error
	// ListSources returns every registered import source.
	ListSources(ctx context.Context) ([]Source, error)
}

// Repository is everything the server needs from persistence.
// Implementations can be swapped for testing or different backends.
type Repository interface {
	Catalog
	History
	Close()
}

// Source is a remote CSV feed draws were imported from.
type Source struct {
	ID           string    `json:"id"`
	GameID       string    `json:"game_id"`
	SourceType   string    `json:"source_type"`
	SourceURL    string    `json:"source_url"`
	Notes        string    `json:"notes,omitempty"`
	LastImportAt time.Time `json:"last_import_at"`
}

// Ensure both backends implement Repository at compile time.
var (
	_ Repository = (*Store)(nil)
	_ Repository = (*MemoryStore)(nil)
)

package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"lottery-insight-server/game"
)

// MemoryStore is an in-process Repository used for local development and
// tests. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	games   map[string]game.Game
	draws   map[string][]game.Draw // per game, most recent first
	sources map[string]Source      // keyed by game id + url
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:   make(map[string]game.Game),
		draws:   make(map[string][]game.Draw),
		sources: make(map[string]Source),
	}
}

// AddGame stores g, assigning a fresh id when g.ID is empty, and returns the id.
func (m *MemoryStore) AddGame(g game.Game) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	m.games[g.ID] = g
	return g.ID
}

// ListGames returns active games ordered by type then name.
func (m *MemoryStore) ListGames(_ context.Context) ([]game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]game.Game, 0, len(m.games))
	for _, g := range m.games {
		if g.Active {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b game.Game) int {
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

// GetGame returns the game with id, or (nil, nil).
func (m *MemoryStore) GetGame(_ context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

// GetGameByKey returns the game with key, or (nil, nil).
func (m *MemoryStore) GetGameByKey(_ context.Context, key string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.games {
		if g.Key == key {
			return &g, nil
		}
	}
	return nil, nil
}

// ListDraws returns up to limit draws, most recent first.
func (m *MemoryStore) ListDraws(_ context.Context, gameID string, limit int) ([]game.Draw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.draws[gameID]
	if limit < 0 {
		limit = 0
	}
	return slices.Clone(all[:min(limit, len(all))]), nil
}

// UpsertDraw inserts d or replaces the draw on the same date.
func (m *MemoryStore) UpsertDraw(_ context.Context, d game.Draw, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Main = slices.Clone(d.Main)
	d.Bonus = slices.Clone(d.Bonus)
	list := m.draws[d.GameID]
	for i := range list {
		if list[i].DrawDate.Equal(d.DrawDate) {
			list[i] = d
			return nil
		}
	}
	list = append(list, d)
	slices.SortStableFunc(list, func(a, b game.Draw) int {
		return b.DrawDate.Compare(a.DrawDate)
	})
	m.draws[d.GameID] = list
	return nil
}

// RecordSource upserts an import source keyed by game and URL.
func (m *MemoryStore) RecordSource(_ context.Context, src Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := src.GameID + "|" + src.SourceURL
	if existing, ok := m.sources[key]; ok {
		src.ID = existing.ID
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	m.sources[key] = src
	return nil
}

// ListSources returns all sources, oldest import first.
func (m *MemoryStore) ListSources(_ context.Context) ([]Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Source, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Source) int {
		if c := a.LastImportAt.Compare(b.LastImportAt); c != 0 {
			return c
		}
		return cmp.Compare(a.SourceURL, b.SourceURL)
	})
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() {}

package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"lottery-insight-server/game"
)

// CatalogFile is the YAML seed of games and optional sample draws.
type CatalogFile struct {
	Games []CatalogGame `yaml:"games"`
}

// CatalogGame is one game entry of the catalog.
type CatalogGame struct {
	ID       string         `yaml:"id"`
	Key      string         `yaml:"key"`
	Name     string         `yaml:"name"`
	Region   string         `yaml:"region"`
	GameType string         `yaml:"game_type"`
	Inactive bool           `yaml:"inactive"`
	Rules    map[string]any `yaml:"rules"`
	Draws    []CatalogDraw  `yaml:"draws"`
}

// CatalogDraw is a sample draw; Date is YYYY-MM-DD.
type CatalogDraw struct {
	Date  string `yaml:"date"`
	Main  []int  `yaml:"main"`
	Bonus []int  `yaml:"bonus"`
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(r io.Reader) (*CatalogFile, error) {
	var cf CatalogFile
	if err := yaml.NewDecoder(r).Decode(&cf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i, g := range cf.Games {
		if g.Key == "" || g.Name == "" {
			return nil, fmt.Errorf("catalog game %d: key and name are required", i)
		}
		if g.GameType == "" {
			cf.Games[i].GameType = string(game.National)
		} else if !game.GameType(g.GameType).Valid() {
			return nil, fmt.Errorf("catalog game %q: unknown game_type %q", g.Key, g.GameType)
		}
	}
	return &cf, nil
}

// LoadCatalogFile reads a catalog from disk. A missing file yields an empty catalog.
func LoadCatalogFile(path string) (*CatalogFile, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &CatalogFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCatalog(f)
}

// Seeder is the write side needed to apply a catalog.
type Seeder interface {
	UpsertDraw(ctx context.Context, d game.Draw, source string) error
}

// Apply stores every catalog game with addGame and its sample draws with
// dst. Draws that do not fit the game's rules are skipped with a warning.
func (cf *CatalogFile) Apply(ctx context.Context, addGame func(game.Game) (string, error), dst Seeder) error {
	for _, cg := range cf.Games {
		g := game.Game{
			ID:       cg.ID,
			Key:      cg.Key,
			Name:     cg.Name,
			Region:   cg.Region,
			Type:     game.GameType(cg.GameType),
			RawRules: game.RawRules(cg.Rules),
			Active:   !cg.Inactive,
		}
		id, err := addGame(g)
		if err != nil {
			return fmt.Errorf("seed game %q: %w", cg.Key, err)
		}
		if len(cg.Draws) == 0 {
			continue
		}
		rules, err := game.ParseRules(g.RawRules)
		if err != nil {
			slog.Warn("skipping sample draws", "tag", "storage", "game", cg.Key, "err", err)
			continue
		}
		for _, cd := range cg.Draws {
			date, err := time.Parse(time.DateOnly, cd.Date)
			if err != nil {
				slog.Warn("skipping sample draw with bad date", "tag", "storage", "game", cg.Key, "date", cd.Date)
				continue
			}
			d := game.Draw{GameID: id, DrawDate: date, Main: cd.Main, Bonus: cd.Bonus}
			if err := d.Validate(rules); err != nil {
				slog.Warn("skipping invalid sample draw", "tag", "storage", "game", cg.Key, "date", cd.Date, "err", err)
				continue
			}
			if err := dst.UpsertDraw(ctx, d, "catalog"); err != nil {
				return fmt.Errorf("seed draw %s/%s: %w", cg.Key, cd.Date, err)
			}
		}
	}
	return nil
}

// SeedMemory applies the catalog to a MemoryStore.
func (cf *CatalogFile) SeedMemory(ctx context.Context, m *MemoryStore) error {
	return cf.Apply(ctx, func(g game.Game) (string, error) { return m.AddGame(g), nil }, m)
}

// SeedPostgres applies the catalog to a Postgres Store.
func (cf *CatalogFile) SeedPostgres(ctx context.Context, s *Store) error {
	return cf.Apply(ctx, func(g game.Game) (string, error) { return s.UpsertGame(ctx, g) }, s)
}

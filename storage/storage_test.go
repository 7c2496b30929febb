package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"lottery-insight-server/game"
)

// TestStorePostgres runs against a real database when TEST_DATABASE_URL is set.
func TestStorePostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	key := "test-" + time.Now().Format("20060102150405.000000")
	id, err := s.UpsertGame(ctx, game.Game{
		Key: key, Name: "Test Game", Type: game.National, Active: true,
		RawRules: game.RawRules{"main_count": 3, "main_min": 1, "main_max": 9},
	})
	if err != nil {
		t.Fatalf("UpsertGame: %v", err)
	}

	g, err := s.GetGame(ctx, id)
	if err != nil || g == nil {
		t.Fatalf("GetGame: %+v %v", g, err)
	}
	if _, err := game.ParseRules(g.RawRules); err != nil {
		t.Errorf("stored rules should parse: %v", err)
	}
	if missing, err := s.GetGame(ctx, "not-a-uuid"); err != nil || missing != nil {
		t.Errorf("expected clean miss, got %+v %v", missing, err)
	}

	d1 := game.Draw{GameID: id, DrawDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Main: []int{1, 2, 3}}
	d2 := game.Draw{GameID: id, DrawDate: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), Main: []int{4, 5, 6}}
	for _, d := range []game.Draw{d1, d2} {
		if err := s.UpsertDraw(ctx, d, "test"); err != nil {
			t.Fatalf("UpsertDraw: %v", err)
		}
	}
	draws, err := s.ListDraws(ctx, id, 10)
	if err != nil {
		t.Fatalf("ListDraws: %v", err)
	}
	if len(draws) != 2 || draws[0].Main[0] != 4 {
		t.Errorf("expected most recent first, got %+v", draws)
	}

	src := Source{GameID: id, SourceType: "official_csv", SourceURL: "https://example.test/" + key, LastImportAt: time.Now()}
	if err := s.RecordSource(ctx, src); err != nil {
		t.Fatalf("RecordSource: %v", err)
	}
	if err := s.RecordSource(ctx, src); err != nil {
		t.Fatalf("RecordSource twice: %v", err)
	}
}

package insight

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery-insight-server/apperrors"
	"lottery-insight-server/config"
	"lottery-insight-server/game"
	"lottery-insight-server/generator"
	"lottery-insight-server/storage"
)

type fixture struct {
	svc    *Service
	store  *storage.MemoryStore
	pick5  string
	raffle string
}

func newFixture(t *testing.T, history int) fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	pick5 := store.AddGame(game.Game{
		Key: "pick5", Name: "Pick 5", Type: game.National, Active: true,
		RawRules: game.RawRules{
			"main_count": 5, "main_min": 1, "main_max": 69,
			"bonus_count": 1, "bonus_min": 1, "bonus_max": 26,
		},
	})
	raffle := store.AddGame(game.Game{
		Key: "raffle", Name: "Raffle", Type: game.RegionalCharitable, Active: true,
		RawRules: game.RawRules{"format": "ticket"},
	})
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range history {
		d := game.Draw{
			GameID:   pick5,
			DrawDate: base.AddDate(0, 0, i),
			Main:     []int{1 + i%60, 2 + i%60, 3 + i%60, 4 + i%60, 5 + i%60},
			Bonus:    []int{1 + i%26},
		}
		require.NoError(t, store.UpsertDraw(ctx, d, "test"))
	}

	cfg := config.Defaults()
	seed := uint64(7)
	gen := generator.New(generator.Options{Seed: &seed})
	return fixture{svc: New(store, gen, cfg), store: store, pick5: pick5, raffle: raffle}
}

func TestAnalyticsWindow(t *testing.T) {
	f := newFixture(t, 40)
	ctx := context.Background()

	view, err := f.svc.Analytics(ctx, f.pick5, 0)
	require.NoError(t, err)
	assert.Equal(t, 40, view.WindowDraws)
	assert.Empty(t, view.Note)
	require.NotNil(t, view.Bonus)

	view, err = f.svc.Analytics(ctx, f.pick5, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, view.WindowDraws)
}

func TestAnalyticsErrors(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	tests := []struct {
		name   string
		gameID string
		window int
		want   error
	}{
		{"missing game", "", 0, apperrors.ErrNotFound},
		{"unknown game", "nope", 0, apperrors.ErrNotFound},
		{"window too small", f.pick5, 19, apperrors.ErrValidation},
		{"window too large", f.pick5, 2001, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Analytics(ctx, tt.gameID, tt.window)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestAnalyticsNonNumeric(t *testing.T) {
	f := newFixture(t, 0)
	view, err := f.svc.Analytics(context.Background(), f.raffle, 0)
	require.NoError(t, err)
	assert.Equal(t, NoteNonNumeric, view.Note)
	assert.Equal(t, 0, view.WindowDraws)
	assert.Empty(t, view.Main.TopHot)
}

func TestDraws(t *testing.T) {
	f := newFixture(t, 60)
	ctx := context.Background()

	draws, err := f.svc.Draws(ctx, f.pick5, 0)
	require.NoError(t, err)
	assert.Len(t, draws, DefaultDrawLimit)
	assert.True(t, draws[0].DrawDate.After(draws[1].DrawDate))

	_, err = f.svc.Draws(ctx, f.pick5, 501)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	_, err = f.svc.Draws(ctx, "nope", 10)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestGenerateDefaults(t *testing.T) {
	f := newFixture(t, 30)
	res, err := f.svc.Generate(context.Background(), GenerateRequest{GameID: f.pick5})
	require.NoError(t, err)
	require.Len(t, res.Lines, 5)
	for _, l := range res.Lines {
		assert.Equal(t, "balanced", l.Meta.Strategy)
		assert.Len(t, l.Main, 5)
		assert.Len(t, l.Bonus, 1)
	}
}

func TestGenerateColdStartRandom(t *testing.T) {
	f := newFixture(t, 0)
	n := 1
	off := false
	res, err := f.svc.Generate(context.Background(), GenerateRequest{
		GameID:      f.pick5,
		NLines:      &n,
		Strategy:    "random",
		Constraints: &ConstraintsRequest{OddEven: "any", AvoidRuns: &off},
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	line := res.Lines[0]
	for _, v := range line.Main {
		assert.True(t, v >= 1 && v <= 69, fmt.Sprint(line.Main))
	}
	require.Len(t, line.Bonus, 1)
	assert.True(t, line.Bonus[0] >= 1 && line.Bonus[0] <= 26)
}

func TestGenerateErrors(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	zero := 0

	tests := []struct {
		name string
		req  GenerateRequest
		want error
	}{
		{"missing game_id", GenerateRequest{}, apperrors.ErrValidation},
		{"unknown game", GenerateRequest{GameID: "nope"}, apperrors.ErrNotFound},
		{"bad strategy", GenerateRequest{GameID: f.pick5, Strategy: "lucky"}, apperrors.ErrValidation},
		{"bad odd_even", GenerateRequest{GameID: f.pick5, Constraints: &ConstraintsRequest{OddEven: "primes"}}, apperrors.ErrValidation},
		{"zero lines", GenerateRequest{GameID: f.pick5, NLines: &zero}, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Generate(ctx, tt.req)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestGenerateNonNumeric(t *testing.T) {
	f := newFixture(t, 0)
	res, err := f.svc.Generate(context.Background(), GenerateRequest{GameID: f.raffle})
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
	assert.Equal(t, WarningNonNumeric, res.Warning)
}

package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery-insight-server/game"
)

func smallRules() game.Rules {
	return game.Rules{MainCount: 3, MainMin: 1, MainMax: 10}
}

// draws builds a most-recent-first history from main-number lists.
func draws(mains ...[]int) []game.Draw {
	base := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	out := make([]game.Draw, len(mains))
	for i, m := range mains {
		out[i] = game.Draw{DrawDate: base.AddDate(0, 0, -i), Main: m}
	}
	return out
}

func intp(v int) *int { return &v }

func TestAnalyzeCountsAndLastSeen(t *testing.T) {
	hist := draws(
		[]int{1, 2, 3},
		[]int{2, 3, 4},
		[]int{3, 4, 5},
	)
	res := Analyze(smallRules(), hist, 150)

	assert.Equal(t, 3, res.WindowDraws)

	s3, ok := res.Stat(3)
	require.True(t, ok)
	assert.Equal(t, 3, s3.Count)
	assert.Equal(t, intp(0), s3.LastSeen)

	s5, _ := res.Stat(5)
	assert.Equal(t, 1, s5.Count)
	assert.Equal(t, intp(2), s5.LastSeen)

	s9, _ := res.Stat(9)
	assert.Equal(t, 0, s9.Count)
	assert.Nil(t, s9.LastSeen)

	_, ok = res.Stat(11)
	assert.False(t, ok)
}

func TestAnalyzeTopHotOrdering(t *testing.T) {
	hist := draws(
		[]int{1, 2, 3},
		[]int{2, 3, 4},
		[]int{3, 4, 5},
	)
	res := Analyze(smallRules(), hist, 150)

	want := []HotEntry{
		{N: 3, Count: 3},
		{N: 2, Count: 2},
		{N: 4, Count: 2},
		{N: 1, Count: 1},
		{N: 5, Count: 1},
		{N: 6, Count: 0},
		{N: 7, Count: 0},
		{N: 8, Count: 0},
		{N: 9, Count: 0},
		{N: 10, Count: 0},
	}
	assert.Equal(t, want, res.Main.TopHot)
}

func TestAnalyzeTopColdOrdering(t *testing.T) {
	hist := draws(
		[]int{1, 2, 3},
		[]int{2, 3, 4},
		[]int{3, 4, 5},
	)
	res := Engine{TopN: 8}.Analyze(smallRules(), hist, 150)

	want := []ColdEntry{
		{N: 6, LastSeenDrawsAgo: nil},
		{N: 7, LastSeenDrawsAgo: nil},
		{N: 8, LastSeenDrawsAgo: nil},
		{N: 9, LastSeenDrawsAgo: nil},
		{N: 10, LastSeenDrawsAgo: nil},
		{N: 5, LastSeenDrawsAgo: intp(2)},
		{N: 4, LastSeenDrawsAgo: intp(1)},
		{N: 1, LastSeenDrawsAgo: intp(0)},
	}
	assert.Equal(t, want, res.Main.TopCold)
}

func TestAnalyzeWindowTruncates(t *testing.T) {
	hist := draws(
		[]int{1, 2, 3},
		[]int{7, 8, 9},
	)
	res := Analyze(smallRules(), hist, 1)
	assert.Equal(t, 1, res.WindowDraws)

	s7, _ := res.Stat(7)
	assert.Equal(t, 0, s7.Count, "draws beyond the window must be ignored")
	assert.Nil(t, s7.LastSeen)
}

func TestAnalyzeWindowLargerThanHistory(t *testing.T) {
	rules := game.Rules{MainCount: 5, MainMin: 1, MainMax: 69, BonusCount: 1, BonusMin: 1, BonusMax: 26}
	hist := make([]game.Draw, 40)
	for i := range hist {
		hist[i] = game.Draw{Main: []int{1 + i%60, 2 + i%60, 3 + i%60, 4 + i%60, 5 + i%60}, Bonus: []int{1 + i%26}}
	}
	res := Analyze(rules, hist, 150)
	assert.Equal(t, 40, res.WindowDraws)
	require.NotNil(t, res.Bonus)
	assert.Len(t, res.Bonus.TopHot, DefaultTopN)
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	res := Analyze(smallRules(), nil, 150)
	assert.Equal(t, 0, res.WindowDraws)
	require.Len(t, res.Main.TopHot, 10)
	require.Len(t, res.Main.TopCold, 10)
	for i, e := range res.Main.TopHot {
		assert.Equal(t, i+1, e.N)
		assert.Zero(t, e.Count)
	}
	for i, e := range res.Main.TopCold {
		assert.Equal(t, i+1, e.N)
		assert.Nil(t, e.LastSeenDrawsAgo)
	}
	for _, s := range res.Stats() {
		assert.Zero(t, s.Count)
		assert.Nil(t, s.LastSeen)
	}
}

func TestAnalyzeNeverSeenRanksFirstInCold(t *testing.T) {
	rules := game.Rules{MainCount: 2, MainMin: 1, MainMax: 4}
	hist := draws(
		[]int{1, 2},
		[]int{1, 3},
		[]int{2, 3},
		[]int{1, 2},
	)
	res := Analyze(rules, hist, 150)
	require.NotEmpty(t, res.Main.TopCold)
	assert.Equal(t, 4, res.Main.TopCold[0].N)
	assert.Nil(t, res.Main.TopCold[0].LastSeenDrawsAgo)
	assert.Equal(t, 3, res.Main.TopCold[1].N)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	rules := game.Rules{MainCount: 5, MainMin: 1, MainMax: 69, BonusCount: 1, BonusMin: 1, BonusMax: 26}
	var hist []game.Draw
	for i := 0; i < 200; i++ {
		hist = append(hist, game.Draw{
			Main:  []int{1 + (i*7)%69, 1 + (i*11+3)%69, 1 + (i*13+5)%69, 1 + (i*17+9)%69, 1 + (i*19+11)%69},
			Bonus: []int{1 + (i*5)%26},
		})
	}
	first, err := json.Marshal(Analyze(rules, hist, 150))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(Analyze(rules, hist, 150))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestAnalyzeListsStayInBounds(t *testing.T) {
	rules := game.Rules{MainCount: 3, MainMin: 10, MainMax: 20}
	hist := draws([]int{10, 15, 20}, []int{1, 99, 12})
	res := Analyze(rules, hist, 150)
	for _, e := range res.Main.TopHot {
		assert.True(t, rules.InMain(e.N), "hot %d out of bounds", e.N)
	}
	for _, e := range res.Main.TopCold {
		assert.True(t, rules.InMain(e.N), "cold %d out of bounds", e.N)
	}
}

func TestAnalyzeIgnoresRepeatedNumberWithinDraw(t *testing.T) {
	res := Analyze(smallRules(), draws([]int{4, 4, 5}), 150)
	s4, _ := res.Stat(4)
	assert.Equal(t, 1, s4.Count)
}

func TestResultJSONShape(t *testing.T) {
	res := Analyze(game.Rules{MainCount: 1, MainMin: 1, MainMax: 2}, draws([]int{1}), 150)
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"window_draws": 1,
		"main": {
			"top_hot": [{"n":1,"count":1},{"n":2,"count":0}],
			"top_cold": [{"n":2,"last_seen_draws_ago":null},{"n":1,"last_seen_draws_ago":0}]
		}
	}`, string(data))
}

func TestEmptyJSON(t *testing.T) {
	out, err := json.Marshal(Empty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"window_draws":0,"main":{"top_hot":[],"top_cold":[]}}`, string(out))
}

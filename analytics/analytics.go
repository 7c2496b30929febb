// Package analytics computes frequency and recency statistics over a window
// of historical draws. Everything here is a pure function of its inputs.
package analytics

import (
	"slices"

	"lottery-insight-server/game"
)

// DefaultTopN is how many numbers the hot and cold lists carry.
const DefaultTopN = 10

// NumberStat is the per-number view of a window. LastSeen is the 0-based
// offset of the most recent windowed draw containing N, nil if N never
// appeared in the window.
type NumberStat struct {
	N        int
	Count    int
	LastSeen *int
}

// HotEntry is one row of the top-hot list.
type HotEntry struct {
	N     int `json:"n"`
	Count int `json:"count"`
}

// ColdEntry is one row of the top-cold list.
type ColdEntry struct {
	N                int  `json:"n"`
	LastSeenDrawsAgo *int `json:"last_seen_draws_ago"`
}

// PoolSummary holds the ranked lists for one number pool.
type PoolSummary struct {
	TopHot  []HotEntry  `json:"top_hot"`
	TopCold []ColdEntry `json:"top_cold"`
}

// Result is the output of an analytics pass. Bonus is only set for games
// with a bonus pool.
type Result struct {
	WindowDraws int          `json:"window_draws"`
	Main        PoolSummary  `json:"main"`
	Bonus       *PoolSummary `json:"bonus,omitempty"`

	main  poolStats
	bonus *poolStats
}

// Engine ranks numbers. The zero value uses DefaultTopN.
type Engine struct {
	TopN int
}

// Analyze runs the default engine.
func Analyze(rules game.Rules, draws []game.Draw, window int) *Result {
	return Engine{}.Analyze(rules, draws, window)
}

// Analyze takes the first window entries of draws (which must be ordered
// most-recent-first) and ranks every number of the main pool, and of the
// bonus pool when the game has one. Short or empty history is not an
// error: missing draws simply contribute nothing.
func (e Engine) Analyze(rules game.Rules, draws []game.Draw, window int) *Result {
	topN := e.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	if window < 0 {
		window = 0
	}
	if window > len(draws) {
		window = len(draws)
	}
	windowed := draws[:window]

	res := &Result{WindowDraws: window}
	res.main = tally(rules.MainMin, rules.MainMax, windowed, func(d game.Draw) []int { return d.Main })
	res.Main = res.main.summary(topN)
	if rules.HasBonus() {
		bs := tally(rules.BonusMin, rules.BonusMax, windowed, func(d game.Draw) []int { return d.Bonus })
		res.bonus = &bs
		summary := bs.summary(topN)
		res.Bonus = &summary
	}
	return res
}

// Empty is the result for a game with no number pool to analyze.
func Empty() *Result {
	return &Result{Main: PoolSummary{TopHot: []HotEntry{}, TopCold: []ColdEntry{}}}
}

// Stat returns the main-pool statistics for n.
func (r *Result) Stat(n int) (NumberStat, bool) {
	return r.main.stat(n)
}

// Stats returns the main-pool statistics for every number, ascending by n.
func (r *Result) Stats() []NumberStat {
	return slices.Clone(r.main.stats)
}

// BonusStats returns the bonus-pool statistics, nil without a bonus pool.
func (r *Result) BonusStats() []NumberStat {
	if r.bonus == nil {
		return nil
	}
	return slices.Clone(r.bonus.stats)
}

type poolStats struct {
	min   int
	stats []NumberStat
}

func (p poolStats) stat(n int) (NumberStat, bool) {
	i := n - p.min
	if i < 0 || i >= len(p.stats) {
		return NumberStat{}, false
	}
	return p.stats[i], true
}

func tally(lo, hi int, windowed []game.Draw, pick func(game.Draw) []int) poolStats {
	stats := make([]NumberStat, hi-lo+1)
	for i := range stats {
		stats[i].N = lo + i
	}
	// lastDraw guards against a malformed draw listing a number twice.
	lastDraw := make([]int, len(stats))
	for i := range lastDraw {
		lastDraw[i] = -1
	}
	for idx, d := range windowed {
		for _, n := range pick(d) {
			if n < lo || n > hi {
				continue
			}
			i := n - lo
			if lastDraw[i] == idx {
				continue
			}
			lastDraw[i] = idx
			stats[i].Count++
			if stats[i].LastSeen == nil {
				ago := idx
				stats[i].LastSeen = &ago
			}
		}
	}
	return poolStats{min: lo, stats: stats}
}

func (p poolStats) summary(topN int) PoolSummary {
	n := min(topN, len(p.stats))

	hot := slices.Clone(p.stats)
	slices.SortFunc(hot, compareHot)
	cold := slices.Clone(p.stats)
	slices.SortFunc(cold, compareCold)

	out := PoolSummary{
		TopHot:  make([]HotEntry, 0, n),
		TopCold: make([]ColdEntry, 0, n),
	}
	for _, s := range hot[:n] {
		out.TopHot = append(out.TopHot, HotEntry{N: s.N, Count: s.Count})
	}
	for _, s := range cold[:n] {
		out.TopCold = append(out.TopCold, ColdEntry{N: s.N, LastSeenDrawsAgo: s.LastSeen})
	}
	return out
}

// compareHot orders by count descending, then n ascending.
func compareHot(a, b NumberStat) int {
	if a.Count != b.Count {
		return b.Count - a.Count
	}
	return a.N - b.N
}

// compareCold orders never-seen numbers first, then by last-seen offset
// descending, then n ascending.
func compareCold(a, b NumberStat) int {
	switch {
	case a.LastSeen == nil && b.LastSeen != nil:
		return -1
	case a.LastSeen != nil && b.LastSeen == nil:
		return 1
	case a.LastSeen != nil && b.LastSeen != nil && *a.LastSeen != *b.LastSeen:
		return *b.LastSeen - *a.LastSeen
	}
	return a.N - b.N
}

package game

import (
	"fmt"
	"time"
)

// Draw is one historical result of a game. Draws are immutable; the engine
// only ever reads them.
type Draw struct {
	GameID   string    `json:"-"`
	DrawDate time.Time `json:"draw_date"`
	Main     []int     `json:"main"`
	Bonus    []int     `json:"bonus,omitempty"`
}

// Validate checks that the draw's numbers fit the rules: exact counts, in
// bounds, no duplicates.
func (d Draw) Validate(r Rules) error {
	if err := checkNumbers("main", d.Main, r.MainCount, r.MainMin, r.MainMax); err != nil {
		return err
	}
	if !r.HasBonus() {
		if len(d.Bonus) > 0 {
			return &RuleError{Field: "bonus", Reason: "game has no bonus pool"}
		}
		return nil
	}
	// Some sources omit the bonus ball; that is tolerated.
	if len(d.Bonus) == 0 {
		return nil
	}
	return checkNumbers("bonus", d.Bonus, r.BonusCount, r.BonusMin, r.BonusMax)
}

func checkNumbers(field string, nums []int, count, lo, hi int) error {
	if len(nums) != count {
		return &RuleError{Field: field, Reason: fmt.Sprintf("has %d numbers, want %d", len(nums), count)}
	}
	seen := make(map[int]struct{}, len(nums))
	for _, n := range nums {
		if n < lo || n > hi {
			return &RuleError{Field: field, Reason: fmt.Sprintf("number %d outside %d..%d", n, lo, hi)}
		}
		if _, dup := seen[n]; dup {
			return &RuleError{Field: field, Reason: fmt.Sprintf("number %d repeated", n)}
		}
		seen[n] = struct{}{}
	}
	return nil
}

// Numbers is the JSONB document stored per draw row.
type Numbers struct {
	Main  []int `json:"main"`
	Bonus []int `json:"bonus,omitempty"`
}

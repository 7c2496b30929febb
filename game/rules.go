package game

import (
	"errors"
	"fmt"
	"math"

	"lottery-insight-server/apperrors"
)

// GameType classifies how a game is run.
type GameType string

const (
	National           GameType = "national"
	RegionalCharitable GameType = "regional_charitable"
)

// Valid reports whether t is a known game type.
func (t GameType) Valid() bool {
	return t == National || t == RegionalCharitable
}

// RawRules is the loosely-typed rules document as stored alongside a game.
// Numeric games carry main_count/main_min/main_max and optionally the bonus
// fields; charitable templates may carry anything.
type RawRules map[string]any

// Game is a published lottery game. Read-only to the engine.
type Game struct {
	ID       string   `json:"id"`
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Region   string   `json:"region"`
	Type     GameType `json:"game_type"`
	RawRules RawRules `json:"rules"`
	Active   bool     `json:"-"`
}

// Rules is the validated numeric shape of a game. BonusCount == 0 means the
// game has no bonus pool.
type Rules struct {
	MainCount  int `json:"main_count"`
	MainMin    int `json:"main_min"`
	MainMax    int `json:"main_max"`
	BonusCount int `json:"bonus_count,omitempty"`
	BonusMin   int `json:"bonus_min,omitempty"`
	BonusMax   int `json:"bonus_max,omitempty"`
}

// ErrNonNumericGame is returned by ParseRules for games whose rules do not
// describe a numeric pool (e.g. charitable templates).
var ErrNonNumericGame = errors.New("game uses a non-numeric format")

// RuleError describes why a Rules value was rejected. It matches
// apperrors.ErrValidation under errors.Is.
type RuleError struct {
	Field  string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid rules: %s %s", e.Field, e.Reason)
}

func (e *RuleError) Unwrap() error { return apperrors.ErrValidation }

// Validate checks the structural invariants of r and returns it unchanged
// when they hold. Everything downstream assumes rules passed through here.
func Validate(r Rules) (Rules, error) {
	if err := validatePool("main", r.MainCount, r.MainMin, r.MainMax); err != nil {
		return Rules{}, err
	}
	if r.BonusCount < 0 {
		return Rules{}, &RuleError{Field: "bonus_count", Reason: "must not be negative"}
	}
	if r.BonusCount > 0 {
		if err := validatePool("bonus", r.BonusCount, r.BonusMin, r.BonusMax); err != nil {
			return Rules{}, err
		}
	}
	return r, nil
}

func validatePool(prefix string, count, lo, hi int) error {
	if count <= 0 {
		return &RuleError{Field: prefix + "_count", Reason: "must be positive"}
	}
	if lo >= hi {
		return &RuleError{Field: prefix + "_min", Reason: fmt.Sprintf("must be below %s_max (got %d..%d)", prefix, lo, hi)}
	}
	if size := hi - lo + 1; count > size {
		return &RuleError{Field: prefix + "_count", Reason: fmt.Sprintf("%d exceeds pool size %d", count, size)}
	}
	return nil
}

// ParseRules converts a stored rules document into validated Rules.
// Documents lacking the main pool fields yield ErrNonNumericGame.
func ParseRules(raw RawRules) (Rules, error) {
	mainCount, ok1 := intField(raw, "main_count")
	mainMin, ok2 := intField(raw, "main_min")
	mainMax, ok3 := intField(raw, "main_max")
	if !ok1 || !ok2 || !ok3 {
		return Rules{}, ErrNonNumericGame
	}
	r := Rules{MainCount: mainCount, MainMin: mainMin, MainMax: mainMax}
	if bc, ok := intField(raw, "bonus_count"); ok && bc > 0 {
		bmin, okMin := intField(raw, "bonus_min")
		bmax, okMax := intField(raw, "bonus_max")
		if !okMin || !okMax {
			return Rules{}, &RuleError{Field: "bonus_min", Reason: "bonus_min and bonus_max are required with bonus_count"}
		}
		r.BonusCount, r.BonusMin, r.BonusMax = bc, bmin, bmax
	}
	return Validate(r)
}

// intField reads an integral number from a decoded JSON/YAML document.
func intField(raw RawRules, key string) (int, bool) {
	switch v := raw[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// HasBonus reports whether the game draws from a bonus pool.
func (r Rules) HasBonus() bool {
	return r.BonusCount > 0
}

// PoolSize is the number of candidates in the main pool.
func (r Rules) PoolSize() int {
	return r.MainMax - r.MainMin + 1
}

// BonusPoolSize is the number of candidates in the bonus pool, 0 without one.
func (r Rules) BonusPoolSize() int {
	if !r.HasBonus() {
		return 0
	}
	return r.BonusMax - r.BonusMin + 1
}

// InMain reports whether n lies within the main pool.
func (r Rules) InMain(n int) bool {
	return n >= r.MainMin && n <= r.MainMax
}

// InBonus reports whether n lies within the bonus pool.
func (r Rules) InBonus(n int) bool {
	return r.HasBonus() && n >= r.BonusMin && n <= r.BonusMax
}

// BonusPool returns the bonus pool as a standalone Rules value so pool-level
// helpers (analytics, sampling) can treat it like a main pool.
func (r Rules) BonusPool() (Rules, bool) {
	if !r.HasBonus() {
		return Rules{}, false
	}
	return Rules{MainCount: r.BonusCount, MainMin: r.BonusMin, MainMax: r.BonusMax}, true
}

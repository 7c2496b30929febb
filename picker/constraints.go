package picker

import "lottery-insight-server/apperrors"

// OddEven selects the odd/even balance a line must satisfy.
type OddEven string

const (
	OddEvenAny      OddEven = "any"
	OddEvenBalanced OddEven = "balanced"
	OddEvenMoreOdd  OddEven = "more_odd"
	OddEvenMoreEven OddEven = "more_even"
)

// MaxRun is the longest run of consecutive integers allowed when
// AvoidRuns is set.
const MaxRun = 2

// ParseOddEven validates a client-supplied mode. Empty means any.
func ParseOddEven(s string) (OddEven, error) {
	switch OddEven(s) {
	case "":
		return OddEvenAny, nil
	case OddEvenAny, OddEvenBalanced, OddEvenMoreOdd, OddEvenMoreEven:
		return OddEven(s), nil
	default:
		return "", apperrors.Validation("unsupported odd_even %q", s)
	}
}

// Constraints are accept/reject tests applied to a complete main set.
type Constraints struct {
	OddEven   OddEven `json:"odd_even"`
	AvoidRuns bool    `json:"avoid_runs"`
}

// Accepts reports whether the ascending main set satisfies every active
// constraint.
func (c Constraints) Accepts(sorted []int) bool {
	if !oddEvenOK(sorted, c.OddEven) {
		return false
	}
	if c.AvoidRuns && LongestRun(sorted) > MaxRun {
		return false
	}
	return true
}

func oddEvenOK(nums []int, mode OddEven) bool {
	odd := 0
	for _, n := range nums {
		if n%2 != 0 {
			odd++
		}
	}
	even := len(nums) - odd
	switch mode {
	case OddEvenBalanced:
		return odd-even <= 1 && even-odd <= 1
	case OddEvenMoreOdd:
		return odd > even
	case OddEvenMoreEven:
		return even > odd
	default:
		return true
	}
}

// LongestRun returns the length of the longest run of consecutive integers
// in an ascending slice.
func LongestRun(sorted []int) int {
	if len(sorted) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1]+1 {
			run++
			longest = max(longest, run)
		} else {
			run = 1
		}
	}
	return longest
}

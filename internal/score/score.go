// Package score computes points for answered questions. Scoring is pure: it
// depends only on difficulty, correctness and elapsed time, never on what
// other players did.
package score

import (
	"time"

	"github.com/shopspring/decimal"

	"versequiz/internal/domain"
)

// Award returns the points for one answer: base + speed bonus when correct,
// zero otherwise. The speed bonus decays linearly from the full base value at
// elapsed 0 to nothing at the time limit, so a perfect instant answer is worth
// exactly twice the question's base value.
func Award(d domain.Difficulty, correct bool, elapsed time.Duration) int64 {
	if !correct {
		return 0
	}

	base := d.BasePoints()
	return base + SpeedBonus(d, elapsed)
}

// SpeedBonus is round(base * max(0, (limit-elapsed)/limit)).
func SpeedBonus(d domain.Difficulty, elapsed time.Duration) int64 {
	limitMs := d.TimeLimit().Milliseconds()
	remainingMs := limitMs - elapsed.Milliseconds()
	if remainingMs <= 0 {
		return 0
	}

	bonus := decimal.NewFromInt(d.BasePoints()).
		Mul(decimal.NewFromInt(remainingMs)).
		Div(decimal.NewFromInt(limitMs)).
		Round(0)

	return bonus.IntPart()
}

// MaxAward is the best possible single-question score for a difficulty.
func MaxAward(d domain.Difficulty) int64 {
	return 2 * d.BasePoints()
}

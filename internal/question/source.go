// Package question adapts the external question generator into the
// coordinator's Question records. The coordinator calls the source exactly
// once per game creation; retry and backoff belong to the generator side.
package question

import (
	"context"

	"versequiz/internal/domain"
)

// Source produces a batch of questions for one game.
type Source interface {
	Generate(ctx context.Context, d domain.Difficulty, count int) ([]domain.Question, error)
}

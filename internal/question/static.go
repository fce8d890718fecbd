package question

import (
	"context"
	"fmt"

	"versequiz/internal/domain"
	"versequiz/internal/errors"
)

// StaticSource serves questions from a fixed per-difficulty pool, cycling when
// a batch is larger than the pool. Used for local runs and tests.
type StaticSource struct {
	pools map[domain.Difficulty][]domain.Question
}

func NewStaticSource(pools map[domain.Difficulty][]domain.Question) *StaticSource {
	return &StaticSource{pools: pools}
}

func (s *StaticSource) Generate(_ context.Context, d domain.Difficulty, count int) ([]domain.Question, error) {
	pool := s.pools[d]
	if len(pool) == 0 {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithReason(errors.ReasonQuestionGenerationFailed),
			errors.WithMessagef("no questions available for difficulty %s", d),
		)
	}

	qs := make([]domain.Question, count)
	for i := range qs {
		qs[i] = pool[i%len(pool)]
		qs[i].Difficulty = d
	}
	return qs, nil
}

// Placeholder builds a pool of n throwaway questions for a difficulty, with
// option 0 always correct. Test helper.
func Placeholder(d domain.Difficulty, n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			Text:          fmt.Sprintf("question %d", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: 0,
			Difficulty:    d,
		}
	}
	return qs
}

package score_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"versequiz/internal/domain"
	"versequiz/internal/score"
)

func TestSpeedBonus_Bounds(t *testing.T) {
	for _, d := range domain.Difficulties() {
		d := d
		t.Run(string(d), func(t *testing.T) {
			assert.Equal(t, d.BasePoints(), score.SpeedBonus(d, 0), "instant answer should earn the full base as bonus")
			assert.Zero(t, score.SpeedBonus(d, d.TimeLimit()), "bonus should be zero at the limit")
			assert.Zero(t, score.SpeedBonus(d, d.TimeLimit()+time.Second), "bonus should be zero past the limit")
		})
	}
}

func TestAward(t *testing.T) {
	tests := map[string]struct {
		difficulty domain.Difficulty
		correct    bool
		elapsed    time.Duration
		want       int64
	}{
		"instant correct expert answer earns 8": {
			difficulty: domain.DifficultyExpert,
			correct:    true,
			elapsed:    0,
			want:       8,
		},
		"incorrect answer earns nothing regardless of speed": {
			difficulty: domain.DifficultyExpert,
			correct:    false,
			elapsed:    0,
			want:       0,
		},
		"correct answer at the limit earns only the base": {
			difficulty: domain.DifficultyHard,
			correct:    true,
			elapsed:    21 * time.Second,
			want:       3,
		},
		"half-time medium answer earns base plus half bonus": {
			difficulty: domain.DifficultyMedium,
			correct:    true,
			elapsed:    8250 * time.Millisecond,
			want:       3,
		},
		"bonus rounds to nearest": {
			difficulty: domain.DifficultyEasy,
			correct:    true,
			elapsed:    3 * time.Second, // 1 * 9000/12000 = 0.75 -> 1
			want:       2,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, score.Award(tt.difficulty, tt.correct, tt.elapsed))
		})
	}
}

func TestMaxAward(t *testing.T) {
	for _, d := range domain.Difficulties() {
		assert.Equal(t, score.MaxAward(d), score.Award(d, true, 0))
	}
}

package question_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"versequiz/internal/domain"
	"versequiz/internal/errors"
	"versequiz/internal/question"
)

func TestHTTPSource_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Difficulty string `json:"difficulty"`
			Count      int    `json:"count"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hard", req.Difficulty)

		type q struct {
			Question       string   `json:"question"`
			Options        []string `json:"options"`
			CorrectIndex   int      `json:"correct_index"`
			VerseReference string   `json:"verse_reference"`
		}
		qs := make([]q, req.Count)
		for i := range qs {
			qs[i] = q{
				Question:       "who led the exodus",
				Options:        []string{"Moses", "Aaron", "Joshua", "Caleb"},
				CorrectIndex:   0,
				VerseReference: "Exodus 3:10",
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"questions": qs})
	}))
	defer srv.Close()

	s := question.NewHTTPSource(question.HTTPConfig{URL: srv.URL})

	qs, err := s.Generate(context.Background(), domain.DifficultyHard, 5)
	require.NoError(t, err)
	require.Len(t, qs, 5)
	assert.Equal(t, domain.DifficultyHard, qs[0].Difficulty)
	assert.Equal(t, "Exodus 3:10", qs[0].VerseReference)
	assert.Len(t, qs[0].Options, 4)
}

func TestHTTPSource_Generate_Failures(t *testing.T) {
	tests := map[string]struct {
		handler http.HandlerFunc
	}{
		"generator error status": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		"short batch": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"questions": []any{}})
			},
		},
		"malformed question": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"questions": []map[string]any{
					{"question": "q", "options": []string{"a", "b"}, "correct_index": 0},
					{"question": "q", "options": []string{"a", "b", "c", "d"}, "correct_index": 0},
				}})
			},
		},
		"correct index out of range": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"questions": []map[string]any{
					{"question": "q", "options": []string{"a", "b", "c", "d"}, "correct_index": 7},
					{"question": "q", "options": []string{"a", "b", "c", "d"}, "correct_index": 0},
				}})
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			s := question.NewHTTPSource(question.HTTPConfig{URL: srv.URL})

			_, err := s.Generate(context.Background(), domain.DifficultyEasy, 2)
			require.Error(t, err)
			assert.True(t, errors.HasReason(err, errors.ReasonQuestionGenerationFailed))
		})
	}
}

func TestStaticSource_CyclesPool(t *testing.T) {
	s := question.NewStaticSource(map[domain.Difficulty][]domain.Question{
		domain.DifficultyEasy: question.Placeholder(domain.DifficultyEasy, 3),
	})

	qs, err := s.Generate(context.Background(), domain.DifficultyEasy, 7)
	require.NoError(t, err)
	assert.Len(t, qs, 7)
	assert.Equal(t, qs[0].Text, qs[3].Text)

	_, err = s.Generate(context.Background(), domain.DifficultyExpert, 5)
	assert.True(t, errors.HasReason(err, errors.ReasonQuestionGenerationFailed))
}

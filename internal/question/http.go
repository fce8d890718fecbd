package question

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"versequiz/internal/domain"
	"versequiz/internal/errors"
)

const defaultTimeout = 30 * time.Second

type HTTPConfig struct {
	// URL of the generator's batch endpoint.
	URL string
	// Timeout bounds one generation call, including body read.
	Timeout time.Duration

	Client *http.Client
}

// HTTPSource pulls question batches from the external generator over HTTP and
// normalizes them into domain Questions.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(c HTTPConfig) *HTTPSource {
	cl := c.Client
	if cl == nil {
		cl = &http.Client{}
	}
	if cl.Timeout == 0 {
		cl.Timeout = c.Timeout
		if cl.Timeout == 0 {
			cl.Timeout = defaultTimeout
		}
	}

	return &HTTPSource{url: c.URL, client: cl}
}

type generateRequest struct {
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type generatedQuestion struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectIndex   int      `json:"correct_index"`
	VerseReference string   `json:"verse_reference"`
	VerseText      string   `json:"verse_text"`
}

func (s *HTTPSource) Generate(ctx context.Context, d domain.Difficulty, count int) ([]domain.Question, error) {
	body, err := json.Marshal(generateRequest{Difficulty: string(d), Count: count})
	if err != nil {
		return nil, errors.Internal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		code := errors.CodeUnavailable
		if ctx.Err() == context.DeadlineExceeded {
			code = errors.CodeDeadlineExceeded
		}
		return nil, errors.New(code,
			errors.WithReason(errors.ReasonQuestionGenerationFailed),
			errors.WithMessagef("question generator unreachable"),
			errors.WithCause(err),
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithReason(errors.ReasonQuestionGenerationFailed),
			errors.WithMessagef("question generator returned status %d", resp.StatusCode),
		)
	}

	var payload struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithReason(errors.ReasonQuestionGenerationFailed),
			errors.WithMessagef("decode generator response"),
			errors.WithCause(err),
		)
	}

	return normalize(d, count, payload.Questions)
}

// normalize validates a generated batch and converts it into domain Questions.
// A short or malformed batch fails the whole generation, so a game is never
// created with fewer questions than requested.
func normalize(d domain.Difficulty, count int, in []generatedQuestion) ([]domain.Question, error) {
	if len(in) < count {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithReason(errors.ReasonQuestionGenerationFailed),
			errors.WithMessagef("generator returned %d questions, want %d", len(in), count),
		)
	}

	qs := make([]domain.Question, 0, count)
	for i, g := range in[:count] {
		if err := validate(g); err != nil {
			return nil, errors.New(errors.CodeUnavailable,
				errors.WithReason(errors.ReasonQuestionGenerationFailed),
				errors.WithMessagef("generator question %d is malformed", i),
				errors.WithCause(err),
			)
		}

		qs = append(qs, domain.Question{
			Text:           g.Question,
			Options:        g.Options,
			CorrectOption:  g.CorrectIndex,
			Difficulty:     d,
			VerseReference: g.VerseReference,
			VerseText:      g.VerseText,
		})
	}

	return qs, nil
}

func validate(g generatedQuestion) error {
	if g.Question == "" {
		return fmt.Errorf("empty question text")
	}
	if len(g.Options) != 4 {
		return fmt.Errorf("want 4 options, got %d", len(g.Options))
	}
	if g.CorrectIndex < 0 || g.CorrectIndex >= len(g.Options) {
		return fmt.Errorf("correct index %d out of range", g.CorrectIndex)
	}
	return nil
}

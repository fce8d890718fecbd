package domain

import "time"

const (
	EventNameQuestionChanged = "question.changed"
	EventNameGameCompleted   = "game.completed"
	EventNameGameCancelled   = "game.cancelled"
)

// QuestionReveal is the answer key of a closed question, published with the
// round results so the adapter can show what the right choice was.
type QuestionReveal struct {
	Index          int    `json:"index"`
	CorrectOption  int    `json:"correct_option"`
	VerseReference string `json:"verse_reference,omitempty"`
	VerseText      string `json:"verse_text,omitempty"`
}

// EventQuestionChanged is published when a session presents a new question.
// Reveal and Results carry the answer key and outcome of the previous
// question, if any.
type EventQuestionChanged struct {
	GameID         string
	QuestionIndex  int
	TotalQuestions int
	Question       QuestionView
	Deadline       time.Time
	Reveal         *QuestionReveal
	Results        []PlayerResult
}

func (EventQuestionChanged) Name() string { return EventNameQuestionChanged }

// EventGameCompleted is published once when a session reaches COMPLETED.
// Reveal and FinalResults describe the last question, so the adapter can
// render the closing round together with the standings.
type EventGameCompleted struct {
	GameID       string
	Difficulty   Difficulty
	Solo         bool
	Standings    []Standing
	Reveal       *QuestionReveal
	FinalResults []PlayerResult
}

func (EventGameCompleted) Name() string { return EventNameGameCompleted }

// Winner returns the top-ranked standing, if the game had any players.
func (e EventGameCompleted) Winner() (Standing, bool) {
	if len(e.Standings) == 0 {
		return Standing{}, false
	}
	return e.Standings[0], true
}

type EventGameCancelled struct {
	GameID string
	Reason string
}

func (EventGameCancelled) Name() string { return EventNameGameCancelled }

package domain

import (
	"time"
)

// Difficulty selects the question pool, the per-question time limit and the
// base point value of a game.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// Difficulties lists all difficulties in ascending order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert}
}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

// TimeLimit is how long players have to answer one question of this difficulty.
func (d Difficulty) TimeLimit() time.Duration {
	switch d {
	case DifficultyMedium:
		return 16500 * time.Millisecond
	case DifficultyHard:
		return 21 * time.Second
	case DifficultyExpert:
		return 25500 * time.Millisecond
	default:
		return 12 * time.Second
	}
}

// BasePoints is the value of a correct answer before the speed bonus.
func (d Difficulty) BasePoints() int64 {
	switch d {
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	case DifficultyExpert:
		return 4
	default:
		return 1
	}
}

// GameState is the lifecycle state of a game session.
type GameState string

const (
	GameWaiting    GameState = "WAITING"
	GameInProgress GameState = "IN_PROGRESS"
	GameCompleted  GameState = "COMPLETED"
	GameCancelled  GameState = "CANCELLED"
)

// Player is one participant of a game session. A player belongs to at most one
// active session at a time.
type Player struct {
	ID          string
	DisplayName string
	JoinedAt    time.Time
}

// Question is a single multiple-choice question. Immutable once generated.
type Question struct {
	Text          string
	Options       []string
	CorrectOption int
	Difficulty    Difficulty

	// Optional flavor shown with the round results.
	VerseReference string
	VerseText      string
}

// AnswerSubmission is one player's locked answer for one question. At most one
// is accepted per (player, question index); later submissions are rejected.
type AnswerSubmission struct {
	PlayerID      string
	QuestionIndex int
	ChosenOption  int
	ElapsedMs     int64
	Awarded       int64
}

// PlayerResult is the per-player outcome of a single question.
type PlayerResult struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Answered    bool   `json:"answered"`
	Correct     bool   `json:"correct"`
	Awarded     int64  `json:"awarded"`
	TotalScore  int64  `json:"total_score"`
}

// Standing is one row of a completed game's final ranking.
type Standing struct {
	Rank           int    `json:"rank"`
	PlayerID       string `json:"player_id"`
	DisplayName    string `json:"display_name"`
	Score          int64  `json:"score"`
	TotalElapsedMs int64  `json:"total_elapsed_ms"`
}

// GameSummary is the listing/joining view of a session.
type GameSummary struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	State            GameState  `json:"state"`
	Difficulty       Difficulty `json:"difficulty"`
	CurrentPlayers   int        `json:"current_players"`
	MaxPlayers       int        `json:"max_players"`
	CreatedByName    string     `json:"created_by_name"`
	QuestionsPerGame int        `json:"questions_per_game"`
}

// PlayerStatus answers "where am I and how am I doing" for one player.
type PlayerStatus struct {
	InGame          bool       `json:"in_game"`
	GameID          string     `json:"game_id,omitempty"`
	GameStatus      GameState  `json:"game_status,omitempty"`
	Difficulty      Difficulty `json:"difficulty,omitempty"`
	PlayerScore     int64      `json:"player_score"`
	CurrentQuestion int        `json:"current_question"`
	TotalQuestions  int        `json:"total_questions"`
}

// QuestionView is a question as presented to players, without the correct option.
type QuestionView struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// LeaderboardEntry is one player's all-time win count for one difficulty.
// Owned by the external store; the coordinator only appends and reads.
type LeaderboardEntry struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Wins        int64  `json:"wins"`
}

// Leaderboard maps each difficulty to its entries, ordered by wins descending,
// ties broken by earliest recorded win.
type Leaderboard map[Difficulty][]LeaderboardEntry

package errors

// Coordinator outcome reasons. Every rejected action carries one of these so
// the rendering layer can tell "you are already in a game" apart from "this
// game is full" without parsing messages.
const (
	ReasonAlreadyInGame            = "ALREADY_IN_GAME"
	ReasonNotInGame                = "NOT_IN_GAME"
	ReasonGameNotFound             = "GAME_NOT_FOUND"
	ReasonGameFull                 = "GAME_FULL"
	ReasonGameAlreadyStarted       = "GAME_ALREADY_STARTED"
	ReasonNotCreator               = "NOT_CREATOR"
	ReasonNotEnoughPlayers         = "NOT_ENOUGH_PLAYERS"
	ReasonNotAPlayer               = "NOT_A_PLAYER"
	ReasonAlreadyAnswered          = "ALREADY_ANSWERED"
	ReasonTimeExpired              = "TIME_EXPIRED"
	ReasonInvalidParameters        = "INVALID_PARAMETERS"
	ReasonQuestionGenerationFailed = "QUESTION_GENERATION_FAILED"
	ReasonLeaderboardUnavailable   = "LEADERBOARD_UNAVAILABLE"
)

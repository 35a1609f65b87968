package game

import "time"

// 对局向展示层推送的事件类型
type EventType string

const (
	EVT_PLAYER_JOINED        EventType = "PlayerJoined"
	EVT_GAME_STARTED         EventType = "GameStarted"
	EVT_ROUND_STARTED        EventType = "RoundStarted"
	EVT_WORD_RECORDED        EventType = "WordRecorded"
	EVT_TURN_SKIPPED         EventType = "TurnSkipped"
	EVT_ROUND_COMPLETE       EventType = "RoundComplete"
	EVT_VOTE_RECORDED        EventType = "VoteRecorded"
	EVT_ELIMINATION_RESULT   EventType = "EliminationResult"
	EVT_MRWHITE_GUESS        EventType = "MrWhiteGuess"
	EVT_GAME_WON             EventType = "GameWon"
	EVT_GAME_ENDED_NO_WINNER EventType = "GameEndedNoWinner"
	EVT_GAME_CANCELLED       EventType = "GameCancelled"
	EVT_GAME_ABORTED         EventType = "GameAborted"
)

type Event struct {
	Type   EventType `json:"event_type"`
	RoomID string    `json:"room_id"`
	GameID string    `json:"game_id"`
	Round  int       `json:"round"`
	Data   any       `json:"data"`
}

type PlayerJoinedData struct {
	Player      Player `json:"player"`
	PlayerCount int    `json:"player_count"`
}

// 每个玩家只应私下看到自己的 Assignment
type Assignment struct {
	PlayerID string `json:"player_id"`
	Role     Role   `json:"role"`
	Word     string `json:"word"`
}

type GameStartedData struct {
	Players         []Player     `json:"players"`
	Assignments     []Assignment `json:"assignments"`
	UndercoverCount int          `json:"undercover_count"`
	MrWhiteEnabled  bool         `json:"mr_white_enabled"`
	MaxRounds       int          `json:"max_rounds"`
	WordTimeout     int          `json:"word_timeout_seconds"`
}

type RoundStartedData struct {
	MaxRounds     int       `json:"max_rounds"`
	CurrentPlayer Player    `json:"current_player"`
	Deadline      time.Time `json:"deadline"`
	TurnOrder     []Player  `json:"turn_order"`
}

type WordRecordedData struct {
	Word       SubmittedWord `json:"word"`
	NextPlayer *Player       `json:"next_player,omitempty"`
	Deadline   time.Time     `json:"deadline,omitempty"`
}

type TurnSkippedData struct {
	Skipped    Player    `json:"skipped"`
	NextPlayer *Player   `json:"next_player,omitempty"`
	Deadline   time.Time `json:"deadline,omitempty"`
}

type RoundCompleteData struct {
	Words []SubmittedWord `json:"words"`
}

type VoteRecordedData struct {
	VoterID  string `json:"voter_id"`
	TargetID string `json:"target_id,omitempty"`
	Blank    bool   `json:"blank"`
	Replaced bool   `json:"replaced"`
	Cast     int    `json:"cast"`
	Needed   int    `json:"needed"`
}

type EliminationResultData struct {
	Eliminated *Player        `json:"eliminated,omitempty"`
	Role       Role           `json:"role,omitempty"`
	Outcome    VoteOutcome    `json:"outcome"`
	Counts     map[string]int `json:"counts"`
	Blanks     int            `json:"blanks"`
	Forced     bool           `json:"forced"`
}

type MrWhiteGuessData struct {
	Player  Player `json:"player"`
	Guess   string `json:"guess"`
	Correct bool   `json:"correct"`
}

type GameWonData struct {
	Team           Team           `json:"team"`
	Points         map[string]int `json:"points"`
	Reveal         []RoleReveal   `json:"reveal"`
	CivilianWord   string         `json:"civilian_word"`
	UndercoverWord string         `json:"undercover_word"`
}

type GameEndedNoWinnerData struct {
	Reveal         []RoleReveal `json:"reveal"`
	CivilianWord   string       `json:"civilian_word"`
	UndercoverWord string       `json:"undercover_word"`
}

type GameAbortedData struct {
	Reason string `json:"reason"`
}

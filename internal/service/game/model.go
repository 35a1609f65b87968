package game

import "time"

// 玩家身份
type Role string

const (
	ROLE_UNSET      Role = "Unset"
	ROLE_CIVIL      Role = "Civil"
	ROLE_UNDERCOVER Role = "Undercover"
	ROLE_MRWHITE    Role = "MrWhite"
)

// 卧底和白板属于同一阵营
func (r Role) IsImpostor() bool {
	return r == ROLE_UNDERCOVER || r == ROLE_MRWHITE
}

// 获胜阵营
type Team string

const (
	TEAM_NONE     Team = ""
	TEAM_CIVIL    Team = "Civil"
	TEAM_IMPOSTOR Team = "Impostor"
	TEAM_MRWHITE  Team = "MrWhite"
)

// 对局整体生命周期
type Lifecycle string

const (
	LIFECYCLE_LOBBY       Lifecycle = "Lobby"
	LIFECYCLE_IN_PROGRESS Lifecycle = "InProgress"
	LIFECYCLE_FINISHED    Lifecycle = "Finished"
)

// 回合内阶段
type Phase string

const (
	PHASE_NONE            Phase = ""
	PHASE_WORD_SUBMISSION Phase = "WordSubmission"
	PHASE_VOTING          Phase = "Voting"
)

const (
	// 白板拿到的不是词，只是一个占位标记
	NO_WORD_SENTINEL = "(no word, improvise!)"
	// 发言超时自动记录的词
	TIMEOUT_WORD = "(no word)"
	// 统计中使用的游戏类型
	GAME_TYPE = "undercover"
)

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Alive bool   `json:"alive"`
}

type WordPair struct {
	CivilianWord   string `json:"civilian_word"`
	UndercoverWord string `json:"undercover_word"`
}

type SubmittedWord struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Word       string `json:"word"`
	IsTimeout  bool   `json:"is_timeout"`
}

// 已结束回合的归档
type RoundRecord struct {
	Number       int             `json:"number"`
	Words        []SubmittedWord `json:"words"`
	VoteCounts   map[string]int  `json:"vote_counts"`
	BlankCount   int             `json:"blank_count"`
	EliminatedID string          `json:"eliminated_id,omitempty"`
}

type RoleReveal struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Role       Role   `json:"role"`
	Alive      bool   `json:"alive"`
}

// Snapshot 是对局的只读视图，供展示层渲染
type Snapshot struct {
	RoomID        string          `json:"room_id"`
	GameID        string          `json:"game_id"`
	Lifecycle     Lifecycle       `json:"lifecycle"`
	Phase         Phase           `json:"phase"`
	Round         int             `json:"round"`
	MaxRounds     int             `json:"max_rounds"`
	Players       []Player        `json:"players"`
	CurrentPlayer *Player         `json:"current_player,omitempty"`
	Deadline      time.Time       `json:"deadline,omitempty"`
	Words         []SubmittedWord `json:"words"`
	Pending       []Player        `json:"pending"`
	VotesCast     int             `json:"votes_cast"`
	VotesNeeded   int             `json:"votes_needed"`
	Winner        Team            `json:"winner,omitempty"`
	Points        map[string]int  `json:"points,omitempty"`
}

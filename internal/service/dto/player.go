package dto

import "undercover-be/internal/service/stats"

// 排行榜中的一行
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Wins     int    `json:"wins"`
	Games    int    `json:"games"`
}

const (
	LEADERBOARD_BY_POINTS = "points"
	LEADERBOARD_BY_WINS   = "wins"
)

type LeaderboardResponse struct {
	By      string             `json:"by"`
	Entries []LeaderboardEntry `json:"entries"`
}

func NewLeaderboard(by string, list []stats.PlayerStats) LeaderboardResponse {
	entries := make([]LeaderboardEntry, 0, len(list))
	for i, p := range list {
		entries = append(entries, LeaderboardEntry{
			Rank:     i + 1,
			PlayerID: p.PlayerID,
			Name:     p.Name,
			Points:   p.Points,
			Wins:     p.Wins,
			Games:    p.Games,
		})
	}

	return LeaderboardResponse{
		By:      by,
		Entries: entries,
	}
}

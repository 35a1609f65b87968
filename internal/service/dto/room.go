package dto

import (
	"time"

	"undercover-be/internal/service/game"
)

type RoomSummary struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	GameID    string         `json:"game_id"`
	Lifecycle game.Lifecycle `json:"lifecycle"`
	CreatedAt time.Time      `json:"created_at"`
}

type CreateRoomRequest struct {
	// 为空时自动生成
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	// 为空时使用服务端配置
	Options *game.Options `json:"options,omitempty"`
}

type CreateRoomResponse struct {
	RoomID string       `json:"room_id"`
	GameID string       `json:"game_id"`
	Opts   game.Options `json:"options"`
}

type JoinRoomRequest struct {
	RoomID     string `json:"room_id"`
	PlayerID   string `json:"player_id"`
	JoinerName string `json:"joiner_name"`
}

type JoinRoomResponse struct {
	Joiner game.Player `json:"joiner"`
}

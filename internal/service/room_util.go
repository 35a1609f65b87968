package service

import (
	"time"

	"github.com/google/uuid"

	"undercover-be/internal/service/dto"
	"undercover-be/internal/service/game"
)

func genRoomID() string {
	return uuid.New().String()[:8]
}

// 只有还在大厅中的房间会因闲置被清理，进行中的对局由计时推进
func isLobbyExpired(entry *roomEntry, now time.Time, ttl time.Duration) bool {
	if entry == nil || entry.machine == nil {
		return false
	}

	if entry.machine.Lifecycle() != game.LIFECYCLE_LOBBY {
		return false
	}

	last := time.Unix(0, entry.lastActive.Load())

	return now.Sub(last) > ttl
}

func summarize(roomID string, entry *roomEntry) dto.RoomSummary {
	return dto.RoomSummary{
		ID:        roomID,
		Name:      entry.name,
		GameID:    entry.machine.GameID(),
		Lifecycle: entry.machine.Lifecycle(),
		CreatedAt: entry.machine.CreatedAt(),
	}
}

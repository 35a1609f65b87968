package state

import (
	"context"

	"go.uber.org/zap"

	"undercover-be/internal/config"
	"undercover-be/internal/service"
	"undercover-be/internal/service/stats"
)

type AppState struct {
	Cfg     *config.AppConfig
	RoomSvc *service.RoomService
	Stats   stats.Store
}

func NewAppState(
	cfg *config.AppConfig,
	roomSvc *service.RoomService,
	store stats.Store,
) *AppState {
	return &AppState{
		Cfg:     cfg,
		RoomSvc: roomSvc,
		Stats:   store,
	}
}

// Close 先结束所有对局，再关闭统计存储，保证最后的计分能写入
func (s *AppState) Close(ctx context.Context) {
	s.RoomSvc.Close(ctx)

	if err := s.Stats.Close(); err != nil {
		zap.L().Warn("关闭统计存储失败", zap.Error(err))
	}
}

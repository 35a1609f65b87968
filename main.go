package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"undercover-be/internal/api/http"
	"undercover-be/internal/config"
	"undercover-be/internal/logger"
	"undercover-be/internal/service"
	"undercover-be/internal/service/game"
	"undercover-be/internal/service/stats"
	"undercover-be/internal/service/words"
	"undercover-be/internal/state"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	syncLogger := logger.InitLogger(cfg.LogLevel)
	defer syncLogger()

	// 词库
	bank := words.Default()
	if cfg.WordsFile != "" {
		loaded, err := words.LoadFile(cfg.WordsFile)
		if err != nil {
			zap.L().Fatal("加载词库失败", zap.Error(err))
		}
		bank = loaded
	}

	// 统计存储
	store := stats.Open(context.Background(), cfg.Redis.Options())

	// 组装应用状态
	appState := state.NewAppState(
		cfg,
		service.NewRoomService(service.RoomServiceOptions{
			GameOptions: cfg.Game.Options(),
			LobbyTTL:    cfg.Game.LobbyTTL(),
			Words:       bank,
			Stats:       store,
			Notifier: game.NotifierFunc(func(evt game.Event) {
				zap.L().Debug(
					"对局事件",
					zap.String("room_id", evt.RoomID),
					zap.String("event_type", string(evt.Type)),
					zap.Int("round", evt.Round),
				)
			}),
		}),
		store,
	)

	// 启动服务器，收到中断信号后返回
	if err := http.RunServer(appState); err != nil {
		zap.L().Error("服务器异常退出", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	appState.Close(ctx)
}

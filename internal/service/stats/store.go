package stats

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"undercover-be/internal/service/game"
)

var ErrPlayerNotFound = errors.New("没有该玩家的统计数据")

// GameTypeStats 是玩家在某一类游戏中的战绩
type GameTypeStats struct {
	Wins  int `json:"wins"`
	Games int `json:"games"`
}

type PlayerStats struct {
	PlayerID string                   `json:"player_id"`
	Name     string                   `json:"name"`
	Points   int                      `json:"points"`
	Wins     int                      `json:"wins"`
	Games    int                      `json:"games"`
	ByGame   map[string]GameTypeStats `json:"by_game,omitempty"`
}

// Store 在对局的统计接口之上增加了排行榜查询。
// 获胜同时计为参与了一局
type Store interface {
	game.StatsRecorder

	Top(ctx context.Context, limit int) ([]PlayerStats, error)
	TopWinners(ctx context.Context, limit int) ([]PlayerStats, error)
	Player(ctx context.Context, playerID string) (PlayerStats, error)
	Close() error
}

// Open 配置了 Redis 地址时使用 Redis，连接失败时退回内存存储，保证服务可用
func Open(ctx context.Context, opts RedisOptions) Store {
	if opts.Addr == "" {
		zap.L().Info("未配置 Redis，使用内存统计存储")
		return NewMemoryStore()
	}

	store, err := NewRedisStore(ctx, opts)
	if err != nil {
		zap.L().Warn(
			"连接 Redis 失败，退回内存统计存储",
			zap.String("addr", opts.Addr),
			zap.Error(err),
		)
		return NewMemoryStore()
	}

	return store
}

// 积分优先，其次胜场，最后按 ID 保证顺序稳定
func sortByPoints(list []PlayerStats) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Points != list[j].Points {
			return list[i].Points > list[j].Points
		}
		if list[i].Wins != list[j].Wins {
			return list[i].Wins > list[j].Wins
		}
		return list[i].PlayerID < list[j].PlayerID
	})
}

func sortByWins(list []PlayerStats) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Wins != list[j].Wins {
			return list[i].Wins > list[j].Wins
		}
		if list[i].Points != list[j].Points {
			return list[i].Points > list[j].Points
		}
		return list[i].PlayerID < list[j].PlayerID
	})
}

func truncate(list []PlayerStats, limit int) []PlayerStats {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}

	return list
}

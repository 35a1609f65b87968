package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DEFAULT_KEY_PREFIX = "undercover"
	REDIS_OP_TIMEOUT   = 2 * time.Second
)

type RedisOptions struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// 键前缀，测试时用来隔离数据
	Prefix string `mapstructure:"prefix"`
}

// RedisStore 的数据布局：
//
//	<prefix>:player:<id>          hash: name points wins games wins:<type> games:<type>
//	<prefix>:leaderboard:points   zset: 积分排行
//	<prefix>:leaderboard:wins     zset: 胜场排行
//
// 写操作在后台协程中执行，失败只记录日志，不影响对局
type RedisStore struct {
	client *redis.Client
	prefix string

	mu sync.Mutex
	// 尚未完成的后台写入数
	pending int
	// pending 归零时关闭，下一次写入时重建
	idle   chan struct{}
	closed bool
}

func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, REDIS_OP_TIMEOUT)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = DEFAULT_KEY_PREFIX
	}

	zap.L().Info("已连接 Redis 统计存储", zap.String("addr", opts.Addr))

	return newRedisStore(client, prefix), nil
}

func newRedisStore(client *redis.Client, prefix string) *RedisStore {
	idle := make(chan struct{})
	close(idle)

	return &RedisStore{
		client: client,
		prefix: prefix,
		idle:   idle,
	}
}

func (s *RedisStore) playerKey(playerID string) string {
	return s.prefix + ":player:" + playerID
}

func (s *RedisStore) pointsKey() string {
	return s.prefix + ":leaderboard:points"
}

func (s *RedisStore) winsKey() string {
	return s.prefix + ":leaderboard:wins"
}

// 在后台执行一次事务写入；存储关闭后的写入直接丢弃
func (s *RedisStore) async(op, playerID string, fn func(ctx context.Context, pipe redis.Pipeliner)) {
	if !s.begin() {
		zap.L().Warn(
			"统计存储已关闭，丢弃写入",
			zap.String("op", op),
			zap.String("player_id", playerID),
		)
		return
	}

	go func() {
		defer s.done()

		ctx, cancel := context.WithTimeout(context.Background(), REDIS_OP_TIMEOUT)
		defer cancel()

		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			fn(ctx, pipe)
			return nil
		})
		if err != nil {
			zap.L().Error(
				"写入统计数据失败",
				zap.String("op", op),
				zap.String("player_id", playerID),
				zap.Error(err),
			)
		}
	}()
}

func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, playerID, name string) {
	if name != "" {
		pipe.HSet(ctx, s.playerKey(playerID), "name", name)
	}
	// 保证新玩家出现在两个排行榜中
	pipe.ZIncrBy(ctx, s.pointsKey(), 0, playerID)
	pipe.ZIncrBy(ctx, s.winsKey(), 0, playerID)
}

func (s *RedisStore) RecordWin(playerID, name, gameType string) {
	s.async("record_win", playerID, func(ctx context.Context, pipe redis.Pipeliner) {
		key := s.playerKey(playerID)

		s.touch(ctx, pipe, playerID, name)
		pipe.HIncrBy(ctx, key, "wins", 1)
		pipe.HIncrBy(ctx, key, "games", 1)
		pipe.HIncrBy(ctx, key, "wins:"+gameType, 1)
		pipe.HIncrBy(ctx, key, "games:"+gameType, 1)
		pipe.ZIncrBy(ctx, s.winsKey(), 1, playerID)
	})
}

func (s *RedisStore) RecordGame(playerID, name, gameType string) {
	s.async("record_game", playerID, func(ctx context.Context, pipe redis.Pipeliner) {
		key := s.playerKey(playerID)

		s.touch(ctx, pipe, playerID, name)
		pipe.HIncrBy(ctx, key, "games", 1)
		pipe.HIncrBy(ctx, key, "games:"+gameType, 1)
	})
}

func (s *RedisStore) AddPoints(playerID, name string, amount int) {
	s.async("add_points", playerID, func(ctx context.Context, pipe redis.Pipeliner) {
		s.touch(ctx, pipe, playerID, name)
		pipe.HIncrBy(ctx, s.playerKey(playerID), "points", int64(amount))
		pipe.ZIncrBy(ctx, s.pointsKey(), float64(amount), playerID)
	})
}

func (s *RedisStore) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++

	return true
}

func (s *RedisStore) done() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}

// Flush 等待调用时已发出的写操作完成
func (s *RedisStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 之后的写入会被丢弃，已发出的写入最多等待 REDIS_OP_TIMEOUT
func (s *RedisStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), REDIS_OP_TIMEOUT)
	defer cancel()

	if err := s.Flush(ctx); err != nil {
		zap.L().Warn("关闭前仍有统计数据未写入", zap.Error(err))
	}

	return s.client.Close()
}

func (s *RedisStore) Top(ctx context.Context, limit int) ([]PlayerStats, error) {
	return s.top(ctx, s.pointsKey(), limit)
}

func (s *RedisStore) TopWinners(ctx context.Context, limit int) ([]PlayerStats, error) {
	return s.top(ctx, s.winsKey(), limit)
}

func (s *RedisStore) top(ctx context.Context, key string, limit int) ([]PlayerStats, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := s.client.ZRevRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("读取排行榜失败: %w", err)
	}

	if len(ids) == 0 {
		return []PlayerStats{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.playerKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("读取玩家统计失败: %w", err)
	}

	list := make([]PlayerStats, 0, len(ids))
	for i, id := range ids {
		list = append(list, parsePlayer(id, cmds[i].Val()))
	}

	return list, nil
}

func (s *RedisStore) Player(ctx context.Context, playerID string) (PlayerStats, error) {
	fields, err := s.client.HGetAll(ctx, s.playerKey(playerID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return PlayerStats{}, fmt.Errorf("读取玩家统计失败: %w", err)
	}

	if len(fields) == 0 {
		return PlayerStats{}, ErrPlayerNotFound
	}

	return parsePlayer(playerID, fields), nil
}

func parsePlayer(playerID string, fields map[string]string) PlayerStats {
	p := PlayerStats{
		PlayerID: playerID,
		Name:     fields["name"],
		ByGame:   make(map[string]GameTypeStats),
	}

	for field, raw := range fields {
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}

		switch {
		case field == "points":
			p.Points = n
		case field == "wins":
			p.Wins = n
		case field == "games":
			p.Games = n
		case strings.HasPrefix(field, "wins:"):
			gameType := strings.TrimPrefix(field, "wins:")
			gs := p.ByGame[gameType]
			gs.Wins = n
			p.ByGame[gameType] = gs
		case strings.HasPrefix(field, "games:"):
			gameType := strings.TrimPrefix(field, "games:")
			gs := p.ByGame[gameType]
			gs.Games = n
			p.ByGame[gameType] = gs
		}
	}

	return p
}

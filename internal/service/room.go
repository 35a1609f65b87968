package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"undercover-be/internal/metrics"
	"undercover-be/internal/service/dto"
	"undercover-be/internal/service/game"
)

var (
	ErrRoomNotFound = errors.New("房间不存在")
	ErrRoomExists   = errors.New("房间已有进行中的对局")
)

const CLEANUP_INTERVAL = time.Minute

type RoomServiceOptions struct {
	GameOptions game.Options
	LobbyTTL    time.Duration

	Words    game.WordBank
	Stats    game.StatsRecorder
	Notifier game.Notifier
	// 为空时使用真实时钟和随机源
	Clock game.Clock
	Rand  func() game.Rand
}

// RoomService 把房间 ID 映射到至多一个活跃的对局状态机
type RoomService struct {
	opts  RoomServiceOptions
	state *roomServiceState
}

type roomServiceState struct {
	mu sync.RWMutex

	rooms map[string]*roomEntry

	cleanUpDone chan struct{}
	closeOnce   sync.Once
}

type roomEntry struct {
	name    string
	machine *game.GameMachine
	// 大厅中最近一次活动的时间（UnixNano）
	lastActive atomic.Int64
}

func NewRoomService(opts RoomServiceOptions) *RoomService {
	if opts.Rand == nil {
		opts.Rand = game.NewRand
	}
	if opts.LobbyTTL <= 0 {
		opts.LobbyTTL = 30 * time.Minute
	}

	rs := &RoomService{
		opts: opts,
		state: &roomServiceState{
			rooms:       make(map[string]*roomEntry),
			cleanUpDone: make(chan struct{}),
		},
	}

	// 定期清理闲置过久的大厅
	go rs.startCleanupLoop()

	return rs
}

func (rs *RoomService) startCleanupLoop() {
	ticker := time.NewTicker(CLEANUP_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-rs.state.cleanUpDone:
			return

		case now := <-ticker.C:
			rs.cleanupExpired(now)
		}
	}
}

// cleanupExpired 结束所有闲置超过 LobbyTTL 的大厅，返回被清理的房间数
func (rs *RoomService) cleanupExpired(now time.Time) int {
	expired := make([]*roomEntry, 0)

	rs.state.mu.RLock()
	for roomID, entry := range rs.state.rooms {
		if isLobbyExpired(entry, now, rs.opts.LobbyTTL) {
			zap.S().Infof("房间 %s 大厅闲置过久，开始清理", roomID)
			expired = append(expired, entry)
		}
	}
	rs.state.mu.RUnlock()

	// 不能持锁停止状态机：退出回调需要获取写锁
	for _, entry := range expired {
		entry.machine.Stop()
	}

	return len(expired)
}

func (rs *RoomService) get(roomID string) (*roomEntry, error) {
	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	entry, ok := rs.state.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}

	return entry, nil
}

// 只删除仍是同一个状态机的记录，避免误删同一房间新建的对局
func (rs *RoomService) remove(roomID string, gm *game.GameMachine) {
	rs.state.mu.Lock()
	defer rs.state.mu.Unlock()

	if entry, ok := rs.state.rooms[roomID]; ok && entry.machine == gm {
		delete(rs.state.rooms, roomID)
		metrics.ActiveSessions.Set(float64(len(rs.state.rooms)))

		zap.S().Infof("房间 %s 的对局已回收", roomID)
	}
}

func (rs *RoomService) CreateSession(req dto.CreateRoomRequest) (dto.CreateRoomResponse, error) {
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		roomID = genRoomID()
	}

	opts := rs.opts.GameOptions
	if req.Options != nil {
		opts = *req.Options
	}

	gm, err := game.NewGameMachine(roomID, opts, game.Dependencies{
		Clock:    rs.opts.Clock,
		Rand:     rs.opts.Rand(),
		Words:    rs.opts.Words,
		Notifier: game.MultiNotifier{metrics.Observer{}, rs.opts.Notifier},
		Stats:    rs.opts.Stats,
	})
	if err != nil {
		return dto.CreateRoomResponse{}, err
	}

	entry := &roomEntry{
		name:    req.RoomName,
		machine: gm,
	}
	entry.lastActive.Store(time.Now().UnixNano())

	rs.state.mu.Lock()

	if _, exists := rs.state.rooms[roomID]; exists {
		rs.state.mu.Unlock()
		return dto.CreateRoomResponse{}, fmt.Errorf("%w: %s", ErrRoomExists, roomID)
	}

	rs.state.rooms[roomID] = entry
	metrics.ActiveSessions.Set(float64(len(rs.state.rooms)))

	rs.state.mu.Unlock()

	gm.OnExit(func() {
		rs.remove(roomID, gm)
	})

	// 每个对局一个独立的 goroutine
	go gm.Start()

	zap.S().Infof("房间 %s 创建了新的对局 %s", roomID, gm.GameID())

	return dto.CreateRoomResponse{
		RoomID: roomID,
		GameID: gm.GameID(),
		Opts:   opts,
	}, nil
}

func (rs *RoomService) AddPlayer(ctx context.Context, req dto.JoinRoomRequest) (dto.JoinRoomResponse, error) {
	entry, err := rs.get(req.RoomID)
	if err != nil {
		return dto.JoinRoomResponse{}, err
	}

	player, err := entry.machine.AddPlayer(ctx, req.PlayerID, req.JoinerName)
	if err != nil {
		zap.S().Debugf("房间 %s 拒绝玩家 %s 加入：%v", req.RoomID, req.PlayerID, err)
		return dto.JoinRoomResponse{}, err
	}

	entry.lastActive.Store(time.Now().UnixNano())

	return dto.JoinRoomResponse{Joiner: player}, nil
}

func (rs *RoomService) Start(ctx context.Context, roomID string) (game.Snapshot, error) {
	entry, err := rs.get(roomID)
	if err != nil {
		return game.Snapshot{}, err
	}

	return entry.machine.StartGame(ctx)
}

func (rs *RoomService) SubmitWord(ctx context.Context, roomID, playerID, word string) (game.TurnResult, error) {
	entry, err := rs.get(roomID)
	if err != nil {
		return game.TurnResult{}, err
	}

	return entry.machine.SubmitWord(ctx, playerID, word)
}

func (rs *RoomService) CastVote(ctx context.Context, roomID, voterID, targetID string) error {
	entry, err := rs.get(roomID)
	if err != nil {
		return err
	}

	return entry.machine.CastVote(ctx, voterID, targetID)
}

func (rs *RoomService) CloseVoting(ctx context.Context, roomID string) error {
	entry, err := rs.get(roomID)
	if err != nil {
		return err
	}

	return entry.machine.CloseVoting(ctx)
}

func (rs *RoomService) GuessCivilianWord(ctx context.Context, roomID, playerID, guess string) (bool, error) {
	entry, err := rs.get(roomID)
	if err != nil {
		return false, err
	}

	return entry.machine.GuessCivilianWord(ctx, playerID, guess)
}

func (rs *RoomService) Snapshot(ctx context.Context, roomID string) (game.Snapshot, error) {
	entry, err := rs.get(roomID)
	if err != nil {
		return game.Snapshot{}, err
	}

	return entry.machine.Snapshot(ctx)
}

func (rs *RoomService) ListRooms() []dto.RoomSummary {
	rs.state.mu.RLock()

	rooms := make([]dto.RoomSummary, 0, len(rs.state.rooms))
	for roomID, entry := range rs.state.rooms {
		rooms = append(rooms, summarize(roomID, entry))
	}

	rs.state.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})

	return rooms
}

func (rs *RoomService) Count() int {
	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	return len(rs.state.rooms)
}

// EndSession 取消房间中的对局并等待状态机退出
func (rs *RoomService) EndSession(ctx context.Context, roomID string) error {
	entry, err := rs.get(roomID)
	if err != nil {
		return err
	}

	entry.machine.Stop()

	if err := entry.machine.Wait(ctx); err != nil {
		return err
	}

	zap.S().Infof("房间 %s 的对局已被结束", roomID)

	return nil
}

// Close 停止清理协程并结束所有对局，可重复调用
func (rs *RoomService) Close(ctx context.Context) {
	rs.state.closeOnce.Do(func() {
		close(rs.state.cleanUpDone)
	})

	rs.state.mu.RLock()
	machines := make([]*game.GameMachine, 0, len(rs.state.rooms))
	for _, entry := range rs.state.rooms {
		machines = append(machines, entry.machine)
	}
	rs.state.mu.RUnlock()

	for _, gm := range machines {
		gm.Stop()
	}

	for _, gm := range machines {
		if err := gm.Wait(ctx); err != nil {
			zap.S().Warnf("等待房间 %s 退出超时：%v", gm.RoomID(), err)
			return
		}
	}

	zap.S().Infof("房间服务已关闭，共结束 %d 个对局", len(machines))
}

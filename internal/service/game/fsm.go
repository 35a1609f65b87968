package game

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// GameMachine 是对局的事件循环：所有请求和计时到期都汇总到同一个协程中串行处理，
// 因此同一房间的两个操作永远不会交错修改状态
type GameMachine struct {
	game *Game
	// 所有用户请求汇总的通道，无缓冲：送达即保证会被处理并得到响应
	reqCh chan RequestWrapper
	// 计时到期事件
	tmoCh chan Deadline
	// 结束通道，用于通知状态机退出事件循环
	doneCh chan struct{}
	// 事件循环退出后关闭
	exitCh chan struct{}

	closeOnce sync.Once
	onExit    func()

	lifecycle atomic.Value
	final     atomic.Pointer[Snapshot]

	createdAt time.Time
}

func NewGameMachine(roomID string, opts Options, deps Dependencies) (*GameMachine, error) {
	gm := &GameMachine{
		reqCh:     make(chan RequestWrapper),
		tmoCh:     make(chan Deadline, 64),
		doneCh:    make(chan struct{}),
		exitCh:    make(chan struct{}),
		createdAt: time.Now(),
	}

	deps.OnDeadline = gm.postTimeout

	g, err := NewGame(roomID, opts, deps)
	if err != nil {
		return nil, err
	}

	gm.game = g
	gm.lifecycle.Store(g.Lifecycle())

	return gm, nil
}

// OnExit 设置事件循环退出后的回调，必须在 Start 之前调用
func (gm *GameMachine) OnExit(f func()) {
	gm.onExit = f
}

// 计时回调运行在独立的协程中，只负责把到期事件投递回事件循环
func (gm *GameMachine) postTimeout(dl Deadline) {
	select {
	case gm.tmoCh <- dl:
	case <-gm.exitCh:
	}
}

func (gm *GameMachine) Start() {
	defer func() {
		snap := gm.game.Snapshot()
		gm.final.Store(&snap)
		gm.lifecycle.Store(gm.game.Lifecycle())

		// 先执行回调再关闭 exitCh，Wait 返回时回调一定已经完成
		if gm.onExit != nil {
			gm.onExit()
		}

		close(gm.exitCh)

		zap.L().Info(
			"游戏状态机已结束",
			zap.String("room_id", gm.game.RoomID()),
		)
	}()

	for {
		select {
		case req := <-gm.reqCh:
			zap.L().Debug(
				"接收到客户端请求",
				zap.String("room_id", gm.game.RoomID()),
				zap.String("request_type", req.ReqType),
			)

			req.respCh <- gm.handle(req)

		case dl := <-gm.tmoCh:
			zap.L().Debug(
				"接收到超时事件",
				zap.String("room_id", gm.game.RoomID()),
				zap.String("kind", string(dl.Kind)),
				zap.Int("round", dl.Round),
			)

			gm.handleTimeout(dl)

		case <-gm.doneCh:
			zap.L().Info(
				"收到退出信号，结束游戏状态机",
				zap.String("room_id", gm.game.RoomID()),
			)

			gm.cancel()
			return
		}

		gm.lifecycle.Store(gm.game.Lifecycle())

		// 游戏结束后协程自动退出，释放资源
		if gm.game.IsFinished() {
			return
		}
	}
}

// handle 把请求交给对局当前阶段处理；处理过程中的 panic 只会中止这一局
func (gm *GameMachine) handle(req RequestWrapper) (resp ResponseWrapper) {
	defer func() {
		if r := recover(); r != nil {
			err := gm.game.Abort(fmt.Errorf("处理请求 %s 时发生 panic: %v", req.ReqType, r))
			resp = WrapErrResponse(req.ReqType, err)
		}
	}()

	data, err := gm.game.Handle(req)
	if err != nil {
		return WrapErrResponse(req.ReqType, err)
	}

	// 开始游戏后返回第一回合的状态
	if req.ReqType == REQ_START_GAME {
		data = gm.game.Snapshot()
	}

	return WrapResponse(req.ReqType, data)
}

func (gm *GameMachine) handleTimeout(dl Deadline) {
	defer func() {
		if r := recover(); r != nil {
			_ = gm.game.Abort(fmt.Errorf("处理超时事件时发生 panic: %v", r))
		}
	}()

	gm.game.HandleTimeout(dl)
}

func (gm *GameMachine) cancel() {
	defer func() {
		if r := recover(); r != nil {
			_ = gm.game.Abort(fmt.Errorf("取消对局时发生 panic: %v", r))
		}
	}()

	gm.game.Cancel()
}

// Do 把请求送入事件循环并等待响应；事件循环已退出时返回 ErrAlreadyFinished
func (gm *GameMachine) Do(ctx context.Context, reqType string, data any) (any, error) {
	req := RequestWrapper{
		ReqType: reqType,
		Data:    data,
		respCh:  make(chan ResponseWrapper, 1),
	}

	select {
	case gm.reqCh <- req:
	case <-gm.exitCh:
		return nil, ErrAlreadyFinished
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-req.respCh:
		return resp.Data, resp.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (gm *GameMachine) AddPlayer(ctx context.Context, playerID, name string) (Player, error) {
	data, err := gm.Do(ctx, REQ_ADD_PLAYER, AddPlayerRequest{PlayerID: playerID, Name: name})
	if err != nil {
		return Player{}, err
	}

	return data.(Player), nil
}

func (gm *GameMachine) StartGame(ctx context.Context) (Snapshot, error) {
	data, err := gm.Do(ctx, REQ_START_GAME, nil)
	if err != nil {
		return Snapshot{}, err
	}

	return data.(Snapshot), nil
}

func (gm *GameMachine) SubmitWord(ctx context.Context, playerID, word string) (TurnResult, error) {
	data, err := gm.Do(ctx, REQ_SUBMIT_WORD, SubmitWordRequest{PlayerID: playerID, Word: word})
	if err != nil {
		return TurnResult{}, err
	}

	return data.(TurnResult), nil
}

func (gm *GameMachine) CastVote(ctx context.Context, voterID, targetID string) error {
	_, err := gm.Do(ctx, REQ_VOTE, VoteRequest{VoterID: voterID, TargetID: targetID})
	return err
}

func (gm *GameMachine) CloseVoting(ctx context.Context) error {
	_, err := gm.Do(ctx, REQ_CLOSE_VOTING, nil)
	return err
}

func (gm *GameMachine) GuessCivilianWord(ctx context.Context, playerID, guess string) (bool, error) {
	data, err := gm.Do(ctx, REQ_GUESS_WORD, GuessWordRequest{PlayerID: playerID, Guess: guess})
	if err != nil {
		return false, err
	}

	return data.(bool), nil
}

// Snapshot 在事件循环退出后返回最终状态
func (gm *GameMachine) Snapshot(ctx context.Context) (Snapshot, error) {
	data, err := gm.Do(ctx, REQ_SNAPSHOT, nil)
	if err != nil {
		if final := gm.final.Load(); final != nil {
			return *final, nil
		}

		return Snapshot{}, err
	}

	return data.(Snapshot), nil
}

// Stop 通知事件循环取消对局并退出，可重复调用
func (gm *GameMachine) Stop() {
	gm.closeOnce.Do(func() {
		close(gm.doneCh)
	})
}

// Wait 阻塞直到事件循环退出
func (gm *GameMachine) Wait(ctx context.Context) error {
	select {
	case <-gm.exitCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (gm *GameMachine) Done() <-chan struct{} {
	return gm.exitCh
}

func (gm *GameMachine) RoomID() string {
	return gm.game.RoomID()
}

// 对局 ID 在创建后不再变化，可以在事件循环之外读取
func (gm *GameMachine) GameID() string {
	return gm.game.GameID()
}

func (gm *GameMachine) Lifecycle() Lifecycle {
	return gm.lifecycle.Load().(Lifecycle)
}

func (gm *GameMachine) IsFinished() bool {
	return gm.Lifecycle() == LIFECYCLE_FINISHED
}

func (gm *GameMachine) CreatedAt() time.Time {
	return gm.createdAt
}

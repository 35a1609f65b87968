package game

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// 对局分为 4 个阶段：
// 1. 大厅（Lobby）：玩家加入，等待房主开始
// 2. 发言阶段（WordSubmission）：存活玩家按随机顺序轮流给出一个词
// 3. 投票阶段（Voting）：存活玩家投票或弃票，计票后淘汰一人或无人出局
// 4. 结束阶段（Finished）：有一方获胜、达到回合上限、被取消或异常中止
//
// 发言和投票两个阶段合起来是一个回合；投票结束后没有分出胜负时回到发言阶段开始下一回合
const (
	STAGE_LOBBY           = "Lobby"
	STAGE_WORD_SUBMISSION = "WordSubmission"
	STAGE_VOTING          = "Voting"
	STAGE_FINISHED        = "Finished"
)

type StageHandler interface {
	Stage() string

	OnEnter(g *Game)
	OnHandle(g *Game, req RequestWrapper) (any, error)
	OnExit(g *Game)

	SetOnSwitch(func(nextStage string))
}

// 对局结束的原因，决定结束阶段如何结算
type EndReason string

const (
	END_NONE      EndReason = ""
	END_WINNER    EndReason = "Winner"
	END_ROUND_CAP EndReason = "RoundCap"
	END_CANCELLED EndReason = "Cancelled"
	END_ABORTED   EndReason = "Aborted"
)

// Game 是各阶段处理器共享的上下文。
// Game 本身不是并发安全的，所有调用都必须来自同一个协程（见 GameMachine）

type Dependencies struct {
	Clock    Clock
	Rand     Rand
	Words    WordBank
	Notifier Notifier
	Stats    StatsRecorder
	// 计时到期时的投递函数；未设置时直接在计时回调中处理，只适用于手动时钟
	OnDeadline func(Deadline)
}

type Game struct {
	roomID string
	gameID string
	opts   Options

	stage   string
	handler StageHandler

	players []*Player
	index   map[string]*Player
	roles   map[string]Role
	words   WordPair
	round   int

	sched        *TurnScheduler
	tally        *VoteTally
	voteDeadline *deadlineTimer

	history    []RoundRecord
	points     map[string]int
	winner     Team
	end        EndReason
	abortCause error

	clock    Clock
	rng      Rand
	bank     WordBank
	notifier Notifier
	stats    StatsRecorder
	log      *zap.Logger
}

func NewGame(roomID string, opts Options, deps Dependencies) (*Game, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if deps.Words == nil {
		return nil, fmt.Errorf("%w: 缺少词库", ErrInvalidOptions)
	}

	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if deps.Rand == nil {
		deps.Rand = NewRand()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Stats == nil {
		deps.Stats = nopStats{}
	}

	g := &Game{
		roomID:   roomID,
		gameID:   GenID(),
		opts:     opts,
		stage:    STAGE_LOBBY,
		players:  make([]*Player, 0),
		index:    make(map[string]*Player),
		roles:    make(map[string]Role),
		points:   make(map[string]int),
		clock:    deps.Clock,
		rng:      deps.Rand,
		bank:     deps.Words,
		notifier: deps.Notifier,
		stats:    deps.Stats,
	}

	g.log = zap.L().With(
		zap.String("room_id", roomID),
		zap.String("game_id", g.gameID),
	)

	onDeadline := deps.OnDeadline
	if onDeadline == nil {
		onDeadline = g.HandleTimeout
	}

	g.sched = NewTurnScheduler(g.clock, opts.wordTimeout(), onDeadline)
	g.tally = NewVoteTally(g.index)
	g.voteDeadline = newDeadlineTimer(g.clock, onDeadline)

	g.handler = NewLobbyStageHandler()
	g.handler.SetOnSwitch(g.switchTo)
	g.handler.OnEnter(g)

	return g, nil
}

func (g *Game) switchTo(nextStage string) {
	g.stage = nextStage
}

func (g *Game) switchStage() {
	// 执行当前 handler 的 OnExit
	g.handler.OnExit(g)

	var newHandler StageHandler

	switch g.stage {
	case STAGE_LOBBY:
		newHandler = NewLobbyStageHandler()
	case STAGE_WORD_SUBMISSION:
		newHandler = NewWordStageHandler()
	case STAGE_VOTING:
		newHandler = NewVoteStageHandler()
	case STAGE_FINISHED:
		newHandler = NewFinishedStageHandler()
	default:
		g.log.Error("未知的游戏阶段", zap.String("stage", g.stage))

		g.end = END_ABORTED
		g.abortCause = fmt.Errorf("%w: 未知的游戏阶段 %s", ErrInternal, g.stage)
		g.stage = STAGE_FINISHED
		newHandler = NewFinishedStageHandler()
	}

	newHandler.SetOnSwitch(g.switchTo)
	g.handler = newHandler
}

// settle 在阶段发生变化时执行切换，新阶段的 OnEnter 可能再次切换，因此循环直到稳定
func (g *Game) settle() {
	for g.stage != g.handler.Stage() {
		g.switchStage()
		g.handler.OnEnter(g)
	}
}

// Handle 把请求交给当前阶段的处理器，处理完成后执行可能发生的阶段切换。
// 被拒绝的请求不会修改对局状态
func (g *Game) Handle(req RequestWrapper) (any, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if req.ReqType == REQ_SNAPSHOT {
		return g.Snapshot(), nil
	}

	wasFinished := g.handler.Stage() == STAGE_FINISHED

	data, err := g.handler.OnHandle(g, req)
	if err != nil {
		g.log.Debug(
			"处理请求失败",
			zap.Error(err),
			zap.String("stage", g.handler.Stage()),
			zap.String("request_type", req.ReqType),
		)
	}

	g.settle()

	if err == nil && !wasFinished && g.end == END_ABORTED {
		err = g.abortCause
	}

	return data, err
}

// 通知方的异常不能影响对局本身
func (g *Game) emit(evtType EventType, data any) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error(
				"推送对局事件时发生 panic",
				zap.String("event_type", string(evtType)),
				zap.Any("panic", r),
			)
		}
	}()

	g.notifier.Notify(Event{
		Type:   evtType,
		RoomID: g.roomID,
		GameID: g.gameID,
		Round:  g.round,
		Data:   data,
	})
}

func (g *Game) alivePlayers() []*Player {
	alive := make([]*Player, 0, len(g.players))
	for _, p := range g.players {
		if p.Alive {
			alive = append(alive, p)
		}
	}

	return alive
}

func (g *Game) AddPlayer(playerID, name string) (Player, error) {
	data, err := g.Handle(RequestWrapper{
		ReqType: REQ_ADD_PLAYER,
		Data:    AddPlayerRequest{PlayerID: playerID, Name: name},
	})
	if err != nil {
		return Player{}, err
	}

	return data.(Player), nil
}

// Start 分配身份、抽取词对并开始第一回合；身份只在这里分配一次
func (g *Game) Start() error {
	_, err := g.Handle(RequestWrapper{ReqType: REQ_START_GAME})
	return err
}

func (g *Game) SubmitWord(playerID, word string) (TurnResult, error) {
	data, err := g.Handle(RequestWrapper{
		ReqType: REQ_SUBMIT_WORD,
		Data:    SubmitWordRequest{PlayerID: playerID, Word: word},
	})
	if err != nil {
		return TurnResult{}, err
	}

	return data.(TurnResult), nil
}

// HandleTimeout 处理计时到期；过期的计时直接忽略，从不返回错误
func (g *Game) HandleTimeout(dl Deadline) {
	if _, err := g.Handle(RequestWrapper{ReqType: REQ_TIMEOUT, Data: dl}); err != nil {
		g.log.Debug(
			"忽略计时事件",
			zap.String("kind", string(dl.Kind)),
			zap.Uint64("seq", dl.Seq),
			zap.Error(err),
		)
	}
}

func (g *Game) CastVote(voterID, targetID string) error {
	_, err := g.Handle(RequestWrapper{
		ReqType: REQ_VOTE,
		Data:    VoteRequest{VoterID: voterID, TargetID: targetID},
	})

	return err
}

// CloseVoting 强制结束投票，未投票的玩家不计入
func (g *Game) CloseVoting() error {
	_, err := g.Handle(RequestWrapper{ReqType: REQ_CLOSE_VOTING})
	return err
}

// GuessCivilianWord 白板猜平民词：猜中直接获胜；猜错立即出局，然后再判胜负
func (g *Game) GuessCivilianWord(playerID, guess string) (bool, error) {
	data, err := g.Handle(RequestWrapper{
		ReqType: REQ_GUESS_WORD,
		Data:    GuessWordRequest{PlayerID: playerID, Guess: guess},
	})
	if err != nil {
		return false, err
	}

	return data.(bool), nil
}

// Cancel 在任意阶段结束对局，取消所有计时，不计分
func (g *Game) Cancel() {
	if g.handler.Stage() == STAGE_FINISHED {
		return
	}

	g.end = END_CANCELLED
	g.switchTo(STAGE_FINISHED)
	g.settle()
}

// abort 在内部不变量被破坏时记录原因并切换到结束阶段，只影响当前房间
func (g *Game) abort(cause error) error {
	if !errors.Is(cause, ErrInternal) {
		cause = fmt.Errorf("%w: %v", ErrInternal, cause)
	}

	if g.handler.Stage() != STAGE_FINISHED {
		g.end = END_ABORTED
		g.abortCause = cause
		g.switchTo(STAGE_FINISHED)
	}

	return cause
}

// Abort 由状态机在处理过程中发生 panic 后调用，立即结束对局。
// 结束过程中再次 panic 时不再结算，直接进入结束阶段
func (g *Game) Abort(cause error) (err error) {
	err = g.abort(cause)

	defer func() {
		if r := recover(); r != nil {
			g.log.Error("中止对局时再次发生 panic", zap.Any("panic", r))

			g.stage = STAGE_FINISHED
			g.handler = NewFinishedStageHandler()
		}
	}()

	g.settle()

	return err
}

// 大厅阶段，只接受加入和开始
type lobbyStageHandler struct {
	onSwitch func(string)
}

func NewLobbyStageHandler() *lobbyStageHandler {
	return &lobbyStageHandler{}
}

func (lsh *lobbyStageHandler) Stage() string {
	return STAGE_LOBBY
}

func (lsh *lobbyStageHandler) OnEnter(g *Game) {
	g.round = 0
}

func (lsh *lobbyStageHandler) OnHandle(g *Game, req RequestWrapper) (any, error) {
	if r := TryUnwrapAddPlayerRequest(req); r != nil {
		return g.addPlayer(r.PlayerID, r.Name)
	}

	switch req.ReqType {
	case REQ_START_GAME:
		if err := g.assignRolesAndWords(); err != nil {
			return nil, err
		}

		lsh.onSwitch(STAGE_WORD_SUBMISSION)
		return nil, nil

	case REQ_TIMEOUT:
		return nil, errStaleDeadline
	}

	return nil, fmt.Errorf("%w: 游戏尚未开始", ErrWrongPhase)
}

func (lsh *lobbyStageHandler) OnExit(g *Game) {}

func (lsh *lobbyStageHandler) SetOnSwitch(onSwitch func(string)) {
	lsh.onSwitch = onSwitch
}

func (g *Game) addPlayer(playerID, name string) (Player, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return Player{}, fmt.Errorf("%w: 玩家 ID 不能为空", ErrInvalidInput)
	}

	if _, exists := g.index[playerID]; exists {
		return Player{}, fmt.Errorf("%w: %s", ErrDuplicatePlayer, playerID)
	}

	player := &Player{
		ID:    playerID,
		Name:  name,
		Alive: true,
	}

	g.players = append(g.players, player)
	g.index[playerID] = player

	g.log.Debug(
		"玩家加入房间",
		zap.String("player_id", playerID),
		zap.String("player_name", name),
		zap.Int("player_count", len(g.players)),
	)

	g.emit(EVT_PLAYER_JOINED, PlayerJoinedData{
		Player:      *player,
		PlayerCount: len(g.players),
	})

	return *player, nil
}

func (g *Game) assignRolesAndWords() error {
	ids := make([]string, 0, len(g.players))
	for _, p := range g.players {
		ids = append(ids, p.ID)
	}

	roles, err := AssignRoles(ids, g.opts.UndercoverQuota, g.opts.MrWhiteEnabled, g.rng)
	if err != nil {
		return err
	}

	g.roles = roles
	g.words = g.bank.Draw(g.rng)

	counts := countRoles(roles)
	g.log.Info(
		"游戏开始",
		zap.Int("players", len(g.players)),
		zap.Int("undercover", counts[ROLE_UNDERCOVER]),
		zap.Int("mr_white", counts[ROLE_MRWHITE]),
		zap.Int("max_rounds", g.opts.MaxRounds),
	)

	assignments := make([]Assignment, 0, len(g.players))
	for _, p := range g.players {
		assignments = append(assignments, Assignment{
			PlayerID: p.ID,
			Role:     roles[p.ID],
			Word:     g.wordFor(roles[p.ID]),
		})
	}

	g.emit(EVT_GAME_STARTED, GameStartedData{
		Players:         g.playerViews(),
		Assignments:     assignments,
		UndercoverCount: counts[ROLE_UNDERCOVER],
		MrWhiteEnabled:  counts[ROLE_MRWHITE] > 0,
		MaxRounds:       g.opts.MaxRounds,
		WordTimeout:     g.opts.WordTimeoutSeconds,
	})

	return nil
}

func (g *Game) wordFor(role Role) string {
	switch role {
	case ROLE_UNDERCOVER:
		return g.words.UndercoverWord
	case ROLE_MRWHITE:
		return NO_WORD_SENTINEL
	default:
		return g.words.CivilianWord
	}
}

// 发言阶段，每次进入都是新的一回合
type wordStageHandler struct {
	onSwitch func(string)
}

func NewWordStageHandler() *wordStageHandler {
	return &wordStageHandler{}
}

func (wsh *wordStageHandler) Stage() string {
	return STAGE_WORD_SUBMISSION
}

func (wsh *wordStageHandler) OnEnter(g *Game) {
	round := g.round + 1

	first, deadline, err := g.sched.StartRound(round, g.alivePlayers(), g.rng)
	if err != nil {
		_ = g.abort(err)
		return
	}

	g.round = round

	order := make([]Player, 0, len(g.sched.Order()))
	for _, p := range g.sched.Order() {
		order = append(order, *p)
	}

	g.log.Debug(
		"回合开始",
		zap.Int("round", round),
		zap.String("first_player", first.ID),
	)

	g.emit(EVT_ROUND_STARTED, RoundStartedData{
		MaxRounds:     g.opts.MaxRounds,
		CurrentPlayer: *first,
		Deadline:      deadline,
		TurnOrder:     order,
	})
}

func (wsh *wordStageHandler) OnHandle(g *Game, req RequestWrapper) (any, error) {
	if r := TryUnwrapSubmitWordRequest(req); r != nil {
		word := strings.TrimSpace(r.Word)
		if word == "" {
			return TurnResult{}, fmt.Errorf("%w: 发言内容不能为空", ErrInvalidInput)
		}

		res, err := g.sched.Submit(r.PlayerID, word)
		if err != nil {
			return TurnResult{}, err
		}

		wsh.afterTurn(g, res)
		return res, nil
	}

	if dl := TryUnwrapTimeoutRequest(req); dl != nil {
		if dl.Kind != DEADLINE_WORD {
			return nil, errStaleDeadline
		}

		res, ok := g.sched.Expire(*dl)
		if !ok {
			return nil, errStaleDeadline
		}

		g.log.Info(
			"玩家发言超时，已记录默认词",
			zap.String("player_id", res.Recorded.PlayerID),
			zap.Int("round", g.round),
		)

		wsh.afterTurn(g, res)
		return res, nil
	}

	if r := TryUnwrapGuessWordRequest(req); r != nil {
		guesser, correct, err := g.judgeGuess(r.PlayerID, r.Guess)
		if err != nil || g.stage != wsh.Stage() {
			return correct, err
		}

		// 猜错出局的白板如果正轮到发言，直接跳到下一位
		if res, moved := g.sched.Skip(guesser.ID); moved {
			g.emit(EVT_TURN_SKIPPED, TurnSkippedData{
				Skipped:    *guesser,
				NextPlayer: res.Next,
				Deadline:   res.Deadline,
			})

			if res.Complete {
				wsh.onSwitch(STAGE_VOTING)
			}
		}

		return correct, nil
	}

	switch req.ReqType {
	case REQ_VOTE, REQ_CLOSE_VOTING:
		return nil, fmt.Errorf("%w: 现在不是投票时间", ErrWrongPhase)
	case REQ_ADD_PLAYER:
		return Player{}, fmt.Errorf("%w: 游戏已开始，无法加入", ErrWrongPhase)
	}

	return nil, fmt.Errorf("%w: 游戏已经开始", ErrWrongPhase)
}

func (wsh *wordStageHandler) afterTurn(g *Game, res TurnResult) {
	if res.Recorded != nil {
		g.emit(EVT_WORD_RECORDED, WordRecordedData{
			Word:       *res.Recorded,
			NextPlayer: res.Next,
			Deadline:   res.Deadline,
		})
	}

	if res.Complete {
		wsh.onSwitch(STAGE_VOTING)
	}
}

func (wsh *wordStageHandler) OnExit(g *Game) {
	g.sched.deadline.cancel()
}

func (wsh *wordStageHandler) SetOnSwitch(onSwitch func(string)) {
	wsh.onSwitch = onSwitch
}

// 投票阶段
type voteStageHandler struct {
	onSwitch func(string)
}

func NewVoteStageHandler() *voteStageHandler {
	return &voteStageHandler{}
}

func (vsh *voteStageHandler) Stage() string {
	return STAGE_VOTING
}

func (vsh *voteStageHandler) OnEnter(g *Game) {
	g.emit(EVT_ROUND_COMPLETE, RoundCompleteData{
		Words: g.sched.Words(),
	})

	if g.opts.VoteTimeoutSeconds > 0 {
		g.voteDeadline.arm(DEADLINE_VOTE, g.round, g.opts.voteTimeout())
	}
}

func (vsh *voteStageHandler) OnHandle(g *Game, req RequestWrapper) (any, error) {
	if r := TryUnwrapVoteRequest(req); r != nil {
		replaced, err := g.tally.Cast(r.VoterID, r.TargetID)
		if err != nil {
			return nil, err
		}

		g.emit(EVT_VOTE_RECORDED, VoteRecordedData{
			VoterID:  r.VoterID,
			TargetID: r.TargetID,
			Blank:    r.TargetID == BLANK_VOTE,
			Replaced: replaced,
			Cast:     g.tally.VotesCast(),
			Needed:   len(g.alivePlayers()),
		})

		if g.tally.IsComplete() {
			return nil, vsh.resolve(g, false)
		}

		return nil, nil
	}

	if dl := TryUnwrapTimeoutRequest(req); dl != nil {
		if dl.Kind != DEADLINE_VOTE || !g.voteDeadline.matches(*dl) {
			return nil, errStaleDeadline
		}

		g.log.Info("投票超时，强制计票", zap.Int("round", g.round))

		return nil, vsh.resolve(g, true)
	}

	if r := TryUnwrapGuessWordRequest(req); r != nil {
		guesser, correct, err := g.judgeGuess(r.PlayerID, r.Guess)
		if err != nil || g.stage != vsh.Stage() {
			return correct, err
		}

		// 白板投出的票和投给白板的票作废，相关玩家需要重新投票
		g.tally.Drop(guesser.ID)
		if g.tally.IsComplete() {
			return correct, vsh.resolve(g, false)
		}

		return correct, nil
	}

	switch req.ReqType {
	case REQ_CLOSE_VOTING:
		return nil, vsh.resolve(g, true)
	case REQ_SUBMIT_WORD:
		return TurnResult{}, fmt.Errorf("%w: 现在不是发言时间", ErrWrongPhase)
	case REQ_ADD_PLAYER:
		return Player{}, fmt.Errorf("%w: 游戏已开始，无法加入", ErrWrongPhase)
	}

	return nil, fmt.Errorf("%w: 游戏已经开始", ErrWrongPhase)
}

// resolve 计票后先判胜负，再判回合上限，都没有则回到发言阶段开始下一回合
func (vsh *voteStageHandler) resolve(g *Game, forced bool) error {
	res, err := g.tally.Resolve()
	if err != nil {
		return g.abort(err)
	}

	record := RoundRecord{
		Number:     g.round,
		Words:      g.sched.Words(),
		VoteCounts: res.Counts,
		BlankCount: res.Blanks,
	}

	data := EliminationResultData{
		Outcome: res.Outcome,
		Counts:  res.Counts,
		Blanks:  res.Blanks,
		Forced:  forced,
	}

	if res.Eliminated != nil {
		record.EliminatedID = res.Eliminated.ID
		eliminated := *res.Eliminated
		data.Eliminated = &eliminated
		data.Role = g.roles[eliminated.ID]

		g.log.Info(
			"玩家被投票淘汰",
			zap.String("player_id", eliminated.ID),
			zap.String("role", string(data.Role)),
			zap.Int("round", g.round),
		)
	} else {
		g.log.Info(
			"本回合无人出局",
			zap.String("outcome", string(res.Outcome)),
			zap.Int("round", g.round),
		)
	}

	g.history = append(g.history, record)
	g.emit(EVT_ELIMINATION_RESULT, data)

	if team := g.CheckWinCondition(); team != TEAM_NONE {
		g.winner = team
		g.end = END_WINNER
		vsh.onSwitch(STAGE_FINISHED)
		return nil
	}

	if g.round >= g.opts.MaxRounds {
		g.end = END_ROUND_CAP
		vsh.onSwitch(STAGE_FINISHED)
		return nil
	}

	vsh.onSwitch(STAGE_WORD_SUBMISSION)
	return nil
}

func (vsh *voteStageHandler) OnExit(g *Game) {
	g.voteDeadline.cancel()
}

func (vsh *voteStageHandler) SetOnSwitch(onSwitch func(string)) {
	vsh.onSwitch = onSwitch
}

// CheckWinCondition 平民方：卧底和白板全部出局；
// 卧底方：存活平民不超过 1 人且仍有卧底或白板存活
func (g *Game) CheckWinCondition() Team {
	var impostors, civilians int

	for _, p := range g.players {
		if !p.Alive {
			continue
		}

		if g.roles[p.ID].IsImpostor() {
			impostors++
		} else {
			civilians++
		}
	}

	if impostors == 0 {
		return TEAM_CIVIL
	}

	if civilians <= 1 {
		return TEAM_IMPOSTOR
	}

	return TEAM_NONE
}

// judgeGuess 判定白板猜词，分出胜负时切换到结束阶段；
// 返回的玩家在猜错时已经出局，由调用的阶段处理器修正本阶段的状态
func (g *Game) judgeGuess(playerID, guess string) (*Player, bool, error) {
	player, ok := g.index[playerID]
	if !ok || !player.Alive || g.roles[playerID] != ROLE_MRWHITE {
		return nil, false, ErrNotMrWhite
	}

	correct := strings.EqualFold(
		strings.TrimSpace(guess),
		strings.TrimSpace(g.words.CivilianWord),
	)

	if !correct {
		player.Alive = false
	}

	g.log.Info(
		"白板猜词",
		zap.String("player_id", playerID),
		zap.Bool("correct", correct),
	)

	g.emit(EVT_MRWHITE_GUESS, MrWhiteGuessData{
		Player:  *player,
		Guess:   guess,
		Correct: correct,
	})

	team := TEAM_MRWHITE
	if !correct {
		team = g.CheckWinCondition()
	}

	if team != TEAM_NONE {
		g.winner = team
		g.end = END_WINNER
		g.switchTo(STAGE_FINISHED)
	}

	return player, correct, nil
}

// 结束阶段，根据结束原因结算并通知展示层，之后拒绝所有请求
type finishedStageHandler struct {
	onSwitch func(string)
}

func NewFinishedStageHandler() *finishedStageHandler {
	return &finishedStageHandler{}
}

func (fsh *finishedStageHandler) Stage() string {
	return STAGE_FINISHED
}

func (fsh *finishedStageHandler) OnEnter(g *Game) {
	g.stopTimers()

	switch g.end {
	case END_WINNER:
		g.applyScoring(g.winner)

		g.log.Info(
			"游戏结束",
			zap.String("winner", string(g.winner)),
			zap.Int("round", g.round),
		)

		points := make(map[string]int, len(g.points))
		for id, pts := range g.points {
			points[id] = pts
		}

		g.emit(EVT_GAME_WON, GameWonData{
			Team:           g.winner,
			Points:         points,
			Reveal:         g.reveal(),
			CivilianWord:   g.words.CivilianWord,
			UndercoverWord: g.words.UndercoverWord,
		})

	case END_ROUND_CAP:
		for _, p := range g.players {
			g.stats.RecordGame(p.ID, p.Name, GAME_TYPE)
		}

		g.log.Info("达到回合上限，游戏结束且无人获胜", zap.Int("round", g.round))

		g.emit(EVT_GAME_ENDED_NO_WINNER, GameEndedNoWinnerData{
			Reveal:         g.reveal(),
			CivilianWord:   g.words.CivilianWord,
			UndercoverWord: g.words.UndercoverWord,
		})

	case END_ABORTED:
		g.log.Error("游戏异常中止", zap.Error(g.abortCause))
		g.emit(EVT_GAME_ABORTED, GameAbortedData{Reason: g.abortCause.Error()})

	default:
		g.log.Info("游戏被取消")
		g.emit(EVT_GAME_CANCELLED, nil)
	}
}

func (fsh *finishedStageHandler) OnHandle(g *Game, req RequestWrapper) (any, error) {
	if req.ReqType == REQ_TIMEOUT {
		return nil, errStaleDeadline
	}

	return nil, ErrAlreadyFinished
}

func (fsh *finishedStageHandler) OnExit(g *Game) {}

func (fsh *finishedStageHandler) SetOnSwitch(onSwitch func(string)) {
	fsh.onSwitch = onSwitch
}

func (g *Game) stopTimers() {
	g.sched.Stop()
	g.voteDeadline.cancel()
}

// 平民获胜：每个平民 2 分；卧底方获胜：每个卧底 10 分，白板 6 分；
// 白板猜中：只有白板得 6 分。未获胜的玩家只记录一局
func (g *Game) applyScoring(team Team) {
	award := func(p *Player, pts int) {
		g.points[p.ID] += pts
		g.stats.AddPoints(p.ID, p.Name, pts)
		g.stats.RecordWin(p.ID, p.Name, GAME_TYPE)
	}

	for _, p := range g.players {
		role := g.roles[p.ID]

		switch {
		case team == TEAM_CIVIL && role == ROLE_CIVIL:
			award(p, 2)
		case team == TEAM_IMPOSTOR && role == ROLE_UNDERCOVER:
			award(p, 10)
		case team == TEAM_IMPOSTOR && role == ROLE_MRWHITE:
			award(p, 6)
		case team == TEAM_MRWHITE && role == ROLE_MRWHITE:
			award(p, 6)
		default:
			g.stats.RecordGame(p.ID, p.Name, GAME_TYPE)
		}
	}
}

func (g *Game) reveal() []RoleReveal {
	reveal := make([]RoleReveal, 0, len(g.players))
	for _, p := range g.players {
		reveal = append(reveal, RoleReveal{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Role:       g.roles[p.ID],
			Alive:      p.Alive,
		})
	}

	return reveal
}

func (g *Game) playerViews() []Player {
	views := make([]Player, 0, len(g.players))
	for _, p := range g.players {
		views = append(views, *p)
	}

	return views
}

func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		RoomID:    g.roomID,
		GameID:    g.gameID,
		Lifecycle: g.Lifecycle(),
		Phase:     g.Phase(),
		Round:     g.round,
		MaxRounds: g.opts.MaxRounds,
		Players:   g.playerViews(),
		Words:     []SubmittedWord{},
		Pending:   []Player{},
		Winner:    g.winner,
	}

	switch snap.Phase {
	case PHASE_WORD_SUBMISSION:
		if current, deadline := g.sched.Current(); current != nil {
			c := *current
			snap.CurrentPlayer = &c
			snap.Deadline = deadline
		}
		snap.Words = g.sched.Words()
		snap.Pending = g.sched.Pending()

	case PHASE_VOTING:
		snap.Words = g.sched.Words()
		snap.VotesCast = g.tally.VotesCast()
		snap.VotesNeeded = len(g.alivePlayers())
	}

	if snap.Lifecycle == LIFECYCLE_FINISHED && len(g.points) > 0 {
		snap.Points = make(map[string]int, len(g.points))
		for id, pts := range g.points {
			snap.Points[id] = pts
		}
	}

	return snap
}

// Lifecycle 和 Phase 都由当前阶段推导
func (g *Game) Lifecycle() Lifecycle {
	switch g.stage {
	case STAGE_LOBBY:
		return LIFECYCLE_LOBBY
	case STAGE_FINISHED:
		return LIFECYCLE_FINISHED
	default:
		return LIFECYCLE_IN_PROGRESS
	}
}

func (g *Game) Phase() Phase {
	switch g.stage {
	case STAGE_WORD_SUBMISSION:
		return PHASE_WORD_SUBMISSION
	case STAGE_VOTING:
		return PHASE_VOTING
	default:
		return PHASE_NONE
	}
}

func (g *Game) RoomID() string         { return g.roomID }
func (g *Game) GameID() string         { return g.gameID }
func (g *Game) Stage() string          { return g.stage }
func (g *Game) Round() int             { return g.round }
func (g *Game) Winner() Team           { return g.winner }
func (g *Game) EndReason() EndReason   { return g.end }
func (g *Game) Words() WordPair        { return g.words }
func (g *Game) History() []RoundRecord { return g.history }
func (g *Game) IsFinished() bool       { return g.stage == STAGE_FINISHED }

func (g *Game) RoleOf(playerID string) Role {
	if role, ok := g.roles[playerID]; ok {
		return role
	}

	return ROLE_UNSET
}

func (g *Game) PointsOf(playerID string) int {
	return g.points[playerID]
}

func (g *Game) Player(playerID string) (Player, bool) {
	p, ok := g.index[playerID]
	if !ok {
		return Player{}, false
	}

	return *p, true
}

// 当前发言者及其截止时间
func (g *Game) CurrentTurn() (*Player, time.Time) {
	if g.stage != STAGE_WORD_SUBMISSION {
		return nil, time.Time{}
	}

	return g.sched.Current()
}

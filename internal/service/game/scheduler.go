package game

import (
	"fmt"
	"time"
)

type DeadlineKind string

const (
	DEADLINE_WORD DeadlineKind = "Word"
	DEADLINE_VOTE DeadlineKind = "Vote"
)

// Deadline 标识一次具体的计时，到期后会被原样投递回对局协程；
// 只有与当前挂起的计时完全一致时才会生效
type Deadline struct {
	Kind  DeadlineKind
	Round int
	Seq   uint64
	At    time.Time
}

// deadlineTimer 同一时刻最多只持有一个挂起的计时
type deadlineTimer struct {
	clock Clock
	fire  func(Deadline)

	timer  Timer
	armed  Deadline
	active bool
	seq    uint64
}

func newDeadlineTimer(clock Clock, fire func(Deadline)) *deadlineTimer {
	return &deadlineTimer{
		clock: clock,
		fire:  fire,
	}
}

func (dt *deadlineTimer) arm(kind DeadlineKind, round int, d time.Duration) Deadline {
	dt.cancel()

	dt.seq++
	dl := Deadline{
		Kind:  kind,
		Round: round,
		Seq:   dt.seq,
		At:    dt.clock.Now().Add(d),
	}

	dt.armed = dl
	dt.active = true

	fire := dt.fire
	dt.timer = dt.clock.AfterFunc(d, func() {
		fire(dl)
	})

	return dl
}

func (dt *deadlineTimer) cancel() {
	if dt.timer != nil {
		dt.timer.Stop()
		dt.timer = nil
	}

	dt.active = false
}

func (dt *deadlineTimer) matches(dl Deadline) bool {
	return dt.active && dl.Kind == dt.armed.Kind && dl.Seq == dt.armed.Seq
}

// 调度器在一个回合内的状态
type SchedulerState string

const (
	SCHEDULER_NOT_STARTED     SchedulerState = "NotStarted"
	SCHEDULER_WORD_SUBMISSION SchedulerState = "WordSubmission"
	SCHEDULER_VOTING_READY    SchedulerState = "VotingReady"
)

// TurnResult 描述一次发言推进的结果
type TurnResult struct {
	// 被跳过的玩家没有记录
	Recorded *SubmittedWord
	Next     *Player
	Deadline time.Time
	Complete bool
}

// TurnScheduler 负责一个回合内存活玩家的轮流发言以及每人的发言时限
type TurnScheduler struct {
	timeout  time.Duration
	deadline *deadlineTimer

	state SchedulerState
	round int
	order []*Player
	idx   int
	words map[string]SubmittedWord
}

func NewTurnScheduler(clock Clock, timeout time.Duration, fire func(Deadline)) *TurnScheduler {
	return &TurnScheduler{
		timeout:  timeout,
		deadline: newDeadlineTimer(clock, fire),
		state:    SCHEDULER_NOT_STARTED,
		words:    make(map[string]SubmittedWord),
	}
}

// StartRound 打乱存活玩家得到发言顺序，并为第一位玩家开始计时
func (s *TurnScheduler) StartRound(round int, alive []*Player, r Rand) (*Player, time.Time, error) {
	if len(alive) == 0 {
		return nil, time.Time{}, fmt.Errorf("%w: 第 %d 回合没有存活玩家", ErrInternal, round)
	}

	s.deadline.cancel()

	order := make([]*Player, len(alive))
	copy(order, alive)
	shuffle(r, len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	s.state = SCHEDULER_WORD_SUBMISSION
	s.round = round
	s.order = order
	s.idx = 0
	s.words = make(map[string]SubmittedWord, len(order))

	dl := s.deadline.arm(DEADLINE_WORD, round, s.timeout)

	return s.order[0], dl.At, nil
}

func (s *TurnScheduler) Submit(playerID, word string) (TurnResult, error) {
	if s.state != SCHEDULER_WORD_SUBMISSION {
		return TurnResult{}, fmt.Errorf("%w: 当前不在发言阶段", ErrWrongPhase)
	}

	current := s.order[s.idx]
	if current.ID != playerID {
		return TurnResult{}, fmt.Errorf("%w: 当前轮到 %s", ErrNotYourTurn, current.Name)
	}

	return s.advance(word, false), nil
}

// Expire 处理计时到期；过期或已被取消的计时返回 false，不做任何修改
func (s *TurnScheduler) Expire(dl Deadline) (TurnResult, bool) {
	if s.state != SCHEDULER_WORD_SUBMISSION || !s.deadline.matches(dl) {
		return TurnResult{}, false
	}

	return s.advance(TIMEOUT_WORD, true), true
}

// Skip 在玩家于回合中途出局时调用；只有轮到该玩家时才需要推进，
// 排在后面的出局玩家会在推进时被自动跳过
func (s *TurnScheduler) Skip(playerID string) (TurnResult, bool) {
	if s.state != SCHEDULER_WORD_SUBMISSION || s.order[s.idx].ID != playerID {
		return TurnResult{}, false
	}

	s.deadline.cancel()
	s.idx++

	return s.moveOn(), true
}

func (s *TurnScheduler) advance(word string, isTimeout bool) TurnResult {
	s.deadline.cancel()

	current := s.order[s.idx]
	rec := SubmittedWord{
		PlayerID:   current.ID,
		PlayerName: current.Name,
		Word:       word,
		IsTimeout:  isTimeout,
	}
	s.words[current.ID] = rec
	s.idx++

	res := s.moveOn()
	res.Recorded = &rec

	return res
}

func (s *TurnScheduler) moveOn() TurnResult {
	for s.idx < len(s.order) && !s.order[s.idx].Alive {
		s.idx++
	}

	if s.idx >= len(s.order) {
		s.state = SCHEDULER_VOTING_READY
		return TurnResult{Complete: true}
	}

	dl := s.deadline.arm(DEADLINE_WORD, s.round, s.timeout)

	return TurnResult{
		Next:     s.order[s.idx],
		Deadline: dl.At,
	}
}

// Stop 取消所有挂起的计时
func (s *TurnScheduler) Stop() {
	s.deadline.cancel()
	s.state = SCHEDULER_NOT_STARTED
}

func (s *TurnScheduler) State() SchedulerState {
	return s.state
}

func (s *TurnScheduler) Current() (*Player, time.Time) {
	if s.state != SCHEDULER_WORD_SUBMISSION {
		return nil, time.Time{}
	}

	return s.order[s.idx], s.deadline.armed.At
}

// Words 按发言顺序返回本回合已记录的词
func (s *TurnScheduler) Words() []SubmittedWord {
	words := make([]SubmittedWord, 0, len(s.words))
	for _, p := range s.order {
		if w, ok := s.words[p.ID]; ok {
			words = append(words, w)
		}
	}

	return words
}

// Pending 返回本回合尚未发言的存活玩家
func (s *TurnScheduler) Pending() []Player {
	if s.state != SCHEDULER_WORD_SUBMISSION {
		return []Player{}
	}

	pending := make([]Player, 0, len(s.order)-s.idx)
	for _, p := range s.order[s.idx:] {
		if p.Alive {
			pending = append(pending, *p)
		}
	}

	return pending
}

func (s *TurnScheduler) Order() []*Player {
	return s.order
}

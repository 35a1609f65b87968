package game

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

// maxRand 总是返回 n-1：洗牌保持原顺序，身份分配总是选最后一个玩家做卧底
type maxRand struct{}

func (maxRand) IntN(n int) int {
	return n - 1
}

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
	clock   *fakeClock
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	active := !t.stopped && !t.fired
	t.stopped = true

	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{at: c.now.Add(d), f: f, clock: c}
	c.timers = append(c.timers, t)

	return t
}

// Advance 推进时间并同步执行所有到期的计时回调
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)

	due := make([]*fakeTimer, 0)
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		return due[i].at.Before(due[j].at)
	})

	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}

	return n
}

type fixedBank struct {
	pair WordPair
}

func (b fixedBank) Draw(Rand) WordPair {
	return b.pair
}

var testWords = WordPair{CivilianWord: "Apple", UndercoverWord: "Pear"}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, evt)
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, 0)
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}

	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.events[len(r.events)-1]
}

type statsCall struct {
	kind   string
	player string
	amount int
}

type memStats struct {
	mu    sync.Mutex
	calls []statsCall
}

func (s *memStats) RecordWin(playerID, _, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, statsCall{kind: "win", player: playerID})
}

func (s *memStats) RecordGame(playerID, _, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, statsCall{kind: "game", player: playerID})
}

func (s *memStats) AddPoints(playerID, _ string, amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, statsCall{kind: "points", player: playerID, amount: amount})
}

func (s *memStats) count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		if c.kind == kind {
			n++
		}
	}

	return n
}

type testGame struct {
	*Game
	clock *fakeClock
	rec   *recorder
	stats *memStats
}

func pid(i int) string {
	return fmt.Sprintf("p%d", i)
}

// newTestGame 创建一个有 n 个玩家（p1..pn）的对局，发言顺序即加入顺序
func newTestGame(t *testing.T, opts Options, n int) *testGame {
	t.Helper()

	tg := &testGame{
		clock: newFakeClock(),
		rec:   &recorder{},
		stats: &memStats{},
	}

	g, err := NewGame("room-1", opts, Dependencies{
		Clock:    tg.clock,
		Rand:     maxRand{},
		Words:    fixedBank{pair: testWords},
		Notifier: tg.rec,
		Stats:    tg.stats,
	})
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}

	for i := 1; i <= n; i++ {
		if _, err := g.AddPlayer(pid(i), fmt.Sprintf("Player %d", i)); err != nil {
			t.Fatalf("AddPlayer(%d) failed: %v", i, err)
		}
	}

	tg.Game = g

	return tg
}

// submitAll 让当前回合的存活玩家按顺序提交发言
func (tg *testGame) submitAll(t *testing.T) {
	t.Helper()

	for tg.Phase() == PHASE_WORD_SUBMISSION {
		current, _ := tg.CurrentTurn()
		if current == nil {
			t.Fatalf("no current player during word submission")
		}

		if _, err := tg.SubmitWord(current.ID, "clue-"+current.ID); err != nil {
			t.Fatalf("SubmitWord(%s) failed: %v", current.ID, err)
		}
	}
}

func (tg *testGame) vote(t *testing.T, voterID, targetID string) {
	t.Helper()

	if err := tg.CastVote(voterID, targetID); err != nil {
		t.Fatalf("CastVote(%s -> %q) failed: %v", voterID, targetID, err)
	}
}

func (tg *testGame) findRole(role Role) []string {
	ids := make([]string, 0)
	for _, p := range tg.players {
		if tg.RoleOf(p.ID) == role {
			ids = append(ids, p.ID)
		}
	}

	return ids
}

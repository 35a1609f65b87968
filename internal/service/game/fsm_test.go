package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type panicBank struct{}

func (panicBank) Draw(Rand) WordPair {
	panic("word bank exploded")
}

type machineHarness struct {
	gm    *GameMachine
	clock *fakeClock
	rec   *recorder
	stats *memStats
}

func newMachine(t *testing.T, opts Options, bank WordBank) *machineHarness {
	t.Helper()

	h := &machineHarness{
		clock: newFakeClock(),
		rec:   &recorder{},
		stats: &memStats{},
	}

	gm, err := NewGameMachine("room-fsm", opts, Dependencies{
		Clock:    h.clock,
		Rand:     maxRand{},
		Words:    bank,
		Notifier: h.rec,
		Stats:    h.stats,
	})
	if err != nil {
		t.Fatalf("NewGameMachine failed: %v", err)
	}

	h.gm = gm
	go gm.Start()

	t.Cleanup(gm.Stop)

	return h
}

func testCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", what)
}

func TestGameMachine_FullGame(t *testing.T) {
	h := newMachine(t, DefaultOptions(), fixedBank{pair: testWords})
	ctx := testCtx(t)

	var exited atomic.Bool
	h.gm.OnExit(func() { exited.Store(true) })

	for i := 1; i <= 4; i++ {
		if _, err := h.gm.AddPlayer(ctx, pid(i), pid(i)); err != nil {
			t.Fatalf("AddPlayer failed: %v", err)
		}
	}

	snap, err := h.gm.StartGame(ctx)
	if err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	if snap.Lifecycle != LIFECYCLE_IN_PROGRESS || snap.CurrentPlayer == nil || snap.CurrentPlayer.ID != "p1" {
		t.Fatalf("unexpected snapshot after start: %+v", snap)
	}

	for i := 1; i <= 4; i++ {
		if _, err := h.gm.SubmitWord(ctx, pid(i), "clue"); err != nil {
			t.Fatalf("SubmitWord(%s) failed: %v", pid(i), err)
		}
	}

	for i := 1; i <= 3; i++ {
		if err := h.gm.CastVote(ctx, pid(i), "p4"); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
	}

	if err := h.gm.CastVote(ctx, "p4", "p1"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	if err := h.gm.Wait(ctx); err != nil {
		t.Fatalf("machine did not exit after the game finished: %v", err)
	}

	if !h.gm.IsFinished() {
		t.Fatalf("want finished lifecycle, got %s", h.gm.Lifecycle())
	}

	final, err := h.gm.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot after exit failed: %v", err)
	}

	if final.Winner != TEAM_CIVIL || final.Points["p1"] != 2 {
		t.Fatalf("unexpected final snapshot: %+v", final)
	}

	if _, err := h.gm.SubmitWord(ctx, "p1", "late"); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("want ErrAlreadyFinished after exit, got %v", err)
	}

	if !exited.Load() {
		t.Fatalf("exit callback was not called")
	}
}

func TestGameMachine_TimeoutDeliveredThroughLoop(t *testing.T) {
	h := newMachine(t, DefaultOptions(), fixedBank{pair: testWords})
	ctx := testCtx(t)

	for i := 1; i <= 2; i++ {
		if _, err := h.gm.AddPlayer(ctx, pid(i), pid(i)); err != nil {
			t.Fatalf("AddPlayer failed: %v", err)
		}
	}

	if _, err := h.gm.StartGame(ctx); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	h.clock.Advance(30 * time.Second)

	waitFor(t, "timeout to be recorded", func() bool {
		return len(h.rec.ofType(EVT_WORD_RECORDED)) == 1
	})

	snap, err := h.gm.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snap.CurrentPlayer == nil || snap.CurrentPlayer.ID != "p2" {
		t.Fatalf("want p2 current after timeout, got %+v", snap.CurrentPlayer)
	}

	if len(snap.Words) != 1 || snap.Words[0].Word != TIMEOUT_WORD {
		t.Fatalf("want timeout word recorded, got %+v", snap.Words)
	}
}

func TestGameMachine_StopCancelsGame(t *testing.T) {
	h := newMachine(t, DefaultOptions(), fixedBank{pair: testWords})
	ctx := testCtx(t)

	for i := 1; i <= 3; i++ {
		if _, err := h.gm.AddPlayer(ctx, pid(i), pid(i)); err != nil {
			t.Fatalf("AddPlayer failed: %v", err)
		}
	}

	if _, err := h.gm.StartGame(ctx); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	h.gm.Stop()
	h.gm.Stop()

	if err := h.gm.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if len(h.rec.ofType(EVT_GAME_CANCELLED)) != 1 {
		t.Fatalf("want one cancelled event")
	}

	if h.clock.pending() != 0 {
		t.Fatalf("stopped machine left %d timers pending", h.clock.pending())
	}

	if err := h.gm.CastVote(ctx, "p1", "p2"); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("want ErrAlreadyFinished, got %v", err)
	}
}

func TestGameMachine_PanicAbortsOnlyThisSession(t *testing.T) {
	broken := newMachine(t, DefaultOptions(), panicBank{})
	healthy := newMachine(t, DefaultOptions(), fixedBank{pair: testWords})
	ctx := testCtx(t)

	for _, h := range []*machineHarness{broken, healthy} {
		for i := 1; i <= 3; i++ {
			if _, err := h.gm.AddPlayer(ctx, pid(i), pid(i)); err != nil {
				t.Fatalf("AddPlayer failed: %v", err)
			}
		}
	}

	if _, err := broken.gm.StartGame(ctx); !errors.Is(err, ErrInternal) {
		t.Fatalf("want ErrInternal from panicking session, got %v", err)
	}

	if err := broken.gm.Wait(ctx); err != nil {
		t.Fatalf("aborted machine did not exit: %v", err)
	}

	if len(broken.rec.ofType(EVT_GAME_ABORTED)) != 1 {
		t.Fatalf("want one aborted event")
	}

	if _, err := healthy.gm.StartGame(ctx); err != nil {
		t.Fatalf("healthy session affected by another room's panic: %v", err)
	}
}

// explodingNotifier 先记录事件，再在指定的事件类型上 panic
type explodingNotifier struct {
	rec *recorder
	on  map[EventType]bool
}

func (n explodingNotifier) Notify(evt Event) {
	n.rec.Notify(evt)

	if n.on[evt.Type] {
		panic("presentation layer bug on " + string(evt.Type))
	}
}

type explodingStats struct {
	memStats
}

func (s *explodingStats) AddPoints(string, string, int) {
	panic("stats backend bug")
}

func startMachine(t *testing.T, deps Dependencies) *GameMachine {
	t.Helper()

	gm, err := NewGameMachine("room-broken", DefaultOptions(), deps)
	if err != nil {
		t.Fatalf("NewGameMachine failed: %v", err)
	}

	go gm.Start()
	t.Cleanup(gm.Stop)

	return gm
}

func TestGameMachine_NotifierPanicOnCancelKeepsHostAlive(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	ctx := testCtx(t)

	gm := startMachine(t, Dependencies{
		Clock:    clock,
		Rand:     maxRand{},
		Words:    fixedBank{pair: testWords},
		Notifier: explodingNotifier{rec: rec, on: map[EventType]bool{EVT_GAME_CANCELLED: true}},
	})

	for i := 1; i <= 3; i++ {
		if _, err := gm.AddPlayer(ctx, pid(i), pid(i)); err != nil {
			t.Fatalf("AddPlayer failed: %v", err)
		}
	}

	if _, err := gm.StartGame(ctx); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	gm.Stop()

	if err := gm.Wait(ctx); err != nil {
		t.Fatalf("machine did not exit after cancel: %v", err)
	}

	if len(rec.ofType(EVT_GAME_CANCELLED)) != 1 {
		t.Fatalf("want one cancelled event")
	}

	if !gm.IsFinished() || clock.pending() != 0 {
		t.Fatalf("cancelled machine must be finished with no timers, pending %d", clock.pending())
	}
}

func TestGameMachine_NotifierPanicDoesNotAbortGame(t *testing.T) {
	rec := &recorder{}
	ctx := testCtx(t)

	gm := startMachine(t, Dependencies{
		Clock: newFakeClock(),
		Rand:  maxRand{},
		Words: fixedBank{pair: testWords},
		Notifier: explodingNotifier{rec: rec, on: map[EventType]bool{
			EVT_GAME_STARTED:  true,
			EVT_GAME_ABORTED:  true,
			EVT_WORD_RECORDED: true,
		}},
	})

	for i := 1; i <= 3; i++ {
		if _, err := gm.AddPlayer(ctx, pid(i), pid(i)); err != nil {
			t.Fatalf("AddPlayer failed: %v", err)
		}
	}

	snap, err := gm.StartGame(ctx)
	if err != nil {
		t.Fatalf("notifier failure must not fail the start: %v", err)
	}

	if snap.Round != 1 || snap.Phase != PHASE_WORD_SUBMISSION {
		t.Fatalf("want round 1 word submission, got %+v", snap)
	}

	if _, err := gm.SubmitWord(ctx, "p1", "fruit"); err != nil {
		t.Fatalf("SubmitWord failed: %v", err)
	}

	snap, err = gm.Snapshot(ctx)
	if err != nil || snap.Lifecycle != LIFECYCLE_IN_PROGRESS || len(snap.Words) != 1 {
		t.Fatalf("game should keep running, got %+v err %v", snap, err)
	}

	if len(rec.ofType(EVT_GAME_ABORTED)) != 0 {
		t.Fatalf("notifier failure must not abort the game")
	}
}

func TestGameMachine_StatsPanicAbortsOnlyThisSession(t *testing.T) {
	rec := &recorder{}
	ctx := testCtx(t)

	gm := startMachine(t, Dependencies{
		Clock:    newFakeClock(),
		Rand:     maxRand{},
		Words:    fixedBank{pair: testWords},
		Notifier: explodingNotifier{rec: rec, on: map[EventType]bool{EVT_GAME_ABORTED: true}},
		Stats:    &explodingStats{},
	})

	for i := 1; i <= 3; i++ {
		if _, err := gm.AddPlayer(ctx, pid(i), pid(i)); err != nil {
			t.Fatalf("AddPlayer failed: %v", err)
		}
	}

	if _, err := gm.StartGame(ctx); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if _, err := gm.SubmitWord(ctx, pid(i), "clue"); err != nil {
			t.Fatalf("SubmitWord failed: %v", err)
		}
	}

	// p3 是卧底，淘汰后平民获胜，计分时统计方 panic
	if err := gm.CastVote(ctx, "p1", "p3"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if err := gm.CastVote(ctx, "p2", "p3"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if err := gm.CastVote(ctx, "p3", "p1"); !errors.Is(err, ErrInternal) {
		t.Fatalf("want ErrInternal from the failing scoring, got %v", err)
	}

	if err := gm.Wait(ctx); err != nil {
		t.Fatalf("machine did not exit: %v", err)
	}

	if !gm.IsFinished() {
		t.Fatalf("want finished lifecycle, got %s", gm.Lifecycle())
	}
}

func TestGameMachine_ConcurrentSubmitsSerialize(t *testing.T) {
	h := newMachine(t, DefaultOptions(), fixedBank{pair: testWords})
	ctx := testCtx(t)

	for i := 1; i <= 4; i++ {
		if _, err := h.gm.AddPlayer(ctx, pid(i), pid(i)); err != nil {
			t.Fatalf("AddPlayer failed: %v", err)
		}
	}

	if _, err := h.gm.StartGame(ctx); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := h.gm.SubmitWord(ctx, "p1", "same time")
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrNotYourTurn):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if succeeded.Load() != 1 || rejected.Load() != 15 {
		t.Fatalf("want exactly one accepted submit, got %d accepted %d rejected", succeeded.Load(), rejected.Load())
	}

	snap, err := h.gm.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(snap.Words) != 1 {
		t.Fatalf("want one recorded word, got %d", len(snap.Words))
	}
}

func TestGameMachine_ContextCancelled(t *testing.T) {
	h := newMachine(t, DefaultOptions(), fixedBank{pair: testWords})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 已取消的 ctx 可能与请求同时就绪，两种结果都可以接受
	if _, err := h.gm.Snapshot(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("want nil or context.Canceled, got %v", err)
	}
}

package game

import (
	"errors"
	"testing"
)

func newTallyPlayers(n int) map[string]*Player {
	players := make(map[string]*Player, n)
	for i := 1; i <= n; i++ {
		players[pid(i)] = &Player{ID: pid(i), Name: pid(i), Alive: true}
	}

	return players
}

func castAll(t *testing.T, vt *VoteTally, votes map[string]string) {
	t.Helper()

	for voter, target := range votes {
		if _, err := vt.Cast(voter, target); err != nil {
			t.Fatalf("Cast(%s -> %q) failed: %v", voter, target, err)
		}
	}
}

func TestVoteTally_BlankMajorityProtectsEveryone(t *testing.T) {
	players := newTallyPlayers(5)
	vt := NewVoteTally(players)

	castAll(t, vt, map[string]string{
		"p1": "p2",
		"p3": "p2",
		"p2": BLANK_VOTE,
		"p4": BLANK_VOTE,
		"p5": BLANK_VOTE,
	})

	res, err := vt.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Eliminated != nil || res.Outcome != OUTCOME_BLANK_MAJORITY {
		t.Fatalf("want no elimination by blank majority, got %+v", res)
	}

	if !players["p2"].Alive {
		t.Fatalf("p2 should still be alive")
	}
}

func TestVoteTally_HalfBlanksIsNotMajority(t *testing.T) {
	players := newTallyPlayers(4)
	vt := NewVoteTally(players)

	castAll(t, vt, map[string]string{
		"p1": "p4",
		"p2": "p4",
		"p3": BLANK_VOTE,
		"p4": BLANK_VOTE,
	})

	res, err := vt.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Eliminated == nil || res.Eliminated.ID != "p4" {
		t.Fatalf("want p4 eliminated, got %+v", res)
	}
}

func TestVoteTally_TieProtectsSuspects(t *testing.T) {
	players := newTallyPlayers(4)
	vt := NewVoteTally(players)

	castAll(t, vt, map[string]string{
		"p1": "p3",
		"p2": "p3",
		"p3": "p4",
		"p4": "p4",
	})

	res, err := vt.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Eliminated != nil || res.Outcome != OUTCOME_TIE {
		t.Fatalf("want tie, got %+v", res)
	}

	for id, p := range players {
		if !p.Alive {
			t.Fatalf("%s should still be alive after a tie", id)
		}
	}
}

func TestVoteTally_UniqueMaximumIsEliminated(t *testing.T) {
	players := newTallyPlayers(4)
	vt := NewVoteTally(players)

	castAll(t, vt, map[string]string{
		"p1": "p3",
		"p2": "p3",
		"p4": "p3",
		"p3": "p4",
	})

	res, err := vt.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Eliminated == nil || res.Eliminated.ID != "p3" {
		t.Fatalf("want p3 eliminated, got %+v", res)
	}

	if players["p3"].Alive {
		t.Fatalf("p3 should be marked dead")
	}

	if res.Counts["p3"] != 3 || res.Counts["p4"] != 1 {
		t.Fatalf("unexpected counts: %v", res.Counts)
	}
}

func TestVoteTally_NoVotesEliminatesNobody(t *testing.T) {
	vt := NewVoteTally(newTallyPlayers(3))

	res, err := vt.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Eliminated != nil || res.Outcome != OUTCOME_NO_VOTES {
		t.Fatalf("want no votes outcome, got %+v", res)
	}
}

func TestVoteTally_LastVoteWins(t *testing.T) {
	vt := NewVoteTally(newTallyPlayers(3))

	replaced, err := vt.Cast("p1", "p2")
	if err != nil || replaced {
		t.Fatalf("first vote should succeed without replacing, got replaced=%v err=%v", replaced, err)
	}

	replaced, err = vt.Cast("p1", "p3")
	if err != nil || !replaced {
		t.Fatalf("second vote should replace the first, got replaced=%v err=%v", replaced, err)
	}

	if got := vt.votes["p1"]; got != "p3" {
		t.Fatalf("want p1's vote to be p3, got %q", got)
	}

	if vt.VotesCast() != 1 {
		t.Fatalf("re-vote must not add a vote, got %d", vt.VotesCast())
	}
}

func TestVoteTally_RejectsIneligibleVotesWithoutMutation(t *testing.T) {
	players := newTallyPlayers(3)
	players["p3"].Alive = false
	vt := NewVoteTally(players)

	if _, err := vt.Cast("p3", "p1"); !errors.Is(err, ErrVoterNotEligible) {
		t.Fatalf("dead voter: want ErrVoterNotEligible, got %v", err)
	}

	if _, err := vt.Cast("ghost", "p1"); !errors.Is(err, ErrVoterNotEligible) {
		t.Fatalf("unknown voter: want ErrVoterNotEligible, got %v", err)
	}

	if _, err := vt.Cast("p1", "p3"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("dead target: want ErrInvalidTarget, got %v", err)
	}

	if _, err := vt.Cast("p1", "ghost"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("unknown target: want ErrInvalidTarget, got %v", err)
	}

	if vt.VotesCast() != 0 {
		t.Fatalf("rejected votes mutated the tally: %v", vt.votes)
	}

	if _, err := vt.Cast("p1", BLANK_VOTE); err != nil {
		t.Fatalf("blank vote should always be valid, got %v", err)
	}
}

func TestVoteTally_CompletionCountsOnlyLivingPlayers(t *testing.T) {
	players := newTallyPlayers(3)
	players["p2"].Alive = false
	vt := NewVoteTally(players)

	castAll(t, vt, map[string]string{"p1": "p3"})
	if vt.IsComplete() {
		t.Fatalf("tally should not be complete with one living voter missing")
	}

	castAll(t, vt, map[string]string{"p3": BLANK_VOTE})
	if !vt.IsComplete() {
		t.Fatalf("tally should be complete once every living player voted")
	}
}

func TestVoteTally_ClearedAfterResolution(t *testing.T) {
	vt := NewVoteTally(newTallyPlayers(4))

	castAll(t, vt, map[string]string{"p1": "p2", "p2": "p1"})

	if _, err := vt.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if vt.VotesCast() != 0 {
		t.Fatalf("votes should be cleared after resolution, got %d", vt.VotesCast())
	}
}

func TestVoteTally_DropRemovesVotesByAndAgainstPlayer(t *testing.T) {
	vt := NewVoteTally(newTallyPlayers(4))

	castAll(t, vt, map[string]string{
		"p1": "p2",
		"p2": "p3",
		"p3": "p1",
		"p4": "p2",
	})

	vt.Drop("p2")

	if _, ok := vt.votes["p2"]; ok {
		t.Fatalf("vote cast by p2 should be dropped")
	}

	for voter, target := range vt.votes {
		if target == "p2" {
			t.Fatalf("vote from %s against p2 should be dropped", voter)
		}
	}

	if vt.VotesCast() != 1 {
		t.Fatalf("want only p3's vote left, got %v", vt.votes)
	}
}

func TestVoteTally_ResolveWithoutLivingPlayersFails(t *testing.T) {
	players := newTallyPlayers(2)
	for _, p := range players {
		p.Alive = false
	}

	_, err := NewVoteTally(players).Resolve()
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("want ErrInternal, got %v", err)
	}
}

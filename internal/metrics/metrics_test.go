package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"undercover-be/internal/service/game"
)

func TestObserver_CountsGameEvents(t *testing.T) {
	var obs Observer

	started := testutil.ToFloat64(GamesStarted)
	timeouts := testutil.ToFloat64(WordTimeouts)
	blanks := testutil.ToFloat64(Votes.WithLabelValues("blank"))
	targets := testutil.ToFloat64(Votes.WithLabelValues("target"))
	ties := testutil.ToFloat64(Eliminations.WithLabelValues(string(game.OUTCOME_TIE)))
	civilWins := testutil.ToFloat64(GamesFinished.WithLabelValues(string(game.TEAM_CIVIL)))
	cancelled := testutil.ToFloat64(GamesFinished.WithLabelValues(RESULT_CANCELLED))
	wrongGuesses := testutil.ToFloat64(MrWhiteGuesses.WithLabelValues("false"))

	events := []game.Event{
		{Type: game.EVT_GAME_STARTED},
		{Type: game.EVT_WORD_RECORDED, Data: game.WordRecordedData{Word: game.SubmittedWord{IsTimeout: true}}},
		{Type: game.EVT_WORD_RECORDED, Data: game.WordRecordedData{Word: game.SubmittedWord{Word: "clue"}}},
		{Type: game.EVT_VOTE_RECORDED, Data: game.VoteRecordedData{Blank: true}},
		{Type: game.EVT_VOTE_RECORDED, Data: game.VoteRecordedData{TargetID: "p1"}},
		{Type: game.EVT_ELIMINATION_RESULT, Data: game.EliminationResultData{Outcome: game.OUTCOME_TIE}},
		{Type: game.EVT_MRWHITE_GUESS, Data: game.MrWhiteGuessData{Correct: false}},
		{Type: game.EVT_GAME_WON, Data: game.GameWonData{Team: game.TEAM_CIVIL}},
		{Type: game.EVT_GAME_CANCELLED},
	}

	for _, evt := range events {
		obs.Notify(evt)
	}

	checks := []struct {
		name   string
		before float64
		after  float64
	}{
		{"games started", started, testutil.ToFloat64(GamesStarted)},
		{"word timeouts", timeouts, testutil.ToFloat64(WordTimeouts)},
		{"blank votes", blanks, testutil.ToFloat64(Votes.WithLabelValues("blank"))},
		{"target votes", targets, testutil.ToFloat64(Votes.WithLabelValues("target"))},
		{"ties", ties, testutil.ToFloat64(Eliminations.WithLabelValues(string(game.OUTCOME_TIE)))},
		{"civil wins", civilWins, testutil.ToFloat64(GamesFinished.WithLabelValues(string(game.TEAM_CIVIL)))},
		{"cancelled", cancelled, testutil.ToFloat64(GamesFinished.WithLabelValues(RESULT_CANCELLED))},
		{"wrong guesses", wrongGuesses, testutil.ToFloat64(MrWhiteGuesses.WithLabelValues("false"))},
	}

	for _, c := range checks {
		if c.after-c.before != 1 {
			t.Fatalf("%s: want +1, got %+v", c.name, c.after-c.before)
		}
	}
}

func TestObserver_IgnoresUnexpectedPayloads(t *testing.T) {
	var obs Observer

	before := testutil.ToFloat64(WordTimeouts)
	obs.Notify(game.Event{Type: game.EVT_WORD_RECORDED, Data: "not a payload"})

	if testutil.ToFloat64(WordTimeouts) != before {
		t.Fatalf("malformed payload must not be counted")
	}
}

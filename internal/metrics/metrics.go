package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"undercover-be/internal/service/game"
)

var (
	GamesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "undercover_games_started_total",
			Help: "Total games started",
		},
	)
	GamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "undercover_games_finished_total",
			Help: "Total games finished, by result",
		},
		[]string{"result"},
	)
	Eliminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "undercover_vote_resolutions_total",
			Help: "Total vote resolutions, by outcome",
		},
		[]string{"outcome"},
	)
	WordTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "undercover_word_timeouts_total",
			Help: "Total word submissions that timed out",
		},
	)
	Votes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "undercover_votes_total",
			Help: "Total votes cast, by kind",
		},
		[]string{"kind"},
	)
	MrWhiteGuesses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "undercover_mrwhite_guesses_total",
			Help: "Total Mr. White guesses, by correctness",
		},
		[]string{"correct"},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "undercover_active_sessions",
			Help: "Number of sessions currently held by the registry",
		},
	)
)

func init() {
	prometheus.MustRegister(GamesStarted)
	prometheus.MustRegister(GamesFinished)
	prometheus.MustRegister(Eliminations)
	prometheus.MustRegister(WordTimeouts)
	prometheus.MustRegister(Votes)
	prometheus.MustRegister(MrWhiteGuesses)
	prometheus.MustRegister(ActiveSessions)
}

// 对局结果标签
const (
	RESULT_NO_WINNER = "no_winner"
	RESULT_CANCELLED = "cancelled"
	RESULT_ABORTED   = "aborted"
)

// Observer 把对局事件折算成计数器，作为 game.Notifier 挂到每个对局上
type Observer struct{}

func (Observer) Notify(evt game.Event) {
	switch evt.Type {
	case game.EVT_GAME_STARTED:
		GamesStarted.Inc()

	case game.EVT_WORD_RECORDED:
		if data, ok := evt.Data.(game.WordRecordedData); ok && data.Word.IsTimeout {
			WordTimeouts.Inc()
		}

	case game.EVT_VOTE_RECORDED:
		if data, ok := evt.Data.(game.VoteRecordedData); ok {
			kind := "target"
			if data.Blank {
				kind = "blank"
			}
			Votes.WithLabelValues(kind).Inc()
		}

	case game.EVT_ELIMINATION_RESULT:
		if data, ok := evt.Data.(game.EliminationResultData); ok {
			Eliminations.WithLabelValues(string(data.Outcome)).Inc()
		}

	case game.EVT_MRWHITE_GUESS:
		if data, ok := evt.Data.(game.MrWhiteGuessData); ok {
			MrWhiteGuesses.WithLabelValues(strconv.FormatBool(data.Correct)).Inc()
		}

	case game.EVT_GAME_WON:
		if data, ok := evt.Data.(game.GameWonData); ok {
			GamesFinished.WithLabelValues(string(data.Team)).Inc()
		}

	case game.EVT_GAME_ENDED_NO_WINNER:
		GamesFinished.WithLabelValues(RESULT_NO_WINNER).Inc()

	case game.EVT_GAME_CANCELLED:
		GamesFinished.WithLabelValues(RESULT_CANCELLED).Inc()

	case game.EVT_GAME_ABORTED:
		GamesFinished.WithLabelValues(RESULT_ABORTED).Inc()
	}
}

package http

import (
	"errors"

	"github.com/kataras/iris/v12"

	"undercover-be/internal/service/dto"
	"undercover-be/internal/service/stats"
	"undercover-be/internal/state"
)

const MAX_LEADERBOARD_LIMIT = 100

func Leaderboard(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 10)
		if limit <= 0 || limit > MAX_LEADERBOARD_LIMIT {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "limit 参数无效",
			})
			return
		}

		by := ctx.URLParamDefault("by", dto.LEADERBOARD_BY_POINTS)

		var (
			list []stats.PlayerStats
			err  error
		)

		switch by {
		case dto.LEADERBOARD_BY_POINTS:
			list, err = appState.Stats.Top(ctx.Request().Context(), limit)
		case dto.LEADERBOARD_BY_WINS:
			list, err = appState.Stats.TopWinners(ctx.Request().Context(), limit)
		default:
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "by 参数只能是 points 或 wins",
			})
			return
		}

		if err != nil {
			ctx.StatusCode(iris.StatusInternalServerError)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(dto.NewLeaderboard(by, list))
	}
}

func PlayerStats(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		playerID := ctx.Params().Get("id")

		p, err := appState.Stats.Player(ctx.Request().Context(), playerID)
		if err != nil {
			status := iris.StatusInternalServerError
			if errors.Is(err, stats.ErrPlayerNotFound) {
				status = iris.StatusNotFound
			}

			ctx.StatusCode(status)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(p)
	}
}

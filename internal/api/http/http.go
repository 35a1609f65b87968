package http

import (
	"context"
	"fmt"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"undercover-be/internal/state"
)

// NewApp 只提供运维和只读查询接口，对局操作不经过 HTTP
func NewApp(appState *state.AppState) *iris.Application {
	app := iris.Default()

	app.Get("/healthz", Health(appState))
	app.Get("/metrics", iris.FromStd(promhttp.Handler()))

	api := app.Party("/api/v1")

	api.Get("/rooms", ListRooms(appState))
	api.Get("/rooms/{id}", GetRoom(appState))

	api.Get("/leaderboard", Leaderboard(appState))
	api.Get("/players/{id}/stats", PlayerStats(appState))

	return app
}

func RunServer(appState *state.AppState) error {
	app := NewApp(appState)

	iris.RegisterOnInterrupt(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.Shutdown(ctx)
	})

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	return app.Listen(addr, iris.WithoutInterruptHandler, iris.WithoutServerError(iris.ErrServerClosed))
}

func Health(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"status":   "ok",
			"sessions": appState.RoomSvc.Count(),
		})
	}
}

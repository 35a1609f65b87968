package http

import (
	"errors"

	"github.com/kataras/iris/v12"

	"undercover-be/internal/service"
	"undercover-be/internal/state"
)

func ListRooms(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"rooms": appState.RoomSvc.ListRooms(),
		})
	}
}

// GetRoom 返回房间当前的公开状态，不包含身份和词语
func GetRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		roomID := ctx.Params().Get("id")

		snap, err := appState.RoomSvc.Snapshot(ctx.Request().Context(), roomID)
		if err != nil {
			status := iris.StatusInternalServerError
			if errors.Is(err, service.ErrRoomNotFound) {
				status = iris.StatusNotFound
			}

			ctx.StatusCode(status)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(snap)
	}
}

package game

import (
	"go.uber.org/zap"
)

// Notifier 接收对局事件。调用发生在对局协程内，实现不能阻塞，
// 也不能回调同一个对局，否则会造成死锁
type Notifier interface {
	Notify(evt Event)
}

type NotifierFunc func(evt Event)

func (f NotifierFunc) Notify(evt Event) {
	f(evt)
}

type MultiNotifier []Notifier

func (mn MultiNotifier) Notify(evt Event) {
	for _, n := range mn {
		if n != nil {
			n.Notify(evt)
		}
	}
}

// ChannelNotifier 把事件写入通道，通道已满时丢弃并记录警告
type ChannelNotifier chan Event

func (cn ChannelNotifier) Notify(evt Event) {
	select {
	case cn <- evt:
		zap.L().Debug(
			"成功推送对局事件",
			zap.String("room_id", evt.RoomID),
			zap.String("event_type", string(evt.Type)),
		)
	default:
		zap.L().Warn(
			"推送对局事件失败：事件通道已满",
			zap.String("room_id", evt.RoomID),
			zap.String("event_type", string(evt.Type)),
		)
	}
}

// StatsRecorder 是排行榜统计的协作方，调用即忘，对局不关心返回值
type StatsRecorder interface {
	RecordWin(playerID, name, gameType string)
	RecordGame(playerID, name, gameType string)
	AddPoints(playerID, name string, amount int)
}

type nopStats struct{}

func (nopStats) RecordWin(string, string, string)  {}
func (nopStats) RecordGame(string, string, string) {}
func (nopStats) AddPoints(string, string, int)     {}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// WordBank 为每局提供一对相关的词
type WordBank interface {
	Draw(r Rand) WordPair
}

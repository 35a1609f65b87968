package game

import "errors"

// 所有被拒绝的操作都不会修改对局状态，调用方可以提示用户后重试
var (
	ErrInsufficientPlayers = errors.New("玩家数量不足")
	ErrWrongPhase          = errors.New("当前阶段不支持该操作")
	ErrNotYourTurn         = errors.New("当前不是你的发言轮次")
	ErrVoterNotEligible    = errors.New("投票者不存在或已出局")
	ErrInvalidTarget       = errors.New("被投票者不存在或已出局")
	ErrAlreadyFinished     = errors.New("游戏已结束")

	ErrInvalidOptions  = errors.New("游戏参数无效")
	ErrInvalidInput    = errors.New("输入内容无效")
	ErrNotMrWhite      = errors.New("只有存活的白板可以猜词")
	ErrDuplicatePlayer = errors.New("玩家已在房间中")
	ErrInternal        = errors.New("游戏内部状态异常")

	// 计时已被取消或已被新的计时取代，只在内部使用
	errStaleDeadline = errors.New("计时已过期")
)

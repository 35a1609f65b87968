package game

import (
	"fmt"
	"time"
)

const (
	MIN_UNDERCOVER_QUOTA = 1
	MAX_UNDERCOVER_QUOTA = 3
	MIN_ROUNDS           = 1
	MAX_ROUNDS           = 10

	DEFAULT_WORD_TIMEOUT_SECONDS = 30
)

// Options 是创建对局时的参数，由 RoomService 从配置或展示层请求中填入
type Options struct {
	UndercoverQuota    int  `json:"undercover_quota" mapstructure:"undercover_quota"`
	MrWhiteEnabled     bool `json:"mr_white_enabled" mapstructure:"mr_white_enabled"`
	MaxRounds          int  `json:"max_rounds" mapstructure:"max_rounds"`
	WordTimeoutSeconds int  `json:"word_timeout_seconds" mapstructure:"word_timeout_seconds"`
	// 0 表示投票阶段不限时，只能等所有人投完或手动结束
	VoteTimeoutSeconds int `json:"vote_timeout_seconds" mapstructure:"vote_timeout_seconds"`
}

func DefaultOptions() Options {
	return Options{
		UndercoverQuota:    1,
		MrWhiteEnabled:     false,
		MaxRounds:          3,
		WordTimeoutSeconds: DEFAULT_WORD_TIMEOUT_SECONDS,
	}
}

func (o Options) Validate() error {
	if o.UndercoverQuota < MIN_UNDERCOVER_QUOTA || o.UndercoverQuota > MAX_UNDERCOVER_QUOTA {
		return fmt.Errorf("%w: 卧底数量必须在 %d 到 %d 之间，当前为 %d",
			ErrInvalidOptions, MIN_UNDERCOVER_QUOTA, MAX_UNDERCOVER_QUOTA, o.UndercoverQuota)
	}

	if o.MaxRounds < MIN_ROUNDS || o.MaxRounds > MAX_ROUNDS {
		return fmt.Errorf("%w: 回合数必须在 %d 到 %d 之间，当前为 %d",
			ErrInvalidOptions, MIN_ROUNDS, MAX_ROUNDS, o.MaxRounds)
	}

	if o.WordTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: 发言超时必须大于 0", ErrInvalidOptions)
	}

	if o.VoteTimeoutSeconds < 0 {
		return fmt.Errorf("%w: 投票超时不能为负数", ErrInvalidOptions)
	}

	return nil
}

func (o Options) wordTimeout() time.Duration {
	return time.Duration(o.WordTimeoutSeconds) * time.Second
}

func (o Options) voteTimeout() time.Duration {
	return time.Duration(o.VoteTimeoutSeconds) * time.Second
}

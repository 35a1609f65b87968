package game

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// Rand 抽象了对局中用到的全部随机性（抽词、分配身份、发言顺序），
// *rand.Rand 直接满足该接口，测试中可以替换成确定的序列
type Rand interface {
	IntN(n int) int
}

func NewRand() Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), uint64(time.Now().UnixNano())))
}

// Fisher-Yates 洗牌
func shuffle(r Rand, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		swap(i, j)
	}
}

// Timer 是一个可取消的延迟任务
type Timer interface {
	Stop() bool
}

// Clock 抽象了时间源，真实运行时使用 time.AfterFunc，测试中使用手动时钟
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel 无法识别的级别按 info 处理
func ParseLevel(logLevel string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return zapcore.InfoLevel
	}

	return lvl
}

// InitLogger 构建全局日志器，返回的函数用于退出前刷新缓冲
func InitLogger(logLevel string) func() {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level.SetLevel(ParseLevel(logLevel))
	cfg.InitialFields = map[string]any{
		"service": "undercover",
	}

	lgr, err := cfg.Build()
	if err != nil {
		panic(fmt.Errorf("构建日志器失败: %w", err))
	}

	restore := zap.ReplaceGlobals(lgr)

	return func() {
		_ = lgr.Sync()
		restore()
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"undercover-be/internal/service/game"
	"undercover-be/internal/service/stats"
)

const ENV_PREFIX = "UNDERCOVER"

type GameConfig struct {
	UndercoverQuota    int  `mapstructure:"undercover_quota"`
	MrWhiteEnabled     bool `mapstructure:"mr_white_enabled"`
	MaxRounds          int  `mapstructure:"max_rounds"`
	WordTimeoutSeconds int  `mapstructure:"word_timeout_seconds"`
	VoteTimeoutSeconds int  `mapstructure:"vote_timeout_seconds"`
	// 大厅闲置超过该时长会被清理
	LobbyTTLMinutes int `mapstructure:"lobby_ttl_minutes"`
}

func (c GameConfig) Options() game.Options {
	return game.Options{
		UndercoverQuota:    c.UndercoverQuota,
		MrWhiteEnabled:     c.MrWhiteEnabled,
		MaxRounds:          c.MaxRounds,
		WordTimeoutSeconds: c.WordTimeoutSeconds,
		VoteTimeoutSeconds: c.VoteTimeoutSeconds,
	}
}

func (c GameConfig) LobbyTTL() time.Duration {
	return time.Duration(c.LobbyTTLMinutes) * time.Minute
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

func (c RedisConfig) Options() stats.RedisOptions {
	return stats.RedisOptions{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		Prefix:   c.Prefix,
	}
}

type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	Game GameConfig `mapstructure:"game"`
	// 为空时使用内置词库
	WordsFile string      `mapstructure:"words_file"`
	Redis     RedisConfig `mapstructure:"redis"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	config, err := Load("")
	if err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}

	cfg = config

	return config
}

func setDefaults(v *viper.Viper) {
	def := game.DefaultOptions()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	v.SetDefault("game.undercover_quota", def.UndercoverQuota)
	v.SetDefault("game.mr_white_enabled", def.MrWhiteEnabled)
	v.SetDefault("game.max_rounds", def.MaxRounds)
	v.SetDefault("game.word_timeout_seconds", def.WordTimeoutSeconds)
	v.SetDefault("game.vote_timeout_seconds", def.VoteTimeoutSeconds)
	v.SetDefault("game.lobby_ttl_minutes", 30)

	v.SetDefault("words_file", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", stats.DEFAULT_KEY_PREFIX)
}

// Load 依次读取 .env、配置文件（path 为空时在当前目录查找 app_config.json，不存在也可以）
// 以及 UNDERCOVER_ 前缀的环境变量，后者优先
func Load(path string) (*AppConfig, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
	} else {
		v.SetConfigName("app_config")
		v.SetConfigType("json")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := config.Game.Options().Validate(); err != nil {
		return nil, err
	}

	if config.Game.LobbyTTLMinutes <= 0 {
		return nil, fmt.Errorf("%w: 大厅闲置时长必须大于 0", game.ErrInvalidOptions)
	}

	return &config, nil
}

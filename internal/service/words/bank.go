package words

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"undercover-be/internal/service/game"
)

//go:embed words.json
var defaultPairs []byte

var (
	ErrEmptyBank   = errors.New("词库为空")
	ErrInvalidPair = errors.New("词对无效")
)

// 词库文件中的一条记录
type pairEntry struct {
	Civilian   string `mapstructure:"civilian"`
	Undercover string `mapstructure:"undercover"`
}

// Bank 是只读的词对集合，创建后可被多个对局并发使用
type Bank struct {
	pairs []game.WordPair
}

func New(pairs []game.WordPair) (*Bank, error) {
	if len(pairs) == 0 {
		return nil, ErrEmptyBank
	}

	cleaned := make([]game.WordPair, 0, len(pairs))
	for i, p := range pairs {
		civilian := strings.TrimSpace(p.CivilianWord)
		undercover := strings.TrimSpace(p.UndercoverWord)

		if civilian == "" || undercover == "" {
			return nil, fmt.Errorf("%w: 第 %d 条缺少词语", ErrInvalidPair, i+1)
		}

		if strings.EqualFold(civilian, undercover) {
			return nil, fmt.Errorf("%w: 第 %d 条两个词相同（%s）", ErrInvalidPair, i+1, civilian)
		}

		cleaned = append(cleaned, game.WordPair{
			CivilianWord:   civilian,
			UndercoverWord: undercover,
		})
	}

	return &Bank{pairs: cleaned}, nil
}

// Default 返回内置词库
func Default() *Bank {
	v := viper.New()
	v.SetConfigType("json")

	if err := v.ReadConfig(bytes.NewReader(defaultPairs)); err != nil {
		panic("Failed to read embedded word pairs: " + err.Error())
	}

	bank, err := fromViper(v)
	if err != nil {
		panic("Invalid embedded word pairs: " + err.Error())
	}

	return bank
}

// LoadFile 从文件读取词库，支持 viper 能识别的所有格式（json、yaml、toml 等）
func LoadFile(path string) (*Bank, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取词库文件 %s 失败: %w", path, err)
	}

	bank, err := fromViper(v)
	if err != nil {
		return nil, err
	}

	zap.L().Info(
		"已加载词库文件",
		zap.String("path", path),
		zap.Int("pairs", bank.Len()),
	)

	return bank, nil
}

func fromViper(v *viper.Viper) (*Bank, error) {
	var entries []pairEntry
	if err := v.UnmarshalKey("pairs", &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPair, err)
	}

	pairs := make([]game.WordPair, 0, len(entries))
	for _, e := range entries {
		pairs = append(pairs, game.WordPair{
			CivilianWord:   e.Civilian,
			UndercoverWord: e.Undercover,
		})
	}

	return New(pairs)
}

// Draw 等概率抽取一个词对
func (b *Bank) Draw(r game.Rand) game.WordPair {
	return b.pairs[r.IntN(len(b.pairs))]
}

func (b *Bank) Len() int {
	return len(b.pairs)
}

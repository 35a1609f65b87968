package stats

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore 把统计数据保存在进程内，重启后丢失
type MemoryStore struct {
	mu      sync.RWMutex
	players map[string]*PlayerStats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players: make(map[string]*PlayerStats),
	}
}

// 调用方必须持有写锁
func (s *MemoryStore) touch(playerID, name string) *PlayerStats {
	p, ok := s.players[playerID]
	if !ok {
		p = &PlayerStats{
			PlayerID: playerID,
			ByGame:   make(map[string]GameTypeStats),
		}
		s.players[playerID] = p
	}

	// 玩家可能改过名字
	if name != "" {
		p.Name = name
	}

	return p
}

func (s *MemoryStore) RecordWin(playerID, name, gameType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.touch(playerID, name)
	p.Wins++
	p.Games++

	gs := p.ByGame[gameType]
	gs.Wins++
	gs.Games++
	p.ByGame[gameType] = gs
}

func (s *MemoryStore) RecordGame(playerID, name, gameType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.touch(playerID, name)
	p.Games++

	gs := p.ByGame[gameType]
	gs.Games++
	p.ByGame[gameType] = gs
}

func (s *MemoryStore) AddPoints(playerID, name string, amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(playerID, name).Points += amount
}

func (s *MemoryStore) snapshot() []PlayerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]PlayerStats, 0, len(s.players))
	for _, p := range s.players {
		cp := *p
		cp.ByGame = maps.Clone(p.ByGame)
		list = append(list, cp)
	}

	return list
}

func (s *MemoryStore) Top(_ context.Context, limit int) ([]PlayerStats, error) {
	list := s.snapshot()
	sortByPoints(list)

	return truncate(list, limit), nil
}

func (s *MemoryStore) TopWinners(_ context.Context, limit int) ([]PlayerStats, error) {
	list := s.snapshot()
	sortByWins(list)

	return truncate(list, limit), nil
}

func (s *MemoryStore) Player(_ context.Context, playerID string) (PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[playerID]
	if !ok {
		return PlayerStats{}, ErrPlayerNotFound
	}

	cp := *p
	cp.ByGame = maps.Clone(p.ByGame)

	return cp, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

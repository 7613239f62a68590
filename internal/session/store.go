// Package session keeps per-user dialog state, the duplicate-action guard and
// the per-user lock in process memory. Nothing here survives a restart.
package session

import (
	"sync"
)

const shardCount = 32

type shard struct {
	mu     sync.RWMutex
	states map[int64]State
}

// Store хранит состояние диалога по идентификатору пользователя (chat ID).
// Записи живут до Clear или перезапуска процесса.
type Store struct {
	shards [shardCount]*shard
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{states: make(map[int64]State)}
	}
	return s
}

func (s *Store) shard(userID int64) *shard {
	idx := userID % shardCount
	if idx < 0 {
		idx = -idx
	}
	return s.shards[idx]
}

// Get возвращает состояние пользователя, для неизвестного - Idle.
func (s *Store) Get(userID int64) State {
	sh := s.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	if state, ok := sh.states[userID]; ok {
		return state
	}
	return Idle{}
}

// Set сохраняет состояние. Idle равносилен Clear.
func (s *Store) Set(userID int64, state State) {
	if state == nil || state.Kind() == KindIdle {
		s.Clear(userID)
		return
	}

	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.states[userID] = state
}

// Clear удаляет состояние пользователя.
func (s *Store) Clear(userID int64) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.states, userID)
}

// Len возвращает число активных диалогов.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.states)
		sh.mu.RUnlock()
	}
	return n
}

package session

import (
	"timetracker-bot/internal/metrics"
)

// Manager владеет всем состоянием диалогов процесса и передается в обработчики явно.
type Manager struct {
	Store    *Store
	Cooldown *Cooldown
	Queue    *Queue
}

func NewManager(cooldown *Cooldown) *Manager {
	return &Manager{
		Store:    NewStore(),
		Cooldown: cooldown,
		Queue:    NewQueue(),
	}
}

// Get возвращает состояние диалога пользователя.
func (m *Manager) Get(userID int64) State {
	return m.Store.Get(userID)
}

// Set меняет состояние и обновляет gauge активных диалогов.
func (m *Manager) Set(userID int64, state State) {
	m.Store.Set(userID, state)
	metrics.ActiveDialogs.Set(float64(m.Store.Len()))
}

// Clear сбрасывает диалог в Idle и сообщает, был ли он активен.
func (m *Manager) Clear(userID int64) bool {
	active := m.Store.Get(userID).Kind() != KindIdle
	m.Store.Clear(userID)
	metrics.ActiveDialogs.Set(float64(m.Store.Len()))
	return active
}

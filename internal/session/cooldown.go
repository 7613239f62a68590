package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type cooldownKey struct {
	userID int64
	action string
}

// Cooldown - антидребезг повторных нажатий по паре (пользователь, действие).
// Это эвристика, а не взаимное исключение: порядок и сериализацию дает Queue.
type Cooldown struct {
	mu     sync.Mutex
	last   map[cooldownKey]time.Time
	now    func() time.Time
	maxAge time.Duration
	logger *logrus.Logger
}

func NewCooldown(maxAge time.Duration, logger *logrus.Logger) *Cooldown {
	return &Cooldown{
		last:   make(map[cooldownKey]time.Time),
		now:    time.Now,
		maxAge: maxAge,
		logger: logger,
	}
}

// WithClock подменяет источник времени.
func (c *Cooldown) WithClock(now func() time.Time) *Cooldown {
	c.now = now
	return c
}

// IsOnCooldown проверяет окно и, если действие разрешено, сразу взводит таймер.
// Отклоненное нажатие окно не продлевает.
func (c *Cooldown) IsOnCooldown(userID int64, action string, window time.Duration) bool {
	key := cooldownKey{userID: userID, action: action}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.last[key]; ok && now.Sub(last) < window {
		return true
	}

	c.last[key] = now
	return false
}

// Sweep удаляет записи старше maxAge и возвращает их количество.
func (c *Cooldown) Sweep() int {
	cutoff := c.now().Add(-c.maxAge)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, last := range c.last {
		if last.Before(cutoff) {
			delete(c.last, key)
			removed++
		}
	}
	return removed
}

// Len возвращает число отслеживаемых пар.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.last)
}

// Run периодически чистит таблицу до отмены контекста.
func (c *Cooldown) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 && c.logger != nil {
				c.logger.WithField("removed", removed).Debug("Cooldown entries swept")
			}
		}
	}
}

// Package events is the in-process publish/subscribe bus between the bot
// handlers and notification delivery.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"timetracker-bot/internal/metrics"
)

// Envelope - событие с метаданными публикации.
type Envelope struct {
	ID        uuid.UUID
	Name      Name
	Payload   Event
	Timestamp time.Time
}

type handlerFunc func(ctx context.Context, env Envelope) error

// Publisher - то, что нужно сервисам для публикации.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus доставляет событие подписчикам синхронно, в порядке подписки.
// Ошибка или паника одного подписчика не мешает остальным.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]handlerFunc
	logger   *logrus.Logger
	now      func() time.Time
}

func NewBus(logger *logrus.Logger) *Bus {
	return &Bus{
		handlers: make(map[Name][]handlerFunc),
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe регистрирует обработчик события типа E. Имя события берется из типа.
func Subscribe[E Event](b *Bus, h func(ctx context.Context, e E, env Envelope) error) {
	var zero E
	name := zero.EventName()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], func(ctx context.Context, env Envelope) error {
		e, ok := env.Payload.(E)
		if !ok {
			return fmt.Errorf("event %s: unexpected payload %T", env.Name, env.Payload)
		}
		return h(ctx, e, env)
	})
}

// Publish доставляет событие всем подписчикам и возвращается после последнего.
func (b *Bus) Publish(ctx context.Context, e Event) {
	env := Envelope{
		ID:        uuid.New(),
		Name:      e.EventName(),
		Payload:   e,
		Timestamp: b.now(),
	}

	b.mu.RLock()
	handlers := make([]handlerFunc, len(b.handlers[env.Name]))
	copy(handlers, b.handlers[env.Name])
	b.mu.RUnlock()

	b.logger.WithFields(logrus.Fields{
		"event":       env.Name,
		"event_id":    env.ID.String(),
		"subscribers": len(handlers),
	}).Debug("Publishing event")
	metrics.EventsPublished.WithLabelValues(string(env.Name)).Inc()

	for i, h := range handlers {
		b.deliver(ctx, env, i, h)
	}
}

func (b *Bus) deliver(ctx context.Context, env Envelope, idx int, h handlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(logrus.Fields{
				"event":      env.Name,
				"event_id":   env.ID.String(),
				"subscriber": idx,
				"panic":      r,
			}).Error("Event subscriber panicked")
		}
	}()

	if err := h(ctx, env); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"event":      env.Name,
			"event_id":   env.ID.String(),
			"subscriber": idx,
		}).Error("Event subscriber failed")
	}
}

// Subscribers возвращает число подписчиков события.
func (b *Bus) Subscribers(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// Package metrics holds the bot's Prometheus collectors. They are registered
// in the default registry and exposed by the HTTP side server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Обработанные команды по имени
	CommandsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetracker_commands_processed_total",
			Help: "Total number of processed slash commands by command",
		},
		[]string{"command"},
	)

	// Нажатия inline-кнопок по типу
	CallbacksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetracker_callbacks_processed_total",
			Help: "Total number of processed callback queries by kind",
		},
		[]string{"kind"},
	)

	// Повторные нажатия, отброшенные антидребезгом
	CooldownRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetracker_cooldown_rejected_total",
			Help: "Total number of actions dropped by the cooldown guard",
		},
		[]string{"action"},
	)

	// Отказы валидатора переходов по коду
	TransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetracker_transitions_rejected_total",
			Help: "Total number of illegal work log transitions by code",
		},
		[]string{"code"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetracker_events_published_total",
			Help: "Total number of domain events published by name",
		},
		[]string{"event"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetracker_notifications_total",
			Help: "Outbound notifications by channel and result",
		},
		[]string{"channel", "result"},
	)

	// Ошибки по типу: gateway, send, panic
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetracker_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)

	ActiveDialogs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timetracker_active_dialogs",
			Help: "Number of users currently inside a multi-step dialog",
		},
	)
)

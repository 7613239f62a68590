// Package notify turns domain events into outbound chat messages and e-mails.
// Subscribers only format and enqueue; delivery runs in its own goroutine.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"timetracker-bot/internal/events"
	"timetracker-bot/internal/format"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/keyboard"
	"timetracker-bot/internal/metrics"
	"timetracker-bot/internal/models"
	"timetracker-bot/pkg/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const channelTelegram = "telegram"

// Directory - источник получателей рассылок менеджерам.
type Directory interface {
	Moderators(ctx context.Context) ([]*models.User, error)
}

type outbound struct {
	event events.Name
	msg   tgbotapi.MessageConfig
}

type Dispatcher struct {
	sender telegram.Sender
	users  Directory
	queue  chan outbound
	logger *logrus.Logger
}

func NewDispatcher(sender telegram.Sender, users Directory, logger *logrus.Logger, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Dispatcher{
		sender: sender,
		users:  users,
		queue:  make(chan outbound, bufferSize),
		logger: logger,
	}
}

// Subscribe подписывает рассылку на весь каталог событий.
func (d *Dispatcher) Subscribe(bus *events.Bus) {
	events.Subscribe(bus, d.onUserCreated)
	events.Subscribe(bus, d.onUserPromoted)
	events.Subscribe(bus, d.onWorkLogMissed)
	events.Subscribe(bus, d.onLogEdited)
	events.Subscribe(bus, d.onTeamStatsReady)
	events.Subscribe(bus, d.onAbsenceCreated)
	events.Subscribe(bus, d.onAbsenceDecision)
}

// Run отправляет сообщения из очереди до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-d.queue:
			d.deliver(out)
		}
	}
}

func (d *Dispatcher) deliver(out outbound) {
	_, err := d.sender.Send(out.msg)
	if err == nil {
		metrics.NotificationsSent.WithLabelValues(channelTelegram, "ok").Inc()
		return
	}

	metrics.NotificationsSent.WithLabelValues(channelTelegram, "failed").Inc()
	fields := logrus.Fields{
		"event":   out.event,
		"chat_id": out.msg.ChatID,
	}
	if telegram.IsUnreachable(err) {
		d.logger.WithError(err).WithFields(fields).Debug("Recipient unreachable, notification dropped")
		return
	}
	d.logger.WithError(err).WithFields(fields).Warn("Failed to send notification")
}

// enqueue не блокирует публикацию: при переполненной очереди сообщение теряется.
func (d *Dispatcher) enqueue(event events.Name, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}

	select {
	case d.queue <- outbound{event: event, msg: msg}:
	default:
		metrics.NotificationsSent.WithLabelValues(channelTelegram, "dropped").Inc()
		d.logger.WithFields(logrus.Fields{
			"event":   event,
			"chat_id": chatID,
		}).Warn("Notification queue is full")
	}
}

// toModerators рассылает текст всем менеджерам и админам, кроме except.
func (d *Dispatcher) toModerators(ctx context.Context, event events.Name, except int64, text func(u *models.User) (string, *tgbotapi.InlineKeyboardMarkup)) error {
	moderators, err := d.users.Moderators(ctx)
	if err != nil {
		return fmt.Errorf("get moderators: %w", err)
	}
	for _, m := range moderators {
		if m.ChatID == except {
			continue
		}
		body, markup := text(m)
		d.enqueue(event, m.ChatID, body, markup)
	}
	return nil
}

func (d *Dispatcher) onUserCreated(ctx context.Context, e events.UserCreated, env events.Envelope) error {
	text := i18n.T(ctx, "notify.user_created", map[string]any{
		"Name":   e.User.DisplayName(),
		"ChatID": e.User.ChatID,
	})
	return d.toModerators(ctx, env.Name, e.User.ChatID, func(*models.User) (string, *tgbotapi.InlineKeyboardMarkup) {
		return text, nil
	})
}

func (d *Dispatcher) onUserPromoted(ctx context.Context, e events.UserPromoted, env events.Envelope) error {
	d.enqueue(env.Name, e.User.ChatID, i18n.T(ctx, "notify.user_promoted", map[string]any{
		"Role": format.Role(ctx, e.User.Role),
		"By":   e.By.DisplayName(),
	}), nil)
	return nil
}

func (d *Dispatcher) onWorkLogMissed(ctx context.Context, e events.WorkLogMissed, env events.Envelope) error {
	switch e.MissedType {
	case events.MissedArrival:
		markup := keyboard.Arrival(ctx)
		d.enqueue(env.Name, e.User.ChatID, i18n.T(ctx, "notify.missed_arrival", map[string]any{
			"Name": e.User.DisplayName(),
			"Date": format.Date(e.Date),
		}), &markup)
	case events.MissedReport:
		d.enqueue(env.Name, e.User.ChatID, i18n.T(ctx, "notify.missed_report", map[string]any{
			"Name": e.User.DisplayName(),
			"Date": format.Date(e.Date),
		}), nil)
	default:
		return fmt.Errorf("unknown missed type %q", e.MissedType)
	}
	return nil
}

func (d *Dispatcher) onLogEdited(ctx context.Context, e events.LogEdited, env events.Envelope) error {
	fields := make([]string, 0, len(e.Changes))
	for field := range e.Changes {
		fields = append(fields, i18n.T(ctx, "field."+field))
	}
	sort.Strings(fields)

	text := i18n.T(ctx, "notify.log_edited", map[string]any{
		"Name":   e.User.DisplayName(),
		"Date":   format.Date(e.WorkLog.Day()),
		"Fields": strings.Join(fields, ", "),
	})
	return d.toModerators(ctx, env.Name, e.User.ChatID, func(*models.User) (string, *tgbotapi.InlineKeyboardMarkup) {
		return text, nil
	})
}

func (d *Dispatcher) onTeamStatsReady(ctx context.Context, e events.TeamStatsReady, env events.Envelope) error {
	text := TeamStats(ctx, e)
	if e.RequestedBy != nil {
		d.enqueue(env.Name, e.RequestedBy.ChatID, text, nil)
		return nil
	}
	return d.toModerators(ctx, env.Name, 0, func(*models.User) (string, *tgbotapi.InlineKeyboardMarkup) {
		return text, nil
	})
}

func (d *Dispatcher) onAbsenceCreated(ctx context.Context, e events.AbsenceCreated, env events.Envelope) error {
	text := i18n.T(ctx, "notify.absence_created", map[string]any{
		"Name":    e.User.DisplayName(),
		"Absence": format.Absence(ctx, e.Absence),
	})
	return d.toModerators(ctx, env.Name, e.User.ChatID, func(*models.User) (string, *tgbotapi.InlineKeyboardMarkup) {
		markup := keyboard.Moderation(ctx, e.Absence.ID)
		return text, &markup
	})
}

func (d *Dispatcher) onAbsenceDecision(ctx context.Context, e events.AbsenceDecision, env events.Envelope) error {
	data := map[string]any{
		"Type":     format.AbsenceType(ctx, e.Absence.Type),
		"Period":   format.Period(e.Absence),
		"Approver": e.Approver.DisplayName(),
	}

	id := "notify.absence_approved"
	if e.Decision == events.DecisionRejected {
		id = "notify.absence_rejected"
		data["Reason"] = "—"
		if e.Reason != nil {
			data["Reason"] = *e.Reason
		}
	}

	d.enqueue(env.Name, e.User.ChatID, i18n.T(ctx, id, data), nil)
	return nil
}

// TeamStats печатает сводку по команде за день.
func TeamStats(ctx context.Context, e events.TeamStatsReady) string {
	lines := []string{i18n.T(ctx, "team.header", map[string]any{
		"Date":  format.Date(e.Date),
		"Count": len(e.Members),
	})}

	counts := map[string]int{}
	for _, m := range e.Members {
		counts[m.State]++
		line := i18n.T(ctx, "team.member", map[string]any{
			"Name":  m.User.DisplayName(),
			"State": format.DayState(ctx, m.State),
		})
		if m.WorkLog != nil && m.WorkLog.ArrivedAt != nil {
			line += " " + i18n.T(ctx, "team.member_times", map[string]any{
				"Arrived": format.Clock(m.WorkLog.ArrivedAt),
				"Left":    format.Clock(m.WorkLog.LeftAt),
			})
		}
		lines = append(lines, line)
	}

	if len(e.Members) == 0 {
		lines = append(lines, i18n.T(ctx, "team.empty"))
	} else {
		lines = append(lines, "", i18n.T(ctx, "team.not_started", map[string]any{
			"Count": counts["not_started"],
		}))
	}

	return strings.Join(lines, "\n")
}

package notify

import (
	"context"
	"sync"

	"timetracker-bot/internal/events"
	"timetracker-bot/internal/format"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/metrics"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

const channelMail = "mail"

// MailSender - то, что нужно от gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer дублирует заявки на отсутствие и решения по ним на почту HR.
type Mailer struct {
	sender MailSender
	from   string
	to     string
	logger *logrus.Logger
	wg     sync.WaitGroup
}

func NewMailer(sender MailSender, from, to string, logger *logrus.Logger) *Mailer {
	return &Mailer{sender: sender, from: from, to: to, logger: logger}
}

// NewDialer создает SMTP-клиент gomail.
func NewDialer(host string, port int, user, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, user, password)
}

func (m *Mailer) Subscribe(bus *events.Bus) {
	events.Subscribe(bus, m.onAbsenceCreated)
	events.Subscribe(bus, m.onAbsenceDecision)
}

// Wait дожидается отправки писем, запущенных до вызова.
func (m *Mailer) Wait() {
	m.wg.Wait()
}

func (m *Mailer) onAbsenceCreated(ctx context.Context, e events.AbsenceCreated, env events.Envelope) error {
	subject := i18n.T(ctx, "mail.absence_created_subject", map[string]any{
		"Name": e.User.DisplayName(),
	})
	body := i18n.T(ctx, "notify.absence_created", map[string]any{
		"Name":    e.User.DisplayName(),
		"Absence": format.Absence(ctx, e.Absence),
	})
	m.send(env, subject, body)
	return nil
}

func (m *Mailer) onAbsenceDecision(ctx context.Context, e events.AbsenceDecision, env events.Envelope) error {
	subject := i18n.T(ctx, "mail.absence_decision_subject", map[string]any{
		"Name":   e.User.DisplayName(),
		"Status": format.AbsenceStatus(ctx, e.Absence.Status),
	})
	body := format.Absence(ctx, e.Absence) + "\n" + i18n.T(ctx, "mail.approver", map[string]any{
		"Approver": e.Approver.DisplayName(),
	})
	m.send(env, subject, body)
	return nil
}

func (m *Mailer) send(env events.Envelope, subject, body string) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		if err := m.sender.DialAndSend(msg); err != nil {
			metrics.NotificationsSent.WithLabelValues(channelMail, "failed").Inc()
			m.logger.WithError(err).WithFields(logrus.Fields{
				"event":    env.Name,
				"event_id": env.ID.String(),
			}).Warn("Failed to send HR mail")
			return
		}
		metrics.NotificationsSent.WithLabelValues(channelMail, "ok").Inc()
	}()
}

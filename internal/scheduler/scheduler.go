// Package scheduler runs the daily checks: missed arrivals in the morning,
// missed reports and the team summary in the evening.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"timetracker-bot/internal/events"
	"timetracker-bot/internal/models"

	"github.com/sirupsen/logrus"
)

type Users interface {
	Active(ctx context.Context) ([]*models.User, error)
}

type WorkLogs interface {
	GetByDate(ctx context.Context, date time.Time) ([]*models.WorkLog, error)
}

type Absences interface {
	ApprovedOn(ctx context.Context, date time.Time) ([]models.AbsenceRequest, error)
}

type Calendar interface {
	IsWorkingDay(ctx context.Context, date time.Time) (bool, error)
}

type Team interface {
	Report(ctx context.Context, date time.Time, requestedBy *models.User) error
}

type Scheduler struct {
	users    Users
	workLogs WorkLogs
	absences Absences
	calendar Calendar
	team     Team
	bus      events.Publisher
	logger   *logrus.Logger
	now      func() time.Time

	arrivalAt int
	reportAt  int

	lastArrival string
	lastReport  string
}

func New(
	users Users,
	workLogs WorkLogs,
	absences Absences,
	calendar Calendar,
	team Team,
	bus events.Publisher,
	logger *logrus.Logger,
	arrivalTime, reportTime string,
) (*Scheduler, error) {
	arrivalAt, err := parseClock(arrivalTime)
	if err != nil {
		return nil, fmt.Errorf("arrival reminder time: %w", err)
	}
	reportAt, err := parseClock(reportTime)
	if err != nil {
		return nil, fmt.Errorf("report reminder time: %w", err)
	}

	return &Scheduler{
		users:     users,
		workLogs:  workLogs,
		absences:  absences,
		calendar:  calendar,
		team:      team,
		bus:       bus,
		logger:    logger,
		now:       time.Now,
		arrivalAt: arrivalAt,
		reportAt:  reportAt,
	}, nil
}

// WithClock подменяет источник времени.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run проверяет расписание раз в interval до отмены контекста.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick запускает проверки, время которых наступило и которые еще не выполнялись сегодня.
// Утренняя проверка после вечерней уже не имеет смысла и пропускается.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	today := models.DateKey(now)
	minute := now.Hour()*60 + now.Minute()

	if minute >= s.arrivalAt && minute < s.reportAt && s.lastArrival != today {
		s.lastArrival = today
		if err := s.CheckArrivals(ctx, now); err != nil {
			s.logger.WithError(err).Error("Missed arrival check failed")
		}
	}

	if minute >= s.reportAt && s.lastReport != today {
		s.lastReport = today
		if err := s.CheckReports(ctx, now); err != nil {
			s.logger.WithError(err).Error("Missed report check failed")
		}
	}
}

// CheckArrivals публикует worklog.missed{arrival} для сотрудников без отметки прихода.
func (s *Scheduler) CheckArrivals(ctx context.Context, date time.Time) error {
	working, err := s.calendar.IsWorkingDay(ctx, date)
	if err != nil {
		return fmt.Errorf("check calendar: %w", err)
	}
	if !working {
		s.logger.WithField("date", models.DateKey(date)).Debug("Non-working day, arrival check skipped")
		return nil
	}

	users, logs, absent, err := s.load(ctx, date)
	if err != nil {
		return err
	}

	sent := 0
	for _, u := range users {
		if absent[u.ID] {
			continue
		}
		if log, ok := logs[u.ID]; ok && (log.ArrivedAt != nil || isAbsentMode(log.WorkMode)) {
			continue
		}
		s.bus.Publish(ctx, events.WorkLogMissed{User: *u, MissedType: events.MissedArrival, Date: date})
		sent++
	}

	s.logger.WithFields(logrus.Fields{
		"date":      models.DateKey(date),
		"reminders": sent,
	}).Info("Missed arrival check done")
	return nil
}

// CheckReports публикует worklog.missed{report} для ушедших без отчета,
// затем сводку по команде для менеджеров.
func (s *Scheduler) CheckReports(ctx context.Context, date time.Time) error {
	working, err := s.calendar.IsWorkingDay(ctx, date)
	if err != nil {
		return fmt.Errorf("check calendar: %w", err)
	}
	if !working {
		s.logger.WithField("date", models.DateKey(date)).Debug("Non-working day, report check skipped")
		return nil
	}

	users, logs, _, err := s.load(ctx, date)
	if err != nil {
		return err
	}

	sent := 0
	for _, u := range users {
		log, ok := logs[u.ID]
		if !ok || log.LeftAt == nil || log.HasReport() {
			continue
		}
		s.bus.Publish(ctx, events.WorkLogMissed{User: *u, MissedType: events.MissedReport, Date: date})
		sent++
	}

	s.logger.WithFields(logrus.Fields{
		"date":      models.DateKey(date),
		"reminders": sent,
	}).Info("Missed report check done")

	return s.team.Report(ctx, date, nil)
}

func (s *Scheduler) load(ctx context.Context, date time.Time) ([]*models.User, map[uint]*models.WorkLog, map[uint]bool, error) {
	users, err := s.users.Active(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get active users: %w", err)
	}

	list, err := s.workLogs.GetByDate(ctx, date)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get work logs: %w", err)
	}
	logs := make(map[uint]*models.WorkLog, len(list))
	for _, l := range list {
		logs[l.UserID] = l
	}

	approved, err := s.absences.ApprovedOn(ctx, date)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get approved absences: %w", err)
	}
	absent := make(map[uint]bool, len(approved))
	for _, a := range approved {
		absent[a.UserID] = true
	}

	return users, logs, absent, nil
}

func isAbsentMode(mode models.WorkMode) bool {
	return mode == models.WorkModeSick || mode == models.WorkModeVacation || mode == models.WorkModeAbsent
}

// parseClock переводит "10:30" в минуты от начала суток.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"timetracker-bot/internal/attendance"
	"timetracker-bot/internal/events"
	"timetracker-bot/internal/metrics"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// Префиксы строки, с которой в отчете начинается блок проблем
var problemPrefixes = []string{"проблемы:", "problems:"}

type WorkLogService struct {
	repo   repository.WorkLogRepository
	bus    events.Publisher
	logger *logrus.Logger
	now    func() time.Time
}

func NewWorkLogService(repo repository.WorkLogRepository, bus events.Publisher, logger *logrus.Logger) *WorkLogService {
	return &WorkLogService{
		repo:   repo,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *WorkLogService) WithClock(now func() time.Time) *WorkLogService {
	s.now = now
	return s
}

// Apply выполняет действие над сегодняшней записью пользователя.
// При запрещенном переходе возвращается *attendance.ValidationError, запись не меняется
// и не создается.
func (s *WorkLogService) Apply(ctx context.Context, user *models.User, action attendance.Action) (*models.WorkLog, attendance.Transition, error) {
	now := s.now()

	log, err := s.repo.GetByUserAndDate(ctx, user.ID, now)
	if err != nil {
		return nil, attendance.Transition{}, fmt.Errorf("find work log: %w", err)
	}

	// Запись дня создается только для разрешенного перехода
	current := models.WorkLog{UserID: user.ID, Date: models.DateKey(now)}
	if log != nil {
		current = *log
	}

	tr, err := attendance.Validate(current, action, now)
	if err != nil {
		var verr *attendance.ValidationError
		if errors.As(err, &verr) {
			metrics.TransitionsRejected.WithLabelValues(string(verr.Code)).Inc()
			s.logger.WithFields(logrus.Fields{
				"user_id": user.ID,
				"action":  action,
				"code":    verr.Code,
			}).Warn("Work log transition refused")
		}
		return log, attendance.Transition{}, err
	}

	if log == nil {
		if log, err = s.repo.FindOrCreate(ctx, user.ID, now); err != nil {
			return nil, attendance.Transition{}, fmt.Errorf("create work log: %w", err)
		}
	}

	updated, err := s.repo.Update(ctx, log, tr.Patch)
	if err != nil {
		return nil, attendance.Transition{}, fmt.Errorf("update work log: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"action":  action,
		"state":   attendance.State(*updated),
		"total":   updated.TotalMinutes,
	}).Info("Work log action applied")

	return updated, tr, nil
}

// Today возвращает сегодняшнюю запись или nil.
func (s *WorkLogService) Today(ctx context.Context, user *models.User) (*models.WorkLog, error) {
	return s.repo.GetByUserAndDate(ctx, user.ID, s.now())
}

// Week возвращает записи за последние 7 дней, включая сегодня.
func (s *WorkLogService) Week(ctx context.Context, user *models.User) ([]*models.WorkLog, error) {
	to := s.now()
	from := to.AddDate(0, 0, -6)
	return s.repo.GetByUserBetween(ctx, user.ID, from, to)
}

// History возвращает последние записи. limit приводится к [1, MaxHistoryLimit].
func (s *WorkLogService) History(ctx context.Context, user *models.User, limit int) ([]*models.WorkLog, error) {
	return s.repo.GetByUserID(ctx, user.ID, ClampHistoryLimit(limit))
}

func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// SaveReport записывает текст отчета в запись пользователя.
// При edit=true публикуется log.edited с изменившимися полями.
func (s *WorkLogService) SaveReport(ctx context.Context, user *models.User, workLogID uint, text string, edit bool) (*models.WorkLog, error) {
	log, err := s.repo.GetByID(ctx, workLogID)
	if err != nil {
		return nil, fmt.Errorf("get work log: %w", err)
	}
	if log == nil {
		return nil, ErrNotFound
	}
	if log.UserID != user.ID {
		return nil, ErrForbidden
	}

	report, problems := SplitReport(text)
	patch := models.WorkLogPatch{
		models.ColDailyReport: report,
		models.ColProblems:    problems,
	}

	updated, err := s.repo.Update(ctx, log, patch)
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"work_log_id": updated.ID,
		"edit":        edit,
	}).Info("Daily report saved")

	if edit {
		changes := map[string]events.Change{}
		if !sameText(log.DailyReport, updated.DailyReport) {
			changes[models.ColDailyReport] = events.Change{Old: log.DailyReport, New: updated.DailyReport}
		}
		if !sameText(log.Problems, updated.Problems) {
			changes[models.ColProblems] = events.Change{Old: log.Problems, New: updated.Problems}
		}
		if len(changes) > 0 {
			s.bus.Publish(ctx, events.LogEdited{User: *user, WorkLog: *updated, Changes: changes})
		}
	}

	return updated, nil
}

// SplitReport отделяет блок проблем от текста отчета.
// Блок начинается со строки "Проблемы:" или "Problems:" и идет до конца текста.
func SplitReport(text string) (*string, *string) {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		for _, prefix := range problemPrefixes {
			if !strings.HasPrefix(lower, prefix) {
				continue
			}
			rest := []string{strings.TrimSpace(trimmed[len(prefix):])}
			rest = append(rest, lines[i+1:]...)
			return nonEmpty(strings.Join(lines[:i], "\n")), nonEmpty(strings.Join(rest, "\n"))
		}
	}

	return nonEmpty(strings.Join(lines, "\n")), nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

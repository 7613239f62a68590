package service

import (
	"context"
	"time"

	"timetracker-bot/internal/models"
	"timetracker-bot/internal/repository"
	"timetracker-bot/pkg/weekends"

	"github.com/sirupsen/logrus"
)

type NonWorkingDayService struct {
	repo   repository.NonWorkingDayRepository
	logger *logrus.Logger
}

func NewNonWorkingDayService(repo repository.NonWorkingDayRepository, logger *logrus.Logger) *NonWorkingDayService {
	return &NonWorkingDayService{repo: repo, logger: logger}
}

// LoadFromJSON загружает выходные дни из JSON файла в базу данных
func (s *NonWorkingDayService) LoadFromJSON(ctx context.Context, filePath string) (int, error) {
	weekendDays, err := weekends.ParseWeekendsJSON(filePath)
	if err != nil {
		return 0, err
	}

	nonWorkingDays := make([]models.NonWorkingDay, 0, len(weekendDays))
	for _, wd := range weekendDays {
		nonWorkingDays = append(nonWorkingDays, models.NonWorkingDay{
			Date:  models.DateKey(wd.Date),
			Year:  wd.Year,
			Month: wd.Month,
			Day:   wd.Day,
		})
	}

	// Удаляем старые записи (чтобы избежать дублирования)
	if err := s.repo.DeleteAll(ctx); err != nil {
		s.logger.Warnf("Failed to delete old non-working days: %v", err)
	}

	if err := s.repo.BulkCreate(ctx, nonWorkingDays); err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"file": filePath,
		"days": len(nonWorkingDays),
	}).Info("Production calendar loaded")

	return len(nonWorkingDays), nil
}

// IsWorkingDay сверяется с производственным календарем, если он загружен за этот
// месяц: в календаре перечислены все нерабочие дни, включая перенесенные.
// Без календаря нерабочими считаются суббота и воскресенье.
func (s *NonWorkingDayService) IsWorkingDay(ctx context.Context, date time.Time) (bool, error) {
	days, err := s.GetNonWorkingDaysForMonth(ctx, date.Year(), int(date.Month()))
	if err != nil {
		return false, err
	}
	if len(days) == 0 {
		return !weekends.IsWeekend(date), nil
	}

	key := models.DateKey(date)
	for _, d := range days {
		if d.Date == key {
			return false, nil
		}
	}
	return true, nil
}

// GetNonWorkingDaysForMonth возвращает выходные дни для указанного месяца
func (s *NonWorkingDayService) GetNonWorkingDaysForMonth(ctx context.Context, year, month int) ([]models.NonWorkingDay, error) {
	return s.repo.GetByYearMonth(ctx, year, month)
}

// CountNonWorkingDays возвращает количество выходных дней
func (s *NonWorkingDayService) CountNonWorkingDays(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

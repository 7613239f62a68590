package repository

import (
	"context"
	"errors"
	"time"

	"timetracker-bot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WorkLogRepository - шлюз к записям рабочего дня.
type WorkLogRepository interface {
	FindOrCreate(ctx context.Context, userID uint, date time.Time) (*models.WorkLog, error)
	Update(ctx context.Context, log *models.WorkLog, patch models.WorkLogPatch) (*models.WorkLog, error)
	GetByID(ctx context.Context, id uint) (*models.WorkLog, error)
	GetByUserAndDate(ctx context.Context, userID uint, date time.Time) (*models.WorkLog, error)
	GetByUserID(ctx context.Context, userID uint, limit int) ([]*models.WorkLog, error)
	GetByUserBetween(ctx context.Context, userID uint, from, to time.Time) ([]*models.WorkLog, error)
	GetByDate(ctx context.Context, date time.Time) ([]*models.WorkLog, error)
}

type GormWorkLogRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormWorkLogRepository(db *gorm.DB, logger *logrus.Logger) (*GormWorkLogRepository, error) {
	// Автомиграция
	if err := db.AutoMigrate(&models.WorkLog{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate work_logs table")
		return nil, err
	}

	logger.Info("Work log repository initialized")

	return &GormWorkLogRepository{
		db:     db,
		logger: logger,
	}, nil
}

// FindOrCreate возвращает запись пользователя за дату, создавая пустую при отсутствии.
func (r *GormWorkLogRepository) FindOrCreate(ctx context.Context, userID uint, date time.Time) (*models.WorkLog, error) {
	log := models.WorkLog{}
	attrs := models.WorkLog{UserID: userID, Date: models.DateKey(date)}

	result := r.db.WithContext(ctx).
		Attrs(models.WorkLog{WorkMode: models.WorkModeOffice}).
		FirstOrCreate(&log, attrs)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to find or create work log")
		return nil, result.Error
	}

	if result.RowsAffected > 0 {
		r.logger.WithFields(logrus.Fields{
			"id":      log.ID,
			"user_id": userID,
			"date":    log.Date,
		}).Debug("Work log created")
	}

	return &log, nil
}

// Update применяет патч и возвращает свежую запись из БД.
func (r *GormWorkLogRepository) Update(ctx context.Context, log *models.WorkLog, patch models.WorkLogPatch) (*models.WorkLog, error) {
	if log == nil || log.ID == 0 {
		return nil, errors.New("work log is not persisted")
	}

	if len(patch) > 0 {
		result := r.db.WithContext(ctx).
			Model(&models.WorkLog{ID: log.ID}).
			Updates(map[string]any(patch))
		if result.Error != nil {
			r.logger.WithError(result.Error).WithField("id", log.ID).Error("Failed to update work log")
			return nil, result.Error
		}
	}

	updated, err := r.GetByID(ctx, log.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	r.logger.WithFields(logrus.Fields{
		"id":            updated.ID,
		"user_id":       updated.UserID,
		"total_minutes": updated.TotalMinutes,
		"work_mode":     updated.WorkMode,
	}).Info("Work log updated")

	return updated, nil
}

func (r *GormWorkLogRepository) GetByID(ctx context.Context, id uint) (*models.WorkLog, error) {
	var log models.WorkLog
	result := r.db.WithContext(ctx).First(&log, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		r.logger.WithField("id", id).Debug("Work log not found")
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get work log by ID")
		return nil, result.Error
	}

	return &log, nil
}

func (r *GormWorkLogRepository) GetByUserAndDate(ctx context.Context, userID uint, date time.Time) (*models.WorkLog, error) {
	var log models.WorkLog
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, models.DateKey(date)).
		First(&log)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get work log by user and date")
		return nil, result.Error
	}

	return &log, nil
}

func (r *GormWorkLogRepository) GetByUserID(ctx context.Context, userID uint, limit int) ([]*models.WorkLog, error) {
	var logs []*models.WorkLog

	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&logs).Error; err != nil {
		r.logger.WithError(err).Error("Failed to get work logs by user ID")
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"count":   len(logs),
		"limit":   limit,
	}).Debug("Retrieved work logs by user ID")

	return logs, nil
}

// GetByUserBetween возвращает записи за период включительно, от новых к старым.
func (r *GormWorkLogRepository) GetByUserBetween(ctx context.Context, userID uint, from, to time.Time) ([]*models.WorkLog, error) {
	var logs []*models.WorkLog

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date BETWEEN ? AND ?", userID, models.DateKey(from), models.DateKey(to)).
		Order("date DESC").
		Find(&logs).Error
	if err != nil {
		r.logger.WithError(err).Error("Failed to get work logs for period")
		return nil, err
	}

	return logs, nil
}

// GetByDate возвращает записи всех пользователей за день.
func (r *GormWorkLogRepository) GetByDate(ctx context.Context, date time.Time) ([]*models.WorkLog, error) {
	var logs []*models.WorkLog

	if err := r.db.WithContext(ctx).Where("date = ?", models.DateKey(date)).Find(&logs).Error; err != nil {
		r.logger.WithError(err).Error("Failed to get work logs by date")
		return nil, err
	}

	return logs, nil
}

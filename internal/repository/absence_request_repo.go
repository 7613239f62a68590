package repository

import (
	"context"
	"errors"
	"time"

	"timetracker-bot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AbsenceRequestRepository - шлюз к заявкам на отсутствие.
type AbsenceRequestRepository interface {
	FindOverlapping(ctx context.Context, userID uint, start, end time.Time) ([]models.AbsenceRequest, error)
	Create(ctx context.Context, draft models.AbsenceDraft) (*models.AbsenceRequest, error)
	UpdateDecision(ctx context.Context, id uint, decision models.AbsenceStatus, reason *string, approverID uint) (*models.AbsenceRequest, error)
	GetByID(ctx context.Context, id uint) (*models.AbsenceRequest, error)
	GetByUserID(ctx context.Context, userID uint, limit int) ([]models.AbsenceRequest, error)
	GetApprovedOn(ctx context.Context, date time.Time) ([]models.AbsenceRequest, error)
}

type GormAbsenceRequestRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormAbsenceRequestRepository(db *gorm.DB, logger *logrus.Logger) (*GormAbsenceRequestRepository, error) {
	if err := db.AutoMigrate(&models.AbsenceRequest{}); err != nil {
		return nil, err
	}
	return &GormAbsenceRequestRepository{db: db, logger: logger}, nil
}

// FindOverlapping возвращает неотклоненные заявки, пересекающиеся с периодом.
func (r *GormAbsenceRequestRepository) FindOverlapping(ctx context.Context, userID uint, start, end time.Time) ([]models.AbsenceRequest, error) {
	var requests []models.AbsenceRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ? AND start_date <= ? AND end_date >= ?",
			userID, models.AbsenceStatusRejected, dayEnd(end), dayStart(start)).
		Order("start_date").
		Find(&requests).Error
	return requests, err
}

func (r *GormAbsenceRequestRepository) Create(ctx context.Context, draft models.AbsenceDraft) (*models.AbsenceRequest, error) {
	request := &models.AbsenceRequest{
		UserID:    draft.UserID,
		Type:      draft.Type,
		StartDate: dayStart(draft.StartDate),
		EndDate:   dayStart(draft.EndDate),
		DaysCount: draft.DaysCount(),
		Reason:    draft.Reason,
		Status:    models.AbsenceStatusPending,
	}

	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create absence request")
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"id":      request.ID,
		"user_id": request.UserID,
		"type":    request.Type,
		"days":    request.DaysCount,
	}).Info("Absence request created")

	return request, nil
}

// UpdateDecision фиксирует решение только для заявки в статусе pending.
func (r *GormAbsenceRequestRepository) UpdateDecision(
	ctx context.Context,
	id uint,
	decision models.AbsenceStatus,
	reason *string,
	approverID uint,
) (*models.AbsenceRequest, error) {
	now := time.Now()
	updates := map[string]any{
		"status":      decision,
		"approved_by": approverID,
		"decided_at":  now,
	}
	if decision == models.AbsenceStatusRejected {
		updates["rejection_reason"] = reason
	}

	// Условие по статусу делает проверку и запись одной операцией
	result := r.db.WithContext(ctx).
		Model(&models.AbsenceRequest{}).
		Where("id = ? AND status = ?", id, models.AbsenceStatusPending).
		Updates(updates)
	if result.Error != nil {
		r.logger.WithError(result.Error).WithField("id", id).Error("Failed to update absence decision")
		return nil, result.Error
	}

	request, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrNotFound
	}
	if result.RowsAffected == 0 {
		return request, ErrAlreadyDecided
	}

	r.logger.WithFields(logrus.Fields{
		"id":          id,
		"status":      decision,
		"approver_id": approverID,
	}).Info("Absence decision saved")

	return request, nil
}

func (r *GormAbsenceRequestRepository) GetByID(ctx context.Context, id uint) (*models.AbsenceRequest, error) {
	var request models.AbsenceRequest
	err := r.db.WithContext(ctx).First(&request, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *GormAbsenceRequestRepository) GetByUserID(ctx context.Context, userID uint, limit int) ([]models.AbsenceRequest, error) {
	var requests []models.AbsenceRequest
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("start_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&requests).Error
	return requests, err
}

// GetApprovedOn возвращает одобренные заявки, покрывающие дату.
func (r *GormAbsenceRequestRepository) GetApprovedOn(ctx context.Context, date time.Time) ([]models.AbsenceRequest, error) {
	var requests []models.AbsenceRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_date <= ? AND end_date >= ?",
			models.AbsenceStatusApproved, dayEnd(date), dayStart(date)).
		Find(&requests).Error
	return requests, err
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

func dayEnd(t time.Time) time.Time {
	return dayStart(t).Add(24*time.Hour - time.Nanosecond)
}

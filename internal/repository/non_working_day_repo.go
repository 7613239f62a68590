package repository

import (
	"context"

	"timetracker-bot/internal/models"

	"gorm.io/gorm"
)

type NonWorkingDayRepository interface {
	GetByYearMonth(ctx context.Context, year, month int) ([]models.NonWorkingDay, error)
	BulkCreate(ctx context.Context, days []models.NonWorkingDay) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

type GormNonWorkingDayRepository struct {
	db *gorm.DB
}

func NewGormNonWorkingDayRepository(db *gorm.DB) (*GormNonWorkingDayRepository, error) {
	// Автомиграция для таблицы non_working_days
	if err := db.AutoMigrate(&models.NonWorkingDay{}); err != nil {
		return nil, err
	}

	return &GormNonWorkingDayRepository{db: db}, nil
}

func (r *GormNonWorkingDayRepository) BulkCreate(ctx context.Context, days []models.NonWorkingDay) error {
	if len(days) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&days).Error
}

func (r *GormNonWorkingDayRepository) GetByYearMonth(ctx context.Context, year, month int) ([]models.NonWorkingDay, error) {
	var days []models.NonWorkingDay
	err := r.db.WithContext(ctx).Where("year = ? AND month = ?", year, month).Order("day").Find(&days).Error
	return days, err
}

func (r *GormNonWorkingDayRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("DELETE FROM non_working_days").Error
}

func (r *GormNonWorkingDayRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.NonWorkingDay{}).Count(&count).Error
	return count, err
}

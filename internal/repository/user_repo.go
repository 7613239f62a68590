package repository

import (
	"context"
	"errors"

	"timetracker-bot/internal/models"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByChatID(ctx context.Context, chatID int64) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, chatID int64, role models.Role) error
	GetActive(ctx context.Context) ([]*models.User, error)
	GetByRoles(ctx context.Context, roles ...models.Role) ([]*models.User, error)
	GetStats(ctx context.Context) (int, int, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) (*GormUserRepository, error) {
	// Автомиграция - создает таблицы если их нет
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, err
	}

	return &GormUserRepository{db: db}, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	// Проверяем, существует ли уже пользователь
	var existingUser models.User
	result := r.db.WithContext(ctx).Where("chat_id = ?", user.ChatID).First(&existingUser)
	if result.Error == nil {
		return errors.New("пользователь уже существует")
	}

	return r.db.WithContext(ctx).Create(user).Error
}

func (r *GormUserRepository) GetByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&user)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func (r *GormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Save(user)
	if result.Error != nil {
		return result.Error
	}

	return nil
}

func (r *GormUserRepository) UpdateRole(ctx context.Context, chatID int64, role models.Role) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("chat_id = ?", chatID).
		Update("role", role)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetActive возвращает всех активных пользователей по порядку регистрации.
func (r *GormUserRepository) GetActive(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	result := r.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&users)

	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}

func (r *GormUserRepository) GetByRoles(ctx context.Context, roles ...models.Role) ([]*models.User, error) {
	var users []*models.User
	result := r.db.WithContext(ctx).
		Where("active = ? AND role IN ?", true, roles).
		Order("id").
		Find(&users)

	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}

// GetStats возвращает общее число пользователей и число менеджеров/админов.
func (r *GormUserRepository) GetStats(ctx context.Context) (int, int, error) {
	var total int64
	var moderators int64

	result := r.db.WithContext(ctx).Model(&models.User{}).Count(&total)
	if result.Error != nil {
		return 0, 0, result.Error
	}

	result = r.db.WithContext(ctx).Model(&models.User{}).
		Where("role IN ?", []models.Role{models.RoleManager, models.RoleAdmin}).
		Count(&moderators)
	if result.Error != nil {
		return 0, 0, result.Error
	}

	return int(total), int(moderators), nil
}

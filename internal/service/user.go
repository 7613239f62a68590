package service

import (
	"context"
	"fmt"

	"timetracker-bot/internal/events"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/repository"

	"github.com/sirupsen/logrus"
)

type UserService struct {
	repo   repository.UserRepository
	bus    events.Publisher
	logger *logrus.Logger
}

func NewUserService(repo repository.UserRepository, bus events.Publisher, logger *logrus.Logger) *UserService {
	return &UserService{repo: repo, bus: bus, logger: logger}
}

// Register создает пользователя с ролью employee или обновляет имя уже известного.
// Второй результат true, если пользователь новый.
func (s *UserService) Register(ctx context.Context, chatID int64, username, firstName, lastName string) (*models.User, bool, error) {
	user, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	if user != nil {
		if user.Username == username && user.FirstName == firstName && user.LastName == lastName {
			return user, false, nil
		}
		user.Username = username
		user.FirstName = firstName
		user.LastName = lastName
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, false, fmt.Errorf("update user: %w", err)
		}
		return user, false, nil
	}

	user = &models.User{
		ChatID:    chatID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Role:      models.RoleEmployee,
		Active:    true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"chat_id": chatID,
	}).Info("User registered")

	s.bus.Publish(ctx, events.UserCreated{User: *user})

	return user, true, nil
}

// GetByChatID возвращает пользователя или ErrNotFound.
func (s *UserService) GetByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	user, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// Promote меняет роль пользователя. Доступно только администраторам.
func (s *UserService) Promote(ctx context.Context, by *models.User, targetChatID int64, role models.Role) (*models.User, error) {
	if by == nil || !by.IsAdmin() {
		s.logger.WithField("chat_id", targetChatID).Warn("Promotion refused: not an admin")
		return nil, ErrForbidden
	}

	target, err := s.GetByChatID(ctx, targetChatID)
	if err != nil {
		return nil, err
	}

	oldRole := target.Role
	if oldRole == role {
		return target, nil
	}

	if err := s.repo.UpdateRole(ctx, targetChatID, role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	target.Role = role

	s.logger.WithFields(logrus.Fields{
		"user_id":  target.ID,
		"old_role": oldRole,
		"new_role": role,
		"by":       by.ID,
	}).Info("User role changed")

	s.bus.Publish(ctx, events.UserPromoted{User: *target, OldRole: oldRole, By: *by})

	return target, nil
}

// EnsureAdmin выдает роль admin базовому администратору из конфигурации.
func (s *UserService) EnsureAdmin(ctx context.Context, chatID int64) error {
	if chatID == 0 {
		return nil
	}

	user, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("get base admin: %w", err)
	}

	if user == nil {
		user = &models.User{
			ChatID:    chatID,
			FirstName: "Admin",
			Role:      models.RoleAdmin,
			Active:    true,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return fmt.Errorf("create base admin: %w", err)
		}
		s.logger.WithField("chat_id", chatID).Info("Base admin created")
		return nil
	}

	if user.IsAdmin() {
		return nil
	}

	if err := s.repo.UpdateRole(ctx, chatID, models.RoleAdmin); err != nil {
		return fmt.Errorf("promote base admin: %w", err)
	}
	s.logger.WithField("chat_id", chatID).Info("Base admin role restored")
	return nil
}

// Moderators возвращает активных менеджеров и администраторов.
func (s *UserService) Moderators(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetByRoles(ctx, models.RoleManager, models.RoleAdmin)
}

// Active возвращает всех активных пользователей.
func (s *UserService) Active(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetActive(ctx)
}

// GetStats возвращает число пользователей и число модераторов.
func (s *UserService) GetStats(ctx context.Context) (int, int, error) {
	return s.repo.GetStats(ctx)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timetracker-bot/internal/events"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/repository"

	"github.com/sirupsen/logrus"
)

type AbsenceService struct {
	absenceRepo repository.AbsenceRequestRepository
	userRepo    repository.UserRepository
	bus         events.Publisher
	logger      *logrus.Logger
}

func NewAbsenceService(
	absenceRepo repository.AbsenceRequestRepository,
	userRepo repository.UserRepository,
	bus events.Publisher,
	logger *logrus.Logger,
) *AbsenceService {
	return &AbsenceService{
		absenceRepo: absenceRepo,
		userRepo:    userRepo,
		bus:         bus,
		logger:      logger,
	}
}

// CheckPending проверяет, что approver может принять решение по заявке прямо сейчас.
// Ничего не меняет: используется перед тем, как запросить причину отказа.
func (s *AbsenceService) CheckPending(ctx context.Context, approver *models.User, absenceID uint) (*models.AbsenceRequest, error) {
	if approver == nil || !approver.CanModerate() {
		return nil, ErrForbidden
	}

	absence, err := s.absenceRepo.GetByID(ctx, absenceID)
	if err != nil {
		return nil, fmt.Errorf("get absence: %w", err)
	}
	if absence == nil {
		return nil, ErrNotFound
	}
	if !absence.IsPending() {
		return absence, ErrAlreadyDecided
	}
	return absence, nil
}

// Decide фиксирует решение по заявке и публикует absence.decision.
// Повторное решение возвращает ErrAlreadyDecided и событие не публикуется.
func (s *AbsenceService) Decide(
	ctx context.Context,
	approver *models.User,
	absenceID uint,
	decision events.Decision,
	reason *string,
) (*models.AbsenceRequest, error) {
	if approver == nil || !approver.CanModerate() {
		s.logger.WithField("absence_id", absenceID).Warn("Absence decision refused: no moderator role")
		return nil, ErrForbidden
	}

	status := models.AbsenceStatusApproved
	if decision == events.DecisionRejected {
		status = models.AbsenceStatusRejected
	} else {
		reason = nil
	}

	absence, err := s.absenceRepo.UpdateDecision(ctx, absenceID, status, reason, approver.ID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyDecided) {
			s.logger.WithFields(logrus.Fields{
				"absence_id": absenceID,
				"status":     absence.Status,
			}).Warn("Absence already decided")
			return absence, ErrAlreadyDecided
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update decision: %w", err)
	}

	owner, err := s.userRepo.GetByID(ctx, absence.UserID)
	if err != nil {
		return nil, fmt.Errorf("get absence owner: %w", err)
	}
	if owner == nil {
		return nil, ErrNotFound
	}

	s.bus.Publish(ctx, events.AbsenceDecision{
		Absence:  *absence,
		User:     *owner,
		Decision: decision,
		Reason:   reason,
		Approver: *approver,
	})

	return absence, nil
}

// ListByUser возвращает последние заявки пользователя.
func (s *AbsenceService) ListByUser(ctx context.Context, user *models.User, limit int) ([]models.AbsenceRequest, error) {
	return s.absenceRepo.GetByUserID(ctx, user.ID, limit)
}

// ApprovedOn возвращает одобренные заявки, покрывающие дату.
func (s *AbsenceService) ApprovedOn(ctx context.Context, date time.Time) ([]models.AbsenceRequest, error) {
	return s.absenceRepo.GetApprovedOn(ctx, date)
}

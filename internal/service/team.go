package service

import (
	"context"
	"fmt"
	"time"

	"timetracker-bot/internal/attendance"
	"timetracker-bot/internal/events"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/repository"

	"github.com/sirupsen/logrus"
)

// Состояние сотрудника с одобренной заявкой и без записи за день
const StateOnAbsence = "absence"

type TeamService struct {
	userRepo    repository.UserRepository
	workLogRepo repository.WorkLogRepository
	absenceRepo repository.AbsenceRequestRepository
	bus         events.Publisher
	logger      *logrus.Logger
}

func NewTeamService(
	userRepo repository.UserRepository,
	workLogRepo repository.WorkLogRepository,
	absenceRepo repository.AbsenceRequestRepository,
	bus events.Publisher,
	logger *logrus.Logger,
) *TeamService {
	return &TeamService{
		userRepo:    userRepo,
		workLogRepo: workLogRepo,
		absenceRepo: absenceRepo,
		bus:         bus,
		logger:      logger,
	}
}

// Snapshot собирает состояние всех активных сотрудников за дату.
func (s *TeamService) Snapshot(ctx context.Context, date time.Time) ([]events.MemberStat, error) {
	users, err := s.userRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active users: %w", err)
	}

	logs, err := s.workLogRepo.GetByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("get work logs: %w", err)
	}
	byUser := make(map[uint]*models.WorkLog, len(logs))
	for _, log := range logs {
		byUser[log.UserID] = log
	}

	approved, err := s.absenceRepo.GetApprovedOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("get approved absences: %w", err)
	}
	onAbsence := make(map[uint]bool, len(approved))
	for _, a := range approved {
		onAbsence[a.UserID] = true
	}

	members := make([]events.MemberStat, 0, len(users))
	for _, u := range users {
		stat := events.MemberStat{User: *u, State: attendance.StateNotStarted.String()}
		if log, ok := byUser[u.ID]; ok {
			stat.WorkLog = log
			stat.State = attendance.State(*log).String()
		} else if onAbsence[u.ID] {
			stat.State = StateOnAbsence
		}
		members = append(members, stat)
	}

	return members, nil
}

// Report строит сводку и публикует team.stats.ready.
// requestedBy задан, если сводку запросил менеджер; тогда она уходит только ему.
func (s *TeamService) Report(ctx context.Context, date time.Time, requestedBy *models.User) error {
	if requestedBy != nil && !requestedBy.CanModerate() {
		return ErrForbidden
	}

	members, err := s.Snapshot(ctx, date)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"date":    models.DateKey(date),
		"members": len(members),
	}).Info("Team stats ready")

	s.bus.Publish(ctx, events.TeamStatsReady{
		Date:        date,
		Members:     members,
		RequestedBy: requestedBy,
	})
	return nil
}

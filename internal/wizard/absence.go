// Package wizard drives the multi-step absence request dialog: start date,
// end date, reason, then creation of a pending request.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"timetracker-bot/internal/events"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/session"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrEndBeforeStart = errors.New("end date is before start date")
	ErrOverlap        = errors.New("absence overlaps an existing request")
	ErrNoWizard       = errors.New("absence wizard is not active")
)

// NoReason - ответ на шаге причины, означающий "без причины".
const NoReason = "-"

// Форматы дат в порядке проверки; первый успешный побеждает
var dateLayouts = []string{
	"02.01.2006",
	"02-01-2006",
	"2006-01-02",
	"02.01",
	"02-01",
}

// AbsenceGateway - часть хранилища заявок, нужная мастеру.
type AbsenceGateway interface {
	FindOverlapping(ctx context.Context, userID uint, start, end time.Time) ([]models.AbsenceRequest, error)
	Create(ctx context.Context, draft models.AbsenceDraft) (*models.AbsenceRequest, error)
}

// Store - хранилище состояния диалогов.
type Store interface {
	Get(userID int64) session.State
	Set(userID int64, state session.State)
	Clear(userID int64) bool
}

// Result - итог обработки одного ответа пользователя.
type Result struct {
	// Step - шаг, на котором мастер ждет следующий ответ. Пустой после создания заявки.
	Step    session.WizardStep
	Absence *models.AbsenceRequest
	// Overlaps заполнен вместе с ErrOverlap.
	Overlaps []models.AbsenceRequest
}

// Done - заявка создана.
func (r Result) Done() bool {
	return r.Absence != nil
}

type Wizard struct {
	store    Store
	absences AbsenceGateway
	bus      events.Publisher
	logger   *logrus.Logger
	now      func() time.Time
}

func New(store Store, absences AbsenceGateway, bus events.Publisher, logger *logrus.Logger) *Wizard {
	return &Wizard{
		store:    store,
		absences: absences,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock подменяет источник времени (год для дат без года).
func (w *Wizard) WithClock(now func() time.Time) *Wizard {
	w.now = now
	return w
}

// Start начинает мастер заново. Предыдущий диалог пользователя сбрасывается.
func (w *Wizard) Start(userID int64, absenceType models.AbsenceType) (session.AbsenceWizard, error) {
	if !absenceType.Valid() {
		return session.AbsenceWizard{}, fmt.Errorf("unknown absence type %q", absenceType)
	}

	state := session.AbsenceWizard{Type: absenceType, Step: session.StepStartDate}
	w.store.Set(userID, state)
	return state, nil
}

// Cancel прерывает мастер без сохранения. Возвращает false, если мастер не был запущен.
func (w *Wizard) Cancel(userID int64) bool {
	if _, ok := w.store.Get(userID).(session.AbsenceWizard); !ok {
		return false
	}
	return w.store.Clear(userID)
}

// Handle принимает ответ пользователя на текущем шаге.
// ErrInvalidDate и ErrEndBeforeStart оставляют шаг и введенные данные без изменений.
func (w *Wizard) Handle(ctx context.Context, user *models.User, userID int64, text string) (Result, error) {
	state, ok := w.store.Get(userID).(session.AbsenceWizard)
	if !ok {
		return Result{}, ErrNoWizard
	}

	text = strings.TrimSpace(text)

	switch state.Step {
	case session.StepStartDate:
		start, err := ParseDate(text, w.now())
		if err != nil {
			return Result{Step: state.Step}, err
		}
		state.StartDate = &start
		state.Step = session.StepEndDate

	case session.StepEndDate:
		end, err := ParseDate(text, w.now())
		if err != nil {
			return Result{Step: state.Step}, err
		}
		if state.StartDate == nil {
			w.store.Set(userID, session.AbsenceWizard{Type: state.Type, Step: session.StepStartDate})
			return Result{Step: session.StepStartDate}, ErrInvalidDate
		}
		if end.Before(*state.StartDate) {
			return Result{Step: state.Step}, ErrEndBeforeStart
		}
		state.EndDate = &end
		state.Step = session.StepReason

	case session.StepReason, session.StepCreate:
		if text != NoReason && text != "" {
			state.Reason = &text
		} else {
			state.Reason = nil
		}
		state.Step = session.StepCreate
		return w.create(ctx, user, userID, state)

	default:
		w.store.Clear(userID)
		return Result{}, fmt.Errorf("unknown wizard step %q", state.Step)
	}

	w.store.Set(userID, state)
	return Result{Step: state.Step}, nil
}

// Draft собирает черновик из завершенного состояния мастера.
func Draft(user *models.User, state session.AbsenceWizard) (models.AbsenceDraft, error) {
	if state.StartDate == nil || state.EndDate == nil {
		return models.AbsenceDraft{}, ErrInvalidDate
	}
	return models.AbsenceDraft{
		UserID:    user.ID,
		Type:      state.Type,
		StartDate: *state.StartDate,
		EndDate:   *state.EndDate,
		Reason:    state.Reason,
	}, nil
}

func (w *Wizard) create(ctx context.Context, user *models.User, userID int64, state session.AbsenceWizard) (Result, error) {
	draft, err := Draft(user, state)
	if err != nil {
		w.store.Clear(userID)
		return Result{}, err
	}

	overlaps, err := w.absences.FindOverlapping(ctx, user.ID, draft.StartDate, draft.EndDate)
	if err != nil {
		// Шаг причины остается, пользователь может прислать ее еще раз
		return Result{Step: session.StepReason}, fmt.Errorf("find overlapping: %w", err)
	}
	if len(overlaps) > 0 {
		w.store.Clear(userID)
		w.logger.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"overlaps": len(overlaps),
		}).Warn("Absence request overlaps existing ones")
		return Result{Overlaps: overlaps}, ErrOverlap
	}

	absence, err := w.absences.Create(ctx, draft)
	if err != nil {
		return Result{Step: session.StepReason}, fmt.Errorf("create absence: %w", err)
	}

	w.store.Clear(userID)

	w.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"absence_id": absence.ID,
		"type":       absence.Type,
		"days":       absence.DaysCount,
	}).Info("Absence wizard completed")

	w.bus.Publish(ctx, events.AbsenceCreated{Absence: *absence, User: *user})

	return Result{Absence: absence}, nil
}

// ParseDate пробует форматы по порядку. Дата без года относится к году now.
func ParseDate(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, text, time.Local)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "2006") {
			month, day := t.Month(), t.Day()
			t = time.Date(now.Year(), month, day, 0, 0, 0, 0, time.Local)
			// 29.02 без года разбирается в високосном году 0
			if t.Month() != month || t.Day() != day {
				return time.Time{}, ErrInvalidDate
			}
		}
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}

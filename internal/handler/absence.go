package handler

import (
	"context"
	"errors"
	"strings"

	"timetracker-bot/internal/callback"
	"timetracker-bot/internal/events"
	"timetracker-bot/internal/format"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/keyboard"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/service"
	"timetracker-bot/internal/session"
	"timetracker-bot/internal/wizard"

	"github.com/sirupsen/logrus"
)

const absencesListLimit = 10

var absenceTypes = map[callback.Kind]models.AbsenceType{
	callback.KindAbsenceVacation:     models.AbsenceTypeVacation,
	callback.KindAbsenceSick:         models.AbsenceTypeSick,
	callback.KindAbsenceBusinessTrip: models.AbsenceTypeBusinessTrip,
	callback.KindAbsenceDayOff:       models.AbsenceTypeDayOff,
}

// Подсказка для каждого шага мастера
var wizardPrompts = map[session.WizardStep]string{
	session.StepStartDate: "wizard.start_date",
	session.StepEndDate:   "wizard.end_date",
	session.StepReason:    "wizard.reason",
}

func (h *Handler) requestAbsenceCallback(ctx context.Context, chatID int64, _ *models.User, _ callback.Command) {
	h.sendWithKeyboard(ctx, chatID, i18n.T(ctx, "absence.choose_type"), keyboard.AbsenceTypes(ctx))
}

// absenceTypeCallback запускает мастер заявки выбранного типа
func (h *Handler) absenceTypeCallback(ctx context.Context, chatID int64, _ *models.User, cmd callback.Command) {
	absenceType, ok := absenceTypes[cmd.Kind]
	if !ok {
		h.sendText(ctx, chatID, i18n.T(ctx, "error.unknown_button"))
		return
	}

	state, err := h.absenceWizard.Start(chatID, absenceType)
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to start absence wizard")
		h.sendText(ctx, chatID, i18n.T(ctx, "error.generic"))
		return
	}

	h.sendText(ctx, chatID, i18n.T(ctx, "wizard.started", map[string]any{
		"Type": format.AbsenceType(ctx, absenceType),
	})+"\n"+i18n.T(ctx, wizardPrompts[state.Step]))
}

// handleWizardText передает ответ мастеру и сообщает следующий шаг или результат
func (h *Handler) handleWizardText(ctx context.Context, chatID int64, user *models.User, text string) {
	res, err := h.absenceWizard.Handle(ctx, user, chatID, text)

	switch {
	case errors.Is(err, wizard.ErrInvalidDate):
		h.sendText(ctx, chatID, i18n.T(ctx, "wizard.invalid_date")+"\n"+i18n.T(ctx, wizardPrompts[res.Step]))
		return
	case errors.Is(err, wizard.ErrEndBeforeStart):
		h.sendText(ctx, chatID, i18n.T(ctx, "wizard.end_before_start"))
		return
	case errors.Is(err, wizard.ErrOverlap):
		lines := []string{i18n.T(ctx, "wizard.overlap")}
		for _, a := range res.Overlaps {
			lines = append(lines, format.Absence(ctx, a))
		}
		h.sendText(ctx, chatID, strings.Join(lines, "\n"))
		return
	case errors.Is(err, wizard.ErrNoWizard):
		h.sendWithKeyboard(ctx, chatID, i18n.T(ctx, "idle.hint"), keyboard.Main(ctx))
		return
	case err != nil:
		h.gatewayError(ctx, chatID, err, "Absence wizard failed")
		return
	}

	if res.Done() {
		h.sendWithKeyboard(ctx, chatID, i18n.T(ctx, "wizard.created", map[string]any{
			"Absence": format.Absence(ctx, *res.Absence),
		}), keyboard.Main(ctx))
		return
	}

	h.sendText(ctx, chatID, i18n.T(ctx, wizardPrompts[res.Step]))
}

func (h *Handler) myAbsencesCallback(ctx context.Context, chatID int64, user *models.User, _ callback.Command) {
	h.sendAbsences(ctx, chatID, user)
}

func (h *Handler) sendAbsences(ctx context.Context, chatID int64, user *models.User) {
	absences, err := h.absenceService.ListByUser(ctx, user, absencesListLimit)
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to list absences")
		return
	}

	if len(absences) == 0 {
		h.sendText(ctx, chatID, i18n.T(ctx, "absences.empty"))
		return
	}

	lines := []string{i18n.T(ctx, "absences.header")}
	for _, a := range absences {
		lines = append(lines, "", format.Absence(ctx, a))
	}
	h.sendText(ctx, chatID, strings.Join(lines, "\n"))
}

// approveAbsence сразу применяет решение
func (h *Handler) approveAbsence(ctx context.Context, chatID int64, user *models.User, cmd callback.Command) {
	absence, err := h.absenceService.Decide(ctx, user, cmd.AbsenceID, events.DecisionApproved, nil)
	if h.moderationFailed(ctx, chatID, absence, err) {
		return
	}

	h.logger.WithFields(logrus.Fields{
		"absence_id":  absence.ID,
		"approver_id": user.ID,
	}).Info("Absence approved")

	h.sendText(ctx, chatID, i18n.T(ctx, "moderation.approved", map[string]any{
		"Absence": format.Absence(ctx, *absence),
	}))
}

// rejectAbsence не меняет заявку, а ждет причину отказа следующим сообщением
func (h *Handler) rejectAbsence(ctx context.Context, chatID int64, user *models.User, cmd callback.Command) {
	absence, err := h.absenceService.CheckPending(ctx, user, cmd.AbsenceID)
	if h.moderationFailed(ctx, chatID, absence, err) {
		return
	}

	h.sessions.Set(chatID, session.AwaitingRejectionReason{AbsenceID: absence.ID})
	h.sendText(ctx, chatID, i18n.T(ctx, "moderation.reason_prompt", map[string]any{
		"Absence": format.Absence(ctx, *absence),
	}))
}

func (h *Handler) handleRejectionReason(ctx context.Context, chatID int64, user *models.User, absenceID uint, text string) {
	reason := strings.TrimSpace(text)
	if reason == "" {
		h.sendText(ctx, chatID, i18n.T(ctx, "moderation.reason_empty"))
		return
	}

	absence, err := h.absenceService.Decide(ctx, user, absenceID, events.DecisionRejected, &reason)
	if err == nil || !isGatewayError(err) {
		h.sessions.Clear(chatID)
	}
	if h.moderationFailed(ctx, chatID, absence, err) {
		return
	}

	h.logger.WithFields(logrus.Fields{
		"absence_id":  absence.ID,
		"approver_id": user.ID,
	}).Info("Absence rejected")

	h.sendText(ctx, chatID, i18n.T(ctx, "moderation.rejected", map[string]any{
		"Absence": format.Absence(ctx, *absence),
	}))
}

// moderationFailed отвечает на ошибку решения по заявке. Возвращает true, если ответ отправлен.
func (h *Handler) moderationFailed(ctx context.Context, chatID int64, absence *models.AbsenceRequest, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, service.ErrForbidden):
		h.sendText(ctx, chatID, i18n.T(ctx, "error.forbidden"))
	case errors.Is(err, service.ErrNotFound):
		h.sendText(ctx, chatID, i18n.T(ctx, "moderation.not_found"))
	case errors.Is(err, service.ErrAlreadyDecided):
		status := ""
		if absence != nil {
			status = format.AbsenceStatus(ctx, absence.Status)
		}
		h.sendText(ctx, chatID, i18n.T(ctx, "moderation.already_decided", map[string]any{"Status": status}))
	default:
		h.gatewayError(ctx, chatID, err, "Failed to decide absence")
	}
	return true
}

func isGatewayError(err error) bool {
	return !errors.Is(err, service.ErrForbidden) &&
		!errors.Is(err, service.ErrNotFound) &&
		!errors.Is(err, service.ErrAlreadyDecided)
}

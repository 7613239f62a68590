package handler

import (
	"context"
	"errors"
	"time"

	"timetracker-bot/internal/attendance"
	"timetracker-bot/internal/callback"
	"timetracker-bot/internal/format"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/service"
	"timetracker-bot/internal/session"
)

var attendanceActions = map[callback.Kind]attendance.Action{
	callback.KindArrivedOffice: attendance.ActionArriveOffice,
	callback.KindArrivedRemote: attendance.ActionArriveRemote,
	callback.KindLunchStart:    attendance.ActionLunchStart,
	callback.KindLunchEnd:      attendance.ActionLunchEnd,
	callback.KindLeftWork:      attendance.ActionLeave,
	callback.KindSickDay:       attendance.ActionSick,
	callback.KindVacationDay:   attendance.ActionVacation,
}

// attendanceAction отмечает приход, обед, уход, больничный или отпуск
func (h *Handler) attendanceAction(ctx context.Context, chatID int64, user *models.User, cmd callback.Command) {
	action, ok := attendanceActions[cmd.Kind]
	if !ok {
		h.sendText(ctx, chatID, i18n.T(ctx, "error.unknown_button"))
		return
	}

	log, tr, err := h.workLogService.Apply(ctx, user, action)

	var verr *attendance.ValidationError
	if errors.As(err, &verr) {
		data := map[string]any{}
		if verr.At != nil {
			data["Time"] = format.Clock(verr.At)
		}
		h.sendText(ctx, chatID, i18n.T(ctx, "validation."+string(verr.Code), data))
		return
	}
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to apply work log action")
		return
	}

	data := map[string]any{
		"Time":  format.Clock(actionTime(log, action)),
		"Total": format.Duration(ctx, log.TotalMinutes),
	}
	h.sendText(ctx, chatID, i18n.T(ctx, "action."+string(action), data))

	if tr.AwaitReport {
		h.sessions.Set(chatID, session.AwaitingReport{WorkLogID: log.ID})
		h.sendText(ctx, chatID, i18n.T(ctx, "report.prompt"))
	}
}

func actionTime(log *models.WorkLog, action attendance.Action) *time.Time {
	switch action {
	case attendance.ActionArriveOffice, attendance.ActionArriveRemote:
		return log.ArrivedAt
	case attendance.ActionLunchStart:
		return log.LunchStart
	case attendance.ActionLunchEnd:
		return log.LunchEnd
	case attendance.ActionLeave:
		return log.LeftAt
	}
	return nil
}

// saveReport сохраняет текст как отчет за день и закрывает диалог
func (h *Handler) saveReport(ctx context.Context, chatID int64, user *models.User, workLogID uint, text string, edit bool) {
	if text == "" {
		h.sendText(ctx, chatID, i18n.T(ctx, "report.empty"))
		return
	}

	log, err := h.workLogService.SaveReport(ctx, user, workLogID, text, edit)
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrForbidden) {
		h.sessions.Clear(chatID)
		h.sendText(ctx, chatID, i18n.T(ctx, "report.no_record"))
		return
	}
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to save daily report")
		return
	}

	h.sessions.Clear(chatID)

	id := "report.saved"
	if edit {
		id = "report.updated"
	}
	h.sendText(ctx, chatID, i18n.T(ctx, id)+"\n\n"+format.WorkLog(ctx, log))
}

func (h *Handler) myStatsCallback(ctx context.Context, chatID int64, user *models.User, _ callback.Command) {
	h.sendWeek(ctx, chatID, user)
}

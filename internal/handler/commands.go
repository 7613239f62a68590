package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"timetracker-bot/internal/attendance"
	"timetracker-bot/internal/callback"
	"timetracker-bot/internal/format"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/keyboard"
	"timetracker-bot/internal/models"
	"timetracker-bot/internal/service"
	"timetracker-bot/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// registerCommands заполняет таблицу slash-команд. Команды чувствительны к регистру.
func (h *Handler) registerCommands() {
	fast, slow := h.config.CooldownFast, h.config.CooldownSlow

	h.commands = map[string]command{
		"start":      {fn: h.start, cooldown: fast, unregistered: true},
		"help":       {fn: h.help, unregistered: true},
		"myprofile":  {fn: h.myProfile, cooldown: fast},
		"myday":      {fn: h.myDay, cooldown: fast},
		"myweek":     {fn: h.myWeek, cooldown: slow},
		"history":    {fn: h.history, cooldown: slow},
		"team":       {fn: h.team, cooldown: slow},
		"editreport": {fn: h.editReport},
		"cancel":     {fn: h.cancel},
		"absence":    {fn: h.absence},
		"absences":   {fn: h.myAbsences, cooldown: fast},
		"promote":    {fn: h.promote},
		"users":      {fn: h.showUsers, cooldown: slow},
		"stats":      {fn: h.showStats, cooldown: slow},
	}
}

// registerCallbacks заполняет таблицу inline-кнопок.
func (h *Handler) registerCallbacks() {
	fast, def, slow := h.config.CooldownFast, h.config.CooldownDefault, h.config.CooldownSlow

	h.callbacks = map[callback.Kind]callbackRoute{
		callback.KindArrivedOffice:       {fn: h.attendanceAction, cooldown: def},
		callback.KindArrivedRemote:       {fn: h.attendanceAction, cooldown: def},
		callback.KindLunchStart:          {fn: h.attendanceAction, cooldown: fast},
		callback.KindLunchEnd:            {fn: h.attendanceAction, cooldown: fast},
		callback.KindLeftWork:            {fn: h.attendanceAction, cooldown: def},
		callback.KindSickDay:             {fn: h.attendanceAction, cooldown: def},
		callback.KindVacationDay:         {fn: h.attendanceAction, cooldown: def},
		callback.KindMyStats:             {fn: h.myStatsCallback, cooldown: slow},
		callback.KindRequestAbsence:      {fn: h.requestAbsenceCallback, cooldown: fast},
		callback.KindAbsenceVacation:     {fn: h.absenceTypeCallback, cooldown: fast},
		callback.KindAbsenceSick:         {fn: h.absenceTypeCallback, cooldown: fast},
		callback.KindAbsenceBusinessTrip: {fn: h.absenceTypeCallback, cooldown: fast},
		callback.KindAbsenceDayOff:       {fn: h.absenceTypeCallback, cooldown: fast},
		callback.KindMyAbsences:          {fn: h.myAbsencesCallback, cooldown: slow},
		callback.KindApproveAbsence:      {fn: h.approveAbsence, cooldown: def},
		callback.KindRejectAbsence:       {fn: h.rejectAbsence, cooldown: def},
	}
}

func (h *Handler) myDay(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	chatID := message.Chat.ID

	log, err := h.workLogService.Today(ctx, user)
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to get today's work log")
		return
	}
	if log == nil {
		h.sendWithKeyboard(ctx, chatID, i18n.T(ctx, "myday.empty"), keyboard.Main(ctx))
		return
	}

	h.sendWithKeyboard(ctx, chatID, format.WorkLog(ctx, log), keyboard.Main(ctx))
}

func (h *Handler) myWeek(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	h.sendWeek(ctx, message.Chat.ID, user)
}

func (h *Handler) sendWeek(ctx context.Context, chatID int64, user *models.User) {
	logs, err := h.workLogService.Week(ctx, user)
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to get week work logs")
		return
	}

	if len(logs) == 0 {
		h.sendText(ctx, chatID, i18n.T(ctx, "myweek.empty"))
		return
	}

	total := 0
	lines := []string{i18n.T(ctx, "myweek.header")}
	for _, log := range logs {
		total += log.TotalMinutes
		lines = append(lines, format.WorkLogLine(ctx, log))
	}
	lines = append(lines, "", i18n.T(ctx, "myweek.total", map[string]any{
		"Total": format.Duration(ctx, total),
		"Days":  len(logs),
	}))

	h.sendText(ctx, chatID, strings.Join(lines, "\n"))
}

// history показывает последние N записей: /history [N]
func (h *Handler) history(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	chatID := message.Chat.ID

	limit := 0
	if args := strings.TrimSpace(message.CommandArguments()); args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			h.sendText(ctx, chatID, i18n.T(ctx, "history.usage", map[string]any{
				"Max": service.MaxHistoryLimit,
			}))
			return
		}
		limit = n
	}

	logs, err := h.workLogService.History(ctx, user, limit)
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to get work history")
		return
	}
	if len(logs) == 0 {
		h.sendText(ctx, chatID, i18n.T(ctx, "history.empty"))
		return
	}

	lines := []string{i18n.T(ctx, "history.header", map[string]any{"Count": len(logs)})}
	for _, log := range logs {
		lines = append(lines, format.WorkLogLine(ctx, log))
	}
	h.sendText(ctx, chatID, strings.Join(lines, "\n"))
}

// team публикует сводку по команде; ее доставит рассылка
func (h *Handler) team(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	chatID := message.Chat.ID

	err := h.teamService.Report(ctx, h.now(), user)
	if errors.Is(err, service.ErrForbidden) {
		h.sendText(ctx, chatID, i18n.T(ctx, "error.forbidden"))
		return
	}
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to build team stats")
	}
}

// editReport переводит пользователя в режим редактирования сегодняшнего отчета
func (h *Handler) editReport(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	chatID := message.Chat.ID

	log, err := h.workLogService.Today(ctx, user)
	if err != nil {
		h.gatewayError(ctx, chatID, err, "Failed to get today's work log")
		return
	}
	if log == nil || attendance.State(*log) == attendance.StateNotStarted {
		h.sendText(ctx, chatID, i18n.T(ctx, "report.no_record"))
		return
	}

	current := i18n.T(ctx, "report.none")
	if log.HasReport() {
		current = *log.DailyReport
	}

	h.sessions.Set(chatID, session.EditingReport{WorkLogID: log.ID})
	h.sendText(ctx, chatID, i18n.T(ctx, "report.edit_prompt", map[string]any{"Current": current}))
}

// cancel прерывает любой активный диалог
func (h *Handler) cancel(ctx context.Context, message *tgbotapi.Message, _ *models.User) {
	chatID := message.Chat.ID

	if !h.sessions.Clear(chatID) {
		h.sendText(ctx, chatID, i18n.T(ctx, "cancel.nothing"))
		return
	}
	h.sendWithKeyboard(ctx, chatID, i18n.T(ctx, "cancel.done"), keyboard.Main(ctx))
}

func (h *Handler) absence(ctx context.Context, message *tgbotapi.Message, _ *models.User) {
	h.sendWithKeyboard(ctx, message.Chat.ID, i18n.T(ctx, "absence.choose_type"), keyboard.AbsenceTypes(ctx))
}

func (h *Handler) myAbsences(ctx context.Context, message *tgbotapi.Message, user *models.User) {
	h.sendAbsences(ctx, message.Chat.ID, user)
}

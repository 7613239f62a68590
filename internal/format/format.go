// Package format renders dates, durations and domain values for chat messages.
package format

import (
	"context"
	"fmt"
	"strings"
	"time"

	"timetracker-bot/internal/attendance"
	"timetracker-bot/internal/i18n"
	"timetracker-bot/internal/models"
)

const (
	DateLayout  = "02.01.2006"
	ClockLayout = "15:04"
)

func Date(t time.Time) string {
	return t.Format(DateLayout)
}

// Clock печатает время суток или прочерк.
func Clock(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return t.Format(ClockLayout)
}

// Duration печатает минуты как "8ч 05м".
func Duration(ctx context.Context, minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return i18n.T(ctx, "format.duration", map[string]any{
		"Hours":   minutes / 60,
		"Minutes": fmt.Sprintf("%02d", minutes%60),
	})
}

func AbsenceType(ctx context.Context, t models.AbsenceType) string {
	return i18n.T(ctx, "absence_type."+string(t))
}

func AbsenceStatus(ctx context.Context, s models.AbsenceStatus) string {
	return i18n.T(ctx, "absence_status."+string(s))
}

func WorkMode(ctx context.Context, m models.WorkMode) string {
	return i18n.T(ctx, "work_mode."+string(m))
}

// DayState печатает состояние дня; принимает и значения сводки по команде.
func DayState(ctx context.Context, state string) string {
	return i18n.T(ctx, "day_state."+state)
}

func Role(ctx context.Context, r models.Role) string {
	return i18n.T(ctx, "role."+string(r))
}

// Period печатает период заявки.
func Period(a models.AbsenceRequest) string {
	if models.DateKey(a.StartDate) == models.DateKey(a.EndDate) {
		return Date(a.StartDate)
	}
	return Date(a.StartDate) + " – " + Date(a.EndDate)
}

// WorkLog печатает запись дня: отметки, итог и отчет.
func WorkLog(ctx context.Context, log *models.WorkLog) string {
	var lines []string

	lines = append(lines, i18n.T(ctx, "worklog.header", map[string]any{
		"Date":  Date(log.Day()),
		"State": DayState(ctx, attendance.State(*log).String()),
		"Mode":  WorkMode(ctx, log.WorkMode),
	}))

	switch attendance.State(*log) {
	case attendance.StateSick, attendance.StateVacation:
	default:
		lines = append(lines, i18n.T(ctx, "worklog.times", map[string]any{
			"Arrived":    Clock(log.ArrivedAt),
			"LunchStart": Clock(log.LunchStart),
			"LunchEnd":   Clock(log.LunchEnd),
			"Left":       Clock(log.LeftAt),
		}))
		if log.LeftAt != nil {
			lines = append(lines, i18n.T(ctx, "worklog.total", map[string]any{
				"Total": Duration(ctx, log.TotalMinutes),
			}))
		}
	}

	if log.HasReport() {
		lines = append(lines, i18n.T(ctx, "worklog.report", map[string]any{"Report": *log.DailyReport}))
	}
	if log.Problems != nil && *log.Problems != "" {
		lines = append(lines, i18n.T(ctx, "worklog.problems", map[string]any{"Problems": *log.Problems}))
	}

	return strings.Join(lines, "\n")
}

// WorkLogLine - короткая строка для списков (/myweek, /history).
func WorkLogLine(ctx context.Context, log *models.WorkLog) string {
	state := attendance.State(*log)
	if state == attendance.StateSick || state == attendance.StateVacation {
		return i18n.T(ctx, "worklog.line_absent", map[string]any{
			"Date": Date(log.Day()),
			"Mode": WorkMode(ctx, log.WorkMode),
		})
	}
	return i18n.T(ctx, "worklog.line", map[string]any{
		"Date":    Date(log.Day()),
		"Arrived": Clock(log.ArrivedAt),
		"Left":    Clock(log.LeftAt),
		"Total":   Duration(ctx, log.TotalMinutes),
		"Mode":    WorkMode(ctx, log.WorkMode),
	})
}

// Absence печатает заявку одной-двумя строками.
func Absence(ctx context.Context, a models.AbsenceRequest) string {
	text := i18n.T(ctx, "absence.line", map[string]any{
		"ID":     a.ID,
		"Type":   AbsenceType(ctx, a.Type),
		"Period": Period(a),
		"Days":   a.DaysCount,
		"Status": AbsenceStatus(ctx, a.Status),
	})
	if a.Reason != nil {
		text += "\n" + i18n.T(ctx, "absence.reason", map[string]any{"Reason": *a.Reason})
	}
	if a.RejectionReason != nil {
		text += "\n" + i18n.T(ctx, "absence.rejection_reason", map[string]any{"Reason": *a.RejectionReason})
	}
	return text
}

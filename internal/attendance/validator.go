// Package attendance decides which actions are legal for a daily work log and
// what the log looks like after each of them.
package attendance

import (
	"fmt"
	"time"

	"timetracker-bot/internal/models"
)

type Action string

const (
	ActionArriveOffice Action = "arrive_office"
	ActionArriveRemote Action = "arrive_remote"
	ActionLunchStart   Action = "lunch_start"
	ActionLunchEnd     Action = "lunch_end"
	ActionLeave        Action = "leave"
	ActionSick         Action = "sick"
	ActionVacation     Action = "vacation"
)

// DayState - положение записи в цепочке прихода/обеда/ухода.
type DayState int

const (
	StateNotStarted DayState = iota
	StateArrived
	StateLunchStarted
	StateLunchEnded
	StateLeft
	StateSick
	StateVacation
)

func (s DayState) String() string {
	switch s {
	case StateArrived:
		return "arrived"
	case StateLunchStarted:
		return "lunch_started"
	case StateLunchEnded:
		return "lunch_ended"
	case StateLeft:
		return "left"
	case StateSick:
		return "sick"
	case StateVacation:
		return "vacation"
	}
	return "not_started"
}

// Code - причина отказа в переходе.
type Code string

const (
	CodeAlreadyArrived      Code = "already_arrived"
	CodeNeedArrival         Code = "need_arrival"
	CodeAlreadyLunchStarted Code = "already_lunch_started"
	CodeNeedLunchStart      Code = "need_lunch_start"
	CodeAlreadyLunchEnded   Code = "already_lunch_ended"
	CodeAlreadyLeft         Code = "already_left"
)

// ValidationError описывает запрещенный переход и конфликтующую отметку времени.
type ValidationError struct {
	Code   Code
	Action Action
	At     *time.Time
}

func (e *ValidationError) Error() string {
	if e.At != nil {
		return fmt.Sprintf("%s: %s (at %s)", e.Action, e.Code, e.At.Format("15:04"))
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Code)
}

// Transition - результат разрешенного действия.
type Transition struct {
	Patch models.WorkLogPatch
	Next  models.WorkLog
	// AwaitReport означает, что после действия бот ждет ежедневный отчет.
	AwaitReport bool
}

// State вычисляет состояние дня по заполненным полям.
func State(log models.WorkLog) DayState {
	switch {
	case log.WorkMode == models.WorkModeSick && log.ArrivedAt == nil:
		return StateSick
	case log.WorkMode == models.WorkModeVacation && log.ArrivedAt == nil:
		return StateVacation
	case log.LeftAt != nil:
		return StateLeft
	case log.LunchEnd != nil:
		return StateLunchEnded
	case log.LunchStart != nil:
		return StateLunchStarted
	case log.ArrivedAt != nil:
		return StateArrived
	}
	return StateNotStarted
}

// Validate проверяет действие и строит следующую форму записи. Исходная запись не меняется.
func Validate(log models.WorkLog, action Action, now time.Time) (Transition, error) {
	patch := models.WorkLogPatch{}

	switch action {
	case ActionArriveOffice, ActionArriveRemote:
		if log.ArrivedAt != nil {
			return Transition{}, reject(action, CodeAlreadyArrived, log.ArrivedAt)
		}
		patch[models.ColArrivedAt] = now
		patch[models.ColWorkMode] = arrivalMode(action)

	case ActionLunchStart:
		if log.ArrivedAt == nil {
			return Transition{}, reject(action, CodeNeedArrival, nil)
		}
		if log.LunchStart != nil {
			return Transition{}, reject(action, CodeAlreadyLunchStarted, log.LunchStart)
		}
		patch[models.ColLunchStart] = now

	case ActionLunchEnd:
		if log.LunchStart == nil {
			return Transition{}, reject(action, CodeNeedLunchStart, nil)
		}
		if log.LunchEnd != nil {
			return Transition{}, reject(action, CodeAlreadyLunchEnded, log.LunchEnd)
		}
		patch[models.ColLunchEnd] = now

	case ActionLeave:
		if log.ArrivedAt == nil {
			return Transition{}, reject(action, CodeNeedArrival, nil)
		}
		if log.LeftAt != nil {
			return Transition{}, reject(action, CodeAlreadyLeft, log.LeftAt)
		}
		patch[models.ColLeftAt] = now
		patch[models.ColTotalMinutes] = TotalMinutes(log.ArrivedAt, log.LunchStart, log.LunchEnd, &now)

	case ActionSick, ActionVacation:
		patch[models.ColArrivedAt] = nil
		patch[models.ColLunchStart] = nil
		patch[models.ColLunchEnd] = nil
		patch[models.ColLeftAt] = nil
		patch[models.ColTotalMinutes] = 0
		patch[models.ColWorkMode] = absenceMode(action)

	default:
		return Transition{}, fmt.Errorf("unknown action %q", action)
	}

	return Transition{
		Patch:       patch,
		Next:        patch.Apply(log),
		AwaitReport: action == ActionLeave,
	}, nil
}

// TotalMinutes считает отработанное время: уход минус приход минус обед, не меньше нуля.
// Обед учитывается только если заполнены обе отметки.
func TotalMinutes(arrivedAt, lunchStart, lunchEnd, leftAt *time.Time) int {
	if arrivedAt == nil || leftAt == nil {
		return 0
	}

	total := minutesBetween(*arrivedAt, *leftAt)
	if lunchStart != nil && lunchEnd != nil {
		total -= minutesBetween(*lunchStart, *lunchEnd)
	}

	if total < 0 {
		return 0
	}
	return total
}

// minutesBetween сравнивает время суток в пределах одного дня, переход через полночь не учитывается
func minutesBetween(from, to time.Time) int {
	return minuteOfDay(to) - minuteOfDay(from)
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func arrivalMode(action Action) models.WorkMode {
	if action == ActionArriveRemote {
		return models.WorkModeRemote
	}
	return models.WorkModeOffice
}

func absenceMode(action Action) models.WorkMode {
	if action == ActionVacation {
		return models.WorkModeVacation
	}
	return models.WorkModeSick
}

func reject(action Action, code Code, at *time.Time) *ValidationError {
	return &ValidationError{Code: code, Action: action, At: at}
}

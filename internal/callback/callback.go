// Package callback decodes inline-button data into typed commands once, at
// the transport boundary.
package callback

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	KindArrivedOffice       Kind = "arrived_office"
	KindArrivedRemote       Kind = "arrived_remote"
	KindLunchStart          Kind = "lunch_start"
	KindLunchEnd            Kind = "lunch_end"
	KindLeftWork            Kind = "left_work"
	KindSickDay             Kind = "sick_day"
	KindVacationDay         Kind = "vacation_day"
	KindMyStats             Kind = "my_stats"
	KindRequestAbsence      Kind = "request_absence"
	KindAbsenceVacation     Kind = "absence_vacation"
	KindAbsenceSick         Kind = "absence_sick"
	KindAbsenceBusinessTrip Kind = "absence_business_trip"
	KindAbsenceDayOff       Kind = "absence_day_off"
	KindMyAbsences          Kind = "my_absences"
	KindApproveAbsence      Kind = "approve_absence"
	KindRejectAbsence       Kind = "reject_absence"
)

var simple = map[string]Kind{}

func init() {
	for _, k := range []Kind{
		KindArrivedOffice, KindArrivedRemote, KindLunchStart, KindLunchEnd, KindLeftWork,
		KindSickDay, KindVacationDay, KindMyStats, KindRequestAbsence,
		KindAbsenceVacation, KindAbsenceSick, KindAbsenceBusinessTrip, KindAbsenceDayOff,
		KindMyAbsences,
	} {
		simple[string(k)] = k
	}
}

// Command - разобранные данные кнопки.
type Command struct {
	Kind      Kind
	AbsenceID uint
}

// Data кодирует команду обратно в строку для кнопки.
func (c Command) Data() string {
	if c.Kind == KindApproveAbsence || c.Kind == KindRejectAbsence {
		return fmt.Sprintf("%s_%d", c.Kind, c.AbsenceID)
	}
	return string(c.Kind)
}

// Approve и Reject строят команды модерации.
func Approve(absenceID uint) Command {
	return Command{Kind: KindApproveAbsence, AbsenceID: absenceID}
}

func Reject(absenceID uint) Command {
	return Command{Kind: KindRejectAbsence, AbsenceID: absenceID}
}

// Decode разбирает данные кнопки: фиксированное значение или <verb>_absence_<id>.
func Decode(data string) (Command, error) {
	if k, ok := simple[data]; ok {
		return Command{Kind: k}, nil
	}

	for _, k := range []Kind{KindApproveAbsence, KindRejectAbsence} {
		prefix := string(k) + "_"
		if !strings.HasPrefix(data, prefix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 0)
		if err != nil || id == 0 {
			return Command{}, fmt.Errorf("callback %q: invalid absence id", data)
		}
		return Command{Kind: k, AbsenceID: uint(id)}, nil
	}

	return Command{}, fmt.Errorf("unknown callback %q", data)
}

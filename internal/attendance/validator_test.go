package attendance

import (
	"errors"
	"testing"
	"time"

	"timetracker-bot/internal/models"
)

func at(h, m int) time.Time {
	return time.Date(2024, 5, 6, h, m, 0, 0, time.Local)
}

func ptr(t time.Time) *time.Time { return &t }

func run(t *testing.T, log models.WorkLog, action Action, now time.Time) models.WorkLog {
	t.Helper()
	tr, err := Validate(log, action, now)
	if err != nil {
		t.Fatalf("%s: unexpected error %v", action, err)
	}
	return tr.Next
}

func TestFullDay(t *testing.T) {
	log := models.WorkLog{}
	log = run(t, log, ActionArriveOffice, at(9, 0))
	log = run(t, log, ActionLunchStart, at(13, 0))
	log = run(t, log, ActionLunchEnd, at(14, 0))

	tr, err := Validate(log, ActionLeave, at(18, 0))
	if err != nil {
		t.Fatal(err)
	}
	if tr.Next.TotalMinutes != 480 {
		t.Errorf("TotalMinutes = %d, want 480", tr.Next.TotalMinutes)
	}
	if !tr.AwaitReport {
		t.Error("leave must await a report")
	}
	if State(tr.Next) != StateLeft {
		t.Errorf("state = %s, want left", State(tr.Next))
	}
}

func TestTotalMinutes(t *testing.T) {
	tests := []struct {
		name                          string
		arrived, lunchS, lunchE, left *time.Time
		want                          int
	}{
		{"with lunch", ptr(at(9, 0)), ptr(at(13, 0)), ptr(at(14, 0)), ptr(at(18, 0)), 480},
		{"no lunch", ptr(at(9, 0)), nil, nil, ptr(at(18, 0)), 540},
		{"lunch not finished", ptr(at(9, 0)), ptr(at(13, 0)), nil, ptr(at(18, 0)), 540},
		{"lunch longer than day", ptr(at(9, 0)), ptr(at(8, 0)), ptr(at(17, 0)), ptr(at(10, 0)), 0},
		{"not left", ptr(at(9, 0)), nil, nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalMinutes(tt.arrived, tt.lunchS, tt.lunchE, tt.left); got != tt.want {
				t.Errorf("TotalMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRejectedTransitions(t *testing.T) {
	arrived := models.WorkLog{ArrivedAt: ptr(at(9, 0)), WorkMode: models.WorkModeOffice}
	lunching := models.WorkLog{ArrivedAt: ptr(at(9, 0)), LunchStart: ptr(at(13, 0))}
	lunched := models.WorkLog{ArrivedAt: ptr(at(9, 0)), LunchStart: ptr(at(13, 0)), LunchEnd: ptr(at(14, 0))}
	left := models.WorkLog{ArrivedAt: ptr(at(9, 0)), LeftAt: ptr(at(18, 0)), TotalMinutes: 540}

	tests := []struct {
		name   string
		log    models.WorkLog
		action Action
		code   Code
	}{
		{"arrive twice", arrived, ActionArriveRemote, CodeAlreadyArrived},
		{"lunch before arrival", models.WorkLog{}, ActionLunchStart, CodeNeedArrival},
		{"lunch twice", lunching, ActionLunchStart, CodeAlreadyLunchStarted},
		{"lunch end without start", arrived, ActionLunchEnd, CodeNeedLunchStart},
		{"lunch end twice", lunched, ActionLunchEnd, CodeAlreadyLunchEnded},
		{"leave before arrival", models.WorkLog{}, ActionLeave, CodeNeedArrival},
		{"leave twice", left, ActionLeave, CodeAlreadyLeft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.log.TotalMinutes
			_, err := Validate(tt.log, tt.action, at(19, 0))

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Code != tt.code {
				t.Errorf("code = %s, want %s", verr.Code, tt.code)
			}
			if tt.log.TotalMinutes != before {
				t.Error("rejected transition changed the record")
			}
		})
	}
}

func TestAlreadyArrivedCarriesTimestamp(t *testing.T) {
	log := models.WorkLog{ArrivedAt: ptr(at(9, 15))}
	_, err := Validate(log, ActionArriveOffice, at(9, 16))

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.At == nil || !verr.At.Equal(at(9, 15)) {
		t.Fatalf("expected conflicting arrival time, got %v", err)
	}
}

func TestSickAndVacationReset(t *testing.T) {
	log := models.WorkLog{
		ArrivedAt:    ptr(at(9, 0)),
		LunchStart:   ptr(at(13, 0)),
		LeftAt:       ptr(at(18, 0)),
		TotalMinutes: 540,
		WorkMode:     models.WorkModeRemote,
	}

	sick := run(t, log, ActionSick, at(10, 0))
	if sick.ArrivedAt != nil || sick.LunchStart != nil || sick.LeftAt != nil || sick.TotalMinutes != 0 {
		t.Errorf("sick must reset time fields: %+v", sick)
	}
	if State(sick) != StateSick {
		t.Errorf("state = %s, want sick", State(sick))
	}

	vacation := run(t, sick, ActionVacation, at(11, 0))
	if State(vacation) != StateVacation || vacation.WorkMode != models.WorkModeVacation {
		t.Errorf("vacation not applied: %+v", vacation)
	}

	// после больничного можно снова отметить приход
	back := run(t, sick, ActionArriveRemote, at(12, 0))
	if State(back) != StateArrived || back.WorkMode != models.WorkModeRemote {
		t.Errorf("arrival after sick failed: %+v", back)
	}
}

func TestArriveModes(t *testing.T) {
	tr, err := Validate(models.WorkLog{}, ActionArriveRemote, at(9, 0))
	if err != nil {
		t.Fatal(err)
	}
	if tr.Patch[models.ColWorkMode] != models.WorkModeRemote {
		t.Errorf("work mode patch = %v", tr.Patch[models.ColWorkMode])
	}
	if tr.AwaitReport {
		t.Error("arrival must not await a report")
	}
}

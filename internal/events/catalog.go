package events

import (
	"time"

	"timetracker-bot/internal/models"
)

type Name string

const (
	NameUserCreated     Name = "user.created"
	NameUserPromoted    Name = "user.promoted"
	NameWorkLogMissed   Name = "worklog.missed"
	NameLogEdited       Name = "log.edited"
	NameTeamStatsReady  Name = "team.stats.ready"
	NameAbsenceCreated  Name = "absence.created"
	NameAbsenceDecision Name = "absence.decision"
)

// Event - полезная нагрузка одного события каталога. Имя задается типом.
type Event interface {
	EventName() Name
}

type UserCreated struct {
	User models.User
}

type UserPromoted struct {
	User    models.User
	OldRole models.Role
	By      models.User
}

type MissedType string

const (
	MissedArrival MissedType = "arrival"
	MissedReport  MissedType = "report"
)

type WorkLogMissed struct {
	User       models.User
	MissedType MissedType
	Date       time.Time
}

// Change - старое и новое значение поля отчета.
type Change struct {
	Old *string
	New *string
}

type LogEdited struct {
	User    models.User
	WorkLog models.WorkLog
	Changes map[string]Change
}

// MemberStat - состояние одного сотрудника в сводке по команде.
type MemberStat struct {
	User    models.User
	State   string
	WorkLog *models.WorkLog
}

type TeamStatsReady struct {
	Date    time.Time
	Members []MemberStat
	// RequestedBy заполняется, если сводку запросил менеджер командой /team.
	RequestedBy *models.User
}

type AbsenceCreated struct {
	Absence models.AbsenceRequest
	User    models.User
}

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

type AbsenceDecision struct {
	Absence  models.AbsenceRequest
	User     models.User
	Decision Decision
	Reason   *string
	Approver models.User
}

func (UserCreated) EventName() Name     { return NameUserCreated }
func (UserPromoted) EventName() Name    { return NameUserPromoted }
func (WorkLogMissed) EventName() Name   { return NameWorkLogMissed }
func (LogEdited) EventName() Name       { return NameLogEdited }
func (TeamStatsReady) EventName() Name  { return NameTeamStatsReady }
func (AbsenceCreated) EventName() Name  { return NameAbsenceCreated }
func (AbsenceDecision) EventName() Name { return NameAbsenceDecision }

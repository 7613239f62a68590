package session

import (
	"time"

	"timetracker-bot/internal/models"
)

// State - состояние диалога пользователя. Реализации перечислены ниже, других нет.
type State interface {
	Kind() Kind
	isState()
}

type Kind string

const (
	KindIdle                    Kind = "idle"
	KindAwaitingReport          Kind = "awaiting_report"
	KindEditingReport           Kind = "editing_report"
	KindAbsenceWizard           Kind = "absence_wizard"
	KindAwaitingRejectionReason Kind = "awaiting_rejection_reason"
)

// Idle - пользователь не находится в многошаговом диалоге.
type Idle struct{}

// AwaitingReport - пользователь ушел с работы, следующий текст станет отчетом.
type AwaitingReport struct {
	WorkLogID uint
}

// EditingReport - пользователь вызвал /editreport.
type EditingReport struct {
	WorkLogID uint
}

// WizardStep - шаг мастера заявки на отсутствие.
type WizardStep string

const (
	StepStartDate WizardStep = "start_date"
	StepEndDate   WizardStep = "end_date"
	StepReason    WizardStep = "reason"
	StepCreate    WizardStep = "create"
)

// AbsenceWizard хранит черновик заявки между шагами.
type AbsenceWizard struct {
	Type      models.AbsenceType
	Step      WizardStep
	StartDate *time.Time
	EndDate   *time.Time
	Reason    *string
}

// AwaitingRejectionReason - менеджер нажал "отклонить" и должен прислать причину.
type AwaitingRejectionReason struct {
	AbsenceID uint
}

func (Idle) Kind() Kind                    { return KindIdle }
func (AwaitingReport) Kind() Kind          { return KindAwaitingReport }
func (EditingReport) Kind() Kind           { return KindEditingReport }
func (AbsenceWizard) Kind() Kind           { return KindAbsenceWizard }
func (AwaitingRejectionReason) Kind() Kind { return KindAwaitingRejectionReason }

func (Idle) isState()                    {}
func (AwaitingReport) isState()          {}
func (EditingReport) isState()           {}
func (AbsenceWizard) isState()           {}
func (AwaitingRejectionReason) isState() {}

package models

import "time"

type AbsenceType string

const (
	AbsenceTypeVacation     AbsenceType = "vacation"
	AbsenceTypeSick         AbsenceType = "sick"
	AbsenceTypeBusinessTrip AbsenceType = "business_trip"
	AbsenceTypeDayOff       AbsenceType = "day_off"
)

// Valid проверяет, что тип входит в каталог.
func (t AbsenceType) Valid() bool {
	switch t {
	case AbsenceTypeVacation, AbsenceTypeSick, AbsenceTypeBusinessTrip, AbsenceTypeDayOff:
		return true
	}
	return false
}

type AbsenceStatus string

const (
	AbsenceStatusPending  AbsenceStatus = "pending"
	AbsenceStatusApproved AbsenceStatus = "approved"
	AbsenceStatusRejected AbsenceStatus = "rejected"
)

// AbsenceDraft собирается мастером заявки и превращается в AbsenceRequest при создании.
type AbsenceDraft struct {
	UserID    uint
	Type      AbsenceType
	StartDate time.Time
	EndDate   time.Time
	Reason    *string
}

// DaysCount возвращает количество дней включительно.
func (d AbsenceDraft) DaysCount() int {
	return InclusiveDays(d.StartDate, d.EndDate)
}

type AbsenceRequest struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	UserID          uint          `gorm:"not null;index" json:"user_id"`
	Type            AbsenceType   `gorm:"type:varchar(20);not null" json:"type"`
	StartDate       time.Time     `gorm:"not null;index" json:"start_date"`
	EndDate         time.Time     `gorm:"not null;index" json:"end_date"`
	DaysCount       int           `gorm:"not null;default:1" json:"days_count"`
	Reason          *string       `gorm:"type:text" json:"reason"`
	Status          AbsenceStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ApprovedBy      *uint         `json:"approved_by"`
	RejectionReason *string       `gorm:"type:text" json:"rejection_reason"`
	DecidedAt       *time.Time    `json:"decided_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (AbsenceRequest) TableName() string {
	return "absence_requests"
}

// IsPending проверяет, что по заявке еще нет решения.
func (a *AbsenceRequest) IsPending() bool {
	return a.Status == AbsenceStatusPending
}

// Covers проверяет, попадает ли дата в период заявки.
func (a *AbsenceRequest) Covers(date time.Time) bool {
	d := civil(date)
	return !d.Before(civil(a.StartDate)) && !d.After(civil(a.EndDate))
}

// InclusiveDays считает календарные дни между датами включительно.
func InclusiveDays(start, end time.Time) int {
	return int(civil(end).Sub(civil(start)).Hours()/24) + 1
}

// civil отбрасывает время и часовой пояс, чтобы переход на летнее время не ломал счет дней
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

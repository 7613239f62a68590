package models

import (
	"time"
)

// DateLayout формат поля Date в work_logs.
const DateLayout = "2006-01-02"

type WorkMode string

const (
	WorkModeOffice   WorkMode = "office"
	WorkModeRemote   WorkMode = "remote"
	WorkModeSick     WorkMode = "sick"
	WorkModeVacation WorkMode = "vacation"
	WorkModeAbsent   WorkMode = "absent"
)

// WorkLog - учет одного рабочего дня пользователя. Одна запись на (user, date).
type WorkLog struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_work_logs_user_date" json:"user_id"`
	Date   string `gorm:"type:varchar(10);not null;uniqueIndex:idx_work_logs_user_date;index" json:"date"`

	// Отметки времени за день
	ArrivedAt  *time.Time `json:"arrived_at"`
	LunchStart *time.Time `json:"lunch_start"`
	LunchEnd   *time.Time `json:"lunch_end"`
	LeftAt     *time.Time `json:"left_at"`

	WorkMode     WorkMode `gorm:"type:varchar(20);not null;default:'office'" json:"work_mode"`
	TotalMinutes int      `gorm:"not null;default:0" json:"total_minutes"`

	DailyReport *string `gorm:"type:text" json:"daily_report"`
	Problems    *string `gorm:"type:text" json:"problems"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WorkLog) TableName() string {
	return "work_logs"
}

// Колонки work_logs, которые меняют действия бота
const (
	ColArrivedAt    = "arrived_at"
	ColLunchStart   = "lunch_start"
	ColLunchEnd     = "lunch_end"
	ColLeftAt       = "left_at"
	ColWorkMode     = "work_mode"
	ColTotalMinutes = "total_minutes"
	ColDailyReport  = "daily_report"
	ColProblems     = "problems"
)

// WorkLogPatch - набор изменяемых колонок. nil значение сбрасывает колонку в NULL.
type WorkLogPatch map[string]any

// Apply применяет патч к копии записи в памяти.
func (p WorkLogPatch) Apply(log WorkLog) WorkLog {
	for col, val := range p {
		switch col {
		case ColArrivedAt:
			log.ArrivedAt = timePtr(val)
		case ColLunchStart:
			log.LunchStart = timePtr(val)
		case ColLunchEnd:
			log.LunchEnd = timePtr(val)
		case ColLeftAt:
			log.LeftAt = timePtr(val)
		case ColWorkMode:
			if m, ok := val.(WorkMode); ok {
				log.WorkMode = m
			}
		case ColTotalMinutes:
			if n, ok := val.(int); ok {
				log.TotalMinutes = n
			}
		case ColDailyReport:
			log.DailyReport = stringPtr(val)
		case ColProblems:
			log.Problems = stringPtr(val)
		}
	}
	return log
}

// HasReport проверяет, заполнен ли отчет за день.
func (wl *WorkLog) HasReport() bool {
	return wl.DailyReport != nil && *wl.DailyReport != ""
}

// Day возвращает дату записи.
func (wl *WorkLog) Day() time.Time {
	d, err := time.ParseInLocation(DateLayout, wl.Date, time.Local)
	if err != nil {
		return time.Time{}
	}
	return d
}

// DateKey форматирует календарную дату для поля Date.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func timePtr(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	return nil
}

func stringPtr(v any) *string {
	switch s := v.(type) {
	case string:
		return &s
	case *string:
		return s
	}
	return nil
}

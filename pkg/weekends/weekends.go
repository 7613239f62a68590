package weekends

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CalendarJSON - структура для парсинга исходного JSON производственного календаря
type CalendarJSON struct {
	Year        int             `json:"year"`
	Months      []MonthWeekends `json:"months"`
	Transitions []Transition    `json:"transitions"`
	Statistic   Statistic       `json:"statistic"`
}

type MonthWeekends struct {
	Month int    `json:"month"`
	Days  string `json:"days"`
}

type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Statistic struct {
	Workdays int     `json:"workdays"`
	Holidays int     `json:"holidays"`
	Hours40  float64 `json:"hours40"`
}

// Day - один нерабочий день календаря.
type Day struct {
	Date  time.Time
	Year  int
	Month int
	Day   int
}

// ParseWeekendsJSON читает файл календаря и возвращает нерабочие дни.
func ParseWeekendsJSON(filePath string) ([]Day, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}
	return Parse(data)
}

// Parse разбирает календарь. Дни в строке месяца перечислены через запятую,
// "+" помечает перенесенный выходной, "*" - сокращенный рабочий день.
func Parse(data []byte) ([]Day, error) {
	var calendar CalendarJSON
	if err := json.Unmarshal(data, &calendar); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if calendar.Year == 0 {
		return nil, fmt.Errorf("calendar year is missing")
	}

	days := []Day{}
	for _, monthData := range calendar.Months {
		if monthData.Month < 1 || monthData.Month > 12 {
			return nil, fmt.Errorf("invalid month %d", monthData.Month)
		}

		for _, dayStr := range strings.Split(monthData.Days, ",") {
			dayStr = strings.TrimSpace(dayStr)
			if dayStr == "" || strings.HasSuffix(dayStr, "*") {
				continue
			}
			dayStr = strings.TrimSuffix(dayStr, "+")

			day, err := strconv.Atoi(dayStr)
			if err != nil {
				return nil, fmt.Errorf("failed to parse day '%s' in month %d: %w",
					dayStr, monthData.Month, err)
			}

			date := time.Date(calendar.Year, time.Month(monthData.Month), day, 0, 0, 0, 0, time.Local)
			if date.Month() != time.Month(monthData.Month) {
				return nil, fmt.Errorf("day %d does not exist in month %d", day, monthData.Month)
			}

			days = append(days, Day{
				Date:  date,
				Year:  calendar.Year,
				Month: monthData.Month,
				Day:   day,
			})
		}
	}

	return days, nil
}

// IsWeekend - суббота или воскресенье.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

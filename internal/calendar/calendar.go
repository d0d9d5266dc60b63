package calendar

import "time"

type CalendarDay struct {
	Date       time.Time `json:"date" db:"date"`
	DrinkCount int       `json:"drink_count" db:"drink_count"`
	IsToday    bool      `json:"is_today"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}

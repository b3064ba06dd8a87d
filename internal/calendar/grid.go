// Package calendar lays out months as week rows for the calendar view.
package calendar

import "time"

// Week holds seven day numbers, Monday first. Days outside the month are 0.
type Week [7]int

// MonthGrid returns the weeks of a month starting on Monday, padding the
// first and last week with zeros.
func MonthGrid(year int, month time.Month) []Week {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()

	// time.Weekday counts from Sunday
	col := (int(first.Weekday()) + 6) % 7

	var (
		weeks []Week
		week  Week
	)
	for day := 1; day <= days; day++ {
		week[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week, col = Week{}, 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}

// Adjacent returns the months before and after year/month.
func Adjacent(year int, month time.Month) (prevYear int, prev time.Month, nextYear int, next time.Month) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	p, n := first.AddDate(0, -1, 0), first.AddDate(0, 1, 0)
	return p.Year(), p.Month(), n.Year(), n.Month()
}

package models

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

const (
	// DailyEntryLimit is the number of diaries a user may create per calendar day.
	DailyEntryLimit = 3

	MaxTitleLength   = 100
	MaxContentLength = 500

	// DateLayout is the layout of EntryDate and of every date key returned by
	// the aggregate queries.
	DateLayout = "2006-01-02"

	untitled = "No Title"
)

// Diary represents a single journal entry and its sentiment.
type Diary struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index:idx_diaries_user_date,priority:1"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Sentiment string    `json:"sentiment"`
	Score     float64   `json:"score"`
	EntryDate string    `json:"entry_date" gorm:"type:varchar(10);not null;default:'';index:idx_diaries_user_date,priority:2"`
	CreatedAt time.Time `json:"created_at" gorm:"type:timestamp"`
}

// DefaultTitle is the title given to a diary saved on day without a title.
func DefaultTitle(day string) string {
	return fmt.Sprintf("日記 - %s", day)
}

// DisplayTitle returns the title, or a placeholder for rows stored without one.
func (d *Diary) DisplayTitle() string {
	if d.Title == "" {
		return untitled
	}
	return d.Title
}

// DayEntry is one diary inside a DayGroup.
type DayEntry struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Score   int    `json:"score"`
}

// DayGroup holds every diary of a single date and their average score.
type DayGroup struct {
	Entries  []DayEntry `json:"entries"`
	AvgScore int        `json:"avg_score"`
}

// DatedGroup is a DayGroup labelled with its date.
type DatedGroup struct {
	Date string `json:"date"`
	DayGroup
}

// NewestFirst lists the groups from the most recent date to the oldest.
func NewestFirst(groups map[string]DayGroup) []DatedGroup {
	dates := slices.Sorted(maps.Keys(groups))
	slices.Reverse(dates)

	out := make([]DatedGroup, 0, len(dates))
	for _, date := range dates {
		out = append(out, DatedGroup{Date: date, DayGroup: groups[date]})
	}
	return out
}

// MonthDay is the calendar summary of one date. Titles, Contents and Scores
// are index-aligned: element i of each list comes from the same diary.
type MonthDay struct {
	Count    int      `json:"count"`
	AvgScore int      `json:"avg_score"`
	Titles   []string `json:"titles"`
	Contents []string `json:"contents"`
	Scores   []int    `json:"scores"`
}

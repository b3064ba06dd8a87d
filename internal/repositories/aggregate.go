package repositories

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"nikki/internal/common"
	"nikki/internal/models"
)

// groupByDate groups diaries by EntryDate, newest first inside each date.
// Each entry score is rounded, and the day average is the mean of those
// rounded scores rounded again. Both steps round half to even.
func groupByDate(diaries []models.Diary) map[string]models.DayGroup {
	sorted := slices.Clone(diaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.EntryDate != b.EntryDate {
			return a.EntryDate > b.EntryDate
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	groups := make(map[string]models.DayGroup)
	sums := make(map[string]int)
	for i := range sorted {
		d := &sorted[i]
		score := int(math.RoundToEven(d.Score))
		g := groups[d.EntryDate]
		g.Entries = append(g.Entries, models.DayEntry{
			ID:      d.ID,
			Title:   d.DisplayTitle(),
			Content: d.Content,
			Score:   score,
		})
		groups[d.EntryDate] = g
		sums[d.EntryDate] += score
	}
	for day, g := range groups {
		g.AvgScore = int(math.RoundToEven(float64(sums[day]) / float64(len(g.Entries))))
		groups[day] = g
	}
	return groups
}

// summarizeMonth builds one MonthDay per date. The parallel lists are filled
// from the same pass over the rows, oldest first, so index i of Titles,
// Contents and Scores always describes the same diary. The average is taken
// over raw scores and rounded half away from zero.
func summarizeMonth(diaries []models.Diary) map[string]models.MonthDay {
	sorted := slices.Clone(diaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.EntryDate != b.EntryDate {
			return a.EntryDate < b.EntryDate
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	days := make(map[string]models.MonthDay)
	sums := make(map[string]float64)
	for i := range sorted {
		d := &sorted[i]
		md := days[d.EntryDate]
		md.Count++
		md.Titles = append(md.Titles, d.DisplayTitle())
		md.Contents = append(md.Contents, d.Content)
		md.Scores = append(md.Scores, int(math.RoundToEven(d.Score)))
		days[d.EntryDate] = md
		sums[d.EntryDate] += d.Score
	}
	for day, md := range days {
		md.AvgScore = int(math.Round(sums[day] / float64(md.Count)))
		days[day] = md
	}
	return days
}

// monthRange returns the first day of the month and of the month after it,
// both formatted as models.DateLayout.
func monthRange(year, month int) (string, string, error) {
	if year < 1 || year > 9998 || month < 1 || month > 12 {
		return "", "", fmt.Errorf("invalid month %04d-%02d: %w", year, month, common.ErrValidation)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start.Format(models.DateLayout), start.AddDate(0, 1, 0).Format(models.DateLayout), nil
}

package repositories

import (
	"context"

	"nikki/internal/models"
)

// DiaryRepository defines the interface for diary data access. Every lookup
// that takes an id also takes the owner's userID; a diary owned by someone
// else is reported as common.ErrNotFound.
type DiaryRepository interface {
	// CountForToday returns how many diaries the user saved today.
	CountForToday(ctx context.Context, userID uint) (int64, error)
	// Create stores a diary unless the user already reached
	// models.DailyEntryLimit today. The check and the insert are atomic.
	Create(ctx context.Context, diary *models.Diary) error
	GetByID(ctx context.Context, id, userID uint) (*models.Diary, error)
	// Update rewrites title, content, sentiment and score. The creation
	// timestamp and entry date never change.
	Update(ctx context.Context, diary *models.Diary) error
	Delete(ctx context.Context, id, userID uint) error
	// GroupByDate returns every diary of the user keyed by entry date.
	GroupByDate(ctx context.Context, userID uint) (map[string]models.DayGroup, error)
	// GroupForDate returns the diaries of a single entry date. A date with
	// no diaries yields an empty group.
	GroupForDate(ctx context.Context, userID uint, date string) (models.DayGroup, error)
	// SummarizeMonth returns one MonthDay per date of the month that has diaries.
	SummarizeMonth(ctx context.Context, userID uint, year, month int) (map[string]models.MonthDay, error)
}

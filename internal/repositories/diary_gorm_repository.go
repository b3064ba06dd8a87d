package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nikki/internal/common"
	"nikki/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMDiaryRepository is a GORM implementation of DiaryRepository.
type GORMDiaryRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGORMDiaryRepository creates a new instance of GORMDiaryRepository.
func NewGORMDiaryRepository(db *gorm.DB) *GORMDiaryRepository {
	return &GORMDiaryRepository{
		db:  db,
		now: time.Now,
	}
}

// WithClock replaces the clock used to stamp and count diaries.
func (r *GORMDiaryRepository) WithClock(now func() time.Time) *GORMDiaryRepository {
	r.now = now
	return r
}

func (r *GORMDiaryRepository) today() string {
	return r.now().Format(models.DateLayout)
}

// CountForToday counts the diaries the user saved on the current local date.
func (r *GORMDiaryRepository) CountForToday(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Diary{}).
		Where("user_id = ? AND entry_date = ?", userID, r.today()).
		Count(&count).Error
	if err != nil {
		return 0, storeError("count today's diaries", err)
	}
	return count, nil
}

// Create inserts a diary after checking that its owner exists and
// re-checking the daily quota inside the same transaction. On PostgreSQL the
// owner's row is locked; SQLite connections open every transaction with
// BEGIN IMMEDIATE, which already serializes writers.
func (r *GORMDiaryRepository) Create(ctx context.Context, diary *models.Diary) error {
	if err := validateDiary(diary); err != nil {
		return err
	}

	now := r.now()
	day := now.Format(models.DateLayout)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owners := tx.Select("id")
		if tx.Dialector.Name() == "postgres" {
			owners = owners.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var owner models.User
		if err := owners.First(&owner, diary.UserID).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Diary{}).
			Where("user_id = ? AND entry_date = ?", diary.UserID, day).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= models.DailyEntryLimit {
			return common.ErrQuotaExceeded
		}

		if strings.TrimSpace(diary.Title) == "" {
			diary.Title = models.DefaultTitle(day)
		}
		diary.EntryDate = day
		diary.CreatedAt = now
		return tx.Create(diary).Error
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrQuotaExceeded):
		diary.ID = 0
		return fmt.Errorf("user %d already has %d diaries on %s: %w", diary.UserID, models.DailyEntryLimit, day, common.ErrQuotaExceeded)
	case errors.Is(err, gorm.ErrRecordNotFound):
		diary.ID = 0
		return fmt.Errorf("owner with ID %d: %w", diary.UserID, common.ErrNotFound)
	default:
		diary.ID = 0
		return storeError("create diary", err)
	}
}

// GetByID retrieves a diary by id and owner.
func (r *GORMDiaryRepository) GetByID(ctx context.Context, id, userID uint) (*models.Diary, error) {
	var diary models.Diary
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&diary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("diary with ID %d: %w", id, common.ErrNotFound)
		}
		return nil, storeError("get diary by ID", err)
	}
	return &diary, nil
}

// Update updates the editable fields of an existing diary.
func (r *GORMDiaryRepository) Update(ctx context.Context, diary *models.Diary) error {
	if err := validateDiary(diary); err != nil {
		return err
	}
	if strings.TrimSpace(diary.Title) == "" {
		diary.Title = models.DefaultTitle(diary.EntryDate)
	}

	res := r.db.WithContext(ctx).Model(&models.Diary{}).
		Where("id = ? AND user_id = ?", diary.ID, diary.UserID).
		Updates(map[string]any{
			"title":     diary.Title,
			"content":   diary.Content,
			"sentiment": diary.Sentiment,
			"score":     diary.Score,
		})
	if res.Error != nil {
		return storeError("update diary", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("diary with ID %d: %w", diary.ID, common.ErrNotFound)
	}
	return nil
}

// Delete deletes a diary by id and owner.
func (r *GORMDiaryRepository) Delete(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Diary{})
	if res.Error != nil {
		return storeError("delete diary", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("diary with ID %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// GroupByDate loads all of the user's diaries and groups them per date.
func (r *GORMDiaryRepository) GroupByDate(ctx context.Context, userID uint) (map[string]models.DayGroup, error) {
	var diaries []models.Diary
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&diaries).Error; err != nil {
		return nil, storeError("list diaries", err)
	}
	return groupByDate(diaries), nil
}

// GroupForDate loads the diaries of one date.
func (r *GORMDiaryRepository) GroupForDate(ctx context.Context, userID uint, date string) (models.DayGroup, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return models.DayGroup{}, fmt.Errorf("invalid date %q: %w", date, common.ErrValidation)
	}

	var diaries []models.Diary
	if err := r.db.WithContext(ctx).Where("user_id = ? AND entry_date = ?", userID, date).Find(&diaries).Error; err != nil {
		return models.DayGroup{}, storeError("list diaries for date", err)
	}
	group, ok := groupByDate(diaries)[date]
	if !ok {
		return models.DayGroup{Entries: []models.DayEntry{}}, nil
	}
	return group, nil
}

// SummarizeMonth loads one month of diaries in a single query and summarizes
// them per date.
func (r *GORMDiaryRepository) SummarizeMonth(ctx context.Context, userID uint, year, month int) (map[string]models.MonthDay, error) {
	start, end, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}

	var diaries []models.Diary
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND entry_date >= ? AND entry_date < ?", userID, start, end).
		Order("entry_date ASC, created_at ASC, id ASC").
		Find(&diaries).Error
	if err != nil {
		return nil, storeError("summarize month", err)
	}
	return summarizeMonth(diaries), nil
}

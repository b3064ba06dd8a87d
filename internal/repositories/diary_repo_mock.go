package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"nikki/internal/common"
	"nikki/internal/models"
)

// MockDiaryRepository is an in-memory implementation of DiaryRepository.
type MockDiaryRepository struct {
	diaries map[uint]models.Diary
	nextID  uint
	now     func() time.Time
	mu      sync.RWMutex
}

// NewMockDiaryRepository creates a new instance of MockDiaryRepository.
func NewMockDiaryRepository() *MockDiaryRepository {
	return &MockDiaryRepository{
		diaries: make(map[uint]models.Diary),
		nextID:  1,
		now:     time.Now,
	}
}

// WithClock replaces the clock used to stamp and count diaries.
func (r *MockDiaryRepository) WithClock(now func() time.Time) *MockDiaryRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
	return r
}

func (r *MockDiaryRepository) countLocked(userID uint, day string) int64 {
	var n int64
	for _, d := range r.diaries {
		if d.UserID == userID && d.EntryDate == day {
			n++
		}
	}
	return n
}

// CountForToday returns today's diary count for a user.
func (r *MockDiaryRepository) CountForToday(ctx context.Context, userID uint) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(userID, r.now().Format(models.DateLayout)), nil
}

// Create adds a new diary when the user is under today's limit.
func (r *MockDiaryRepository) Create(ctx context.Context, diary *models.Diary) error {
	if err := validateDiary(diary); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	day := now.Format(models.DateLayout)
	if r.countLocked(diary.UserID, day) >= models.DailyEntryLimit {
		return fmt.Errorf("user %d already has %d diaries on %s: %w", diary.UserID, models.DailyEntryLimit, day, common.ErrQuotaExceeded)
	}

	if strings.TrimSpace(diary.Title) == "" {
		diary.Title = models.DefaultTitle(day)
	}
	diary.ID = r.nextID
	diary.EntryDate = day
	diary.CreatedAt = now
	r.nextID++
	r.diaries[diary.ID] = *diary
	return nil
}

// GetByID returns a diary by id and owner.
func (r *MockDiaryRepository) GetByID(ctx context.Context, id, userID uint) (*models.Diary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.diaries[id]
	if !ok || d.UserID != userID {
		return nil, fmt.Errorf("diary with ID %d: %w", id, common.ErrNotFound)
	}
	return &d, nil
}

// Update modifies the editable fields of an existing diary.
func (r *MockDiaryRepository) Update(ctx context.Context, diary *models.Diary) error {
	if err := validateDiary(diary); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.diaries[diary.ID]
	if !ok || stored.UserID != diary.UserID {
		return fmt.Errorf("diary with ID %d: %w", diary.ID, common.ErrNotFound)
	}
	if strings.TrimSpace(diary.Title) == "" {
		diary.Title = models.DefaultTitle(stored.EntryDate)
	}
	stored.Title = diary.Title
	stored.Content = diary.Content
	stored.Sentiment = diary.Sentiment
	stored.Score = diary.Score
	r.diaries[diary.ID] = stored

	diary.EntryDate = stored.EntryDate
	diary.CreatedAt = stored.CreatedAt
	return nil
}

// Delete removes a diary by id and owner.
func (r *MockDiaryRepository) Delete(ctx context.Context, id, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.diaries[id]
	if !ok || d.UserID != userID {
		return fmt.Errorf("diary with ID %d: %w", id, common.ErrNotFound)
	}
	delete(r.diaries, id)
	return nil
}

func (r *MockDiaryRepository) ownedBy(userID uint, keep func(models.Diary) bool) []models.Diary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []models.Diary
	for _, d := range r.diaries {
		if d.UserID == userID && keep(d) {
			list = append(list, d)
		}
	}
	return list
}

// GroupByDate groups every diary of the user per date.
func (r *MockDiaryRepository) GroupByDate(ctx context.Context, userID uint) (map[string]models.DayGroup, error) {
	all := r.ownedBy(userID, func(models.Diary) bool { return true })
	return groupByDate(all), nil
}

// GroupForDate returns the diaries of one date.
func (r *MockDiaryRepository) GroupForDate(ctx context.Context, userID uint, date string) (models.DayGroup, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return models.DayGroup{}, fmt.Errorf("invalid date %q: %w", date, common.ErrValidation)
	}
	list := r.ownedBy(userID, func(d models.Diary) bool { return d.EntryDate == date })
	group, ok := groupByDate(list)[date]
	if !ok {
		return models.DayGroup{Entries: []models.DayEntry{}}, nil
	}
	return group, nil
}

// SummarizeMonth summarizes one month of the user's diaries.
func (r *MockDiaryRepository) SummarizeMonth(ctx context.Context, userID uint, year, month int) (map[string]models.MonthDay, error) {
	start, end, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}
	list := r.ownedBy(userID, func(d models.Diary) bool {
		return d.EntryDate >= start && d.EntryDate < end
	})
	return summarizeMonth(list), nil
}

// Seed stores a diary as-is, bypassing the quota and clock. It is meant for
// preparing history in tests.
func (r *MockDiaryRepository) Seed(diary models.Diary) models.Diary {
	r.mu.Lock()
	defer r.mu.Unlock()

	diary.ID = r.nextID
	r.nextID++
	if diary.EntryDate == "" {
		diary.EntryDate = diary.CreatedAt.Format(models.DateLayout)
	}
	r.diaries[diary.ID] = diary
	return diary
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"nikki/internal/common"
	"nikki/internal/metrics"
	"nikki/internal/models"
	"nikki/internal/repositories"
	"nikki/internal/sentiment"
)

// Routing keys of the events published after a diary changes.
const (
	EventDiaryCreated = "diary.created"
	EventDiaryUpdated = "diary.updated"
	EventDiaryDeleted = "diary.deleted"
)

// EventPublisher delivers diary events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// DiaryEvent is the payload of every diary event. Content is left out.
type DiaryEvent struct {
	DiaryID   uint    `json:"diary_id"`
	UserID    uint    `json:"user_id"`
	Sentiment string  `json:"sentiment,omitempty"`
	Score     float64 `json:"score,omitempty"`
	EntryDate string  `json:"entry_date,omitempty"`
}

// DiaryService handles submitting, editing and browsing diaries.
type DiaryService struct {
	diaryRepo  repositories.DiaryRepository
	classifier sentiment.Classifier
	publisher  EventPublisher
}

// NewDiaryService creates a new DiaryService.
func NewDiaryService(diaryRepo repositories.DiaryRepository, classifier sentiment.Classifier) *DiaryService {
	return &DiaryService{
		diaryRepo:  diaryRepo,
		classifier: classifier,
	}
}

// WithPublisher makes the service publish an event after every change.
func (s *DiaryService) WithPublisher(p EventPublisher) *DiaryService {
	s.publisher = p
	return s
}

// SubmitNewEntry scores text and stores it as a new diary. The quota is
// checked before the classifier is called, and again when the diary is
// inserted.
func (s *DiaryService) SubmitNewEntry(ctx context.Context, userID uint, title, text string) (*models.Diary, error) {
	if err := validateEntry(title, text); err != nil {
		return nil, err
	}

	count, err := s.diaryRepo.CountForToday(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= models.DailyEntryLimit {
		metrics.QuotaRejections.Inc()
		return nil, fmt.Errorf("user %d has written %d diaries today: %w", userID, count, common.ErrQuotaExceeded)
	}

	result, err := s.classify(ctx, text)
	if err != nil {
		return nil, err
	}

	diary := &models.Diary{
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Content:   text,
		Sentiment: string(result.Label),
		Score:     float64(result.Score),
	}
	if err := s.diaryRepo.Create(ctx, diary); err != nil {
		if errors.Is(err, common.ErrQuotaExceeded) {
			metrics.QuotaRejections.Inc()
		}
		return nil, err
	}

	metrics.DiariesCreated.WithLabelValues(diary.Sentiment).Inc()
	s.publish(ctx, EventDiaryCreated, diary)
	return diary, nil
}

// SubmitEditedEntry re-scores text and overwrites an existing diary of the
// user. Edits do not count against the daily limit.
func (s *DiaryService) SubmitEditedEntry(ctx context.Context, id, userID uint, title, text string) (*models.Diary, error) {
	if err := validateEntry(title, text); err != nil {
		return nil, err
	}

	diary, err := s.diaryRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.classify(ctx, text)
	if err != nil {
		return nil, err
	}

	diary.Title = strings.TrimSpace(title)
	diary.Content = text
	diary.Sentiment = string(result.Label)
	diary.Score = float64(result.Score)
	if err := s.diaryRepo.Update(ctx, diary); err != nil {
		return nil, err
	}

	s.publish(ctx, EventDiaryUpdated, diary)
	return diary, nil
}

// RemoveEntry deletes one of the user's diaries.
func (s *DiaryService) RemoveEntry(ctx context.Context, id, userID uint) error {
	if err := s.diaryRepo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.publish(ctx, EventDiaryDeleted, &models.Diary{ID: id, UserID: userID})
	return nil
}

// GetEntry returns one of the user's diaries.
func (s *DiaryService) GetEntry(ctx context.Context, id, userID uint) (*models.Diary, error) {
	return s.diaryRepo.GetByID(ctx, id, userID)
}

// TodayCount returns how many diaries the user wrote today.
func (s *DiaryService) TodayCount(ctx context.Context, userID uint) (int64, error) {
	return s.diaryRepo.CountForToday(ctx, userID)
}

// EntriesByDate returns all of the user's diaries grouped per date.
func (s *DiaryService) EntriesByDate(ctx context.Context, userID uint) (map[string]models.DayGroup, error) {
	return s.diaryRepo.GroupByDate(ctx, userID)
}

// EntriesForDate returns the user's diaries of one date.
func (s *DiaryService) EntriesForDate(ctx context.Context, userID uint, date string) (models.DayGroup, error) {
	return s.diaryRepo.GroupForDate(ctx, userID, date)
}

// MonthSummary returns the per-date summary of one month.
func (s *DiaryService) MonthSummary(ctx context.Context, userID uint, year, month int) (map[string]models.MonthDay, error) {
	return s.diaryRepo.SummarizeMonth(ctx, userID, year, month)
}

func (s *DiaryService) classify(ctx context.Context, text string) (sentiment.Result, error) {
	start := time.Now()
	result, err := s.classifier.Classify(ctx, text)
	metrics.ClassifierLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierFailures.Inc()
		log.Printf("Sentiment classification failed: %v", err)
		return sentiment.Result{}, fmt.Errorf("%w: %w", common.ErrClassificationFailed, err)
	}
	if !result.Label.Valid() || result.Score < 0 || result.Score > 100 {
		metrics.ClassifierFailures.Inc()
		return sentiment.Result{}, fmt.Errorf("classifier returned %q/%d: %w", result.Label, result.Score, common.ErrClassificationFailed)
	}
	if result.Truncated {
		log.Printf("Diary text exceeded %d tokens, scored the leading part only", sentiment.MaxInputTokens)
	}
	return result, nil
}

func (s *DiaryService) publish(ctx context.Context, routingKey string, diary *models.Diary) {
	if s.publisher == nil {
		return
	}
	event := DiaryEvent{
		DiaryID:   diary.ID,
		UserID:    diary.UserID,
		Sentiment: diary.Sentiment,
		Score:     diary.Score,
		EntryDate: diary.EntryDate,
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("Failed to publish %s for diary %d: %v", routingKey, diary.ID, err)
	}
}

func validateEntry(title, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("diary content is required: %w", common.ErrValidation)
	}
	if utf8.RuneCountInString(text) > models.MaxContentLength {
		return fmt.Errorf("diary content exceeds %d characters: %w", models.MaxContentLength, common.ErrValidation)
	}
	if utf8.RuneCountInString(strings.TrimSpace(title)) > models.MaxTitleLength {
		return fmt.Errorf("diary title exceeds %d characters: %w", models.MaxTitleLength, common.ErrValidation)
	}
	return nil
}

package handlers

import (
	"fmt"
	"time"

	"nikki/internal/calendar"
	"nikki/internal/common"
	"nikki/internal/middleware"
	"nikki/internal/models"
	"nikki/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// DiaryHandler handles HTTP requests for diaries and the calendar view.
type DiaryHandler struct {
	service  *services.DiaryService
	validate *validator.Validate
	now      func() time.Time
}

// NewDiaryHandler creates a new DiaryHandler.
func NewDiaryHandler(service *services.DiaryService) *DiaryHandler {
	return &DiaryHandler{
		service:  service,
		validate: validator.New(),
		now:      time.Now,
	}
}

// RegisterRoutes registers the diary routes. Every route requires auth.
func (h *DiaryHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	diaryRoutes := router.Group("/diaries", auth)
	diaryRoutes.Get("/", h.HandleGetDiaries)
	diaryRoutes.Get("/date/:date", h.HandleGetDiariesForDate)
	diaryRoutes.Post("/", h.HandleCreateDiary)
	diaryRoutes.Get("/:id", h.HandleGetDiaryByID)
	diaryRoutes.Put("/:id", h.HandleUpdateDiary)
	diaryRoutes.Delete("/:id", h.HandleDeleteDiary)

	router.Get("/calendar", auth, h.HandleCalendar)
}

// DiaryRequest is the body of create and edit requests.
type DiaryRequest struct {
	Title   string `json:"title" validate:"max=100"`
	Content string `json:"content" validate:"required,max=500"`
}

func diaryID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid diary id %q: %w", c.Params("id"), common.ErrValidation)
	}
	return uint(id), nil
}

// HandleGetDiaries returns the caller's diaries grouped by date, newest
// date first.
func (h *DiaryHandler) HandleGetDiaries(c *fiber.Ctx) error {
	groups, err := h.service.EntriesByDate(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return errorResponse(c, "Could not retrieve diaries", err)
	}
	return c.JSON(fiber.Map{
		"dates": models.NewestFirst(groups),
	})
}

// HandleGetDiariesForDate returns the caller's diaries of one date.
func (h *DiaryHandler) HandleGetDiariesForDate(c *fiber.Ctx) error {
	date := c.Params("date")
	group, err := h.service.EntriesForDate(c.UserContext(), middleware.UserID(c), date)
	if err != nil {
		return errorResponse(c, "Could not retrieve diaries", err)
	}
	return c.JSON(fiber.Map{
		"date":    date,
		"diaries": group,
	})
}

// HandleCreateDiary scores and saves a new diary.
func (h *DiaryHandler) HandleCreateDiary(c *fiber.Ctx) error {
	var req DiaryRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationResponse(c, err)
	}

	diary, err := h.service.SubmitNewEntry(c.UserContext(), middleware.UserID(c), req.Title, req.Content)
	if err != nil {
		return errorResponse(c, "Could not save diary", err)
	}
	return c.Status(fiber.StatusCreated).JSON(diary)
}

// HandleGetDiaryByID returns one of the caller's diaries.
func (h *DiaryHandler) HandleGetDiaryByID(c *fiber.Ctx) error {
	id, err := diaryID(c)
	if err != nil {
		return errorResponse(c, "Invalid diary id", err)
	}
	diary, err := h.service.GetEntry(c.UserContext(), id, middleware.UserID(c))
	if err != nil {
		return errorResponse(c, fmt.Sprintf("Diary with ID %d not found", id), err)
	}
	return c.JSON(diary)
}

// HandleUpdateDiary re-scores and overwrites one of the caller's diaries.
func (h *DiaryHandler) HandleUpdateDiary(c *fiber.Ctx) error {
	id, err := diaryID(c)
	if err != nil {
		return errorResponse(c, "Invalid diary id", err)
	}
	var req DiaryRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationResponse(c, err)
	}

	diary, err := h.service.SubmitEditedEntry(c.UserContext(), id, middleware.UserID(c), req.Title, req.Content)
	if err != nil {
		return errorResponse(c, "Could not update diary", err)
	}
	return c.JSON(diary)
}

// HandleDeleteDiary deletes one of the caller's diaries.
func (h *DiaryHandler) HandleDeleteDiary(c *fiber.Ctx) error {
	id, err := diaryID(c)
	if err != nil {
		return errorResponse(c, "Invalid diary id", err)
	}
	if err := h.service.RemoveEntry(c.UserContext(), id, middleware.UserID(c)); err != nil {
		return errorResponse(c, "Could not delete diary", err)
	}
	return c.JSON(fiber.Map{
		"message": "Diary deleted",
	})
}

type monthRef struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// HandleCalendar returns the month view: week grid, per-date summary and
// whether the caller may still write today. Year and month default to the
// current month.
func (h *DiaryHandler) HandleCalendar(c *fiber.Ctx) error {
	now := h.now()
	year := c.QueryInt("year", now.Year())
	month := c.QueryInt("month", int(now.Month()))
	userID := middleware.UserID(c)

	summary, err := h.service.MonthSummary(c.UserContext(), userID, year, month)
	if err != nil {
		return errorResponse(c, "Could not retrieve calendar", err)
	}
	todayCount, err := h.service.TodayCount(c.UserContext(), userID)
	if err != nil {
		return errorResponse(c, "Could not retrieve calendar", err)
	}

	py, pm, ny, nm := calendar.Adjacent(year, time.Month(month))
	return c.JSON(fiber.Map{
		"year":          year,
		"month":         month,
		"weeks":         calendar.MonthGrid(year, time.Month(month)),
		"diaries":       summary,
		"today":         now.Format(models.DateLayout),
		"today_count":   todayCount,
		"can_add_diary": todayCount < models.DailyEntryLimit,
		"prev":          monthRef{Year: py, Month: int(pm)},
		"next":          monthRef{Year: ny, Month: int(nm)},
	})
}

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nikki/internal/config"
	"nikki/internal/database"
	"nikki/internal/handlers"
	"nikki/internal/middleware"
	"nikki/internal/models"
	"nikki/internal/repositories"
	"nikki/internal/sentiment"
	"nikki/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test_jwt_secret"

// setupApp sets up a Fiber app backed by a throwaway SQLite file.
func setupApp(t *testing.T, classifier sentiment.Classifier) (*fiber.App, *services.AuthService) {
	t.Helper()
	return setupAppWithClock(t, classifier, time.Now)
}

// setupAppWithClock is setupApp with the diary store reading now for "today".
func setupAppWithClock(t *testing.T, classifier sentiment.Classifier, now func() time.Time) (*fiber.App, *services.AuthService) {
	t.Helper()

	db, err := database.Open(config.Database{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "diaries.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	userRepo := repositories.NewGORMUserRepository(db)
	diaryRepo := repositories.NewGORMDiaryRepository(db).WithClock(now)

	authService := services.NewAuthService(userRepo, testJWTSecret, time.Hour)
	diaryService := services.NewDiaryService(diaryRepo, classifier)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	auth := middleware.AuthRequired(authService)
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1, auth)
	handlers.NewDiaryHandler(diaryService).RegisterRoutes(apiV1, auth)

	return app, authService
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, string) (sentiment.Result, error) {
	return sentiment.Result{}, errors.New("model unavailable")
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func signUp(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	status, _ := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":         username,
		"password":         "password123",
		"confirm_password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	return body["token"].(string)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app, authService := setupApp(t, sentiment.NewLexiconClassifier())

	// Test Registration
	status, body := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":         "testuser",
		"password":         "password123",
		"confirm_password": "password123",
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "User registered successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "testuser", user["username"])
	assert.NotContains(t, user, "password_hash")

	// Test Duplicate Registration, case-insensitive
	status, body = call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":         "TestUser",
		"password":         "password123",
		"confirm_password": "password123",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicate_user", body["kind"])

	// Test Validation
	status, body = call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":         "abc",
		"password":         "password123",
		"confirm_password": "password124",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "Username")
	assert.Contains(t, errs, "ConfirmPassword")

	// Test Login
	status, body = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "testuser",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	assert.NotEmpty(t, token)

	claims, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "testuser", claims["username"])
	assert.Contains(t, claims, "user_id")

	// Test wrong password
	status, body = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "testuser",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_credentials", body["kind"])
}

func TestDiaryEndpoints(t *testing.T) {
	app, _ := setupApp(t, sentiment.NewLexiconClassifier())
	token := signUp(t, app, "diarist")
	today := time.Now().Format(models.DateLayout)

	// --- POST /diaries ---
	status, body := call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{
		"content": "今日は楽しかった",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "positive", body["sentiment"])
	assert.Equal(t, "日記 - "+today, body["title"])
	assert.Equal(t, today, body["entry_date"])
	id := uint(body["id"].(float64))
	diaryPath := fmt.Sprintf("/api/v1/diaries/%d", id)

	// --- GET /diaries/:id ---
	status, body = call(t, app, http.MethodGet, diaryPath, token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "今日は楽しかった", body["content"])

	// --- PUT /diaries/:id ---
	status, body = call(t, app, http.MethodPut, diaryPath, token, map[string]string{
		"title":   "雨",
		"content": "疲れた、悲しい",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "negative", body["sentiment"])
	assert.Equal(t, "雨", body["title"])

	// --- GET /diaries ---
	status, body = call(t, app, http.MethodGet, "/api/v1/diaries", token, nil)
	assert.Equal(t, http.StatusOK, status)
	dates := body["dates"].([]any)
	require.Len(t, dates, 1)
	day := dates[0].(map[string]any)
	assert.Equal(t, today, day["date"])
	assert.Len(t, day["entries"], 1)

	// --- GET /diaries/date/:date ---
	status, body = call(t, app, http.MethodGet, "/api/v1/diaries/date/"+today, token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["diaries"].(map[string]any)["entries"], 1)

	status, body = call(t, app, http.MethodGet, "/api/v1/diaries/date/1999-01-01", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["diaries"].(map[string]any)["entries"])

	// --- quota ---
	for i := 0; i < models.DailyEntryLimit-1; i++ {
		status, _ = call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"content": "more"})
		require.Equal(t, http.StatusCreated, status)
	}
	status, body = call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"content": "too many"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "quota_exceeded", body["kind"])

	// --- GET /calendar ---
	now := time.Now()
	status, body = call(t, app, http.MethodGet,
		fmt.Sprintf("/api/v1/calendar?year=%d&month=%d", now.Year(), int(now.Month())), token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["can_add_diary"])
	assert.EqualValues(t, 3, body["today_count"])
	assert.Equal(t, today, body["today"])
	summary := body["diaries"].(map[string]any)[today].(map[string]any)
	assert.EqualValues(t, 3, summary["count"])
	assert.Len(t, summary["titles"], 3)
	assert.NotEmpty(t, body["weeks"])

	status, _ = call(t, app, http.MethodGet, "/api/v1/calendar?year=2024&month=13", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// --- DELETE /diaries/:id ---
	status, _ = call(t, app, http.MethodDelete, diaryPath, token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = call(t, app, http.MethodGet, diaryPath, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["kind"])

	// deleting freed a slot for today
	status, body = call(t, app, http.MethodGet, "/api/v1/calendar", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["can_add_diary"])
}

func TestDiariesNewestDateFirst(t *testing.T) {
	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	app, _ := setupAppWithClock(t, sentiment.NewLexiconClassifier(), func() time.Time { return day })
	token := signUp(t, app, "diarist")

	for i := 0; i < 3; i++ {
		status, _ := call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"content": "another day"})
		require.Equal(t, http.StatusCreated, status)
		day = day.AddDate(0, 0, 1)
	}

	status, body := call(t, app, http.MethodGet, "/api/v1/diaries", token, nil)
	require.Equal(t, http.StatusOK, status)
	var got []string
	for _, g := range body["dates"].([]any) {
		got = append(got, g.(map[string]any)["date"].(string))
	}
	assert.Equal(t, []string{"2024-05-03", "2024-05-02", "2024-05-01"}, got)
}

func TestDiaryValidation(t *testing.T) {
	app, _ := setupApp(t, sentiment.NewLexiconClassifier())
	token := signUp(t, app, "diarist")

	status, body := call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"title": "empty"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "Content")

	status, _ = call(t, app, http.MethodGet, "/api/v1/diaries/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/diaries/date/yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"content": "kept"})
	require.Equal(t, http.StatusCreated, status)
	diaryPath := fmt.Sprintf("/api/v1/diaries/%d", uint(body["id"].(float64)))

	req := httptest.NewRequest(http.MethodPut, diaryPath, bytes.NewReader([]byte(`{"content":`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, body = call(t, app, http.MethodPut, diaryPath, token, map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "Content")

	status, body = call(t, app, http.MethodGet, diaryPath, token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "kept", body["content"], "a rejected edit changes nothing")
}

func TestDiariesArePrivate(t *testing.T) {
	app, _ := setupApp(t, sentiment.NewLexiconClassifier())
	alice := signUp(t, app, "alice")
	bob := signUp(t, app, "bobby")

	status, body := call(t, app, http.MethodPost, "/api/v1/diaries", alice, map[string]string{"content": "secret"})
	require.Equal(t, http.StatusCreated, status)
	diaryPath := fmt.Sprintf("/api/v1/diaries/%d", uint(body["id"].(float64)))

	status, _ = call(t, app, http.MethodGet, diaryPath, bob, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = call(t, app, http.MethodPut, diaryPath, bob, map[string]string{"content": "mine now"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = call(t, app, http.MethodDelete, diaryPath, bob, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = call(t, app, http.MethodGet, "/api/v1/diaries", bob, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["dates"])
}

func TestClassifierFailure(t *testing.T) {
	app, _ := setupApp(t, failingClassifier{})
	token := signUp(t, app, "diarist")

	status, body := call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"content": "text"})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "classification_failed", body["kind"])

	status, body = call(t, app, http.MethodGet, "/api/v1/calendar", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["today_count"])
}

func TestDeleteAccount(t *testing.T) {
	app, _ := setupApp(t, sentiment.NewLexiconClassifier())
	token := signUp(t, app, "leaving")

	status, _ := call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"content": "bye"})
	require.Equal(t, http.StatusCreated, status)

	status, _ = call(t, app, http.MethodDelete, "/api/v1/account", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "leaving",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	// the old token is still signed but its owner is gone
	status, body := call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"content": "still here?"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["kind"])

	// the name can be taken again
	fresh := signUp(t, app, "leaving")
	status, body = call(t, app, http.MethodGet, "/api/v1/diaries", fresh, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["dates"], "no diary survived the old account")
}

func TestDiaryEndpointsWithoutAuth(t *testing.T) {
	app, _ := setupApp(t, sentiment.NewLexiconClassifier())

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/diaries"},
		{http.MethodPost, "/api/v1/diaries"},
		{http.MethodGet, "/api/v1/diaries/1"},
		{http.MethodGet, "/api/v1/calendar"},
		{http.MethodDelete, "/api/v1/account"},
	} {
		status, _ := call(t, app, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, "%s %s", tc.method, tc.path)
	}

	status, body := call(t, app, http.MethodGet, "/api/v1/diaries", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", body["kind"])
}

// Alice signs up, fills her day, hits the limit, deletes an entry and writes
// again. A differently cased name cannot register nor log in.
func TestDailyLimitScenario(t *testing.T) {
	app, _ := setupApp(t, sentiment.NewLexiconClassifier())

	status, _ := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":         "Alice",
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":         "alice",
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "Alice",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, status)
	token := body["token"].(string)

	var ids []uint
	for _, content := range []string{"good morning", "sad lunch", "quiet evening"} {
		status, body = call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"content": content})
		require.Equal(t, http.StatusCreated, status)
		ids = append(ids, uint(body["id"].(float64)))
	}

	status, _ = call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"content": "fourth"})
	assert.Equal(t, http.StatusTooManyRequests, status)

	status, body = call(t, app, http.MethodGet, "/api/v1/diaries", token, nil)
	require.Equal(t, http.StatusOK, status)
	today := time.Now().Format(models.DateLayout)
	dates := body["dates"].([]any)
	require.Len(t, dates, 1)
	day := dates[0].(map[string]any)
	assert.Equal(t, today, day["date"])
	assert.Len(t, day["entries"], 3, "the rejected entry was not stored")

	status, _ = call(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/diaries/%d", ids[1]), token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/diaries", token, map[string]string{"content": "fourth"})
	assert.Equal(t, http.StatusCreated, status)
}

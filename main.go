package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"nikki/internal/config"
	"nikki/internal/database"
	"nikki/internal/handlers"
	"nikki/internal/metrics"
	"nikki/internal/middleware"
	"nikki/internal/repositories"
	"nikki/internal/sentiment"
	"nikki/internal/services"
	"nikki/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogging(cfg.LogFile)

	// --- Database ---
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- Events (optional) ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Printf("RabbitMQ unavailable, diary events disabled: %v", err)
		} else {
			defer mqClient.Close()
			publisher = mqClient
		}
	}

	app := newApp(cfg, db, newClassifier(cfg.Classifier), publisher)

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s (%s)", cfg.Port, cfg.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.Port); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Println("Server gracefully stopped")
}

// newApp wires repositories, services and handlers into a Fiber app.
func newApp(cfg *config.Config, db *gorm.DB, classifier sentiment.Classifier, publisher services.EventPublisher) *fiber.App {
	userRepo := repositories.NewGORMUserRepository(db)
	diaryRepo := repositories.NewGORMDiaryRepository(db)

	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.TTL)
	diaryService := services.NewDiaryService(diaryRepo, classifier)
	if publisher != nil {
		diaryService.WithPublisher(publisher)
	}

	app := fiber.New(fiber.Config{
		AppName: "nikki",
	})

	app.Use(logger.New(logger.Config{Output: log.Writer()}))
	app.Use(middleware.HTTPMetrics())

	apiV1 := app.Group("/api/v1")
	auth := middleware.AuthRequired(authService)
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1, auth)
	handlers.NewDiaryHandler(diaryService).RegisterRoutes(apiV1, auth)

	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			status = "degraded"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
			"events": publisher != nil,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	return app
}

// newClassifier uses the inference endpoint when one is configured and the
// built-in lexicon otherwise. Either way calls are bounded by the timeout.
func newClassifier(cfg config.Classifier) sentiment.Classifier {
	var c sentiment.Classifier
	if cfg.URL != "" {
		log.Printf("Scoring sentiment with %s", cfg.URL)
		c = sentiment.NewHTTPClassifier(cfg.URL, cfg.Token, cfg.Timeout)
	} else {
		log.Println("CLASSIFIER_URL not set, scoring sentiment with the built-in lexicon")
		c = sentiment.NewLexiconClassifier()
	}
	return sentiment.WithTimeout(c, cfg.Timeout)
}

// setupLogging copies the standard logger to a rotating file when path is set.
func setupLogging(path string) {
	if path == "" {
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 30,
		MaxAge:     30, // days
		Compress:   true,
		LocalTime:  true,
	}))
}

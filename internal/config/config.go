package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	LogFile     string
	Database    Database
	JWT         JWT
	Classifier  Classifier
	RabbitMQURL string
}

// Database selects the store driver and its DSN.
type Database struct {
	Driver string // "sqlite" or "postgres"
	DSN    string
}

// JWT holds token signing settings.
type JWT struct {
	Secret string
	TTL    time.Duration
}

// Classifier configures the sentiment inference endpoint. An empty URL
// selects the built-in lexicon classifier.
type Classifier struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "diaries.db")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CLASSIFIER_URL", "")
	v.SetDefault("CLASSIFIER_TOKEN", "")
	v.SetDefault("CLASSIFIER_TIMEOUT", "10s")
	v.SetDefault("RABBITMQ_URL", "")
}

// Load reads configuration from an optional .env file, an optional
// config.yaml in the working directory and the environment, in increasing
// order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:    v.GetString("APP_PORT"),
		Env:     v.GetString("APP_ENV"),
		LogFile: v.GetString("LOG_FILE"),
		Database: Database{
			Driver: v.GetString("DB_DRIVER"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		JWT: JWT{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		Classifier: Classifier{
			URL:     v.GetString("CLASSIFIER_URL"),
			Token:   v.GetString("CLASSIFIER_TOKEN"),
			Timeout: v.GetDuration("CLASSIFIER_TIMEOUT"),
		},
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
	}

	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.JWT.TTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive, got %s", cfg.JWT.TTL)
	}
	if cfg.Classifier.Timeout <= 0 {
		return nil, fmt.Errorf("CLASSIFIER_TIMEOUT must be positive, got %s", cfg.Classifier.Timeout)
	}
	return cfg, nil
}

package database

import (
	"fmt"
	"log"
	"strings"

	"nikki/internal/config"
	"nikki/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured store. SQLite connections start every
// transaction with BEGIN IMMEDIATE so the quota check and the insert that
// follows it run under the database write lock.
func Open(cfg config.Database) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(SQLiteDSN(cfg.DSN))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

// SQLiteDSN appends the locking options the repositories rely on, unless the
// caller already set them.
func SQLiteDSN(dsn string) string {
	var opts []string
	if !strings.Contains(dsn, "_txlock=") {
		opts = append(opts, "_txlock=immediate")
	}
	if !strings.Contains(dsn, "_busy_timeout=") {
		opts = append(opts, "_busy_timeout=5000")
	}
	if len(opts) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(opts, "&")
}

// Migrate brings the schema up to date. Every step is additive and safe to
// repeat, including on databases created before diaries had a title or an
// entry_date column.
func Migrate(db *gorm.DB) error {
	m := db.Migrator()

	if m.HasTable(&models.Diary{}) && !m.HasColumn(&models.Diary{}, "Title") {
		if err := m.AddColumn(&models.Diary{}, "Title"); err != nil && !isDuplicateColumn(err) {
			return fmt.Errorf("failed to add diaries.title: %w", err)
		}
		log.Println("Added missing column diaries.title")
	}

	if err := db.AutoMigrate(&models.User{}, &models.Diary{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	res := db.Exec(`UPDATE diaries SET entry_date = SUBSTR(CAST(created_at AS TEXT), 1, 10)
		WHERE (entry_date IS NULL OR entry_date = '') AND created_at IS NOT NULL`)
	if res.Error != nil {
		return fmt.Errorf("failed to backfill diaries.entry_date: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Printf("Backfilled entry_date for %d diaries", res.RowsAffected)
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}

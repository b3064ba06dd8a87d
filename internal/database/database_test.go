package database_test

import (
	"path/filepath"
	"testing"

	"nikki/internal/config"
	"nikki/internal/database"
	"nikki/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.Database{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "diaries.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "diaries.db?_txlock=immediate&_busy_timeout=5000", database.SQLiteDSN("diaries.db"))
	assert.Equal(t, "file::memory:?cache=shared&_txlock=immediate&_busy_timeout=5000", database.SQLiteDSN("file::memory:?cache=shared"))
	assert.Equal(t, "x.db?_txlock=deferred&_busy_timeout=5000", database.SQLiteDSN("x.db?_txlock=deferred"))
	assert.Equal(t, "x.db?_busy_timeout=1&_txlock=exclusive", database.SQLiteDSN("x.db?_busy_timeout=1&_txlock=exclusive"))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := database.Open(config.Database{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMigrate_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Migrate(db), "migrate must be idempotent")

	m := db.Migrator()
	assert.True(t, m.HasTable(&models.User{}))
	assert.True(t, m.HasTable(&models.Diary{}))
	for _, col := range []string{"Title", "Content", "Sentiment", "Score", "EntryDate", "CreatedAt", "UserID"} {
		assert.True(t, m.HasColumn(&models.Diary{}, col), "missing column %s", col)
	}
}

func TestMigrate_LegacyTableWithoutTitle(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec(`CREATE TABLE users
		(id INTEGER PRIMARY KEY AUTOINCREMENT,
		 username TEXT UNIQUE NOT NULL,
		 password_hash TEXT NOT NULL)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE diaries
		(id INTEGER PRIMARY KEY AUTOINCREMENT,
		 user_id INTEGER NOT NULL,
		 content TEXT,
		 sentiment TEXT,
		 score REAL,
		 created_at TIMESTAMP)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO diaries (user_id, content, sentiment, score, created_at)
		VALUES (1, 'rainy day', 'negative', 12.0, '2024-05-01 09:30:00.123456')`).Error)

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Migrate(db))

	m := db.Migrator()
	assert.True(t, m.HasColumn(&models.Diary{}, "Title"))
	assert.True(t, m.HasColumn(&models.Diary{}, "EntryDate"))

	var entryDate string
	require.NoError(t, db.Raw("SELECT entry_date FROM diaries WHERE id = 1").Scan(&entryDate).Error)
	assert.Equal(t, "2024-05-01", entryDate)

	var content string
	require.NoError(t, db.Raw("SELECT content FROM diaries WHERE id = 1").Scan(&content).Error)
	assert.Equal(t, "rainy day", content, "existing rows must survive the migration")
}

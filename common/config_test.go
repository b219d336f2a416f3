package common

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"quiettime/logging"
)

func TestLoadConfig_Defaults(t *testing.T) {
	unsetEnv(t, "PORT", "DOMAIN", "CACHE_DIR", "CACHE_MAX_AGE", "SITE_TITLE",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SQLITE_DB", "qt.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Domain)
	assert.Equal(t, "cache", cfg.CacheDir)
	assert.Equal(t, 10*time.Minute, cfg.CacheMaxAge)
	assert.Equal(t, "Quiet Time", cfg.SiteTitle)
	assert.Equal(t, "http://localhost:8080/auth/google/callback", cfg.GoogleRedirectURL)
	assert.False(t, cfg.GoogleEnabled())
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	unsetEnv(t, "SESSION_SECRET", "SQLITE_DB")

	_, err := LoadConfig()
	assert.Error(t, err)
}

// unsetEnv clears keys for the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	unsetEnv(t, "SQLITE_DB", "CACHE_MAX_AGE", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET")
	t.Setenv("SESSION_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	content := "SESSION_SECRET=from-file\nSQLITE_DB=file.db\nCACHE_MAX_AGE=1h\nGOOGLE_CLIENT_ID=id\nGOOGLE_CLIENT_SECRET=secret\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.SessionSecret)
	assert.Equal(t, "file.db", cfg.SqliteDB)
	assert.Equal(t, time.Hour, cfg.CacheMaxAge)
	assert.True(t, cfg.GoogleEnabled())
}

func TestConnectDb(t *testing.T) {
	_, err := ConnectDb("", logging.Discard())
	assert.Error(t, err)

	db, err := ConnectDb(filepath.Join(t.TempDir(), "qt.db"), logging.Discard())
	require.NoError(t, err)
	assert.NotNil(t, db)

	assert.Nil(t, ConnectAnalyticsDb("", logging.Discard()))
}

type lookupRow struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

func TestConnectDb_LogsThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	db, err := ConnectDb(filepath.Join(t.TempDir(), "qt.db"), logger)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&lookupRow{}))

	var row lookupRow
	err = db.Where("id = ?", "missing").Take(&row).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NotContains(t, buf.String(), "record not found")

	var rows []map[string]interface{}
	assert.Error(t, db.Raw("SELECT * FROM no_such_table").Scan(&rows).Error)
	assert.Contains(t, buf.String(), "component=gorm")
	assert.Contains(t, buf.String(), "no such table")
}

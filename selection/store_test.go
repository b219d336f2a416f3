package selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"quiettime/clock"
	"quiettime/models"
	"quiettime/store"
)

func setupGormStore(t *testing.T, dates ...string) *store.GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Entry{}))

	s := store.NewGormStore(db, clock.Real())
	for _, date := range dates {
		_, err := s.CreateEntry(context.Background(), models.EntryFields{
			ServiceDate: date, Title: date, Verse: "v", Content: "c",
		}, nil)
		require.NoError(t, err)
	}
	return s
}

func TestLatest_GormStore(t *testing.T) {
	tests := []struct {
		name     string
		dates    []string
		today    string
		expected string
	}{
		{"exact date", []string{"2025-01-01", "2025-01-02", "2025-01-03"}, "2025-01-02", "2025-01-02"},
		{"fallback skips future", []string{"2025-01-01", "2025-01-03"}, "2025-01-02", "2025-01-01"},
		{"most recent of many past", []string{"2024-11-01", "2024-12-31", "2024-12-01"}, "2025-01-02", "2024-12-31"},
		{"only future", []string{"2025-06-01"}, "2025-01-02", ""},
		{"empty", nil, "2025-01-02", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupGormStore(t, tt.dates...)

			entry, err := Latest(context.Background(), s, localNoon(tt.today))
			require.NoError(t, err)

			if tt.expected == "" {
				assert.Nil(t, entry)
				return
			}
			require.NotNil(t, entry)
			assert.Equal(t, tt.expected, entry.ServiceDate)
		})
	}
}

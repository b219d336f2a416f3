package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"quiettime/clock"
	"quiettime/models"
)

var epoch = time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Entry{}))
	return db
}

func setupStore(t *testing.T) (*GormStore, *clock.FakeClock, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	clk := clock.Fake(epoch)
	return NewGormStore(db, clk), clk, db
}

func createTestEntry(t *testing.T, s *GormStore, date, title string) string {
	t.Helper()
	id, err := s.CreateEntry(context.Background(), models.EntryFields{
		ServiceDate: date,
		Title:       title,
		Verse:       "Psalm 23:1",
		Content:     "<p>" + title + "</p>",
	}, nil)
	require.NoError(t, err)
	return id
}

func TestCreateEntry(t *testing.T) {
	s, _, _ := setupStore(t)
	author := "pastor@example.com"

	id, err := s.CreateEntry(context.Background(), models.EntryFields{
		ServiceDate: "2025-01-02",
		Title:       "Morning",
		Verse:       "Psalm 5:3",
		Content:     "<p>In the morning</p>",
	}, &author)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entry, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Morning", entry.Title)
	assert.Equal(t, int64(0), entry.Views)
	assert.True(t, entry.CreatedAt.Equal(epoch))
	assert.Nil(t, entry.UpdatedAt)
	require.NotNil(t, entry.AuthorEmail)
	assert.Equal(t, author, *entry.AuthorEmail)
	assert.Nil(t, entry.FontSize)
}

func TestCreateEntry_UniqueIDs(t *testing.T) {
	s, _, _ := setupStore(t)

	a := createTestEntry(t, s, "2025-01-02", "A")
	b := createTestEntry(t, s, "2025-01-02", "B")

	assert.NotEqual(t, a, b)
}

func TestGetByID_NotFound(t *testing.T) {
	s, _, _ := setupStore(t)

	entry, err := s.GetByID(context.Background(), "missing")

	assert.NoError(t, err)
	assert.Nil(t, entry)
}

func TestQueryByDateEquals(t *testing.T) {
	s, _, _ := setupStore(t)
	createTestEntry(t, s, "2025-01-01", "Yesterday")
	createTestEntry(t, s, "2025-01-02", "Today")

	entry, err := s.QueryByDateEquals(context.Background(), "2025-01-02")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Today", entry.Title)

	none, err := s.QueryByDateEquals(context.Background(), "2025-01-05")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestQueryByDateEquals_Duplicates(t *testing.T) {
	s, _, _ := setupStore(t)
	createTestEntry(t, s, "2025-01-02", "First")
	createTestEntry(t, s, "2025-01-02", "Second")

	entry, err := s.QueryByDateEquals(context.Background(), "2025-01-02")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "2025-01-02", entry.ServiceDate)
	assert.Contains(t, []string{"First", "Second"}, entry.Title)
}

func TestQueryLatestByDateLessOrEqual(t *testing.T) {
	s, _, _ := setupStore(t)
	createTestEntry(t, s, "2024-12-25", "Christmas")
	createTestEntry(t, s, "2025-01-01", "New Year")
	createTestEntry(t, s, "2025-01-03", "Future")

	entry, err := s.QueryLatestByDateLessOrEqual(context.Background(), "2025-01-02")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "New Year", entry.Title)

	none, err := s.QueryLatestByDateLessOrEqual(context.Background(), "2024-01-01")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestDateQueries_SkipMalformedDates(t *testing.T) {
	s, _, db := setupStore(t)
	require.NoError(t, db.Create(&models.Entry{Title: "No date", Verse: "v", Content: "c", CreatedAt: epoch}).Error)
	require.NoError(t, db.Create(&models.Entry{ServiceDate: "Jan 1", Title: "Bad date", Verse: "v", Content: "c", CreatedAt: epoch}).Error)

	entry, err := s.QueryLatestByDateLessOrEqual(context.Background(), "2025-01-02")
	assert.NoError(t, err)
	assert.Nil(t, entry)

	entry, err = s.QueryByDateEquals(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, entry)
}

func TestListAll_Order(t *testing.T) {
	s, clk, db := setupStore(t)
	createTestEntry(t, s, "2025-01-01", "Jan 1")
	createTestEntry(t, s, "2025-01-03", "Jan 3")
	require.NoError(t, db.Create(&models.Entry{Title: "Undated old", Verse: "v", Content: "c", CreatedAt: epoch}).Error)
	clk.Advance(time.Hour)
	require.NoError(t, db.Create(&models.Entry{Title: "Undated new", Verse: "v", Content: "c", CreatedAt: clk.Now()}).Error)
	createTestEntry(t, s, "2025-01-02", "Jan 2")

	entries, err := s.ListAll(context.Background())
	require.NoError(t, err)

	var titles []string
	for _, e := range entries {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"Jan 3", "Jan 2", "Jan 1", "Undated new", "Undated old"}, titles)
}

func TestListAll_Empty(t *testing.T) {
	s, _, _ := setupStore(t)

	entries, err := s.ListAll(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdateEntry_PreservesCreationFields(t *testing.T) {
	s, clk, db := setupStore(t)
	author := "pastor@example.com"
	id, err := s.CreateEntry(context.Background(), models.EntryFields{
		ServiceDate: "2025-01-02", Title: "Before", Verse: "v1", Content: "c1",
	}, &author)
	require.NoError(t, err)
	require.NoError(t, s.IncrementViews(context.Background(), id, 1))
	require.NoError(t, s.IncrementViews(context.Background(), id, 1))

	var before models.Entry
	require.NoError(t, db.Where("id = ?", id).Take(&before).Error)

	clk.Advance(24 * time.Hour)
	err = s.UpdateEntry(context.Background(), id, models.EntryFields{
		ServiceDate: "2025-01-05", Title: "After", Verse: "v2", Content: "c2",
	})
	require.NoError(t, err)

	var after models.Entry
	require.NoError(t, db.Where("id = ?", id).Take(&after).Error)

	assert.Equal(t, before.ID, after.ID)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	assert.Equal(t, int64(2), after.Views)
	assert.Equal(t, before.Views, after.Views)
	assert.Equal(t, before.AuthorEmail, after.AuthorEmail)

	assert.Equal(t, "After", after.Title)
	assert.Equal(t, "v2", after.Verse)
	assert.Equal(t, "c2", after.Content)
	assert.Equal(t, "2025-01-05", after.ServiceDate)
	require.NotNil(t, after.UpdatedAt)
	assert.True(t, after.UpdatedAt.Equal(clk.Now()))
	assert.Nil(t, before.UpdatedAt)
}

func TestUpdateEntry_NotFound(t *testing.T) {
	s, _, _ := setupStore(t)

	err := s.UpdateEntry(context.Background(), "missing", models.EntryFields{Title: "x"})

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteEntry(t *testing.T) {
	s, _, _ := setupStore(t)
	id := createTestEntry(t, s, "2025-01-02", "Gone")

	require.NoError(t, s.DeleteEntry(context.Background(), id))

	entry, err := s.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, entry)

	err = s.DeleteEntry(context.Background(), id)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIncrementViews(t *testing.T) {
	s, _, _ := setupStore(t)
	id := createTestEntry(t, s, "2025-01-02", "Counted")

	require.NoError(t, s.IncrementViews(context.Background(), id, 1))
	require.NoError(t, s.IncrementViews(context.Background(), id, 1))

	entry, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.Views)

	err = s.IncrementViews(context.Background(), "missing", 1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIncrementViews_Concurrent(t *testing.T) {
	s, _, _ := setupStore(t)
	id := createTestEntry(t, s, "2025-01-02", "Busy")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.IncrementViews(context.Background(), id, 1))
		}()
	}
	wg.Wait()

	entry, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(20), entry.Views)
}

package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"quiettime/clock"
	"quiettime/logging"
)

// ReadEvent records one engaged read: a reader stayed on an entry long
// enough for its view count to go up.
type ReadEvent struct {
	ID        uint      `gorm:"primary_key;autoIncrement"`
	EntryID   string    `gorm:"not null;index"`
	Event     string    `gorm:"not null;default:'engaged_read'"`
	CreatedAt time.Time `gorm:"index"`
}

// AnalyticsModule keeps the read log in its own database. A nil module
// is valid and records nothing.
type AnalyticsModule struct {
	db     *gorm.DB
	clock  clock.Clock
	logger logging.Logger
}

func NewAnalyticsModule(db *gorm.DB, clk clock.Clock, logger logging.Logger) *AnalyticsModule {
	if db == nil {
		logger.Info(context.Background(), "analytics db is nil, analytics will be disabled")
		return nil
	}

	if err := db.AutoMigrate(&ReadEvent{}); err != nil {
		logger.Error(context.Background(), "migrating read_events failed", "err", err)
		return nil
	}

	return &AnalyticsModule{db: db, clock: clk, logger: logger.With("module", "analytics")}
}

// RecordRead stores an engaged read. Failures are logged only.
func (a *AnalyticsModule) RecordRead(ctx context.Context, entryID string) {
	if a == nil || a.db == nil {
		return
	}

	event := ReadEvent{
		EntryID:   entryID,
		Event:     "engaged_read",
		CreatedAt: a.clock.Now().UTC(),
	}
	if err := a.db.WithContext(ctx).Create(&event).Error; err != nil {
		a.logger.Error(ctx, "saving read event failed", "entry_id", entryID, "err", err)
	}
}

type DayReads struct {
	Date  string
	Count int64
}

type EntryReads struct {
	EntryID string
	Count   int64
}

// GetReadsByDay returns one row per day for the last n days (UTC),
// oldest first, with zero for days without reads.
func (a *AnalyticsModule) GetReadsByDay(days int) []DayReads {
	if a == nil || a.db == nil || days <= 0 {
		return []DayReads{}
	}

	now := a.clock.Now().UTC()
	startDate := now.AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	var results []struct {
		Date  string
		Count int64
	}

	a.db.Model(&ReadEvent{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", startDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results)

	dayReads := make([]DayReads, days)
	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, -(days - 1 - i))
		dayReads[i] = DayReads{Date: date.Format("2006-01-02")}
	}

	for _, result := range results {
		for i := range dayReads {
			if dayReads[i].Date == result.Date {
				dayReads[i].Count = result.Count
				break
			}
		}
	}

	return dayReads
}

// GetTopEntries returns the most read entries of the last n days.
func (a *AnalyticsModule) GetTopEntries(days int, limit int) []EntryReads {
	if a == nil || a.db == nil {
		return []EntryReads{}
	}

	startDate := a.clock.Now().UTC().AddDate(0, 0, -days)

	var results []EntryReads
	a.db.Model(&ReadEvent{}).
		Select("entry_id as entry_id, COUNT(*) as count").
		Where("created_at >= ?", startDate).
		Group("entry_id").
		Order("count DESC").
		Limit(limit).
		Scan(&results)

	return results
}

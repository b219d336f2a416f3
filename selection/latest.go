// Package selection picks the entry shown on the landing page: today's
// entry when there is one, otherwise the most recent past entry.
package selection

import (
	"context"
	"fmt"
	"time"

	"quiettime/models"
)

// Finder is the part of the store the selection needs.
type Finder interface {
	QueryByDateEquals(ctx context.Context, date string) (*models.Entry, error)
	QueryLatestByDateLessOrEqual(ctx context.Context, date string) (*models.Entry, error)
}

// Today formats now as a calendar date in the process's local zone.
// The landing page follows the server's calendar, not the reader's.
func Today(now time.Time) string {
	return now.In(time.Local).Format(models.DateLayout)
}

// Latest returns the entry for today, or the latest entry dated before
// today, or nil when neither exists. Entries dated in the future are
// never returned. When several entries share today's date the store
// decides which one comes back.
func Latest(ctx context.Context, finder Finder, now time.Time) (*models.Entry, error) {
	today := Today(now)

	entry, err := finder.QueryByDateEquals(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("select entry for %s: %w", today, err)
	}
	if entry != nil {
		return entry, nil
	}

	entry, err = finder.QueryLatestByDateLessOrEqual(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("select entry before %s: %w", today, err)
	}
	return entry, nil
}

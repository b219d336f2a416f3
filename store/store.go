// Package store is the gateway to the entry collection. Every operation
// is a single statement; nothing spans entries or field groups.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"quiettime/clock"
	"quiettime/models"
)

var ErrNotFound = errors.New("entry not found")

// datePattern matches well-formed serviceDate values. Rows that fail it
// are left out of the date queries and stay reachable by id only.
const datePattern = "[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]"

// Gateway is the set of entry operations the application relies on.
type Gateway interface {
	QueryByDateEquals(ctx context.Context, date string) (*models.Entry, error)
	QueryLatestByDateLessOrEqual(ctx context.Context, date string) (*models.Entry, error)
	ListAll(ctx context.Context) ([]models.Entry, error)
	GetByID(ctx context.Context, id string) (*models.Entry, error)
	CreateEntry(ctx context.Context, fields models.EntryFields, authorEmail *string) (string, error)
	UpdateEntry(ctx context.Context, id string, fields models.EntryFields) error
	DeleteEntry(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string, delta int64) error
}

type GormStore struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewGormStore(db *gorm.DB, clk clock.Clock) *GormStore {
	if clk == nil {
		clk = clock.Real()
	}
	return &GormStore{db: db, clock: clk}
}

// QueryByDateEquals returns one entry for the date, or nil. With several
// entries on the same date, whichever row the database yields first wins.
func (s *GormStore) QueryByDateEquals(ctx context.Context, date string) (*models.Entry, error) {
	var entry models.Entry
	err := s.db.WithContext(ctx).
		Where("serviceDate = ? AND serviceDate GLOB ?", date, datePattern).
		Take(&entry).Error
	return found(&entry, err, "query by date")
}

func (s *GormStore) QueryLatestByDateLessOrEqual(ctx context.Context, date string) (*models.Entry, error) {
	var entry models.Entry
	err := s.db.WithContext(ctx).
		Where("serviceDate <= ? AND serviceDate GLOB ?", date, datePattern).
		Order("serviceDate DESC").
		Take(&entry).Error
	return found(&entry, err, "query latest by date")
}

// ListAll returns every entry, newest service date first. Entries with
// no service date come last, newest creation first.
func (s *GormStore) ListAll(ctx context.Context) ([]models.Entry, error) {
	var entries []models.Entry
	err := s.db.WithContext(ctx).
		Order("CASE WHEN serviceDate IS NULL OR serviceDate = '' THEN 1 ELSE 0 END").
		Order("serviceDate DESC").
		Order("createdAt DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *GormStore) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	var entry models.Entry
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&entry).Error
	return found(&entry, err, "get entry")
}

// CreateEntry stores a new entry with zero views and returns its id.
func (s *GormStore) CreateEntry(ctx context.Context, fields models.EntryFields, authorEmail *string) (string, error) {
	entry := models.Entry{
		ServiceDate: fields.ServiceDate,
		Title:       fields.Title,
		Verse:       fields.Verse,
		Content:     fields.Content,
		CreatedAt:   s.clock.Now(),
		Views:       0,
		AuthorEmail: authorEmail,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return "", fmt.Errorf("create entry: %w", err)
	}
	return entry.ID, nil
}

// UpdateEntry rewrites the editable fields and stamps updatedAt. It
// never touches createdAt, views or authorEmail.
func (s *GormStore) UpdateEntry(ctx context.Context, id string, fields models.EntryFields) error {
	result := s.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"serviceDate": fields.ServiceDate,
			"title":       fields.Title,
			"verse":       fields.Verse,
			"content":     fields.Content,
			"updatedAt":   s.clock.Now(),
		})
	return affected(result, "update entry")
}

func (s *GormStore) DeleteEntry(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Entry{})
	return affected(result, "delete entry")
}

// IncrementViews adds delta in one UPDATE so concurrent readers never
// overwrite each other.
func (s *GormStore) IncrementViews(ctx context.Context, id string, delta int64) error {
	result := s.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", delta))
	return affected(result, "increment views")
}

func found(entry *models.Entry, err error, op string) (*models.Entry, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entry, nil
}

func affected(result *gorm.DB, op string) error {
	if result.Error != nil {
		return fmt.Errorf("%s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

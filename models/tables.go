package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultFontSize is the body font size used when an entry carries none.
const DefaultFontSize = 22

// DateLayout is the serviceDate format: a calendar date with no zone.
const DateLayout = "2006-01-02"

var ErrInvalidEntry = errors.New("invalid entry")

// Entry is one devotional. Column and JSON names are the stored field
// names and must not change.
type Entry struct {
	ID          string     `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	ServiceDate string     `gorm:"column:serviceDate;index" json:"serviceDate"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Verse       string     `gorm:"column:verse;not null" json:"verse"`
	Content     string     `gorm:"column:content;type:text;not null" json:"content"`
	FontSize    *float64   `gorm:"column:fontSize" json:"fontSize,omitempty"`
	CreatedAt   time.Time  `gorm:"column:createdAt;autoCreateTime:false" json:"createdAt"`
	UpdatedAt   *time.Time `gorm:"column:updatedAt;autoUpdateTime:false" json:"updatedAt,omitempty"`
	Views       int64      `gorm:"column:views;not null;default:0" json:"views"`
	AuthorEmail *string    `gorm:"column:authorEmail" json:"authorEmail"`
}

// TableName keeps the collection name the entries were first stored under.
func (Entry) TableName() string { return "qt" }

func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

func (e *Entry) BodyFontSize() float64 {
	if e.FontSize == nil {
		return DefaultFontSize
	}
	return *e.FontSize
}

// DisplayDate is the service date, or the creation day for entries
// stored without one.
func (e *Entry) DisplayDate() string {
	if e.ServiceDate != "" {
		return e.ServiceDate
	}
	if e.CreatedAt.IsZero() {
		return ""
	}
	return e.CreatedAt.Format(DateLayout)
}

// EntryFields is the author-editable part of an entry.
type EntryFields struct {
	ServiceDate string
	Title       string
	Verse       string
	Content     string
}

func (f EntryFields) Normalize() EntryFields {
	return EntryFields{
		ServiceDate: strings.TrimSpace(f.ServiceDate),
		Title:       strings.TrimSpace(f.Title),
		Verse:       strings.TrimSpace(f.Verse),
		Content:     strings.TrimSpace(f.Content),
	}
}

// Validate checks a normalized payload. isEmpty decides whether the
// editor content counts as blank.
func (f EntryFields) Validate(isEmpty func(string) bool) error {
	if _, err := time.Parse(DateLayout, f.ServiceDate); err != nil {
		return fmt.Errorf("%w: serviceDate %q", ErrInvalidEntry, f.ServiceDate)
	}
	if f.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEntry)
	}
	if f.Verse == "" {
		return fmt.Errorf("%w: verse is required", ErrInvalidEntry)
	}
	if isEmpty(f.Content) {
		return fmt.Errorf("%w: content is required", ErrInvalidEntry)
	}
	return nil
}

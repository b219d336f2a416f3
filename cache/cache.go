package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// PageCache stores rendered entry pages as files under dir.
type PageCache struct {
	dir    string
	maxAge time.Duration
}

func NewPageCache(dir string, maxAge time.Duration) *PageCache {
	return &PageCache{dir: dir, maxAge: maxAge}
}

// GetCachePath returns the cache file path for an entry page
func (p *PageCache) GetCachePath(entryID string) string {
	shortHash := generateHash(entryID)[:16]
	return filepath.Join(p.dir, fmt.Sprintf("%s_%s.html", safeName(entryID), shortHash))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// safeName keeps ids usable as file names.
func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, id)
}

// WriteCache writes HTML content to the entry's cache file
func (p *PageCache) WriteCache(entryID, html string) error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(p.GetCachePath(entryID), []byte(html), 0644)
}

// ReadCache reads the entry's cached page if it exists and is not expired
func (p *PageCache) ReadCache(entryID string) (string, bool) {
	cachePath := p.GetCachePath(entryID)

	info, err := os.Stat(cachePath)
	if err != nil {
		return "", false
	}

	if time.Since(info.ModTime()) > p.maxAge {
		return "", false
	}

	content, err := os.ReadFile(cachePath)
	if err != nil {
		return "", false
	}

	return string(content), true
}

// ClearCache removes the entry's cache file
func (p *PageCache) ClearCache(entryID string) error {
	err := os.Remove(p.GetCachePath(entryID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearAll removes every cached page
func (p *PageCache) ClearAll() error {
	return os.RemoveAll(p.dir)
}

// ClearOldCache removes cache files older than maxAge
func (p *PageCache) ClearOldCache() error {
	return filepath.Walk(p.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		if time.Since(info.ModTime()) > p.maxAge {
			os.Remove(path)
		}

		return nil
	})
}

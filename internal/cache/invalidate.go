package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ClearDir removes dir and recreates it empty.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeHTTPCacheByAge removes page entries saved more than maxAge ago, using
// the SavedAt stamp in each meta file. Unreadable metas are left alone.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	return walkFiles(dir, ".meta.json", func(path string, _ fs.DirEntry) bool {
		b, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		var e HTTPEntry
		if json.Unmarshal(b, &e) != nil || !e.SavedAt.Before(cutoff) {
			return false
		}
		_ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
		return os.Remove(path) == nil
	})
}

// PurgeLLMCacheByAge removes model responses not read or written within maxAge.
func PurgeLLMCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-maxAge)
	return walkFiles(dir, ".json", func(path string, d fs.DirEntry) bool {
		if strings.HasSuffix(path, ".meta.json") {
			return false
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return false
		}
		return os.Remove(path) == nil
	})
}

// walkFiles calls remove for each file with the suffix and counts removals.
// A missing dir counts as empty.
func walkFiles(dir, suffix string, remove func(string, fs.DirEntry) bool) (int, error) {
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		if remove(path, d) {
			removed++
		}
		return nil
	})
	return removed, err
}

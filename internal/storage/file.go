package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

// FileBackend stores each key as a human-readable JSON file under a base
// directory. A trailing day segment is laid out as YYYY/MM/DD.json, so
// entries:nicotine:2026-02-27 lives at <base>/entries/nicotine/2026/02/27.json.
type FileBackend struct {
	base string
}

func NewFileBackend(base string) (*FileBackend, error) {
	if err := os.MkdirAll(base, 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating directories: %w", err)
	}
	return &FileBackend{base: base}, nil
}

// Dir returns the base directory.
func (f *FileBackend) Dir() string { return f.base }

// keyPath returns the file path for key.
func (f *FileBackend) keyPath(key string) (string, error) {
	segs := strings.Split(key, ":")
	parts := []string{f.base}
	for i, s := range segs {
		if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
		if i == len(segs)-1 {
			if d, err := time.Parse(timecalc.DayLayout, s); err == nil {
				parts = append(parts, d.Format("2006"), d.Format("01"), d.Format("02"))
				continue
			}
		}
		parts = append(parts, s)
	}
	return filepath.Join(parts...) + ".json", nil
}

// pathKey is the inverse of keyPath for a path relative to base.
func pathKey(rel string) string {
	segs := strings.Split(filepath.ToSlash(strings.TrimSuffix(rel, ".json")), "/")
	if n := len(segs); n >= 3 {
		day := segs[n-3] + "-" + segs[n-2] + "-" + segs[n-1]
		if _, err := time.Parse(timecalc.DayLayout, day); err == nil {
			segs = append(segs[:n-3], day)
		}
	}
	return strings.Join(segs, ":")
}

// Get reads the file for key. A file that is not valid JSON is moved aside
// to <path>.corrupt and reported as an error.
func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	path, err := f.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	if !json.Valid(data) {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return nil, fmt.Errorf("%w: %s (backed up to %s)", ErrCorrupt, path, backupPath)
	}
	return data, nil
}

// Set atomically writes the file for key.
func (f *FileBackend) Set(_ context.Context, key string, value []byte) error {
	path, err := f.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, value, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	path, err := f.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage error removing %s: %w", path, err)
	}
	return nil
}

// ListKeys walks the base directory. Temp and .corrupt files are ignored.
func (f *FileBackend) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(f.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(f.base, path)
		if err != nil {
			return err
		}
		if key := pathKey(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage error listing %s: %w", f.base, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes the entries subtree, including moved-aside .corrupt files.
// Anything else under the base directory, such as a config file sharing
// the directory, is left alone.
func (f *FileBackend) Clear(_ context.Context) error {
	dir := filepath.Join(f.base, strings.TrimSuffix(EntriesPrefix, ":"))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("storage error clearing %s: %w", dir, err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }

// Package storage provides the durable key-value collaborator behind the
// entry store, with memory, file, SQLite and Postgres backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tiliavir/penguin-meds/internal/model"
	"github.com/Tiliavir/penguin-meds/internal/timecalc"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrInvalidKey  = errors.New("invalid key")
	ErrCorrupt     = errors.New("corrupt value")
)

// EntriesPrefix namespaces every day bucket.
const EntriesPrefix = "entries:"

// Backend is the persistent key-value contract. Implementations must be
// safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Clear(ctx context.Context) error
	Close() error
}

// EntryKey returns the bucket key for a category and day-key.
func EntryKey(c model.Category, day string) string {
	return EntriesPrefix + string(c) + ":" + day
}

// CategoryPrefix returns the key prefix shared by all of c's buckets.
func CategoryPrefix(c model.Category) string {
	return EntriesPrefix + string(c) + ":"
}

// ParseEntryKey splits an entries:<category>:<YYYY-MM-DD> key.
func ParseEntryKey(key string) (model.Category, string, error) {
	rest, ok := strings.CutPrefix(key, EntriesPrefix)
	if !ok {
		return "", "", fmt.Errorf("%w: %q lacks %q prefix", ErrInvalidKey, key, EntriesPrefix)
	}
	cat, day, ok := strings.Cut(rest, ":")
	if !ok || cat == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if _, err := time.Parse(timecalc.DayLayout, day); err != nil {
		return "", "", fmt.Errorf("%w: %q has no valid day: %v", ErrInvalidKey, key, err)
	}
	return model.Category(cat), day, nil
}

package storage

import (
	"context"
	"fmt"
)

// Backend kinds accepted by Open.
const (
	KindFile     = "file"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Kind        string
	Dir         string
	SQLitePath  string
	PostgresDSN string
}

// Open creates the backend named by o.Kind.
func Open(ctx context.Context, o Options) (Backend, error) {
	switch o.Kind {
	case KindFile, "":
		return NewFileBackend(o.Dir)
	case KindSQLite:
		return NewSQLiteBackend(o.SQLitePath)
	case KindPostgres:
		return NewPostgresBackend(ctx, o.PostgresDSN)
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", o.Kind)
	}
}

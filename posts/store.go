package posts

import (
	"context"
	"fmt"
	"strings"
)

// Store manages access to the table where we keep posts. Every method that targets a
// single id answers with a 404-style error from rpc/errors when that post does not exist.
type Store interface {
	// Create adds a post with the given fields and returns it with its new id and timestamps.
	Create(ctx context.Context, fields Fields) (Post, error)
	// Find fetches a post given its unique identifier.
	Find(ctx context.Context, id int64) (Post, error)
	// List returns every post ordered by id, oldest first. An empty table is not an error.
	List(ctx context.Context) ([]Post, error)
	// Update overwrites the title/body of an existing post and bumps its UpdatedAt.
	Update(ctx context.Context, id int64, fields Fields) (Post, error)
	// Delete removes the post with this id.
	Delete(ctx context.Context, id int64) error
	// Close releases any resources held by the store.
	Close() error
}

// Storage drivers understood by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open constructs the store for the given driver. The path is only used by drivers that
// persist to disk.
func Open(driver string, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("open store: unknown driver '%s'", driver)
	}
}

// Package store is a small embedded document store: named collections of flat
// records with equality queries. Every mutation rewrites the affected collection
// while holding that collection's lock.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

const (
	Templates = "email_templates"
	Accounts  = "email_accounts"
)

// Collections is the fixed set of collections every backend is opened with.
var Collections = []string{Templates, Accounts}

var (
	ErrValidation        = errors.New("validation error")
	ErrUnknownCollection = fmt.Errorf("%w: unknown collection", ErrValidation)
)

// Store is the capability shared by all backends.
type Store interface {
	// Find returns the records matching query in stored order. A limit above
	// zero keeps only the first limit matches. Unknown collections yield no records.
	Find(ctx context.Context, collection string, query Query, limit int) ([]Record, error)
	// Insert appends record to collection and returns it unchanged.
	Insert(ctx context.Context, collection string, record Record) (Record, error)
	// DeleteOne removes the first matching record and reports how many were removed.
	DeleteOne(ctx context.Context, collection string, query Query) (int, error)
	// UpdateOne merges patch into the first matching record and reports how many changed.
	UpdateOne(ctx context.Context, collection string, query Query, patch Record) (int, error)
	Close() error
}

type Options struct {
	Driver      string
	DataDir     string
	DBPath      string
	DatabaseURL string
}

// Open builds the backend named by opts.Driver over the default collections.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "json":
		return NewJSONStore(opts.DataDir, map[string]string{
			Templates: "templates.json",
			Accounts:  "accounts.json",
		}, logger)
	case "sqlite":
		path := opts.DBPath
		if strings.TrimSpace(path) == "" {
			path = filepath.Join(opts.DataDir, "speedy_statements.db")
		}
		return OpenSQLite(ctx, path, Collections, logger)
	case "postgres":
		return OpenPostgres(ctx, opts.DatabaseURL, Collections, logger)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", ErrValidation, opts.Driver)
	}
}

type collectionLocks map[string]*sync.RWMutex

func newCollectionLocks(names []string) collectionLocks {
	locks := make(collectionLocks, len(names))
	for _, name := range names {
		locks[name] = &sync.RWMutex{}
	}
	return locks
}

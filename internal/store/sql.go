package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore keeps each collection in its own table of JSON documents ordered
// by an explicit sequence number.
type SQLStore struct {
	db          *sql.DB
	collections map[string]struct{}
	locks       collectionLocks
	logger      *slog.Logger
}

type storedRow struct {
	seq    int64
	record Record
}

func OpenSQLite(ctx context.Context, path string, collections []string, logger *slog.Logger) (*SQLStore, error) {
	trimmed := strings.TrimSpace(path)
	inMemory := false
	if trimmed == "" {
		trimmed = ":memory:"
		inMemory = true
	}
	if strings.Contains(trimmed, "mode=memory") || trimmed == ":memory:" || trimmed == "file::memory:" {
		inMemory = true
	}
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if !inMemory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	return newSQLStore(ctx, db, collections, logger)
}

func OpenPostgres(ctx context.Context, dsn string, collections []string, logger *slog.Logger) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres driver needs a database url", ErrValidation)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLStore(ctx, db, collections, logger)
}

func newSQLStore(ctx context.Context, db *sql.DB, collections []string, logger *slog.Logger) (*SQLStore, error) {
	s := &SQLStore{
		db:          db,
		collections: make(map[string]struct{}, len(collections)),
		locks:       newCollectionLocks(collections),
		logger:      logger,
	}
	for _, name := range collections {
		s.collections[name] = struct{}{}
	}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates one table per configured collection.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for name := range s.collections {
		statement := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            seq BIGINT PRIMARY KEY,
            doc TEXT NOT NULL
        );`, name)
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) known(collection string) bool {
	_, ok := s.collections[collection]
	return ok
}

func (s *SQLStore) Find(ctx context.Context, collection string, query Query, limit int) ([]Record, error) {
	if !s.known(collection) {
		return []Record{}, nil
	}
	q, err := query.normalized()
	if err != nil {
		return nil, err
	}

	lock := s.locks[collection]
	lock.RLock()
	defer lock.RUnlock()

	rows, err := s.load(ctx, s.db, collection)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		s.logger.Warn("read collection", "collection", collection, "error", err)
		return []Record{}, nil
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record)
	}
	return filter(records, q, limit), nil
}

func (s *SQLStore) Insert(ctx context.Context, collection string, record Record) (Record, error) {
	if !s.known(collection) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	lock := s.locks[collection]
	lock.Lock()
	defer lock.Unlock()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var last int64
		row := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT COALESCE(MAX(seq), 0) FROM %s;`, collection))
		if err := row.Scan(&last); err != nil {
			return fmt.Errorf("next seq: %w", err)
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (seq, doc) VALUES ($1, $2);`, collection), last+1, string(doc))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", collection, err)
	}
	return record, nil
}

func (s *SQLStore) DeleteOne(ctx context.Context, collection string, query Query) (int, error) {
	if !s.known(collection) {
		return 0, nil
	}
	q, err := query.normalized()
	if err != nil {
		return 0, err
	}

	lock := s.locks[collection]
	lock.Lock()
	defer lock.Unlock()

	deleted := 0
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		row, ok, err := s.firstMatch(ctx, tx, collection, q)
		if err != nil || !ok {
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE seq = $1;`, collection), row.seq); err != nil {
			return err
		}
		deleted = 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, err)
	}
	return deleted, nil
}

func (s *SQLStore) UpdateOne(ctx context.Context, collection string, query Query, patch Record) (int, error) {
	if !s.known(collection) {
		return 0, nil
	}
	q, err := query.normalized()
	if err != nil {
		return 0, err
	}
	fields, err := patchFields(patch)
	if err != nil {
		return 0, err
	}

	lock := s.locks[collection]
	lock.Lock()
	defer lock.Unlock()

	updated := 0
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		row, ok, err := s.firstMatch(ctx, tx, collection, q)
		if err != nil || !ok {
			return err
		}
		applyPatch(row.record, fields)
		doc, err := json.Marshal(row.record)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET doc = $1 WHERE seq = $2;`, collection), string(doc), row.seq); err != nil {
			return err
		}
		updated = 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, err)
	}
	return updated, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLStore) firstMatch(ctx context.Context, q queryer, collection string, query Query) (storedRow, bool, error) {
	rows, err := s.load(ctx, q, collection)
	if err != nil {
		return storedRow{}, false, err
	}
	for _, row := range rows {
		if query.matches(row.record) {
			return row, true, nil
		}
	}
	return storedRow{}, false, nil
}

// load reads a collection in sequence order. Undecodable documents are
// skipped so one bad row cannot hide the rest.
func (s *SQLStore) load(ctx context.Context, q queryer, collection string) ([]storedRow, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT seq, doc FROM %s ORDER BY seq;`, collection))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	defer rows.Close()

	var result []storedRow
	for rows.Next() {
		var seq int64
		var doc string
		if err := rows.Scan(&seq, &doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		var record Record
		if err := json.Unmarshal([]byte(doc), &record); err != nil || record == nil {
			s.logger.Warn("skip undecodable record", "collection", collection, "seq", seq, "error", err)
			continue
		}
		result = append(result, storedRow{seq: seq, record: record})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	return result, nil
}

func (s *SQLStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.io/infrasutra/speedydraft/internal/fsutil"
)

// JSONStore keeps each collection as an indented JSON array in its own file.
type JSONStore struct {
	dir    string
	files  map[string]string
	locks  collectionLocks
	logger *slog.Logger
}

// NewJSONStore creates dir if needed and an empty file for every collection
// that has none yet. files maps collection names to file names inside dir.
func NewJSONStore(dir string, files map[string]string, logger *slog.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &JSONStore{
		dir:    dir,
		files:  make(map[string]string, len(files)),
		logger: logger,
	}
	names := make([]string, 0, len(files))
	for collection, name := range files {
		path := filepath.Join(dir, name)
		s.files[collection] = path
		names = append(names, collection)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := s.write(path, nil); err != nil {
				return nil, err
			}
		}
	}
	s.locks = newCollectionLocks(names)
	return s, nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) Find(ctx context.Context, collection string, query Query, limit int) ([]Record, error) {
	path, ok := s.files[collection]
	if !ok {
		return []Record{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := query.normalized()
	if err != nil {
		return nil, err
	}

	lock := s.locks[collection]
	lock.RLock()
	defer lock.RUnlock()

	return filter(s.read(path), q, limit), nil
}

func (s *JSONStore) Insert(ctx context.Context, collection string, record Record) (Record, error) {
	path, ok := s.files[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := s.locks[collection]
	lock.Lock()
	defer lock.Unlock()

	records := append(s.read(path), record)
	if err := s.write(path, records); err != nil {
		return nil, fmt.Errorf("insert %s: %w", collection, err)
	}
	return record, nil
}

func (s *JSONStore) DeleteOne(ctx context.Context, collection string, query Query) (int, error) {
	path, ok := s.files[collection]
	if !ok {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q, err := query.normalized()
	if err != nil {
		return 0, err
	}

	lock := s.locks[collection]
	lock.Lock()
	defer lock.Unlock()

	records := s.read(path)
	i := firstMatch(records, q)
	if i < 0 {
		return 0, nil
	}
	records = append(records[:i], records[i+1:]...)
	if err := s.write(path, records); err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, err)
	}
	return 1, nil
}

func (s *JSONStore) UpdateOne(ctx context.Context, collection string, query Query, patch Record) (int, error) {
	path, ok := s.files[collection]
	if !ok {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
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

	records := s.read(path)
	i := firstMatch(records, q)
	if i < 0 {
		return 0, nil
	}
	applyPatch(records[i], fields)
	if err := s.write(path, records); err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, err)
	}
	return 1, nil
}

// read treats a missing or malformed file as an empty collection; the next
// write replaces it.
func (s *JSONStore) read(path string) []Record {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("read collection", "path", path, "error", err)
		}
		return []Record{}
	}
	var decoded []Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		s.logger.Warn("decode collection", "path", path, "error", err)
		return []Record{}
	}
	records := make([]Record, 0, len(decoded))
	for i, record := range decoded {
		if record == nil {
			s.logger.Warn("skip undecodable record", "path", path, "index", i)
			continue
		}
		records = append(records, record)
	}
	return records
}

func (s *JSONStore) write(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	return nil
}

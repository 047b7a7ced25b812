package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{name: "json", open: func(t *testing.T) Store {
			s, err := Open(context.Background(), Options{Driver: "json", DataDir: t.TempDir()}, discardLogger())
			require.NoError(t, err)
			return s
		}},
		{name: "sqlite", open: func(t *testing.T) Store {
			s, err := Open(context.Background(), Options{Driver: "sqlite", DataDir: t.TempDir()}, discardLogger())
			require.NoError(t, err)
			return s
		}},
	}
}

func eachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			t.Cleanup(func() { s.Close() })
			fn(t, s)
		})
	}
}

func ids(records []Record) []any {
	out := make([]any, 0, len(records))
	for _, r := range records {
		out = append(out, r[IDField])
	}
	return out
}

func TestFindReturnsInsertionOrder(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 1; i <= 3; i++ {
			_, err := s.Insert(ctx, Templates, Record{IDField: fmt.Sprintf("t%d", i), "name": "n"})
			require.NoError(t, err)
		}

		all, err := s.Find(ctx, Templates, Query{}, 0)
		require.NoError(t, err)
		assert.Equal(t, []any{"t1", "t2", "t3"}, ids(all))

		limited, err := s.Find(ctx, Templates, nil, 2)
		require.NoError(t, err)
		assert.Equal(t, []any{"t1", "t2"}, ids(limited))
	})
}

func TestFindMatchesEveryQueryField(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Insert(ctx, Accounts, Record{IDField: "a", "email": "a@x.com", "rank": 1})
		require.NoError(t, err)
		_, err = s.Insert(ctx, Accounts, Record{IDField: "b", "email": "b@x.com", "rank": 1})
		require.NoError(t, err)

		got, err := s.Find(ctx, Accounts, Query{"rank": 1, "email": "b@x.com"}, 0)
		require.NoError(t, err)
		assert.Equal(t, []any{"b"}, ids(got))

		got, err = s.Find(ctx, Accounts, Query{"missing": "value"}, 0)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestUnknownCollection(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		got, err := s.Find(ctx, "nope", Query{}, 0)
		require.NoError(t, err)
		assert.Empty(t, got)

		_, err = s.Insert(ctx, "nope", Record{IDField: "x"})
		assert.ErrorIs(t, err, ErrUnknownCollection)
		assert.ErrorIs(t, err, ErrValidation)

		n, err := s.DeleteOne(ctx, "nope", Query{IDField: "x"})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = s.UpdateOne(ctx, "nope", Query{IDField: "x"}, Record{"a": 1})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestDeleteOneRemovesFirstMatchOnly(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, id := range []string{"a", "b", "c"} {
			_, err := s.Insert(ctx, Templates, Record{IDField: id, "kind": "same"})
			require.NoError(t, err)
		}

		n, err := s.DeleteOne(ctx, Templates, Query{"kind": "same"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = s.DeleteOne(ctx, Templates, Query{IDField: "missing"})
		require.NoError(t, err)
		assert.Zero(t, n)

		rest, err := s.Find(ctx, Templates, Query{}, 0)
		require.NoError(t, err)
		assert.Equal(t, []any{"b", "c"}, ids(rest))
	})
}

func TestUpdateOne(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Insert(ctx, Templates, Record{IDField: "a", "name": "old", "subject": "s"})
		require.NoError(t, err)

		n, err := s.UpdateOne(ctx, Templates, Query{IDField: "a"}, Record{"$set": map[string]any{"name": "new"}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = s.UpdateOne(ctx, Templates, Query{IDField: "a"}, Record{"subject": "plain", IDField: "changed"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = s.UpdateOne(ctx, Templates, Query{IDField: "zzz"}, Record{"name": "x"})
		require.NoError(t, err)
		assert.Zero(t, n)

		got, err := s.Find(ctx, Templates, Query{}, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0][IDField])
		assert.Equal(t, "new", got[0]["name"])
		assert.Equal(t, "plain", got[0]["subject"])
	})
}

func TestConcurrentInsertsAreAllKept(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const writers = 20

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Insert(ctx, Accounts, Record{IDField: fmt.Sprintf("acc-%d", i)})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := s.Find(ctx, Accounts, Query{}, 0)
		require.NoError(t, err)
		assert.Len(t, got, writers)
	})
}

func TestJSONStoreRecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, map[string]string{Templates: "templates.json"}, discardLogger())
	require.NoError(t, err)

	path := filepath.Join(dir, "templates.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	got, err := s.Find(context.Background(), Templates, Query{}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.Insert(context.Background(), Templates, Record{IDField: "fresh"})
	require.NoError(t, err)

	got, err = s.Find(context.Background(), Templates, Query{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"fresh"}, ids(got))
}

func TestJSONStoreSkipsNullRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, map[string]string{Templates: "templates.json"}, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()
	path := filepath.Join(dir, "templates.json")

	require.NoError(t, os.WriteFile(path, []byte(`[null]`), 0o644))
	assert.NotPanics(t, func() {
		n, err := s.UpdateOne(ctx, Templates, Query{}, Record{"name": "x"})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
	got, err := s.Find(ctx, Templates, Query{}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, os.WriteFile(path, []byte(`[null, {"id": "a", "name": "n"}]`), 0o644))
	got, err = s.Find(ctx, Templates, Query{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, ids(got))

	var n int
	assert.NotPanics(t, func() {
		n, err = s.UpdateOne(ctx, Templates, Query{}, Record{"name": "x"})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = s.Find(ctx, Templates, Query{IDField: "a"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0]["name"])
}

func TestJSONStoreWriteFailureReturnsError(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	dir := t.TempDir()
	s, err := NewJSONStore(dir, map[string]string{Templates: "templates.json"}, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Insert(ctx, Templates, Record{IDField: "keep", "name": "n"})
	require.NoError(t, err)

	path := filepath.Join(dir, "templates.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	_, err = s.Insert(ctx, Templates, Record{IDField: "new"})
	assert.Error(t, err)

	n, err := s.DeleteOne(ctx, Templates, Query{IDField: "keep"})
	assert.Error(t, err)
	assert.Zero(t, n)

	n, err = s.UpdateOne(ctx, Templates, Query{IDField: "keep"}, Record{"name": "changed"})
	assert.Error(t, err)
	assert.Zero(t, n)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	got, err := s.Find(ctx, Templates, Query{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"keep"}, ids(got))
}

func TestJSONStoreCreatesEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(context.Background(), Options{DataDir: dir}, discardLogger())
	require.NoError(t, err)

	for _, name := range []string{"templates.json", "accounts.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(data))
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mongo", DataDir: t.TempDir()}, discardLogger())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Open(context.Background(), Options{Driver: "postgres"}, discardLogger())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProperty_FindPreservesInsertOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	parameters.MaxSize = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("find_returns_records_in_insert_order", prop.ForAll(
		func(names []string) bool {
			dir, err := os.MkdirTemp("", "store_prop_*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(dir)

			s, err := NewJSONStore(dir, map[string]string{Templates: "templates.json"}, discardLogger())
			if err != nil {
				return false
			}
			ctx := context.Background()
			for i, name := range names {
				if _, err := s.Insert(ctx, Templates, Record{IDField: fmt.Sprint(i), "name": name}); err != nil {
					return false
				}
			}
			got, err := s.Find(ctx, Templates, Query{}, 0)
			if err != nil || len(got) != len(names) {
				return false
			}
			for i, r := range got {
				if r[IDField] != fmt.Sprint(i) || r["name"] != names[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

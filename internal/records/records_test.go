package records

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.io/infrasutra/speedydraft/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(context.Background(), store.Options{DataDir: t.TempDir()}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, logger)
}

func TestCreateAndListTemplates(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 1, 9, 30, 0, 123456000, time.FixedZone("X", 3600))
	s.now = func() time.Time { return fixed }

	created, err := s.CreateTemplate(ctx, TemplateInput{Name: "Welcome", Subject: "Hi", Body: "<p>Hello</p>"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, fixed.UTC(), created.CreatedAt)

	list, err := s.ListTemplates(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "Welcome", list[0].Name)
	assert.Equal(t, "<p>Hello</p>", list[0].Body)
	assert.True(t, created.CreatedAt.Equal(list[0].CreatedAt))
}

func TestCreateAndListAccounts(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	a, err := s.CreateAccount(ctx, AccountInput{Email: "a@x.com", Name: "A"})
	require.NoError(t, err)
	b, err := s.CreateAccount(ctx, AccountInput{Email: "b@x.com", Name: "B"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	list, err := s.ListAccounts(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a@x.com", list[0].Email)
	assert.Equal(t, "b@x.com", list[1].Email)
}

func TestListPaging(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.CreateAccount(ctx, AccountInput{Email: fmt.Sprintf("u%d@x.com", i)})
		require.NoError(t, err)
	}

	page, err := s.ListAccounts(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "u2@x.com", page[0].Email)
	assert.Equal(t, "u3@x.com", page[1].Email)

	page, err = s.ListAccounts(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestDeleteMissingIDIsNotFound(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.CreateTemplate(ctx, TemplateInput{Name: "keep"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteTemplate(ctx, "does-not-exist"), ErrNotFound)
	assert.ErrorIs(t, s.DeleteAccount(ctx, "does-not-exist"), ErrNotFound)

	list, err := s.ListTemplates(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteTemplate(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	created, err := s.CreateTemplate(ctx, TemplateInput{Name: "gone"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTemplate(ctx, created.ID))
	list, err := s.ListTemplates(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConcurrentAccountCreation(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateAccount(ctx, AccountInput{Email: fmt.Sprintf("c%d@x.com", i), Name: "C"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := s.ListAccounts(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

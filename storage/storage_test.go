package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string
	Count int
}

func exerciseStorage(t *testing.T, s Storage[doc]) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "a/1", doc{Name: "one", Count: 1}))
	require.NoError(t, s.Set(ctx, "a/2", doc{Name: "two", Count: 2}))
	require.NoError(t, s.Set(ctx, "b/1", doc{Name: "other"}))
	require.NoError(t, s.Set(ctx, "a/1", doc{Name: "uno", Count: 1}))

	got, err := s.Get(ctx, "a/1")
	require.NoError(t, err)
	assert.Equal(t, doc{Name: "uno", Count: 1}, got)

	keys, err := s.KeySet(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2"}, keys)

	all, err := s.KeySet(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	removed, err := s.Remove(ctx, "a/2")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Remove(ctx, "a/2")
	require.NoError(t, err)
	assert.False(t, removed)

	updated, err := s.Update(ctx, "counter", func(current doc, exists bool) (doc, error) {
		assert.False(t, exists)
		return doc{Name: "counter", Count: current.Count + 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Count)

	refused := errors.New("refused")
	unchanged, err := s.Update(ctx, "counter", func(doc, bool) (doc, error) {
		return doc{}, refused
	})
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, doc{Name: "counter", Count: 1}, unchanged)
	got, err = s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count, "a failed update leaves the value alone")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "counter", func(current doc, _ bool) (doc, error) {
				current.Count++
				return current, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err = s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, 21, got.Count)

	errExists := errors.New("exists")
	var created sync.Map
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Update(ctx, "once", func(current doc, exists bool) (doc, error) {
				if exists {
					return current, errExists
				}
				return doc{Name: fmt.Sprint(i)}, nil
			})
			if err == nil {
				created.Store(i, true)
			} else {
				assert.ErrorIs(t, err, errExists)
			}
		}(i)
	}
	wg.Wait()

	winners := 0
	created.Range(func(any, any) bool {
		winners++
		return true
	})
	assert.Equal(t, 1, winners, "only one creator sees the key absent")
}

func TestInMemory(t *testing.T) {
	exerciseStorage(t, NewInMemory[doc]())
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	table := fmt.Sprintf("storage_test_%s", uuid.NewString()[:8])
	s, err := NewPostgres[doc](ctx, pool, table)
	require.NoError(t, err)
	defer pool.Exec(ctx, "DROP TABLE "+s.table)

	exerciseStorage(t, s)
}

// Package docstoretest holds the behaviour every docstore.Store backend must
// share. Backend test files call Run with a constructor for a fresh store.
package docstoretest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"doccrm/backend/internal/infrastructure/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a docstore.Store implementation.
func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "users", "nobody@example.com")
		require.ErrorIs(t, err, docstore.ErrNotFound)

		ok, err := s.Exists(context.Background(), "users", "nobody@example.com")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetThenGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "users", "a@b.com", []byte(`{"name":"A"}`)))

		got, err := s.Get(ctx, "users", "a@b.com")
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"A"}`, string(got))

		ok, err := s.Exists(ctx, "users", "a@b.com")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "blacklist", "tok", []byte(`{"n":1}`)))
		require.NoError(t, s.Set(ctx, "blacklist", "tok", []byte(`{"n":2}`)))

		got, err := s.Get(ctx, "blacklist", "tok")
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":2}`, string(got))
	})

	t.Run("CreateRefusesExisting", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Create(ctx, "users", "a@b.com", []byte(`{"name":"first"}`)))

		err := s.Create(ctx, "users", "a@b.com", []byte(`{"name":"second"}`))
		require.ErrorIs(t, err, docstore.ErrAlreadyExists)

		got, err := s.Get(ctx, "users", "a@b.com")
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"first"}`, string(got))
	})

	t.Run("KeysAreCaseSensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Create(ctx, "users", "A@b.com", []byte(`{"name":"upper"}`)))
		require.NoError(t, s.Create(ctx, "users", "a@b.com", []byte(`{"name":"lower"}`)))

		got, err := s.Get(ctx, "users", "A@b.com")
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"upper"}`, string(got))
	})

	t.Run("CollectionsAreSeparate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "blacklist", "k", []byte(`{}`)))

		ok, err := s.Exists(ctx, "users", "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ConcurrentCreateHasOneWinner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const n = 8
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = s.Create(ctx, "users", "race@b.com", fmt.Appendf(nil, `{"i":%d}`, i))
			}()
		}
		wg.Wait()

		var wins int
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, docstore.ErrAlreadyExists)
		}
		assert.Equal(t, 1, wins)
	})
}

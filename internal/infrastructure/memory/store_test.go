package memory

import (
	"context"
	"testing"

	"doccrm/backend/internal/infrastructure/docstore"
	"doccrm/backend/internal/infrastructure/docstore/docstoretest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Store {
		return NewStore()
	})
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "users", "a@b.com", []byte(`{"name":"A"}`)))

	got, err := s.Get(ctx, "users", "a@b.com")
	require.NoError(t, err)
	got[0] = 'X'

	again, err := s.Get(ctx, "users", "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"A"}`, string(again))
}

func TestStore_CancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "users", "a@b.com")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, "users", "a@b.com", []byte(`{}`)), context.Canceled)
}

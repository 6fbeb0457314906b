package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, KeyBudget)
	assert.ErrorIs(t, err, ErrNotFound)

	body := []byte(`{"monthlyLimit":5000}`)
	require.NoError(t, s.Put(ctx, KeyBudget, body))
	body[2] = 'X'

	got, err := s.Get(ctx, KeyBudget)
	require.NoError(t, err)
	assert.Equal(t, `{"monthlyLimit":5000}`, string(got), "store must not alias caller buffers")

	got[2] = 'Y'
	again, _ := s.Get(ctx, KeyBudget)
	assert.Equal(t, `{"monthlyLimit":5000}`, string(again))

	require.NoError(t, s.Delete(ctx, KeyBudget))
	_, err = s.Get(ctx, KeyBudget)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.Close())
}

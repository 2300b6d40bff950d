package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherHashAndCompare(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "Str0ng!pass")
	require.NoError(t, err)
	require.NotEqual(t, "Str0ng!pass", hash)

	ok, err := h.Compare(ctx, hash, "Str0ng!pass")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Compare(ctx, hash, "wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasherMalformedHash(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost, 1)
	ok, err := h.Compare(context.Background(), "not-a-hash", "pw")
	require.Error(t, err)
	require.False(t, ok)
}

func TestHasherHonorsCancelledContextWhenSaturated(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost, 1)
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "Str0ng!pass")
	require.ErrorIs(t, err, context.Canceled)
}

func TestHasherClampsCost(t *testing.T) {
	t.Parallel()

	require.Equal(t, bcrypt.DefaultCost, NewHasher(0, 1).cost)
	require.Equal(t, bcrypt.MinCost, NewHasher(1, 1).cost)
	require.Equal(t, bcrypt.MaxCost, NewHasher(99, 1).cost)
}

func TestCompareDummyDoesNotPanic(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost, 1)
	h.CompareDummy(context.Background(), "anything")
	require.NotEmpty(t, h.dummyHash)
}

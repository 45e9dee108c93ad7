package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lenslingua/internal/kv"
)

func newTestService(t *testing.T) (*Service, kv.Store) {
	t.Helper()
	store := kv.NewMemoryStore()
	return NewService(NewKVRepository(store), bcrypt.MinCost, 1), store
}

func TestServiceBasic(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "a@x.com", "p1"))
	require.NoError(t, svc.Register(ctx, "b@y.com", "p2"))
	assert.ErrorIs(t, svc.Register(ctx, "A@X.com", "other"), ErrDuplicateUser)

	assert.True(t, svc.Verify(ctx, "a@x.com", "p1"))
	assert.True(t, svc.Verify(ctx, "  A@X.COM ", "p1"))
	assert.False(t, svc.Verify(ctx, "a@x.com", "p2"))
	assert.False(t, svc.Verify(ctx, "c@z.com", "p1"))

	users := svc.List(ctx)
	require.Len(t, users, 2)
	assert.Equal(t, "a@x.com", users[0].Email)
	assert.Equal(t, "b@y.com", users[1].Email)
}

func TestRegister_StoresHashNotPassword(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "a@x.com", "secret"))

	raw, err := store.Get(ctx, "users")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.Contains(t, string(raw), `"passwordHash"`)
}

func TestRegister_InvalidInput(t *testing.T) {
	store := kv.NewMemoryStore()
	svc := NewService(NewKVRepository(store), bcrypt.MinCost, 4)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Register(ctx, "  ", "longpass"), ErrInvalidInput)
	assert.ErrorIs(t, svc.Register(ctx, "no-at-sign", "longpass"), ErrInvalidInput)
	assert.ErrorIs(t, svc.Register(ctx, "a@x.com", "abc"), ErrInvalidInput)
	assert.ErrorIs(t, svc.Register(ctx, "a@x.com", strings.Repeat("p", 80)), ErrInvalidInput)
	assert.Empty(t, svc.List(ctx))

	require.NoError(t, svc.Register(ctx, "a@x.com", strings.Repeat("p", 72)))
}

func TestKVRepository_MalformedReadsEmpty(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "users", []byte("{not json")))

	assert.Empty(t, svc.List(ctx))
	assert.False(t, svc.Verify(ctx, "a@x.com", "p1"))
	require.NoError(t, svc.Register(ctx, "a@x.com", "p1"))
	assert.True(t, svc.Verify(ctx, "a@x.com", "p1"))
}

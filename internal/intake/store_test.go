package intake

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)

	s := NewSession(1, time.Now())
	s.Draft.Title = "Lamp"
	s.State = StateAwaitingDescription
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingDescription, got.State)
	assert.Equal(t, "Lamp", got.Draft.Title)

	require.NoError(t, store.Delete(ctx, 1))
	_, err = store.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore(time.Minute))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, NewSession(1, now)))
	require.NoError(t, store.Save(ctx, NewSession(2, now.Add(50*time.Second))))

	now = now.Add(90 * time.Second)
	_, err := store.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Equal(t, 1, store.Sweep())
	_, err = store.Load(ctx, 2)
	assert.NoError(t, err)
}

func TestRedisStore_Contract(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	runStoreContract(t, NewRedisStore(client, WithPrefix("test:")))
}

func TestRedisStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, WithTTL(time.Minute), WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, NewSession(9, time.Now())))
	assert.True(t, mr.Exists("test:intake:9"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Load(ctx, 9)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := NewRedisLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "7", time.Minute)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "7", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	unlock, err = locker.Lock(ctx, "7", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

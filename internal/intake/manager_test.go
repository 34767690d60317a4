package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-bot/internal/domain"
)

type recordingSubmitter struct {
	mu     sync.Mutex
	drafts []domain.Draft
	err    error
}

func (s *recordingSubmitter) Submit(_ context.Context, ownerID int64, draft domain.Draft) (*domain.Listing, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = append(s.drafts, draft)
	listing := domain.NewListing(ownerID, draft)
	listing.ID = int64(len(s.drafts))
	return listing, nil
}

func (s *recordingSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

var fullFlow = []Input{
	Text("Chair"),
	Text("Oak"),
	Skip(),
	Text("other"),
	Text("40"),
	Text("25.5"),
}

func TestManager_CompletesAndSubmitsOnce(t *testing.T) {
	ctx := context.Background()
	sub := &recordingSubmitter{}
	m := NewManager(NewMemoryStore(time.Hour), sub)

	_, err := m.Start(ctx, 5)
	require.NoError(t, err)
	for _, in := range fullFlow {
		out, err := m.Handle(ctx, 5, in)
		require.NoError(t, err)
		require.NoError(t, out.Rejected)
	}

	out, err := m.Handle(ctx, 5, Text("1"))
	require.NoError(t, err)
	assert.Equal(t, StateComplete, out.State)
	require.NotNil(t, out.Listing)
	assert.Equal(t, 1, sub.count())

	_, err = m.Active(ctx, 5)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = m.Handle(ctx, 5, Text("1"))
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 1, sub.count())
}

func TestManager_RejectedInputReprompts(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Hour), &recordingSubmitter{})
	_, err := m.Start(ctx, 5)
	require.NoError(t, err)

	out, err := m.Handle(ctx, 5, Media("photo"))
	require.NoError(t, err)
	assert.Error(t, out.Rejected)
	assert.Equal(t, StateAwaitingTitle, out.State)

	session, err := m.Active(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingTitle, session.State)
}

func TestManager_RejectedInputKeepsSessionAlive(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	store := NewMemoryStore(10 * time.Minute)
	store.now = now
	m := NewManager(store, &recordingSubmitter{}, WithClock(now))

	_, err := m.Start(ctx, 5)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		clock = clock.Add(4 * time.Minute)
		out, err := m.Handle(ctx, 5, Media("photo"))
		require.NoError(t, err, "retry %d", i)
		assert.Error(t, out.Rejected)
		assert.Equal(t, StateAwaitingTitle, out.State)
	}

	out, err := m.Handle(ctx, 5, Text("Chair"))
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingDescription, out.State)

	clock = clock.Add(11 * time.Minute)
	_, err = m.Active(ctx, 5)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_RejectedInputRefreshesRedisTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()
	m := NewManager(NewRedisStore(client, WithTTL(10*time.Minute), WithPrefix("t:")), &recordingSubmitter{})

	_, err := m.Start(ctx, 5)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		mr.FastForward(4 * time.Minute)
		out, err := m.Handle(ctx, 5, Media("photo"))
		require.NoError(t, err)
		assert.Error(t, out.Rejected)
	}

	session, err := m.Active(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingTitle, session.State)
}

type failingDeleteStore struct {
	*MemoryStore
}

func (s failingDeleteStore) Delete(context.Context, int64) error {
	return errors.New("delete failed")
}

func TestManager_FailedCleanupDoesNotResubmit(t *testing.T) {
	ctx := context.Background()
	sub := &recordingSubmitter{}
	m := NewManager(failingDeleteStore{NewMemoryStore(time.Hour)}, sub)

	_, err := m.Start(ctx, 5)
	require.NoError(t, err)
	for _, in := range fullFlow {
		_, err := m.Handle(ctx, 5, in)
		require.NoError(t, err)
	}
	out, err := m.Handle(ctx, 5, Text("1"))
	require.NoError(t, err)
	require.NotNil(t, out.Listing)

	_, err = m.Handle(ctx, 5, Text("1"))
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = m.Active(ctx, 5)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 1, sub.count())

	_, err = m.Start(ctx, 5)
	require.NoError(t, err)
	session, err := m.Active(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingTitle, session.State)
}

func TestManager_StartOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Hour), &recordingSubmitter{})
	_, err := m.Start(ctx, 5)
	require.NoError(t, err)
	_, err = m.Handle(ctx, 5, Text("Old title"))
	require.NoError(t, err)

	_, err = m.Start(ctx, 5)
	require.NoError(t, err)
	session, err := m.Active(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingTitle, session.State)
	assert.Empty(t, session.Draft.Title)
}

func TestManager_Cancel(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Hour), &recordingSubmitter{})

	existed, err := m.Cancel(ctx, 5)
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = m.Start(ctx, 5)
	require.NoError(t, err)
	existed, err = m.Cancel(ctx, 5)
	require.NoError(t, err)
	assert.True(t, existed)
}

func TestManager_SubmitFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	sub := &recordingSubmitter{err: errors.New("db down")}
	m := NewManager(NewMemoryStore(time.Hour), sub)
	_, err := m.Start(ctx, 5)
	require.NoError(t, err)
	for _, in := range fullFlow {
		_, err := m.Handle(ctx, 5, in)
		require.NoError(t, err)
	}

	_, err = m.Handle(ctx, 5, Text("2"))
	assert.Error(t, err)

	session, err := m.Active(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingQuantity, session.State)

	sub.err = nil
	out, err := m.Handle(ctx, 5, Text("2"))
	require.NoError(t, err)
	assert.NotNil(t, out.Listing)
}

func TestManager_ConcurrentUsersIndependent(t *testing.T) {
	ctx := context.Background()
	sub := &recordingSubmitter{}
	m := NewManager(NewMemoryStore(time.Hour), sub)

	var wg sync.WaitGroup
	for user := int64(1); user <= 10; user++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := m.Start(ctx, user)
			assert.NoError(t, err)
			for _, in := range append(append([]Input{}, fullFlow...), Text("1")) {
				_, err := m.Handle(ctx, user, in)
				assert.NoError(t, err)
			}
		}(user)
	}
	wg.Wait()
	assert.Equal(t, 10, sub.count())
}

func TestManager_ConcurrentFinalInputSubmitsOnce(t *testing.T) {
	ctx := context.Background()
	sub := &recordingSubmitter{}
	m := NewManager(NewMemoryStore(time.Hour), sub)
	_, err := m.Start(ctx, 5)
	require.NoError(t, err)
	for _, in := range fullFlow {
		_, err := m.Handle(ctx, 5, in)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Handle(ctx, 5, Text("1"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, sub.count())
}

func TestManager_RedisBackedWithLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()
	sub := &recordingSubmitter{}

	m := NewManager(
		NewRedisStore(client, WithTTL(time.Hour), WithPrefix("t:")),
		sub,
		WithLocker(NewRedisLocker(client, "t:"), time.Second),
	)
	_, err := m.Start(ctx, 8)
	require.NoError(t, err)
	for _, in := range append(append([]Input{}, fullFlow...), Text("4")) {
		_, err := m.Handle(ctx, 8, in)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, sub.count())
	assert.False(t, mr.Exists("t:intake:8"))
	assert.False(t, mr.Exists("t:lock:8"))
}

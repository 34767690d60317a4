package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	"github.com/spec-kit/marketplace-bot/internal/persistence"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// setupPostgres migrates a clean schema on TEST_DATABASE_URL and skips when it is unset or unreachable.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("postgres unreachable: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
        DROP TABLE IF EXISTS moderation_log CASCADE;
        DROP TABLE IF EXISTS listings CASCADE;
        DROP TABLE IF EXISTS users CASCADE;
        DROP TABLE IF EXISTS schema_migrations CASCADE;`)
	require.NoError(t, err)
	require.NoError(t, persistence.RunMigrations(dsn, zap.NewNop()))
	return pool
}

func TestPostgres_ListingLifecycle(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	set := NewPostgresSet(pool)

	require.NoError(t, set.Users.Upsert(ctx, &domain.User{ID: 1, DisplayName: "seller"}))
	require.NoError(t, set.Users.Upsert(ctx, &domain.User{ID: 2, DisplayName: "mod"}))
	changed, err := set.Users.Promote(ctx, 2)
	require.NoError(t, err)
	assert.True(t, changed)

	first := newListing(1, domain.CategoryFood)
	second := newListing(1, domain.CategoryElectronics)
	require.NoError(t, set.Listings.Create(ctx, first))
	require.NoError(t, set.Listings.Create(ctx, second))
	assert.Greater(t, second.ID, first.ID)

	pending, err := set.Listings.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	at := time.Now().UTC().Truncate(time.Microsecond)
	approved, err := set.Listings.Transition(ctx, first.ID, domain.Transition{To: domain.ListingStatusApproved, ActorID: 2, At: at})
	require.NoError(t, err)
	assert.Equal(t, int64(2), *approved.ApproverID)

	_, err = set.Listings.Transition(ctx, first.ID, domain.Transition{To: domain.ListingStatusRejected, ActorID: 2, At: at})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	_, err = set.Listings.Transition(ctx, 9999, domain.Transition{To: domain.ListingStatusRejected, ActorID: 2, At: at})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	food := domain.CategoryFood
	catalog, err := set.Listings.ListApproved(ctx, &food)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, domain.Amount(19999), catalog[0].ShopPrice)

	stats, err := set.Listings.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalListings)
	assert.Equal(t, 1, stats.ApprovedByCategory[domain.CategoryFood])

	require.NoError(t, set.ModerationLog.Create(ctx, &domain.ModerationEntry{
		ListingID: first.ID, ActorID: 2, FromStatus: domain.ListingStatusPending, ToStatus: domain.ListingStatusApproved, CreatedAt: at,
	}))
	entries, err := set.ModerationLog.ListByListing(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPostgres_ConcurrentTransitionSingleWinner(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	set := NewPostgresSet(pool)

	require.NoError(t, set.Users.Upsert(ctx, &domain.User{ID: 1}))
	l := newListing(1, domain.CategoryOther)
	require.NoError(t, set.Listings.Create(ctx, l))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		to := domain.ListingStatusApproved
		if i%2 == 0 {
			to = domain.ListingStatusRejected
		}
		wg.Add(1)
		go func(to domain.ListingStatus) {
			defer wg.Done()
			if _, err := set.Listings.Transition(ctx, l.ID, domain.Transition{To: to, ActorID: 1, At: time.Now()}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(to)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

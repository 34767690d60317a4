package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	"github.com/spec-kit/marketplace-bot/internal/events"
	"github.com/spec-kit/marketplace-bot/internal/events/eventstest"
	"github.com/spec-kit/marketplace-bot/internal/repository"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

const (
	sellerID int64 = 100
	adminID  int64 = 1
	buyerID  int64 = 200
)

type fixture struct {
	svc      *ListingService
	repos    repository.Set
	recorder *eventstest.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	repos := repository.NewMemorySet()
	recorder := &eventstest.Recorder{}

	for _, id := range []int64{sellerID, adminID, buyerID} {
		require.NoError(t, repos.Users.Upsert(ctx, &domain.User{ID: id}))
	}
	_, err := repos.Users.Promote(ctx, adminID)
	require.NoError(t, err)

	svc := NewListingService(ListingDependencies{
		UserRepo:       repos.Users,
		ListingRepo:    repos.Listings,
		ModerationRepo: repos.ModerationLog,
		Dispatcher:     recorder,
	})
	return fixture{svc: svc, repos: repos, recorder: recorder}
}

func validDraft() domain.Draft {
	return domain.Draft{
		Title:       "Headphones",
		Description: "Wireless, boxed",
		Category:    domain.CategoryElectronics,
		ShopPrice:   4999,
		SellPrice:   3500,
		Quantity:    2,
	}
}

func TestSubmit_StoresPendingAndPublishes(t *testing.T) {
	f := newFixture(t)

	listing, err := f.svc.Submit(context.Background(), sellerID, validDraft())
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusPending, listing.Status)
	assert.NotZero(t, listing.ID)
	assert.Nil(t, listing.ApprovedAt)

	published := f.recorder.OfType(events.EventNewSubmission)
	require.Len(t, published, 1)
	assert.Equal(t, listing.ID, published[0].Listing.ID)
}

func TestSubmit_InvalidDraftStoresNothing(t *testing.T) {
	f := newFixture(t)
	draft := validDraft()
	draft.Quantity = 0

	_, err := f.svc.Submit(context.Background(), sellerID, draft)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidDraft))

	owned, err := f.svc.OwnedBy(context.Background(), sellerID)
	require.NoError(t, err)
	assert.Empty(t, owned)
	assert.Empty(t, f.recorder.Events())
}

func TestSubmit_UnknownOwner(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), 999, validDraft())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestApprove_RecordsApprover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing, err := f.svc.Submit(ctx, sellerID, validDraft())
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, listing.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusApproved, approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, adminID, *approved.ApproverID)
	require.NotNil(t, approved.ApprovedAt)

	require.Len(t, f.recorder.OfType(events.EventListingApproved), 1)

	history, err := f.svc.History(ctx, listing.ID, adminID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ListingStatusApproved, history[0].ToStatus)

	catalog, err := f.svc.Catalog(ctx, nil)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
}

func TestReject_LeavesNoApprover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing, err := f.svc.Submit(ctx, sellerID, validDraft())
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, listing.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusRejected, rejected.Status)
	assert.Nil(t, rejected.ApproverID)
	assert.Nil(t, rejected.ApprovedAt)
	require.Len(t, f.recorder.OfType(events.EventListingRejected), 1)

	catalog, err := f.svc.Catalog(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, catalog)
}

func TestModeration_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing, err := f.svc.Submit(ctx, sellerID, validDraft())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, listing.ID, sellerID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	_, err = f.svc.Reject(ctx, listing.ID, 555)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	_, err = f.svc.Pending(ctx, buyerID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	_, err = f.svc.Stats(ctx, buyerID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	_, _, err = f.svc.Details(ctx, listing.ID, buyerID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	got, err := f.repos.Listings.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusPending, got.Status)
	assert.Len(t, f.recorder.Events(), 1)
}

func TestModeration_TerminalStatesAreFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing, err := f.svc.Submit(ctx, sellerID, validDraft())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, listing.ID, adminID)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, listing.ID, adminID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	_, err = f.svc.Reject(ctx, listing.ID, adminID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	_, err = f.svc.Approve(ctx, 4040, adminID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.Len(t, f.recorder.OfType(events.EventListingApproved), 1)
	assert.Empty(t, f.recorder.OfType(events.EventListingRejected))
}

func TestModeration_ConcurrentDecisionsSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.repos.Users.Promote(ctx, buyerID)
	require.NoError(t, err)

	listing, err := f.svc.Submit(ctx, sellerID, validDraft())
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		wins     int32
		conflict int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = f.svc.Approve(ctx, listing.ID, adminID)
			} else {
				_, err = f.svc.Reject(ctx, listing.ID, buyerID)
			}
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, apperrors.ErrInvalidTransition):
				atomic.AddInt32(&conflict, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(19), conflict)
	decisions := len(f.recorder.OfType(events.EventListingApproved)) + len(f.recorder.OfType(events.EventListingRejected))
	assert.Equal(t, 1, decisions)
}

func TestPromoteAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PromoteAdmin(ctx, buyerID, sellerID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	changed, err := f.svc.PromoteAdmin(ctx, buyerID, adminID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.svc.PromoteAdmin(ctx, buyerID, adminID)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = f.svc.PromoteAdmin(ctx, 31337, adminID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	listing, err := f.svc.Submit(ctx, sellerID, validDraft())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, listing.ID, buyerID)
	assert.NoError(t, err)
}

func TestPending_OldestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		l, err := f.svc.Submit(ctx, sellerID, validDraft())
		require.NoError(t, err)
		ids = append(ids, l.ID)
	}
	_, err := f.svc.Reject(ctx, ids[1], adminID)
	require.NoError(t, err)

	pending, err := f.svc.Pending(ctx, adminID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[0], pending[0].ID)
	assert.Equal(t, ids[2], pending[1].ID)
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing, err := f.svc.Submit(ctx, sellerID, validDraft())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, listing.ID, sellerID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, listing.ID, adminID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, listing.ID, buyerID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.SellerContact(ctx, listing.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.Approve(ctx, listing.ID, adminID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, listing.ID, buyerID)
	assert.NoError(t, err)

	seller, err := f.svc.SellerContact(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, sellerID, seller.ID)
}

func TestCatalog_RejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)
	bogus := domain.Category("weapons")
	_, err := f.svc.Catalog(context.Background(), &bogus)
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Submit(ctx, sellerID, validDraft())
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, sellerID, validDraft())
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, l.ID, adminID)
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalAdmins)
	assert.Equal(t, 2, stats.TotalListings)
	assert.Equal(t, 1, stats.ByStatus[domain.ListingStatusPending])
	assert.Equal(t, 1, stats.ApprovedByCategory[domain.CategoryElectronics])
}

type failingDispatcher struct{}

func (failingDispatcher) Publish(context.Context, events.Event) error {
	return errors.New("bus down")
}

func (failingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func TestPublicationFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewMemorySet()
	require.NoError(t, repos.Users.Upsert(ctx, &domain.User{ID: sellerID}))

	svc := NewListingService(ListingDependencies{
		UserRepo:       repos.Users,
		ListingRepo:    repos.Listings,
		ModerationRepo: repos.ModerationLog,
		Dispatcher:     failingDispatcher{},
		Clock:          func() time.Time { return time.Unix(0, 0) },
	})

	listing, err := svc.Submit(ctx, sellerID, validDraft())
	require.NoError(t, err)
	assert.NotZero(t, listing.ID)
}

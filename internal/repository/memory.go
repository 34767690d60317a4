package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// Clock returns the current time. Tests substitute a fixed or stepping clock.
type Clock func() time.Time

// MemoryOption configures the in-memory repositories.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	now Clock
}

// WithClock overrides time.Now for timestamps assigned by the store.
func WithClock(now Clock) MemoryOption {
	return func(c *memoryConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func newMemoryConfig(opts []MemoryOption) memoryConfig {
	cfg := memoryConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type memoryUsers struct {
	mu    sync.RWMutex
	now   Clock
	users map[int64]domain.User
}

// NewMemoryUserRepository returns a process-local UserRepository.
func NewMemoryUserRepository(opts ...MemoryOption) UserRepository {
	cfg := newMemoryConfig(opts)
	return &memoryUsers{now: cfg.now, users: map[int64]domain.User{}}
}

func (r *memoryUsers) Upsert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		stored = domain.User{ID: user.ID, Role: domain.RoleUser, CreatedAt: r.now()}
	}
	stored.DisplayName = user.DisplayName
	stored.Handle = cloneString(user.Handle)
	r.users[user.ID] = stored

	user.Role = stored.Role
	user.CreatedAt = stored.CreatedAt
	return nil
}

func (r *memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	user.Handle = cloneString(user.Handle)
	return &user, nil
}

func (r *memoryUsers) Promote(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return false, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	if user.Role == domain.RoleAdmin {
		return false, nil
	}
	user.Role = domain.RoleAdmin
	r.users[id] = user
	return true, nil
}

func (r *memoryUsers) ListAdminIDs(context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64
	for id, user := range r.users {
		if user.Role == domain.RoleAdmin {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *memoryUsers) CountByRole(context.Context) (map[domain.Role]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[domain.Role]int{}
	for _, user := range r.users {
		counts[user.Role]++
	}
	return counts, nil
}

type memoryListings struct {
	mu       sync.Mutex
	now      Clock
	nextID   int64
	listings map[int64]domain.Listing
}

// NewMemoryListingRepository returns a process-local ListingRepository with monotonic IDs.
func NewMemoryListingRepository(opts ...MemoryOption) ListingRepository {
	cfg := newMemoryConfig(opts)
	return &memoryListings{now: cfg.now, listings: map[int64]domain.Listing{}}
}

func (r *memoryListings) Create(_ context.Context, listing *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	listing.ID = r.nextID
	listing.CreatedAt = r.now()
	r.listings[listing.ID] = cloneListing(*listing)
	return nil
}

func (r *memoryListings) GetByID(_ context.Context, id int64) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return nil, apperrors.NewNotFound("listing", map[string]any{"id": id})
	}
	out := cloneListing(listing)
	return &out, nil
}

func (r *memoryListings) Transition(_ context.Context, id int64, t domain.Transition) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.listings[id]
	if !ok {
		return nil, apperrors.NewNotFound("listing", map[string]any{"id": id})
	}
	if !listing.Status.CanTransition(t.To) {
		return nil, apperrors.NewInvalidTransition(string(listing.Status), string(t.To))
	}

	listing.Status = t.To
	if t.To == domain.ListingStatusApproved {
		at := t.At
		actor := t.ActorID
		listing.ApprovedAt = &at
		listing.ApproverID = &actor
	}
	r.listings[id] = listing

	out := cloneListing(listing)
	return &out, nil
}

func (r *memoryListings) ListPending(context.Context) ([]domain.Listing, error) {
	result := r.filter(func(l domain.Listing) bool { return l.Status == domain.ListingStatusPending })
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *memoryListings) ListApproved(_ context.Context, category *domain.Category) ([]domain.Listing, error) {
	result := r.filter(func(l domain.Listing) bool {
		if l.Status != domain.ListingStatusApproved {
			return false
		}
		return category == nil || l.Category == *category
	})
	sortNewestFirst(result)
	return result, nil
}

func (r *memoryListings) ListByOwner(_ context.Context, ownerID int64) ([]domain.Listing, error) {
	result := r.filter(func(l domain.Listing) bool { return l.OwnerID == ownerID })
	sortNewestFirst(result)
	return result, nil
}

func (r *memoryListings) Stats(context.Context) (*domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := newStats()
	for _, listing := range r.listings {
		stats.add(listing.Status, listing.Category, 1)
	}
	return stats.Stats, nil
}

func (r *memoryListings) filter(keep func(domain.Listing) bool) []domain.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Listing
	for _, listing := range r.listings {
		if keep(listing) {
			result = append(result, cloneListing(listing))
		}
	}
	return result
}

func sortNewestFirst(listings []domain.Listing) {
	sort.Slice(listings, func(i, j int) bool {
		if !listings[i].CreatedAt.Equal(listings[j].CreatedAt) {
			return listings[i].CreatedAt.After(listings[j].CreatedAt)
		}
		return listings[i].ID > listings[j].ID
	})
}

type memoryModerationLog struct {
	mu      sync.RWMutex
	nextID  int64
	entries []domain.ModerationEntry
}

// NewMemoryModerationLogRepository returns a process-local ModerationLogRepository.
func NewMemoryModerationLogRepository() ModerationLogRepository {
	return &memoryModerationLog{}
}

func (r *memoryModerationLog) Create(_ context.Context, entry *domain.ModerationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memoryModerationLog) ListByListing(_ context.Context, listingID int64) ([]domain.ModerationEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.ModerationEntry
	for _, entry := range r.entries {
		if entry.ListingID == listingID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func cloneListing(l domain.Listing) domain.Listing {
	l.PhotoRef = cloneString(l.PhotoRef)
	if l.ApprovedAt != nil {
		at := *l.ApprovedAt
		l.ApprovedAt = &at
	}
	if l.ApproverID != nil {
		id := *l.ApproverID
		l.ApproverID = &id
	}
	return l
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

package intake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	"github.com/spec-kit/marketplace-bot/internal/observability"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// Submitter commits a completed draft.
type Submitter interface {
	Submit(ctx context.Context, ownerID int64, draft domain.Draft) (*domain.Listing, error)
}

// Outcome reports what happened to one input.
type Outcome struct {
	// State is the session state after the input; StateComplete once the listing was submitted.
	State State
	// Rejected is the INVALID_DRAFT error when the input did not validate; the state is unchanged.
	Rejected error
	// Listing is set when the input completed the session.
	Listing *domain.Listing
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager runs intake sessions. Inputs for the same user are processed one at a time; inputs
// for different users proceed independently.
type Manager struct {
	store     Store
	submitter Submitter
	resolve   CategoryResolver
	locker    Locker
	lockTTL   time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time

	mu    sync.Mutex
	locks map[int64]*lockEntry
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking on top of the in-process per-user lock.
func WithLocker(locker Locker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithCategoryResolver replaces the key-only category matcher.
func WithCategoryResolver(resolve CategoryResolver) Option {
	return func(m *Manager) {
		if resolve != nil {
			m.resolve = resolve
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records rejected inputs.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithClock overrides time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager builds a Manager over store, handing completed drafts to submitter.
func NewManager(store Store, submitter Submitter, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		submitter: submitter,
		resolve:   ResolveCategoryKey,
		lockTTL:   10 * time.Second,
		logger:    zap.NewNop(),
		now:       time.Now,
		locks:     make(map[int64]*lockEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a new session for userID, discarding any session already in flight.
func (m *Manager) Start(ctx context.Context, userID int64) (*Session, error) {
	var session *Session
	err := m.withLock(ctx, userID, func(ctx context.Context) error {
		session = NewSession(userID, m.now())
		return m.store.Save(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Cancel drops the user's session. It reports whether one was active.
func (m *Manager) Cancel(ctx context.Context, userID int64) (bool, error) {
	var existed bool
	err := m.withLock(ctx, userID, func(ctx context.Context) error {
		_, err := m.load(ctx, userID)
		switch {
		case errors.Is(err, ErrNoSession):
			return nil
		case err != nil:
			return err
		}
		existed = true
		return m.store.Delete(ctx, userID)
	})
	return existed, err
}

// Active returns the user's session, or ErrNoSession.
func (m *Manager) Active(ctx context.Context, userID int64) (*Session, error) {
	return m.load(ctx, userID)
}

// Handle applies one input to the user's session. Invalid input is reported in Outcome.Rejected
// and does not advance the session. The final valid input submits the draft and ends the session;
// when the submission itself fails the session is kept so the last answer can be retried.
func (m *Manager) Handle(ctx context.Context, userID int64, in Input) (Outcome, error) {
	var out Outcome
	err := m.withLock(ctx, userID, func(ctx context.Context) error {
		session, err := m.load(ctx, userID)
		if err != nil {
			return err
		}

		before := session.State
		if err := session.Apply(in, m.resolve); err != nil {
			if errors.Is(err, apperrors.ErrInvalidDraft) {
				m.metrics.RecordIntakeRejected(string(before))
				out = Outcome{State: before, Rejected: err}
				session.UpdatedAt = m.now()
				return m.store.Save(ctx, session)
			}
			return err
		}
		session.UpdatedAt = m.now()

		if session.State != StateComplete {
			out = Outcome{State: session.State}
			return m.store.Save(ctx, session)
		}

		listing, err := m.submitter.Submit(ctx, userID, session.Draft)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidDraft) {
				out = Outcome{State: before, Rejected: err}
				return nil
			}
			return fmt.Errorf("submit draft: %w", err)
		}
		// A completed session left behind by a failed Delete loads as absent.
		if err := m.store.Save(ctx, session); err != nil {
			m.logger.Warn("intake session completion not recorded", zap.Int64("user_id", userID), zap.Error(err))
		}
		if err := m.store.Delete(ctx, userID); err != nil {
			m.logger.Warn("intake session cleanup failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		out = Outcome{State: StateComplete, Listing: listing}
		return nil
	})
	return out, err
}

func (m *Manager) load(ctx context.Context, userID int64) (*Session, error) {
	session, err := m.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.State == StateComplete {
		return nil, ErrNoSession
	}
	return session, nil
}

func (m *Manager) acquire(userID int64) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[userID]
	if !ok {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[userID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

func (m *Manager) withLock(ctx context.Context, userID int64, fn func(context.Context) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, strconv.FormatInt(userID, 10), m.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire intake lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release intake lock (will expire via TTL)",
					zap.Int64("user_id", userID), zap.Error(err))
			}
		}()
	}

	return fn(ctx)
}

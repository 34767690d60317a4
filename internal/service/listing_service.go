package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	"github.com/spec-kit/marketplace-bot/internal/events"
	"github.com/spec-kit/marketplace-bot/internal/observability"
	"github.com/spec-kit/marketplace-bot/internal/repository"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// ListingService owns the listing lifecycle: submission, moderation and the read paths over it.
// Every privileged operation re-reads the actor's role from the store.
type ListingService struct {
	users      repository.UserRepository
	listings   repository.ListingRepository
	moderation repository.ModerationLogRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// ListingDependencies bundles collaborators for the listing service.
type ListingDependencies struct {
	UserRepo       repository.UserRepository
	ListingRepo    repository.ListingRepository
	ModerationRepo repository.ModerationLogRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Clock          func() time.Time
}

// NewListingService constructs the service.
func NewListingService(deps ListingDependencies) *ListingService {
	s := &ListingService{
		users:      deps.UserRepo,
		listings:   deps.ListingRepo,
		moderation: deps.ModerationRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Submit validates the draft and stores it as a pending listing owned by ownerID.
// NewSubmission is published only after the write committed.
func (s *ListingService) Submit(ctx context.Context, ownerID int64, draft domain.Draft) (*domain.Listing, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}

	listing := domain.NewListing(ownerID, draft)
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	s.metrics.RecordSubmission()
	s.logger.Info("listing submitted",
		zap.Int64("listing_id", listing.ID),
		zap.Int64("owner_id", ownerID),
		zap.String("category", string(listing.Category)))
	s.publishEvent(ctx, events.NewSubmission(*listing, s.now()))
	return listing, nil
}

// Approve moves a pending listing to approved and records the approver.
func (s *ListingService) Approve(ctx context.Context, listingID, actorID int64) (*domain.Listing, error) {
	return s.decide(ctx, listingID, actorID, domain.ListingStatusApproved)
}

// Reject moves a pending listing to rejected. The listing row keeps no rejecter; the actor is
// recorded in the moderation log only.
func (s *ListingService) Reject(ctx context.Context, listingID, actorID int64) (*domain.Listing, error) {
	return s.decide(ctx, listingID, actorID, domain.ListingStatusRejected)
}

func (s *ListingService) decide(ctx context.Context, listingID, actorID int64, to domain.ListingStatus) (*domain.Listing, error) {
	decision := decisionName(to)

	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		s.metrics.RecordDecision(decision, errorCode(err))
		return nil, err
	}

	at := s.now()
	listing, err := s.listings.Transition(ctx, listingID, domain.Transition{To: to, ActorID: actorID, At: at})
	if err != nil {
		s.metrics.RecordDecision(decision, errorCode(err))
		return nil, err
	}
	s.metrics.RecordDecision(decision, "ok")

	entry := &domain.ModerationEntry{
		ListingID:  listing.ID,
		ActorID:    actorID,
		FromStatus: domain.ListingStatusPending,
		ToStatus:   to,
		CreatedAt:  at,
	}
	if err := s.moderation.Create(ctx, entry); err != nil {
		s.logger.Warn("moderation log write failed", zap.Int64("listing_id", listing.ID), zap.Error(err))
	}

	s.logger.Info("listing moderated",
		zap.Int64("listing_id", listing.ID),
		zap.Int64("actor_id", actorID),
		zap.String("status", string(to)))

	switch to {
	case domain.ListingStatusApproved:
		s.publishEvent(ctx, events.Approved(*listing, actorID, at))
	case domain.ListingStatusRejected:
		s.publishEvent(ctx, events.Rejected(*listing, actorID, at))
	}
	return listing, nil
}

// PromoteAdmin grants the admin role to targetID. changed is false when the target already was an admin.
func (s *ListingService) PromoteAdmin(ctx context.Context, targetID, actorID int64) (bool, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return false, err
	}
	changed, err := s.users.Promote(ctx, targetID)
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.Info("admin promoted", zap.Int64("user_id", targetID), zap.Int64("actor_id", actorID))
	}
	return changed, nil
}

// Get returns a listing visible to viewerID: approved listings are public, others are visible to
// their owner and to admins. Invisible listings are reported as not found.
func (s *ListingService) Get(ctx context.Context, listingID, viewerID int64) (*domain.Listing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == domain.ListingStatusApproved || listing.OwnerID == viewerID {
		return listing, nil
	}
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if !viewer.IsAdmin() {
		return nil, apperrors.NewNotFound("listing", map[string]any{"id": listingID})
	}
	return listing, nil
}

// Details returns any listing to an admin, with its owner.
func (s *ListingService) Details(ctx context.Context, listingID, actorID int64) (*domain.Listing, *domain.User, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, nil, err
	}
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}
	owner, err := s.users.GetByID(ctx, listing.OwnerID)
	if err != nil {
		return nil, nil, err
	}
	return listing, owner, nil
}

// Pending returns the moderation queue, oldest first.
func (s *ListingService) Pending(ctx context.Context, actorID int64) ([]domain.Listing, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.listings.ListPending(ctx)
}

// Catalog returns approved listings, newest first, optionally restricted to one category.
func (s *ListingService) Catalog(ctx context.Context, category *domain.Category) ([]domain.Listing, error) {
	if category != nil && !category.Valid() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": string(*category)})
	}
	return s.listings.ListApproved(ctx, category)
}

// OwnedBy returns every listing of ownerID regardless of status, newest first.
func (s *ListingService) OwnedBy(ctx context.Context, ownerID int64) ([]domain.Listing, error) {
	return s.listings.ListByOwner(ctx, ownerID)
}

// History returns the moderation log of a listing to an admin.
func (s *ListingService) History(ctx context.Context, listingID, actorID int64) ([]domain.ModerationEntry, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if _, err := s.listings.GetByID(ctx, listingID); err != nil {
		return nil, err
	}
	return s.moderation.ListByListing(ctx, listingID)
}

// Stats summarises users and listings for an admin.
func (s *ListingService) Stats(ctx context.Context, actorID int64) (*domain.Stats, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	stats, err := s.listings.Stats(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	for _, count := range roles {
		stats.TotalUsers += count
	}
	stats.TotalAdmins = roles[domain.RoleAdmin]
	return stats, nil
}

// SellerContact returns the seller of an approved listing so a buyer can reach them.
func (s *ListingService) SellerContact(ctx context.Context, listingID int64) (*domain.User, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != domain.ListingStatusApproved {
		return nil, apperrors.NewNotFound("listing", map[string]any{"id": listingID})
	}
	return s.users.GetByID(ctx, listing.OwnerID)
}

// IsAdmin reports the current role of userID. Unknown users are not admins.
func (s *ListingService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin(), nil
}

func (s *ListingService) requireAdmin(ctx context.Context, actorID int64) (*domain.User, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewForbidden("admin role required")
		}
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	return actor, nil
}

func (s *ListingService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publication failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("listing_id", event.Listing.ID),
			zap.Error(err))
	}
}

func decisionName(to domain.ListingStatus) string {
	if to == domain.ListingStatusApproved {
		return "approve"
	}
	return "reject"
}

func errorCode(err error) string {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return apperrors.CodeInternal
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// ListingRepository encapsulates listing persistence.
type ListingRepository interface {
	// Create stores a pending listing and assigns its ID and CreatedAt.
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
	// Transition moves a pending listing to t.To as a single test-and-set. A listing that is no
	// longer pending yields INVALID_TRANSITION; of two racing calls exactly one succeeds.
	Transition(ctx context.Context, id int64, t domain.Transition) (*domain.Listing, error)
	// ListPending returns the moderation queue, oldest first.
	ListPending(ctx context.Context) ([]domain.Listing, error)
	// ListApproved returns the public catalog, newest first, optionally filtered by category.
	ListApproved(ctx context.Context, category *domain.Category) ([]domain.Listing, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Listing, error)
	// Stats fills the listing counters; user counters are left zero.
	Stats(ctx context.Context) (*domain.Stats, error)
}

const listingColumns = `id, owner_id, title, description, photo_ref, category, shop_price, sell_price,
            quantity, status, created_at, approved_at, approver_id`

type rowScanner interface {
	Scan(dest ...any) error
}

type listingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository instantiates repository.
func NewListingRepository(pool *pgxpool.Pool) ListingRepository {
	return &listingRepository{pool: pool}
}

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	const query = `
        INSERT INTO listings (owner_id, title, description, photo_ref, category, shop_price, sell_price, quantity, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, query,
		listing.OwnerID,
		listing.Title,
		listing.Description,
		listing.PhotoRef,
		listing.Category,
		listing.ShopPrice,
		listing.SellPrice,
		listing.Quantity,
		listing.Status,
	).Scan(&listing.ID, &listing.CreatedAt); err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id=$1`
	listing, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("listing", map[string]any{"id": id})
		}
		return nil, fmt.Errorf("get listing %d: %w", id, err)
	}
	return listing, nil
}

func (r *listingRepository) Transition(ctx context.Context, id int64, t domain.Transition) (*domain.Listing, error) {
	if !domain.ListingStatusPending.CanTransition(t.To) {
		return nil, apperrors.NewInvalidTransition(string(domain.ListingStatusPending), string(t.To))
	}

	var (
		approvedAt any
		approverID any
	)
	if t.To == domain.ListingStatusApproved {
		approvedAt = t.At
		approverID = t.ActorID
	}

	query := `
        UPDATE listings SET status=$2, approved_at=$3, approver_id=$4
        WHERE id=$1 AND status='pending'
        RETURNING ` + listingColumns
	listing, err := scanListing(r.pool.QueryRow(ctx, query, id, t.To, approvedAt, approverID))
	if err == nil {
		return listing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transition listing %d: %w", id, err)
	}

	var current domain.ListingStatus
	if err := r.pool.QueryRow(ctx, `SELECT status FROM listings WHERE id=$1`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("listing", map[string]any{"id": id})
		}
		return nil, fmt.Errorf("read listing %d status: %w", id, err)
	}
	return nil, apperrors.NewInvalidTransition(string(current), string(t.To))
}

func (r *listingRepository) ListPending(ctx context.Context) ([]domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE status='pending' ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query)
}

func (r *listingRepository) ListApproved(ctx context.Context, category *domain.Category) ([]domain.Listing, error) {
	if category == nil {
		query := `SELECT ` + listingColumns + ` FROM listings WHERE status='approved' ORDER BY created_at DESC, id DESC`
		return r.list(ctx, query)
	}
	query := `SELECT ` + listingColumns + ` FROM listings WHERE status='approved' AND category=$1
        ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, *category)
}

func (r *listingRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE owner_id=$1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, ownerID)
}

func (r *listingRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	const query = `SELECT status, category, COUNT(*) FROM listings GROUP BY status, category`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing stats: %w", err)
	}
	defer rows.Close()

	stats := newStats()
	for rows.Next() {
		var (
			status   domain.ListingStatus
			category domain.Category
			count    int
		)
		if err := rows.Scan(&status, &category, &count); err != nil {
			return nil, err
		}
		stats.add(status, category, count)
	}
	return stats.Stats, rows.Err()
}

func (r *listingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Listing, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var result []domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *listing)
	}
	return result, rows.Err()
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var listing domain.Listing
	if err := row.Scan(
		&listing.ID,
		&listing.OwnerID,
		&listing.Title,
		&listing.Description,
		&listing.PhotoRef,
		&listing.Category,
		&listing.ShopPrice,
		&listing.SellPrice,
		&listing.Quantity,
		&listing.Status,
		&listing.CreatedAt,
		&listing.ApprovedAt,
		&listing.ApproverID,
	); err != nil {
		return nil, err
	}
	return &listing, nil
}

type statsBuilder struct {
	*domain.Stats
}

func newStats() statsBuilder {
	return statsBuilder{Stats: &domain.Stats{
		ByStatus:           map[domain.ListingStatus]int{},
		ApprovedByCategory: map[domain.Category]int{},
	}}
}

func (b statsBuilder) add(status domain.ListingStatus, category domain.Category, count int) {
	b.TotalListings += count
	b.ByStatus[status] += count
	if status == domain.ListingStatusApproved {
		b.ApprovedByCategory[category] += count
	}
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/marketplace-bot/internal/domain"
)

// ModerationLogRepository stores audit entries for moderation decisions.
type ModerationLogRepository interface {
	Create(ctx context.Context, entry *domain.ModerationEntry) error
	ListByListing(ctx context.Context, listingID int64) ([]domain.ModerationEntry, error)
}

type moderationLogRepository struct {
	pool *pgxpool.Pool
}

// NewModerationLogRepository builds repository.
func NewModerationLogRepository(pool *pgxpool.Pool) ModerationLogRepository {
	return &moderationLogRepository{pool: pool}
}

func (r *moderationLogRepository) Create(ctx context.Context, entry *domain.ModerationEntry) error {
	const query = `
        INSERT INTO moderation_log (listing_id, actor_id, from_status, to_status, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	if err := r.pool.QueryRow(ctx, query,
		entry.ListingID,
		entry.ActorID,
		entry.FromStatus,
		entry.ToStatus,
		entry.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return fmt.Errorf("insert moderation entry: %w", err)
	}
	return nil
}

func (r *moderationLogRepository) ListByListing(ctx context.Context, listingID int64) ([]domain.ModerationEntry, error) {
	const query = `
        SELECT id, listing_id, actor_id, from_status, to_status, created_at
        FROM moderation_log WHERE listing_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("list moderation entries: %w", err)
	}
	defer rows.Close()

	var result []domain.ModerationEntry
	for rows.Next() {
		var entry domain.ModerationEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ListingID,
			&entry.ActorID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

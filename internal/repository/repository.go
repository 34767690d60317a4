package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Set bundles the repositories the services depend on.
type Set struct {
	Users         UserRepository
	Listings      ListingRepository
	ModerationLog ModerationLogRepository
}

// NewPostgresSet builds Postgres-backed repositories sharing pool.
func NewPostgresSet(pool *pgxpool.Pool) Set {
	return Set{
		Users:         NewUserRepository(pool),
		Listings:      NewListingRepository(pool),
		ModerationLog: NewModerationLogRepository(pool),
	}
}

// NewMemorySet builds process-local repositories. Data does not survive a restart.
func NewMemorySet(opts ...MemoryOption) Set {
	return Set{
		Users:         NewMemoryUserRepository(opts...),
		Listings:      NewMemoryListingRepository(opts...),
		ModerationLog: NewMemoryModerationLogRepository(),
	}
}

package domain

import "time"

// ModerationEntry is an immutable audit trail entry for a moderation decision.
type ModerationEntry struct {
	ID         int64
	ListingID  int64
	ActorID    int64
	FromStatus ListingStatus
	ToStatus   ListingStatus
	CreatedAt  time.Time
}

// Stats summarises users and listings for the admin panel.
type Stats struct {
	TotalUsers         int
	TotalAdmins        int
	TotalListings      int
	ByStatus           map[ListingStatus]int
	ApprovedByCategory map[Category]int
}

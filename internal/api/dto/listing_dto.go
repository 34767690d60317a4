package dto

import (
	"time"

	"github.com/spec-kit/marketplace-bot/internal/domain"
)

// ListingResponse is the JSON view of a listing. Prices are in minor units.
type ListingResponse struct {
	ID          int64                `json:"id"`
	OwnerID     int64                `json:"owner_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	PhotoRef    *string              `json:"photo_ref"`
	Category    domain.Category      `json:"category"`
	ShopPrice   int64                `json:"shop_price"`
	SellPrice   int64                `json:"sell_price"`
	Quantity    int                  `json:"quantity"`
	Status      domain.ListingStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	ApprovedAt  *time.Time           `json:"approved_at"`
	ApproverID  *int64               `json:"approver_id"`
}

// ListingDetailResponse adds the owner to a listing.
type ListingDetailResponse struct {
	ListingResponse
	Owner *UserResponse `json:"owner,omitempty"`
}

// ModerationEntryResponse is one audit trail entry.
type ModerationEntryResponse struct {
	ID         int64                `json:"id"`
	ListingID  int64                `json:"listing_id"`
	ActorID    int64                `json:"actor_id"`
	FromStatus domain.ListingStatus `json:"from_status"`
	ToStatus   domain.ListingStatus `json:"to_status"`
	CreatedAt  time.Time            `json:"created_at"`
}

// StatsResponse summarises users and listings.
type StatsResponse struct {
	TotalUsers         int                          `json:"total_users"`
	TotalAdmins        int                          `json:"total_admins"`
	TotalListings      int                          `json:"total_listings"`
	ByStatus           map[domain.ListingStatus]int `json:"by_status"`
	ApprovedByCategory map[domain.Category]int      `json:"approved_by_category"`
}

// NewListingResponse maps a domain listing.
func NewListingResponse(l *domain.Listing) ListingResponse {
	return ListingResponse{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Title:       l.Title,
		Description: l.Description,
		PhotoRef:    l.PhotoRef,
		Category:    l.Category,
		ShopPrice:   int64(l.ShopPrice),
		SellPrice:   int64(l.SellPrice),
		Quantity:    l.Quantity,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		ApprovedAt:  l.ApprovedAt,
		ApproverID:  l.ApproverID,
	}
}

// NewListingList maps a slice of listings; the result is never nil.
func NewListingList(items []domain.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(items))
	for i := range items {
		out = append(out, NewListingResponse(&items[i]))
	}
	return out
}

// NewModerationHistory maps audit entries.
func NewModerationHistory(entries []domain.ModerationEntry) []ModerationEntryResponse {
	out := make([]ModerationEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ModerationEntryResponse{
			ID:         e.ID,
			ListingID:  e.ListingID,
			ActorID:    e.ActorID,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

// NewStatsResponse maps stats.
func NewStatsResponse(s *domain.Stats) StatsResponse {
	return StatsResponse{
		TotalUsers:         s.TotalUsers,
		TotalAdmins:        s.TotalAdmins,
		TotalListings:      s.TotalListings,
		ByStatus:           s.ByStatus,
		ApprovedByCategory: s.ApprovedByCategory,
	}
}

package domain

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

// ListingStatus enumerates lifecycle states for listings.
type ListingStatus string

const (
	ListingStatusPending  ListingStatus = "pending"
	ListingStatusApproved ListingStatus = "approved"
	ListingStatusRejected ListingStatus = "rejected"
)

// IsTerminal reports whether no further transition is possible from s.
func (s ListingStatus) IsTerminal() bool {
	return s == ListingStatusApproved || s == ListingStatusRejected
}

// CanTransition reports whether a listing may move from s to next.
// Both terminal states are reachable only from pending.
func (s ListingStatus) CanTransition(next ListingStatus) bool {
	return s == ListingStatusPending && next.IsTerminal()
}

// Category is a stable key from the fixed catalog enumeration.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFood        Category = "food"
	CategoryClothing    Category = "clothing"
	CategoryOther       Category = "other"
)

// Categories returns every category key in display order.
func Categories() []Category {
	return []Category{CategoryElectronics, CategoryFood, CategoryClothing, CategoryOther}
}

// Valid reports whether c is one of the enumerated keys.
func (c Category) Valid() bool {
	switch c {
	case CategoryElectronics, CategoryFood, CategoryClothing, CategoryOther:
		return true
	}
	return false
}

// Listing is an item offered for sale, subject to moderation.
type Listing struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	PhotoRef    *string
	Category    Category
	ShopPrice   Amount
	SellPrice   Amount
	Quantity    int
	Status      ListingStatus
	CreatedAt   time.Time
	ApprovedAt  *time.Time
	ApproverID  *int64
}

// Draft is the set of fields collected before a listing is committed.
type Draft struct {
	Title       string
	Description string
	PhotoRef    *string
	Category    Category
	ShopPrice   Amount
	SellPrice   Amount
	Quantity    int
}

// Validate checks every draft invariant and returns an INVALID_DRAFT error for the first violation.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return apperrors.NewInvalidDraft("title", "must not be empty")
	}
	if strings.TrimSpace(d.Description) == "" {
		return apperrors.NewInvalidDraft("description", "must not be empty")
	}
	if !d.Category.Valid() {
		return apperrors.NewInvalidDraft("category", "unknown category")
	}
	if d.ShopPrice <= 0 {
		return apperrors.NewInvalidDraft("shop_price", "must be greater than zero")
	}
	if d.SellPrice <= 0 {
		return apperrors.NewInvalidDraft("sell_price", "must be greater than zero")
	}
	if d.Quantity <= 0 {
		return apperrors.NewInvalidDraft("quantity", "must be greater than zero")
	}
	return nil
}

// NewListing builds a pending listing for owner from a validated draft.
func NewListing(ownerID int64, d Draft) *Listing {
	return &Listing{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		PhotoRef:    d.PhotoRef,
		Category:    d.Category,
		ShopPrice:   d.ShopPrice,
		SellPrice:   d.SellPrice,
		Quantity:    d.Quantity,
		Status:      ListingStatusPending,
	}
}

// Transition describes a moderation decision applied atomically to a pending listing.
type Transition struct {
	To      ListingStatus
	ActorID int64
	At      time.Time
}

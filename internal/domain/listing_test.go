package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

func validDraft() Draft {
	return Draft{
		Title:       "Phone",
		Description: "Barely used",
		Category:    CategoryElectronics,
		ShopPrice:   30000,
		SellPrice:   19999,
		Quantity:    1,
	}
}

func TestDraft_Validate(t *testing.T) {
	assert.NoError(t, validDraft().Validate())

	mutations := map[string]func(*Draft){
		"empty title":       func(d *Draft) { d.Title = "   " },
		"empty description": func(d *Draft) { d.Description = "" },
		"unknown category":  func(d *Draft) { d.Category = "toys" },
		"zero shop price":   func(d *Draft) { d.ShopPrice = 0 },
		"negative price":    func(d *Draft) { d.SellPrice = -1 },
		"zero quantity":     func(d *Draft) { d.Quantity = 0 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			d := validDraft()
			mutate(&d)
			assert.ErrorIs(t, d.Validate(), apperrors.ErrInvalidDraft)
		})
	}
}

func TestListingStatus_CanTransition(t *testing.T) {
	assert.True(t, ListingStatusPending.CanTransition(ListingStatusApproved))
	assert.True(t, ListingStatusPending.CanTransition(ListingStatusRejected))
	assert.False(t, ListingStatusPending.CanTransition(ListingStatusPending))
	assert.False(t, ListingStatusApproved.CanTransition(ListingStatusRejected))
	assert.False(t, ListingStatusRejected.CanTransition(ListingStatusApproved))
	assert.False(t, ListingStatusApproved.CanTransition(ListingStatusApproved))
}

func TestNewListing_TrimsAndStartsPending(t *testing.T) {
	d := validDraft()
	d.Title = "  Phone  "
	l := NewListing(7, d)

	assert.Equal(t, int64(7), l.OwnerID)
	assert.Equal(t, "Phone", l.Title)
	assert.Equal(t, ListingStatusPending, l.Status)
	assert.Nil(t, l.ApprovedAt)
	assert.Nil(t, l.ApproverID)
}

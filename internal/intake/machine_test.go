package intake

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	apperrors "github.com/spec-kit/marketplace-bot/pkg/util/errorutil"
)

func TestSession_HappyPath(t *testing.T) {
	s := NewSession(1, time.Now())

	steps := []struct {
		in   Input
		want State
	}{
		{Text("  Bike "), StateAwaitingDescription},
		{Text("Red, 21 gears"), StateAwaitingPhoto},
		{Media("file-123"), StateAwaitingCategory},
		{Text("other"), StateAwaitingShopPrice},
		{Text("120,50"), StateAwaitingMyPrice},
		{Text("99.9"), StateAwaitingQuantity},
		{Text("3"), StateComplete},
	}
	for _, step := range steps {
		require.NoError(t, s.Apply(step.in, nil))
		assert.Equal(t, step.want, s.State)
	}

	assert.Equal(t, "Bike", s.Draft.Title)
	require.NotNil(t, s.Draft.PhotoRef)
	assert.Equal(t, "file-123", *s.Draft.PhotoRef)
	assert.Equal(t, domain.CategoryOther, s.Draft.Category)
	assert.Equal(t, domain.Amount(12050), s.Draft.ShopPrice)
	assert.Equal(t, domain.Amount(9990), s.Draft.SellPrice)
	assert.Equal(t, 3, s.Draft.Quantity)
	assert.NoError(t, s.Draft.Validate())

	assert.ErrorIs(t, s.Apply(Text("more"), nil), ErrSessionComplete)
}

func TestSession_SkipPhoto(t *testing.T) {
	s := &Session{State: StateAwaitingPhoto}
	require.NoError(t, s.Apply(Skip(), nil))
	assert.Nil(t, s.Draft.PhotoRef)
	assert.Equal(t, StateAwaitingCategory, s.State)
}

func TestSession_InvalidInputKeepsState(t *testing.T) {
	cases := []struct {
		name  string
		state State
		in    Input
		field string
	}{
		{"empty title", StateAwaitingTitle, Text("   "), "title"},
		{"media as title", StateAwaitingTitle, Media("x"), "title"},
		{"text as photo", StateAwaitingPhoto, Text("no"), "photo"},
		{"unknown category", StateAwaitingCategory, Text("weapons"), "category"},
		{"negative price", StateAwaitingShopPrice, Text("-1"), "shop_price"},
		{"zero price", StateAwaitingMyPrice, Text("0"), "sell_price"},
		{"word price", StateAwaitingMyPrice, Text("cheap"), "sell_price"},
		{"fractional quantity", StateAwaitingQuantity, Text("1.5"), "quantity"},
		{"zero quantity", StateAwaitingQuantity, Text("0"), "quantity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Session{State: tc.state}
			err := s.Apply(tc.in, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidDraft))
			assert.Equal(t, tc.state, s.State)

			var domainErr *apperrors.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tc.field, domainErr.Details["field"])
		})
	}
}

func TestSession_CustomResolver(t *testing.T) {
	resolve := func(in string) (domain.Category, bool) {
		if in == "Food & Drinks" {
			return domain.CategoryFood, true
		}
		return "", false
	}
	s := &Session{State: StateAwaitingCategory}
	require.NoError(t, s.Apply(Text("Food & Drinks"), resolve))
	assert.Equal(t, domain.CategoryFood, s.Draft.Category)
}

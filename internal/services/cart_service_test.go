// internal/services/cart_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

func cartFixture(t *testing.T) (*gorm.DB, *CartService, *models.User) {
	t.Helper()

	db := newTestDB(t)
	svc := NewCartService(db, NewMemoryGuestCartStore())
	user := createUser(t, db, "shopper", models.UserRoleCustomer)
	return db, svc, user
}

func TestCartAddItemCreatesAndIncrements(t *testing.T) {
	db, svc, user := cartFixture(t)
	createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, user.ID, "number-1y", 2))
	require.NoError(t, svc.AddItem(ctx, user.ID, "number-1y", 3))

	view, err := svc.View(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, "50.00", view.Subtotal.StringFixed(2))
	assert.Equal(t, models.CurrencyUSD, view.Currency)
}

func TestCartAddItemClampsToStock(t *testing.T) {
	db, svc, user := cartFixture(t)
	createProduct(t, db, "Scarce", "10.00", models.CurrencyUSD, 4)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, user.ID, "scarce", 3))
	require.NoError(t, svc.AddItem(ctx, user.ID, "scarce", 10))

	view, err := svc.View(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 4, view.Items[0].Quantity)
}

func TestCartAddItemRejectsBadInput(t *testing.T) {
	db, svc, user := cartFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddItem(ctx, user.ID, "number-1y", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.AddItem(ctx, user.ID, "no-such-slug", 1), ErrProductUnavailable)

	inactive := createProduct(t, db, "Retired", "10.00", models.CurrencyUSD, 0)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
	assert.ErrorIs(t, svc.AddItem(ctx, user.ID, inactive.Slug, 1), ErrProductUnavailable)
}

func TestCartSetQuantity(t *testing.T) {
	db, svc, user := cartFixture(t)
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, user.ID, product.Slug, 2))
	require.NoError(t, svc.SetQuantity(ctx, user.ID, product.ID, 7))

	view, err := svc.View(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 7, view.Items[0].Quantity)

	// Zero removes the line.
	require.NoError(t, svc.SetQuantity(ctx, user.ID, product.ID, 0))
	view, err = svc.View(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestCartSetQuantityCreatesMissingLine(t *testing.T) {
	db, svc, user := cartFixture(t)
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	ctx := context.Background()

	require.NoError(t, svc.SetQuantity(ctx, user.ID, product.ID, 3))

	count, err := svc.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCartRemoveAndClear(t *testing.T) {
	db, svc, user := cartFixture(t)
	first := createProduct(t, db, "First", "10.00", models.CurrencyUSD, 0)
	second := createProduct(t, db, "Second", "20.00", models.CurrencyUSD, 0)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, user.ID, first.Slug, 1))
	require.NoError(t, svc.AddItem(ctx, user.ID, second.Slug, 1))

	require.NoError(t, svc.RemoveItem(ctx, user.ID, first.ID))
	assert.Equal(t, int64(1), cartItemCount(t, db, user.ID))

	require.NoError(t, svc.Clear(ctx, user.ID))
	assert.Zero(t, cartItemCount(t, db, user.ID))

	// Both are no-ops on a user with no cart at all.
	ghost := createUser(t, db, "ghost", models.UserRoleCustomer)
	assert.NoError(t, svc.RemoveItem(ctx, ghost.ID, first.ID))
	assert.NoError(t, svc.Clear(ctx, ghost.ID))
}

func TestCartViewDropsDeadLines(t *testing.T) {
	db, svc, user := cartFixture(t)
	live := createProduct(t, db, "Live", "10.00", models.CurrencyUSD, 0)
	retired := createProduct(t, db, "Retired", "20.00", models.CurrencyUSD, 0)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, user.ID, live.Slug, 1))
	require.NoError(t, svc.AddItem(ctx, user.ID, retired.Slug, 1))
	require.NoError(t, db.Model(retired).Update("is_active", false).Error)

	view, err := svc.View(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, live.ID, view.Items[0].ProductID)
	assert.Equal(t, "10.00", view.Subtotal.StringFixed(2))
}

func TestCartViewFlagsMixedCurrency(t *testing.T) {
	db, svc, user := cartFixture(t)
	usd := createProduct(t, db, "Dollar Item", "10.00", models.CurrencyUSD, 0)
	eur := createProduct(t, db, "Euro Item", "20.00", models.CurrencyEUR, 0)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, user.ID, usd.Slug, 1))
	require.NoError(t, svc.AddItem(ctx, user.ID, eur.Slug, 1))

	view, err := svc.View(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, view.MixedCurrency)
	assert.Empty(t, view.Currency)
	assert.True(t, view.Subtotal.IsZero())
}

func TestCartViewEmptyForUnknownUser(t *testing.T) {
	_, svc, user := cartFixture(t)

	view, err := svc.View(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Count)
}

func TestGuestCartLifecycle(t *testing.T) {
	db, svc, _ := cartFixture(t)
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	ctx := context.Background()
	token := "guest-token-1"

	require.NoError(t, svc.GuestAdd(ctx, token, product.Slug, 2))
	require.NoError(t, svc.GuestAdd(ctx, token, product.Slug, 1))

	view, err := svc.GuestView(ctx, token)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, "30.00", view.Subtotal.StringFixed(2))

	require.NoError(t, svc.GuestSetQuantity(ctx, token, product.ID, 5))
	view, err = svc.GuestView(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Items[0].Quantity)

	require.NoError(t, svc.GuestRemoveItem(ctx, token, product.ID))
	view, err = svc.GuestView(ctx, token)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestGuestCartClampsAgainstStock(t *testing.T) {
	db, svc, _ := cartFixture(t)
	product := createProduct(t, db, "Scarce", "10.00", models.CurrencyUSD, 2)
	ctx := context.Background()
	token := "guest-token-2"

	require.NoError(t, svc.GuestAdd(ctx, token, product.Slug, 9))

	view, err := svc.GuestView(ctx, token)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
}

func TestMergeGuestCart(t *testing.T) {
	db, svc, user := cartFixture(t)
	shared := createProduct(t, db, "Shared", "10.00", models.CurrencyUSD, 0)
	guestOnly := createProduct(t, db, "Guest Only", "20.00", models.CurrencyUSD, 0)
	ctx := context.Background()
	token := "guest-token-3"

	require.NoError(t, svc.AddItem(ctx, user.ID, shared.Slug, 1))
	require.NoError(t, svc.GuestAdd(ctx, token, shared.Slug, 2))
	require.NoError(t, svc.GuestAdd(ctx, token, guestOnly.Slug, 1))

	require.NoError(t, svc.MergeGuestCart(ctx, token, user.ID))

	view, err := svc.View(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	byID := make(map[string]int)
	for _, item := range view.Items {
		byID[item.ProductID.String()] = item.Quantity
	}
	assert.Equal(t, 3, byID[shared.ID.String()])
	assert.Equal(t, 1, byID[guestOnly.ID.String()])

	// The guest copy is gone after the merge.
	guestView, err := svc.GuestView(ctx, token)
	require.NoError(t, err)
	assert.Empty(t, guestView.Items)
}

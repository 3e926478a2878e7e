// internal/services/order_service_test.go
package services

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

var orderCodePattern = regexp.MustCompile(`^GV-[0-9A-F]{8}$`)

func TestGenerateOrderCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := generateOrderCode()
		require.NoError(t, err)
		assert.Regexp(t, orderCodePattern, code)
		assert.False(t, seen[code], "duplicate code %s after %d draws", code, i)
		seen[code] = true
	}
}

func TestCreateFromCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, NewCheckoutService(db))
	user := createUser(t, db, "buyer", models.UserRoleCustomer)
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 5)
	addCartLine(t, db, user.ID, product.ID, 3)

	order, err := svc.CreateFromCart(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Regexp(t, orderCodePattern, order.Code)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.FulfillmentNone, order.Fulfillment)
	assert.Equal(t, "30.00", order.Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", order.Total.StringFixed(2))
	assert.Equal(t, models.CurrencyUSD, order.Currency)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, product.Name, item.Name)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, "10.00", item.UnitPrice.StringFixed(2))
	assert.Equal(t, "30.00", item.LineTotal.StringFixed(2))
	require.NotNil(t, item.ProductID)
	assert.Equal(t, product.ID, *item.ProductID)

	require.Len(t, order.Snapshot, 1)
	assert.Equal(t, product.Slug, order.Snapshot[0].Slug)

	// Creation leaves the cart alone; it only empties on payment.
	assert.Equal(t, int64(1), cartItemCount(t, db, user.ID))
}

func TestCreateFromCartEmpty(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, NewCheckoutService(db))
	user := createUser(t, db, "buyer", models.UserRoleCustomer)

	_, err := svc.CreateFromCart(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestCreateFromCartRetriesOnCodeCollision(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, NewCheckoutService(db))
	user := createUser(t, db, "buyer", models.UserRoleCustomer)
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	first, err := svc.CreateFromCart(context.Background(), user.ID)
	require.NoError(t, err)

	// The generator keeps returning the taken code twice before a
	// fresh one comes out.
	calls := 0
	svc.newCode = func() (string, error) {
		calls++
		if calls <= 2 {
			return first.Code, nil
		}
		return "GV-0D15EA5E", nil
	}

	other := createUser(t, db, "buyer2", models.UserRoleCustomer)
	addCartLine(t, db, other.ID, product.ID, 1)

	second, err := svc.CreateFromCart(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, "GV-0D15EA5E", second.Code)
	assert.Equal(t, 3, calls)
}

func TestCreateFromCartCodeExhaustion(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, NewCheckoutService(db))
	user := createUser(t, db, "buyer", models.UserRoleCustomer)
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	first, err := svc.CreateFromCart(context.Background(), user.ID)
	require.NoError(t, err)

	svc.newCode = func() (string, error) { return first.Code, nil }

	other := createUser(t, db, "buyer2", models.UserRoleCustomer)
	addCartLine(t, db, other.ID, product.ID, 1)

	_, err = svc.CreateFromCart(context.Background(), other.ID)
	assert.ErrorIs(t, err, ErrOrderCodeExhausted)

	// The failed attempt rolled back: only the first order exists.
	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
}

func TestOrderCodesUniqueAcrossBulkCreation(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, NewCheckoutService(db))
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)

	codes := make(map[string]bool)
	for i := 0; i < 25; i++ {
		user := createUser(t, db, fmt.Sprintf("bulk%02d", i), models.UserRoleCustomer)
		addCartLine(t, db, user.ID, product.ID, 1)

		order, err := svc.CreateFromCart(context.Background(), user.ID)
		require.NoError(t, err)
		assert.False(t, codes[order.Code], "code %s reused", order.Code)
		codes[order.Code] = true
	}
}

func TestTransitionEnforcesStatusMachine(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, NewCheckoutService(db))
	user := createUser(t, db, "buyer", models.UserRoleCustomer)
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	order, err := svc.CreateFromCart(context.Background(), user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Transition(db, order, models.OrderStatusPaid))
	assert.Equal(t, models.OrderStatusPaid, reloadOrder(t, db, order.ID).Status)

	// A paid order only moves to charged_back.
	err = svc.Transition(db, order, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.OrderStatusPaid, reloadOrder(t, db, order.ID).Status)

	// Same-status is a no-op, not an error.
	require.NoError(t, svc.Transition(db, order, models.OrderStatusPaid))

	require.NoError(t, svc.Transition(db, order, models.OrderStatusChargedBack))
	assert.Equal(t, models.OrderStatusChargedBack, reloadOrder(t, db, order.ID).Status)
}

func TestExpireCancelsInFlightPayments(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, NewCheckoutService(db))
	user := createUser(t, db, "buyer", models.UserRoleCustomer)
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	order, err := svc.CreateFromCart(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Payment{
		OrderID:  order.ID,
		Method:   models.PaymentMethodTwoCheckout,
		Status:   models.PaymentStatusProcessing,
		Amount:   order.Total,
		Currency: order.Currency,
	}).Error)

	expired, err := svc.Expire(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusExpired, expired.Status)
	assert.Equal(t, models.PaymentStatusCancelled, latestPayment(t, db, order.ID).Status)

	// Expiring a terminal order is rejected.
	_, err = svc.Expire(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListForUserFiltersAndSummarizes(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, NewCheckoutService(db))
	user := createUser(t, db, "buyer", models.UserRoleCustomer)
	other := createUser(t, db, "other", models.UserRoleCustomer)
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)

	addCartLine(t, db, user.ID, product.ID, 1)
	mine, err := svc.CreateFromCart(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Transition(db, mine, models.OrderStatusPaid))

	addCartLine(t, db, other.ID, product.ID, 2)
	_, err = svc.CreateFromCart(context.Background(), other.ID)
	require.NoError(t, err)

	orders, total, summary, err := svc.ListForUser(context.Background(), user.ID, "", utils.PaginationParams{Page: 1, Limit: 10, Sort: "created_at", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Equal(t, mine.ID, orders[0].ID)

	require.Len(t, summary, 1)
	assert.Equal(t, models.OrderStatusPaid, summary[0].Status)
	assert.Equal(t, int64(1), summary[0].Count)
}

func TestFindByRefAcceptsIDAndCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, NewCheckoutService(db))
	user := createUser(t, db, "buyer", models.UserRoleCustomer)
	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	order, err := svc.CreateFromCart(context.Background(), user.ID)
	require.NoError(t, err)

	byID, err := svc.FindByRef(context.Background(), order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, order.ID, byID.ID)

	byCode, err := svc.FindByRef(context.Background(), order.Code)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byCode.ID)

	// Codes are matched case-insensitively; gateways mangle case.
	byLower, err := svc.FindByRef(context.Background(), " "+order.Code+" ")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byLower.ID)

	_, err = svc.FindByRef(context.Background(), "GV-FFFFFFFF")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.FindByRef(context.Background(), "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

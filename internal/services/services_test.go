// internal/services/services_test.go
package services

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

// newTestDB opens a fresh in-memory database per test. The sqlite
// driver drops row-locking clauses, so code using SELECT FOR UPDATE
// runs unchanged.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.PaymentEvent{},
		&models.BlogPost{},
		&models.AuditLog{},
	))

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Environment: "test",
		Payment: config.PaymentConfig{
			Debug:         true,
			TrustRedirect: true,
			TwoCheckout: config.TwoCheckoutConfig{
				BuyLinkBase: "https://buy.example.com/purchase",
				SellerID:    "901234567",
				SecretWord:  "tango-secret",
			},
			SSLCommerz: config.SSLCommerzConfig{
				StoreID:       "teststore",
				StorePassword: "testpass",
				Sandbox:       true,
				RateUSD:       dec("125"),
				RateEUR:       dec("130"),
				RateGBP:       dec("140"),
				MinAmountBDT:  dec("10.00"),
			},
		},
		Storage: config.StorageConfig{
			LocalDir:    t.TempDir(),
			MaxUploadMB: 50,
		},
		Site: config.SiteConfig{
			Name:        "GVoiceUS",
			BaseURL:     "https://shop.example.com",
			FrontendURL: "https://www.example.com",
		},
		Catalog: config.CatalogConfig{CategoriesEnabled: true, PageSize: 12, MaxPageSize: 60},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, user.SetPassword("Customer1!"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createProduct(t *testing.T, db *gorm.DB, name, price string, currency models.Currency, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:     name,
		SKU:      "SKU-" + uuid.New().String()[:8],
		Price:    dec(price),
		Currency: currency,
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func addCartLine(t *testing.T, db *gorm.DB, userID, productID uuid.UUID, qty int) {
	t.Helper()

	var cart models.Cart
	err := db.Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
		cart = models.Cart{UserID: userID}
		require.NoError(t, db.Create(&cart).Error)
	}
	require.NoError(t, db.Create(&models.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  qty,
	}).Error)
}

func cartItemCount(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Count(&count).Error)
	return count
}

func reloadOrder(t *testing.T, db *gorm.DB, orderID uuid.UUID) *models.Order {
	t.Helper()

	var order models.Order
	require.NoError(t, db.First(&order, "id = ?", orderID).Error)
	return &order
}

func latestPayment(t *testing.T, db *gorm.DB, orderID uuid.UUID) *models.Payment {
	t.Helper()

	var payment models.Payment
	require.NoError(t, db.Where("order_id = ?", orderID).
		Order("created_at DESC").First(&payment).Error)
	return &payment
}

// createPaidOrder inserts a settled order with the given number of
// items, bypassing checkout, for fulfillment tests.
func createPaidOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, itemCount int) *models.Order {
	t.Helper()

	now := time.Now().UTC()
	order := &models.Order{
		Code:        "GV-" + uuid.New().String()[:8],
		UserID:      userID,
		Status:      models.OrderStatusPaid,
		Currency:    models.CurrencyUSD,
		Subtotal:    dec("10.00"),
		Total:       dec("10.00"),
		Fulfillment: models.FulfillmentRunning,
		PaidAt:      &now,
	}
	require.NoError(t, db.Create(order).Error)

	for i := 0; i < itemCount; i++ {
		require.NoError(t, db.Create(&models.OrderItem{
			OrderID:   order.ID,
			Name:      fmt.Sprintf("Item %d", i+1),
			UnitPrice: dec("10.00"),
			Quantity:  1,
			LineTotal: dec("10.00"),
			Currency:  models.CurrencyUSD,
		}).Error)
	}

	require.NoError(t, db.Preload("Items").First(order, "id = ?", order.ID).Error)
	return order
}

// makeUpload builds a real multipart file the way gin would hand it to
// a handler.
func makeUpload(t *testing.T, filename, content string) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	file, header, err := req.FormFile("file")
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	return file, header
}

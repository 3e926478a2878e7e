// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "info":
		return logger.Info
	case "error":
		return logger.Error
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	err := db.AutoMigrate(
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
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Catalog indexes
		"CREATE INDEX IF NOT EXISTS idx_products_active_created ON products(is_active, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_categories_active_position ON categories(is_active, position)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",

		// Payment indexes
		"CREATE INDEX IF NOT EXISTS idx_payments_order_created ON payments(order_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_payments_provider_ref ON payments(provider_ref)",
		"CREATE INDEX IF NOT EXISTS idx_payment_events_payment ON payment_events(payment_id, created_at DESC)",

		// Blog indexes
		"CREATE INDEX IF NOT EXISTS idx_blog_posts_published ON blog_posts(published, published_at DESC)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",

		// Full-text search indexes
		"CREATE INDEX IF NOT EXISTS idx_products_search ON products USING GIN(to_tsvector('english', name || ' ' || coalesce(short_description, '') || ' ' || coalesce(description, '')))",
		"CREATE INDEX IF NOT EXISTS idx_blog_posts_search ON blog_posts USING GIN(to_tsvector('english', title || ' ' || coalesce(content, '')))",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).Warnf("Failed to create index: %s", index)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB, cfg *config.Config) error {
	logrus.Info("Seeding initial data...")

	var staffCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleStaff).Count(&staffCount)

	if staffCount == 0 {
		now := time.Now()
		staff := &models.User{
			Username:         "staff",
			Email:            getSeedEmail(cfg),
			FullName:         "Store Staff",
			Role:             models.UserRoleStaff,
			IsActive:         true,
			EmailConfirmedAt: &now,
		}

		if err := staff.SetPassword("staff123!@#"); err != nil {
			return fmt.Errorf("failed to set staff password: %w", err)
		}

		if err := db.Create(staff).Error; err != nil {
			return fmt.Errorf("failed to create staff user: %w", err)
		}

		logrus.Info("Default staff user created successfully")
	}

	var productCount int64
	db.Model(&models.Product{}).Count(&productCount)

	if productCount == 0 {
		products := []models.Product{
			{
				Name:             "US Voice Number, 1 Year",
				SKU:              "GV-NUM-1Y",
				ShortDescription: "A dedicated US voice number, valid for one year.",
				Price:            decimal.NewFromFloat(10.00),
				Currency:         models.CurrencyUSD,
				Stock:            0,
				IsActive:         true,
			},
			{
				Name:             "US Voice Number, Lifetime",
				SKU:              "GV-NUM-LT",
				ShortDescription: "A dedicated US voice number with no renewal.",
				Price:            decimal.NewFromFloat(25.00),
				Currency:         models.CurrencyUSD,
				Stock:            0,
				IsActive:         true,
			},
			{
				Name:             "Aged Account, Premium",
				SKU:              "GV-ACC-PREM",
				ShortDescription: "A verified aged account, limited stock.",
				Price:            decimal.NewFromFloat(40.00),
				Currency:         models.CurrencyUSD,
				Stock:            25,
				IsActive:         true,
			},
		}

		for i := range products {
			if err := db.Create(&products[i]).Error; err != nil {
				logrus.WithError(err).Warnf("Failed to seed product %s", products[i].SKU)
			}
		}

		logrus.Info("Demo catalog seeded successfully")
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

func getSeedEmail(cfg *config.Config) string {
	if cfg != nil && cfg.Site.SupportEmail != "" {
		return cfg.Site.SupportEmail
	}
	return "staff@gvoice.us"
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

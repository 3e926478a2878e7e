// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/handlers"
	"github.com/gvoiceus/gvoiceus-backend/internal/middleware"
	"github.com/gvoiceus/gvoiceus-backend/internal/services"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

// Initialize wires services, handlers and routes into one engine. A nil
// redis client is fine: guest carts then live in process memory, which
// is enough for development.
func Initialize(db *gorm.DB, rdb *redis.Client, cfg *config.Config) (*gin.Engine, error) {
	// Services
	tokens := utils.NewTokenManager(cfg.JWT)
	notificationService := services.NewNotificationService(cfg)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}

	var guestStore services.GuestCartStore
	if rdb != nil {
		guestStore = services.NewRedisGuestCartStore(rdb, time.Duration(cfg.Redis.GuestCartTTL)*time.Hour)
	} else {
		guestStore = services.NewMemoryGuestCartStore()
	}

	cartService := services.NewCartService(db, guestStore)
	checkoutService := services.NewCheckoutService(db)
	orderService := services.NewOrderService(db, checkoutService)
	paymentService := services.NewPaymentService(db, cfg, orderService)
	reconcileService := services.NewReconcileService(db, cfg, orderService, cartService, notificationService)
	fulfillmentService := services.NewFulfillmentService(db, storageService)
	catalogService := services.NewCatalogService(db, cfg)
	blogService := services.NewBlogService(db)
	authService := services.NewAuthService(db, tokens, notificationService, cartService)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(catalogService, cfg)
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(paymentService, reconcileService)
	webhookHandler := handlers.NewWebhookHandler(reconcileService)
	orderHandler := handlers.NewOrderHandler(orderService)
	staffHandler := handlers.NewStaffHandler(orderService, fulfillmentService)
	fileHandler := handlers.NewFileHandler(fulfillmentService)
	blogHandler := handlers.NewBlogHandler(blogService)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GuestToken())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	v1 := r.Group("/v1")
	{
		// Authentication
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/confirm", authHandler.ConfirmEmail)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(tokens), authHandler.GetProfile)
		}

		// Catalog
		products := v1.Group("/products")
		{
			products.GET("", middleware.OptionalAuth(tokens), catalogHandler.ListProducts)
			products.GET("/:slug", middleware.OptionalAuth(tokens), catalogHandler.GetProduct)
		}
		v1.GET("/categories", catalogHandler.ListCategories)

		// Blog
		blog := v1.Group("/blog")
		{
			blog.GET("", blogHandler.ListPosts)
			blog.GET("/:slug", middleware.OptionalAuth(tokens), blogHandler.GetPost)
		}

		// Cart: works signed in or as a guest
		cart := v1.Group("/cart")
		cart.Use(middleware.OptionalAuth(tokens))
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.ClearCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.PATCH("/items/:product_id", cartHandler.UpdateItem)
			cart.DELETE("/items/:product_id", cartHandler.RemoveItem)
		}

		// Checkout: the returns take GET from 2Checkout and POST from
		// SSLCommerz, both unauthenticated since the buyer arrives from
		// the gateway page.
		checkout := v1.Group("/checkout")
		{
			checkout.POST("", middleware.AuthRequired(tokens), checkoutHandler.StartCheckout)
			checkout.GET("/success", checkoutHandler.Success)
			checkout.POST("/success", checkoutHandler.Success)
			checkout.GET("/cancel", checkoutHandler.Cancel)
			checkout.POST("/cancel", checkoutHandler.Cancel)
		}

		// Gateway notifications
		webhooks := v1.Group("/webhooks")
		webhooks.Use(middleware.WebhookRateLimit())
		{
			webhooks.POST("/twocheckout", webhookHandler.TwoCheckout)
		}

		// Customer orders
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired(tokens))
		{
			orders.GET("", orderHandler.ListMyOrders)
			orders.GET("/:id", orderHandler.GetMyOrder)
			orders.GET("/:id/delivery-file", fileHandler.DownloadOrderDeliveryFile)
		}

		// Customer order item files
		orderItems := v1.Group("/order-items")
		orderItems.Use(middleware.AuthRequired(tokens))
		{
			orderItems.POST("/:item_id/user-file", middleware.UploadRateLimit(), fileHandler.UploadUserFile)
			orderItems.GET("/:item_id/files/:slot", fileHandler.DownloadItemFile)
		}

		// Back office
		staff := v1.Group("/staff")
		staff.Use(middleware.AuthRequired(tokens), middleware.StaffRequired())
		{
			staffOrders := staff.Group("/orders")
			{
				staffOrders.GET("", staffHandler.ListOrders)
				staffOrders.GET("/:id", staffHandler.GetOrder)
				staffOrders.PATCH("/:id/fulfillment", staffHandler.SetFulfillment)
				staffOrders.POST("/:id/expire", staffHandler.ExpireOrder)
				staffOrders.POST("/:id/delivery-file", middleware.UploadRateLimit(), fileHandler.AttachOrderDeliveryFile)
				staffOrders.DELETE("/:id/delivery-file", fileHandler.DeleteOrderDeliveryFile)
			}

			staffItems := staff.Group("/order-items")
			{
				staffItems.POST("/:item_id/delivery-file", middleware.UploadRateLimit(), fileHandler.AttachItemDeliveryFile)
				staffItems.DELETE("/:item_id/files/:slot", fileHandler.DeleteItemFile)
			}

			staffBlog := staff.Group("/blog")
			{
				staffBlog.GET("", blogHandler.ListAllPosts)
				staffBlog.POST("", blogHandler.CreatePost)
				staffBlog.PATCH("/:id", blogHandler.UpdatePost)
				staffBlog.DELETE("/:id", blogHandler.DeletePost)
			}
		}
	}

	return r, nil
}

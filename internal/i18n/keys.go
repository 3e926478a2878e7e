// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserNotFound       = "auth.user_not_found"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthEmailNotConfirmed  = "auth.email_not_confirmed"
	KeyAuthEmailConfirmed     = "auth.email_confirmed"
	KeyAuthConfirmInvalid     = "auth.confirm_invalid"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Catalog
	KeyProductNotFound  = "product.not_found"
	KeyCategoryNotFound = "category.not_found"

	// Cart
	KeyCartEmpty              = "cart.empty"
	KeyCartItemAdded          = "cart.item_added"
	KeyCartItemRemoved        = "cart.item_removed"
	KeyCartUpdated            = "cart.updated"
	KeyCartMixedCurrency      = "cart.mixed_currency"
	KeyCartProductUnavailable = "cart.product_unavailable"

	// Orders
	KeyOrderNotFound      = "order.not_found"
	KeyOrderCreated       = "order.created"
	KeyOrderCancelled     = "order.cancelled"
	KeyOrderExpired       = "order.expired"
	KeyOrderBadTransition = "order.bad_transition"

	// Payments
	KeyPaymentSuccess           = "payment.success"
	KeyPaymentFailed            = "payment.failed"
	KeyPaymentPending           = "payment.pending"
	KeyPaymentMethodRequired    = "payment.method_required"
	KeyPaymentMethodUnknown     = "payment.method_unknown"
	KeyPaymentComingSoon        = "payment.coming_soon"
	KeyPaymentNotConfigured     = "payment.not_configured"
	KeyPaymentCurrencyUnsupported = "payment.currency_unsupported"
	KeyPaymentAmountBelowMin    = "payment.amount_below_minimum"
	KeyPaymentGatewayRejected   = "payment.gateway_rejected"

	// Fulfillment files
	KeyFileNotFound      = "file.not_found"
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileTooLarge      = "file.too_large"
	KeyFileLocked        = "file.locked"
	KeyFileOrderNotPaid  = "file.order_not_paid"

	// Blog
	KeyBlogNotFound = "blog.not_found"
	KeyBlogCreated  = "blog.created"
	KeyBlogUpdated  = "blog.updated"
	KeyBlogDeleted  = "blog.deleted"

	// Staff
	KeyStaffAccessDenied = "staff.access_denied"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)

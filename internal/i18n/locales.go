// internal/i18n/locales.go
package i18n

var localeEN = map[string]string{
	KeySuccess: "Success",
	KeyError:   "Error",

	KeyAuthRequired:           "Authentication required",
	KeyAuthInvalidToken:       "Invalid or expired token",
	KeyAuthInvalidCredentials: "Invalid username or password",
	KeyAuthUserNotFound:       "User not found",
	KeyAuthUserExists:         "A user with this username or email already exists",
	KeyAuthEmailNotConfirmed:  "Please confirm your email address before signing in",
	KeyAuthEmailConfirmed:     "Email confirmed, welcome aboard",
	KeyAuthConfirmInvalid:     "This confirmation link is invalid or has expired",
	KeyAuthLoginSuccess:       "Signed in successfully",
	KeyAuthRegisterSuccess:    "Account created, check your inbox to confirm your email",

	KeyProductNotFound:  "Product not found",
	KeyCategoryNotFound: "Category not found",

	KeyCartEmpty:              "Your cart is empty",
	KeyCartItemAdded:          "Added to cart",
	KeyCartItemRemoved:        "Removed from cart",
	KeyCartUpdated:            "Cart updated",
	KeyCartMixedCurrency:      "All items in an order must share one currency",
	KeyCartProductUnavailable: "This product is not available",

	KeyOrderNotFound:      "Order not found",
	KeyOrderCreated:       "Order %s created",
	KeyOrderCancelled:     "Order cancelled",
	KeyOrderExpired:       "Order expired",
	KeyOrderBadTransition: "This order cannot change to that status",

	KeyPaymentSuccess:             "Payment received, thank you",
	KeyPaymentFailed:              "Payment failed",
	KeyPaymentPending:             "Payment is pending",
	KeyPaymentMethodRequired:      "Choose a payment method",
	KeyPaymentMethodUnknown:       "Unknown payment method",
	KeyPaymentComingSoon:          "This payment method is coming soon",
	KeyPaymentNotConfigured:       "This payment method is not available right now",
	KeyPaymentCurrencyUnsupported: "This payment method does not support %s",
	KeyPaymentAmountBelowMin:      "Order total is below the minimum for this payment method",
	KeyPaymentGatewayRejected:     "The payment provider rejected the request, please try again",

	KeyFileNotFound:      "File not found",
	KeyFileUploadSuccess: "File uploaded",
	KeyFileTooLarge:      "File exceeds the %dMB limit",
	KeyFileLocked:        "A file was already uploaded for this item",
	KeyFileOrderNotPaid:  "Files can be exchanged once the order is paid",

	KeyBlogNotFound: "Post not found",
	KeyBlogCreated:  "Post created",
	KeyBlogUpdated:  "Post updated",
	KeyBlogDeleted:  "Post deleted",

	KeyStaffAccessDenied: "Staff access required",

	KeyValidationRequired: "%s is required",
	KeyValidationInvalid:  "Invalid %s",
}

var localeBN = map[string]string{
	KeySuccess: "সফল",
	KeyError:   "ত্রুটি",

	KeyAuthRequired:           "প্রথমে সাইন ইন করুন",
	KeyAuthInvalidToken:       "টোকেনটি অবৈধ বা মেয়াদোত্তীর্ণ",
	KeyAuthInvalidCredentials: "ব্যবহারকারীর নাম বা পাসওয়ার্ড ভুল",
	KeyAuthUserNotFound:       "ব্যবহারকারী পাওয়া যায়নি",
	KeyAuthUserExists:         "এই নাম বা ইমেইলে ইতিমধ্যে একটি অ্যাকাউন্ট আছে",
	KeyAuthEmailNotConfirmed:  "সাইন ইন করার আগে আপনার ইমেইল নিশ্চিত করুন",
	KeyAuthEmailConfirmed:     "ইমেইল নিশ্চিত হয়েছে, স্বাগতম",
	KeyAuthConfirmInvalid:     "নিশ্চিতকরণ লিঙ্কটি অবৈধ বা মেয়াদোত্তীর্ণ",
	KeyAuthLoginSuccess:       "সফলভাবে সাইন ইন হয়েছে",
	KeyAuthRegisterSuccess:    "অ্যাকাউন্ট তৈরি হয়েছে, ইমেইল নিশ্চিত করতে ইনবক্স দেখুন",

	KeyProductNotFound:  "পণ্যটি পাওয়া যায়নি",
	KeyCategoryNotFound: "ক্যাটাগরি পাওয়া যায়নি",

	KeyCartEmpty:              "আপনার কার্ট খালি",
	KeyCartItemAdded:          "কার্টে যোগ হয়েছে",
	KeyCartItemRemoved:        "কার্ট থেকে সরানো হয়েছে",
	KeyCartUpdated:            "কার্ট আপডেট হয়েছে",
	KeyCartMixedCurrency:      "একটি অর্ডারের সব পণ্য একই মুদ্রায় হতে হবে",
	KeyCartProductUnavailable: "পণ্যটি এখন পাওয়া যাচ্ছে না",

	KeyOrderNotFound:      "অর্ডার পাওয়া যায়নি",
	KeyOrderCreated:       "অর্ডার %s তৈরি হয়েছে",
	KeyOrderCancelled:     "অর্ডার বাতিল হয়েছে",
	KeyOrderExpired:       "অর্ডারের মেয়াদ শেষ",
	KeyOrderBadTransition: "অর্ডারটি ওই অবস্থায় নেওয়া যাবে না",

	KeyPaymentSuccess:             "পেমেন্ট পাওয়া গেছে, ধন্যবাদ",
	KeyPaymentFailed:              "পেমেন্ট ব্যর্থ হয়েছে",
	KeyPaymentPending:             "পেমেন্ট অপেক্ষমাণ",
	KeyPaymentMethodRequired:      "পেমেন্ট পদ্ধতি নির্বাচন করুন",
	KeyPaymentMethodUnknown:       "অজানা পেমেন্ট পদ্ধতি",
	KeyPaymentComingSoon:          "এই পেমেন্ট পদ্ধতি শীঘ্রই আসছে",
	KeyPaymentNotConfigured:       "এই পেমেন্ট পদ্ধতি এখন ব্যবহারযোগ্য নয়",
	KeyPaymentCurrencyUnsupported: "এই পেমেন্ট পদ্ধতি %s সমর্থন করে না",
	KeyPaymentAmountBelowMin:      "অর্ডারের পরিমাণ এই পদ্ধতির ন্যূনতম সীমার নিচে",
	KeyPaymentGatewayRejected:     "পেমেন্ট প্রোভাইডার অনুরোধটি প্রত্যাখ্যান করেছে, আবার চেষ্টা করুন",

	KeyFileNotFound:      "ফাইল পাওয়া যায়নি",
	KeyFileUploadSuccess: "ফাইল আপলোড হয়েছে",
	KeyFileTooLarge:      "ফাইলটি %dMB সীমার বেশি",
	KeyFileLocked:        "এই আইটেমের জন্য ইতিমধ্যে একটি ফাইল আপলোড হয়েছে",
	KeyFileOrderNotPaid:  "অর্ডার পরিশোধের পর ফাইল আদান-প্রদান করা যাবে",

	KeyBlogNotFound: "পোস্ট পাওয়া যায়নি",
	KeyBlogCreated:  "পোস্ট তৈরি হয়েছে",
	KeyBlogUpdated:  "পোস্ট আপডেট হয়েছে",
	KeyBlogDeleted:  "পোস্ট মুছে ফেলা হয়েছে",

	KeyStaffAccessDenied: "স্টাফ অনুমতি প্রয়োজন",

	KeyValidationRequired: "%s আবশ্যক",
	KeyValidationInvalid:  "%s সঠিক নয়",
}

// internal/utils/crypto_test.go
package utils

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomHex(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9a-f]+$`)

	for _, n := range []int{4, 16, 32} {
		s, err := RandomHex(n)
		require.NoError(t, err)
		assert.Len(t, s, 2*n)
		assert.Regexp(t, hexPattern, s)
	}

	a, err := RandomHex(16)
	require.NoError(t, err)
	b, err := RandomHex(16)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEmailChecksum(t *testing.T) {
	sum := EmailChecksum("buyer@example.com")
	assert.Len(t, sum, 16)

	// Case and surrounding whitespace are normalized away.
	assert.Equal(t, sum, EmailChecksum("  Buyer@Example.COM "))
	assert.NotEqual(t, sum, EmailChecksum("other@example.com"))
}

func TestSignParamsStableUnderOrdering(t *testing.T) {
	a := url.Values{}
	a.Set("amount", "30.00")
	a.Set("currency", "USD")
	a.Set("merchant_order_id", "abc-123")

	b := url.Values{}
	b.Set("merchant_order_id", "abc-123")
	b.Set("currency", "USD")
	b.Set("amount", "30.00")

	assert.Equal(t, SignParams("secret", a), SignParams("secret", b))
	assert.NotEqual(t, SignParams("secret", a), SignParams("other", a))
}

func TestSignParamsIgnoresSignatureField(t *testing.T) {
	params := url.Values{}
	params.Set("amount", "30.00")
	unsigned := SignParams("secret", params)

	params.Set("signature", unsigned)
	assert.Equal(t, unsigned, SignParams("secret", params))
}

func TestVerifySignature(t *testing.T) {
	params := url.Values{}
	params.Set("merchant_order_id", "abc-123")
	params.Set("invoice_status", "approved")

	sig := SignParams("secret", params)
	assert.True(t, VerifySignature("secret", params, sig))

	// Tampering with any parameter breaks verification.
	params.Set("invoice_status", "refunded")
	assert.False(t, VerifySignature("secret", params, sig))

	params.Set("invoice_status", "approved")
	assert.False(t, VerifySignature("wrong-secret", params, sig))
	assert.False(t, VerifySignature("", params, sig))
	assert.False(t, VerifySignature("secret", params, ""))
}

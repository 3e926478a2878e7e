// internal/utils/crypto.go
package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// RandomHex returns n random bytes as 2n lowercase hex characters.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// EmailChecksum is a short fingerprint of an email address, embedded in
// confirmation tokens so a token stops working if the address changes.
func EmailChecksum(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])[:16]
}

// SignParams computes an HMAC-SHA256 over gateway parameters, joined as
// key=value pairs in key order. Any existing signature field is skipped.
func SignParams(secret string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	for i, k := range keys {
		if i > 0 {
			payload.WriteByte('&')
		}
		payload.WriteString(k)
		payload.WriteByte('=')
		payload.WriteString(params.Get(k))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a gateway callback signature in constant time.
func VerifySignature(secret string, params url.Values, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := SignParams(secret, params)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Package checksum implements the keyed-hash schemes used to sign
// requests to, and verify notifications from, the payment providers.
// All functions are pure; callers own key material.
package checksum

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Sign computes the salted checksum used by PhonePe-style APIs:
// sha256(payload + salt) formatted as "<hex>###<saltIndex>". The payload
// is usually a base64-encoded request body, optionally concatenated with
// an API path.
func Sign(payload, salt string, saltIndex int) string {
	sum := sha256.Sum256([]byte(payload + salt))
	return fmt.Sprintf("%s###%d", hex.EncodeToString(sum[:]), saltIndex)
}

// Verify checks a "<hex>###<saltIndex>" checksum against the payload. The
// salt index embedded in the value must match the configured one; the
// hash comparison is constant-time.
func Verify(payload, salt string, saltIndex int, provided string) bool {
	expected := Sign(payload, salt, saltIndex)

	providedHash, providedIndex, ok := split(provided)
	if !ok {
		return false
	}
	expectedHash, expectedIndex, _ := split(expected)

	if providedIndex != expectedIndex {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(expectedHash)) == 1
}

func split(value string) (hash, index string, ok bool) {
	parts := strings.SplitN(value, "###", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// HmacSHA256 returns base64(HMAC-SHA256(data, key)), the scheme used for
// x-webhook-signature headers.
func HmacSHA256(data, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyHmacSHA256 compares a provided base64 HMAC against the expected
// one in constant time.
func VerifyHmacSHA256(data, key []byte, provided string) bool {
	expected := HmacSHA256(data, key)
	return hmac.Equal([]byte(expected), []byte(provided))
}

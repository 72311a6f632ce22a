package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// verifyHMAC checks header against the HMAC-SHA256 of body keyed by secret,
// using constant-time comparison (§4.11). header may carry an optional
// "sha256=" prefix, as sent by most webhook providers.
func verifyHMAC(secret string, body []byte, header string) bool {
	header = strings.TrimPrefix(header, "sha256=")
	expected := computeHMAC(secret, body)
	return hmac.Equal([]byte(expected), []byte(header))
}

func computeHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

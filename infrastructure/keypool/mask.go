package keypool

import (
	"net/url"
	"strings"
)

// MaskKey hides all but the last four characters of a secret for logs and metrics.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// MaskProxy hides the password of a proxy URL.
func MaskProxy(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return address
	}
	return u.Redacted()
}

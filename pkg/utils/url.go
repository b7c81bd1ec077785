package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashURL returns the hex SHA-256 of rawURL, used as a fixed-length set member.
func HashURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// ToAbsoluteURL resolves a card href against the page it was found on.
// Surrounding whitespace is ignored; a nil base only validates href.
func ToAbsoluteURL(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

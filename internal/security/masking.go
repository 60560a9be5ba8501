// Package security masks credentials embedded in image URLs before they are logged
package security

import (
	"net/url"
	"sort"
	"strings"
)

// MaskSecret masks sensitive strings for logging.
// Shows first N characters followed by "..." to minimize secret exposure.
// Returns "***" for very short secrets (<= prefixLen).
//
// Examples:
//
//	MaskSecret("sk_test_abc123", 4) -> "sk_t..."
//	MaskSecret("short", 4) -> "***"
//	MaskSecret("", 4) -> ""
func MaskSecret(secret string, prefixLen int) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= prefixLen {
		return "***"
	}
	return secret[:prefixLen] + "..."
}

// MaskURL masks the userinfo password and every query value of an image URL.
// Pre-signed object storage links carry their signature in the query string.
//
// Example:
//
//	MaskURL("https://bucket.s3.amazonaws.com/a.png?X-Amz-Signature=abcdef123") ->
//	"https://bucket.s3.amazonaws.com/a.png?X-Amz-Signature=abcd..."
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return MaskSecret(rawURL, 12)
	}

	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString("://")
	}
	if u.User != nil {
		b.WriteString(u.User.Username())
		if _, hasPassword := u.User.Password(); hasPassword {
			b.WriteString(":***")
		}
		b.WriteString("@")
	}
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())

	if u.RawQuery != "" {
		query := u.Query()
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("?")
		for i, k := range keys {
			for j, v := range query[k] {
				if i > 0 || j > 0 {
					b.WriteString("&")
				}
				b.WriteString(k)
				b.WriteString("=")
				b.WriteString(MaskSecret(v, 4))
			}
		}
	}
	return b.String()
}

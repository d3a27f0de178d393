package domain

import (
	"net/url"
	"strings"
)

// WithScheme prepends https:// unless raw already starts with http:// or https://.
// The prefix check ignores case.
func WithScheme(raw string) string {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

// NormalizeURL trims raw, enforces a scheme and checks that the result has
// both a scheme and a host.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", NewValidationError("missing url")
	}

	normalized := WithScheme(trimmed)
	u, err := url.Parse(normalized)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", NewValidationError("malformed url")
	}
	return normalized, nil
}

// DedupKey is the comparison form of a URL: lower case, trailing slashes removed.
func DedupKey(u string) string {
	return strings.TrimRight(strings.ToLower(u), "/")
}

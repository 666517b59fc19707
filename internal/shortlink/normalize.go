package shortlink

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize applies the canonical form used for storage and dedup
// comparison: submissions without an http/https scheme get "https://"
// prepended, and the result must parse as an absolute URL with a host.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidURL)
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: missing scheme or host", ErrInvalidURL)
	}

	return u.String(), nil
}

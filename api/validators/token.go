package validators

import (
	"errors"
	"strings"
)

var ErrMissingBearerToken = errors.New("missing bearer token")

// BearerToken extracts the raw token from an Authorization header value.
func BearerToken(header string) (string, error) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return "", ErrMissingBearerToken
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "bearer ") {
		trimmed = strings.TrimSpace(trimmed[7:])
	}
	if trimmed == "" {
		return "", ErrMissingBearerToken
	}
	return trimmed, nil
}

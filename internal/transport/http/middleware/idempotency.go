package middleware

import (
	"net/http"
	"strings"

	"backoffice/internal/transport/http/api"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

// IdempotencyKey returns the trimmed header value, or "" when it is missing
// or malformed.
func IdempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" || len(key) > maxIdempotencyKeyLen {
		return ""
	}
	for _, c := range key {
		if c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return key
}

// RequireIdempotencyKey rejects mutations that arrive without a usable
// Idempotency-Key header.
func RequireIdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdempotencyKey(r) == "" {
			api.Fail(w, http.StatusBadRequest, "idempotency_key_required", "Idempotency-Key header is required (printable ASCII, at most 128 characters)", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

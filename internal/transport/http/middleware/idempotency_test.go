package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIdempotencyKey(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"  pay-2024-03-emp1  ", "pay-2024-03-emp1"},
		{"has space", ""},
		{strings.Repeat("k", maxIdempotencyKeyLen), strings.Repeat("k", maxIdempotencyKeyLen)},
		{strings.Repeat("k", maxIdempotencyKeyLen+1), ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(IdempotencyKeyHeader, tc.header)
		if got := IdempotencyKey(req); got != tc.want {
			t.Fatalf("header %q: expected %q, got %q", tc.header, tc.want, got)
		}
	}
}

func TestRequireIdempotencyKey(t *testing.T) {
	handler := RequireIdempotencyKey(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	missing := httptest.NewRecorder()
	handler.ServeHTTP(missing, httptest.NewRequest(http.MethodPost, "/", nil))
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", missing.Code)
	}
	if !strings.Contains(missing.Body.String(), "idempotency_key_required") {
		t.Fatalf("unexpected body: %s", missing.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(IdempotencyKeyHeader, "k1")
	ok := httptest.NewRecorder()
	handler.ServeHTTP(ok, req)
	if ok.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", ok.Code)
	}
}

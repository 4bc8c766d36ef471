package requestctx

import (
	"context"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetActor(ctx) != "" || GetClientIP(ctx) != "" {
		t.Fatal("expected empty values on bare context")
	}

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithActor(ctx, "user-1")
	ctx = WithClientIP(ctx, "10.0.0.1")

	if got := GetRequestID(ctx); got != "req-1" {
		t.Fatalf("request id: %q", got)
	}
	if got := GetActor(ctx); got != "user-1" {
		t.Fatalf("actor: %q", got)
	}
	if got := GetClientIP(ctx); got != "10.0.0.1" {
		t.Fatalf("client ip: %q", got)
	}
}

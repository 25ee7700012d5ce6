package cache

import (
	"context"
	"testing"
	"time"
)

func TestNopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}

	if err := c.SetJSON(ctx, "key", map[string]string{"a": "b"}, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var dst map[string]string
	hit, err := c.GetJSON(ctx, "key", &dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit || dst != nil {
		t.Fatalf("expected a miss, got hit=%v dst=%v", hit, dst)
	}
}

func TestNewRedisRejectsBadAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
	}{
		{name: "empty", addr: "  "},
		{name: "invalid database", addr: "redis://localhost:6379/not-a-number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRedis(context.Background(), tt.addr); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

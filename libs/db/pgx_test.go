package db

import (
	"context"
	"testing"
	"time"
)

func TestPoolConfigDefaults(t *testing.T) {
	got := PoolConfig{MaxConns: 25}.withDefaults()
	if got.MaxConns != 25 || got.MinConns != 1 {
		t.Fatalf("unexpected conns %+v", got)
	}
	if got.MaxConnLifetime != 30*time.Minute || got.MaxConnIdleTime != 5*time.Minute {
		t.Fatalf("unexpected lifetimes %+v", got)
	}
}

func TestReadyCheckWithoutPool(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

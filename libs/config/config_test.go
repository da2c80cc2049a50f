package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := Port("PORT", "8080"); err == nil {
		t.Fatal("expected error for out of range port")
	}
	t.Setenv("PORT", "")
	p, err := Port("PORT", "8085")
	if err != nil || p != "8085" {
		t.Fatalf("expected fallback port, got %q (%v)", p, err)
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := RequiredString("DATABASE_URL"); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestIntAndBool(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")
	if got := Int("REDIS_DB", 3); got != 3 {
		t.Fatalf("expected fallback 3, got %d", got)
	}
	t.Setenv("REDIS_DB", "2")
	if got := Int("REDIS_DB", 0); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}

	t.Setenv("FAIL_OPEN", "off")
	if Bool("FAIL_OPEN", true) {
		t.Fatal("expected false")
	}
	t.Setenv("FAIL_OPEN", "maybe")
	if !Bool("FAIL_OPEN", true) {
		t.Fatal("expected fallback true")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("TTL", "45")
	if got := Duration("TTL", time.Minute); got != 45*time.Second {
		t.Fatalf("expected 45s, got %s", got)
	}
	t.Setenv("TTL", "2m")
	if got := Duration("TTL", time.Minute); got != 2*time.Minute {
		t.Fatalf("expected 2m, got %s", got)
	}
	t.Setenv("TTL", "-5s")
	if got := Duration("TTL", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("TOPICS", " a, ,b,")
	got := List("TOPICS", "")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestLocation(t *testing.T) {
	t.Setenv("TIMEZONE", "Not/AZone")
	if _, err := Location("TIMEZONE", "UTC"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
	t.Setenv("TIMEZONE", "")
	loc, err := Location("TIMEZONE", "UTC")
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC, got %v (%v)", loc, err)
	}
}

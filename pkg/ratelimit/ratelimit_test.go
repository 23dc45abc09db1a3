package ratelimit

import (
	"testing"
	"time"
)

func TestAllowExhaustsAndRefills(t *testing.T) {
	now := time.Unix(0, 0)
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("other keys have their own bucket")
	}

	now = now.Add(30 * time.Second)
	if !l.Allow("a") {
		t.Fatal("half a window refills one token")
	}
	if l.Allow("a") {
		t.Fatal("only one token was refilled")
	}
}

func TestZeroLimitDisables(t *testing.T) {
	l := New(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !l.Allow("a") {
			t.Fatal("limiter with zero limit rejected a request")
		}
	}
}

func TestEvictIdle(t *testing.T) {
	now := time.Unix(0, 0)
	l := New(5, time.Minute)
	l.now = func() time.Time { return now }
	l.Allow("old")
	now = now.Add(3 * time.Minute)
	l.Allow("fresh")

	if n := l.evictIdle(); n != 1 {
		t.Errorf("evicted %d, want 1", n)
	}
	if _, ok := l.buckets["fresh"]; !ok {
		t.Error("fresh key was evicted")
	}
	l.Reset("fresh")
	if len(l.buckets) != 0 {
		t.Errorf("buckets left after Reset: %d", len(l.buckets))
	}
}

package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1) // 100 rps, burst 1
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://policies.example.com/security.html"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// A different host has its own budget
	if err := limiter.Wait(ctx, "http://intranet.example.org/policy"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	err := limiter.WaitWithDelay(ctx, "http://policies.example.com", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", elapsed)
	}
}

func TestLimiter_WaitWithDelay_Cancelled(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.WaitWithDelay(ctx, "http://policies.example.com", time.Second)
	if err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestLimiter_ExhaustsPerHost(t *testing.T) {
	// 1 rps, burst 1: the second request within the window must be denied
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "http://policies.example.com"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	if limiter.Allow(url) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	// A different host is unaffected
	if !limiter.Allow("http://other.example.org") {
		t.Errorf("expected allow for other host")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("http://policies.example.com/security.html")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "policies.example.com" {
		t.Errorf("expected policies.example.com, got %s", host)
	}

	_, err = extractHost("::invalid")
	if err == nil {
		t.Errorf("expected error for invalid URL")
	}
}

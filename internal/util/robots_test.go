package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_DisallowedPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: Accord\nDisallow: /private/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Accord/0.3 (+https://github.com/accordhq/accord)", 2*time.Second)

	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/private/policy.html")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if allowed {
		t.Error("Expected /private/ to be disallowed")
	}

	allowed, _, err = checker.CanFetch(context.Background(), server.URL+"/public/policy.html")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("Expected /public/ to be allowed")
	}
}

func TestRobotsChecker_MatchesProductToken(t *testing.T) {
	// The group names the bare product token; the checker must still match
	// when configured with a full User-Agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: Accord\nDisallow: /\n\nUser-agent: *\nAllow: /\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker("Accord/0.3 (+https://github.com/accordhq/accord)", 2*time.Second)

	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/policy.html")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if allowed {
		t.Error("Expected the Accord group to apply, not the wildcard")
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Accord/0.3", 2*time.Second)

	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("Expected missing robots.txt to allow fetching")
	}
}

func TestRobotsChecker_CachesPerHost(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&fetches, 1)
		}
		_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker("Accord/0.3", 2*time.Second)

	for i := 0; i < 3; i++ {
		if _, _, err := checker.CanFetch(context.Background(), server.URL+"/policy.html"); err != nil {
			t.Fatalf("CanFetch failed: %v", err)
		}
	}

	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("Expected 1 robots.txt fetch, got %d", got)
	}

	checker.Clear()
	if _, _, err := checker.CanFetch(context.Background(), server.URL+"/policy.html"); err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if got := atomic.LoadInt32(&fetches); got != 2 {
		t.Errorf("Expected refetch after Clear, got %d fetches", got)
	}
}

func TestRobotsChecker_CrawlDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nCrawl-delay: 2\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker("Accord/0.3", 2*time.Second)

	_, delay, err := checker.CanFetch(context.Background(), server.URL+"/policy.html")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if delay != 2*time.Second {
		t.Errorf("Expected 2s crawl delay, got %v", delay)
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Accord/0.3 (+https://github.com/accordhq/accord)", "Accord"},
		{"Accord", "Accord"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeUserAgent(tt.in); got != tt.want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

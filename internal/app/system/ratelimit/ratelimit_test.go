package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Stop()

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Error("third request should be limited")
	}
	if !l.Allow("b") {
		t.Error("other keys are independent")
	}
	if got := l.Remaining("a"); got != 0 {
		t.Errorf("Remaining(a) = %d", got)
	}

	l.Reset("a")
	if got := l.Remaining("a"); got != 2 {
		t.Errorf("Remaining(a) after reset = %d", got)
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := New(1, 20*time.Millisecond)
	defer l.Stop()

	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("expected limit within window")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("expected new window after expiry")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded list", "203.0.113.5, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.5"},
		{"real ip", "", "198.51.100.7", "10.0.0.2:1234", "198.51.100.7"},
		{"remote addr", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", "", "", "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/auth/login", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginLimiter_PerEmail(t *testing.T) {
	ll := NewLoginLimiter(100)
	defer ll.Stop()
	r := httptest.NewRequest("POST", "/auth/login", nil)

	for i := 0; i < 5; i++ {
		if ok, _ := ll.Check(r, "Maria@Example.com"); !ok {
			t.Fatalf("attempt %d blocked", i+1)
		}
	}
	ok, reason := ll.Check(r, "maria@example.com")
	if ok || reason == "" {
		t.Error("sixth attempt for the same email should be blocked")
	}

	ll.ResetEmail("MARIA@example.com")
	if ok, _ := ll.Check(r, "maria@example.com"); !ok {
		t.Error("reset should clear the email window")
	}
}

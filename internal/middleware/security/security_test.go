package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d, err := NewDetector([]string{"10.0.0.0/8", "203.0.113.7"}, nil)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "198.51.100.4:5000", "", "", "198.51.100.4"},
		{"untrusted proxy ignored", "198.51.100.4:5000", "1.1.1.1", "", "198.51.100.4"},
		{"trusted cidr", "10.1.2.3:80", "1.1.1.1, 10.1.2.3", "", "1.1.1.1"},
		{"trusted single ip", "203.0.113.7:80", "2.2.2.2", "", "2.2.2.2"},
		{"real ip fallback", "10.1.2.3:80", "", "3.3.3.3", "3.3.3.3"},
		{"garbage header", "10.1.2.3:80", "not-an-ip", "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Fatalf("ExtractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDetectorRejectsBadProxy(t *testing.T) {
	if _, err := NewDetector([]string{"nope"}, nil); err == nil {
		t.Fatalf("expected error for invalid proxy")
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d, _ := NewDetector(nil, nil)

	clean := httptest.NewRequest(http.MethodGet, "/ui/kpis", nil)
	if d.DetectSuspiciousRequest(clean) {
		t.Fatalf("clean request flagged")
	}
	scan := httptest.NewRequest(http.MethodGet, "/.env", nil)
	if !d.DetectSuspiciousRequest(scan) {
		t.Fatalf("scan not flagged")
	}
	scanner := httptest.NewRequest(http.MethodGet, "/", nil)
	scanner.Header.Set("User-Agent", "sqlmap/1.7")
	if !d.DetectSuspiciousRequest(scanner) {
		t.Fatalf("scanner user agent not flagged")
	}
	if got := d.GetMetrics().SuspiciousRequests; got != 2 {
		t.Fatalf("SuspiciousRequests = %d, want 2", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	csp := rr.Header().Get("Content-Security-Policy")
	for _, part := range []string{"img-src 'self' data:", "script-src 'self' https://unpkg.com/htmx.org@1.9.12/dist/htmx.min.js;"} {
		if !strings.Contains(csp, part) {
			t.Fatalf("CSP missing %q: %s", part, csp)
		}
	}
	if strings.Contains(csp, "https://unpkg.com;") {
		t.Fatalf("CSP allows all of unpkg: %s", csp)
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("X-Frame-Options not set")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS sent over plain HTTP")
	}
}

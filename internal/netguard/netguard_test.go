package netguard

import (
	"testing"

	"github.com/harrierhub/hareline/internal/detect"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		url  string
		ok   bool
	}{
		{"public https", "https://hashexample.org/events", true},
		{"public http", "http://www.hashexample.org", true},
		{"public ip", "https://93.184.216.34/feed", true},
		{"localhost", "http://localhost:8080/admin", false},
		{"localhost subdomain", "http://evil.localhost/x", false},
		{"loopback ip", "http://127.0.0.1/", false},
		{"loopback range", "http://127.8.8.8/", false},
		{"ten block", "http://10.1.2.3/", false},
		{"one seventy two block", "http://172.20.0.1/", false},
		{"one ninety two block", "http://192.168.1.1/", false},
		{"link local", "http://169.254.169.254/latest/meta-data/", false},
		{"ipv6 loopback", "http://[::1]/", false},
		{"unspecified", "http://0.0.0.0/", false},
		{"file scheme", "file:///etc/passwd", false},
		{"ftp scheme", "ftp://hashexample.org/", false},
		{"no host", "https:///path-only", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.url)
			if tt.ok && err != nil {
				t.Errorf("Check(%q) = %v, want nil", tt.url, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("Check(%q) = nil, want error", tt.url)
			}
		})
	}
}

func TestExempt(t *testing.T) {
	exempt := []detect.Kind{detect.KindSpreadsheet, detect.KindGCal, detect.KindHashRego}
	for _, kind := range exempt {
		if !Exempt(kind) {
			t.Errorf("kind %s builds provider URLs and should be exempt", kind)
		}
	}
	direct := []detect.Kind{detect.KindHarrier, detect.KindICal, detect.KindRSS, detect.KindMeetup}
	for _, kind := range direct {
		if Exempt(kind) {
			t.Errorf("kind %s fetches its source URL and must be checked", kind)
		}
	}
}

package util

import (
	"testing"
)

func TestIsValidIPv4(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want bool
	}{
		{"valid", "10.0.1.15", true},
		{"valid public", "203.0.113.8", true},
		{"octet out of range", "10.0.0.256", false},
		{"hostname", "fw-east-1.lab", false},
		{"ipv6", "2001:db8::1", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidIPv4(tt.ip); got != tt.want {
				t.Errorf("IsValidIPv4(%q) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

func TestIsValidIPv4CIDR(t *testing.T) {
	tests := []struct {
		name string
		cidr string
		want bool
	}{
		{"valid /24", "10.1.1.1/24", true},
		{"valid /32", "192.0.2.10/32", true},
		{"no mask", "10.1.1.1", false},
		{"bad ip", "999.1.1.1/24", false},
		{"ipv6", "2001:db8::/64", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidIPv4CIDR(tt.cidr); got != tt.want {
				t.Errorf("IsValidIPv4CIDR(%q) = %v, want %v", tt.cidr, got, tt.want)
			}
		})
	}
}

func TestSplitIPMask(t *testing.T) {
	tests := []struct {
		cidr     string
		wantIP   string
		wantMask int
	}{
		{"10.1.1.1/24", "10.1.1.1", 24},
		{"10.1.1.1", "10.1.1.1", 0},
		{"10.1.1.1/bad", "10.1.1.1", 0},
	}

	for _, tt := range tests {
		ip, mask := SplitIPMask(tt.cidr)
		if ip != tt.wantIP || mask != tt.wantMask {
			t.Errorf("SplitIPMask(%q) = (%q, %d), want (%q, %d)", tt.cidr, ip, mask, tt.wantIP, tt.wantMask)
		}
	}
}

func TestHostPort(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"10.0.0.5", 22, "10.0.0.5:22"},
		{"10.0.0.5:2222", 22, "10.0.0.5:2222"},
		{"panorama.lab", 22, "panorama.lab:22"},
	}

	for _, tt := range tests {
		if got := HostPort(tt.host, tt.port); got != tt.want {
			t.Errorf("HostPort(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

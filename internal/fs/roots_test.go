package fs

import (
	"strings"
	"testing"
)

func TestShouldSkipPath(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"/dev", true},
		{"/proc/1/status", true},
		{"/sys/class/net", true},
		{"/boot", true},
		{"/home/user", false},
		{"/media/usb", false},
		{"", false},
		{"/development", false},
		{"/system", false},
	}

	for _, tc := range testCases {
		if got := shouldSkipPath(tc.path); got != tc.expected {
			t.Errorf("shouldSkipPath(%q): expected %v, got %v", tc.path, tc.expected, got)
		}
	}
}

func TestRoots_NoDuplicates(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range Roots() {
		if r.Path == "" || r.Name == "" {
			t.Errorf("incomplete root %+v", r)
		}
		if seen[r.Path] {
			t.Errorf("duplicate root %s", r.Path)
		}
		seen[r.Path] = true
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName("/"); got != "/" {
		t.Errorf("root should display as itself, got %q", got)
	}
	if got := displayName("/home/u/Pictures"); !strings.EqualFold(got, "pictures") {
		t.Errorf("unexpected name %q", got)
	}
}

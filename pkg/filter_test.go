package lsdups

import (
	"testing"
)

func TestNewMatcher(t *testing.T) {
	testCases := []struct {
		pattern string
		name    string
		match   bool
	}{
		{"*.txt", "notes.txt", true},
		{"*.txt", "notes.TXT", false}, // case sensitive
		{"*.txt", "notes.txt.bak", false},
		{"IMG_????.jpg", "IMG_0001.jpg", true},
		{"[ab]*", "beta", true},
		{"[ab]*", "gamma", false},
		{`re:\.jpe?g`, "photo.jpg", true},
		{`re:\.jpe?g`, "photo.jpeg", true},
		{`re:\.jpe?g`, "photo.jpg.bak", false}, // anchored at the end
		{`re:^IMG.*`, "IMG_1.png", true},
		{`re:^IMG.*`, "xIMG_1.png", false},
		{`re:IMG`, "IMG_1.png", false},
		{`re:a|b`, "xa", true},
	}

	for _, tc := range testCases {
		m, err := NewMatcher(tc.pattern)
		if err != nil {
			t.Errorf("NewMatcher(%q) failed: %v", tc.pattern, err)
			continue
		}
		if got := m.Matches(tc.name); got != tc.match {
			t.Errorf("NewMatcher(%q).Matches(%q) = %v, expected %v", tc.pattern, tc.name, got, tc.match)
		}
		if m.String() != tc.pattern {
			t.Errorf("NewMatcher(%q).String() = %q", tc.pattern, m.String())
		}
	}
}

func TestNewMatcherInvalid(t *testing.T) {
	for _, pattern := range []string{"[", "a[b", "re:(", "re:[z-a]"} {
		if _, err := NewMatcher(pattern); err == nil {
			t.Errorf("NewMatcher(%q) should fail", pattern)
		}
	}
}

func TestNewPathFilterInvalidPatternIsConfigError(t *testing.T) {
	if _, err := NewPathFilter(ScanConfig{IncludePattern: "["}); !IsConfigError(err) {
		t.Errorf("Expected config error for bad include pattern, got %v", err)
	}
	if _, err := NewPathFilter(ScanConfig{SkipPattern: "re:("}); !IsConfigError(err) {
		t.Errorf("Expected config error for bad skip pattern, got %v", err)
	}
}

func TestPathFilterAccepts(t *testing.T) {
	filter, err := NewPathFilter(ScanConfig{
		IncludePattern: "*.log",
		SkipPattern:    "debug*",
		MinSize:        10,
	})
	if err != nil {
		t.Fatalf("NewPathFilter failed: %v", err)
	}

	testCases := []struct {
		path   string
		size   uint64
		accept bool
	}{
		{"/var/app/server.log", 100, true},
		{"/var/app/server.log", 10, true}, // minimum is inclusive
		{"/var/app/server.log", 9, false},
		{"/var/app/server.txt", 100, false},
		{"/var/app/debug.log", 100, false}, // skip wins over include
		{"/var/debug/server.log", 100, true}, // only the base name is matched
	}

	for _, tc := range testCases {
		if got := filter.Accepts(tc.path, tc.size); got != tc.accept {
			t.Errorf("Accepts(%q, %d) = %v, expected %v", tc.path, tc.size, got, tc.accept)
		}
	}
}

func TestPathFilterUnsetPatterns(t *testing.T) {
	filter, err := NewPathFilter(ScanConfig{})
	if err != nil {
		t.Fatalf("NewPathFilter failed: %v", err)
	}
	for _, path := range []string{"/a", "/b/.hidden", "/c/no-extension"} {
		if !filter.Accepts(path, 0) {
			t.Errorf("Expected %s to be accepted with no patterns", path)
		}
	}
}

func TestPathFilterRejectionReasons(t *testing.T) {
	filter, err := NewPathFilter(ScanConfig{IncludePattern: "*.go", SkipPattern: "*_test.go", MinSize: 1})
	if err != nil {
		t.Fatalf("NewPathFilter failed: %v", err)
	}
	if reason := filter.rejection("/src/x_test.go", 5); reason != "matches skip pattern *_test.go" {
		t.Errorf("Unexpected skip reason: %q", reason)
	}
	if reason := filter.rejection("/src/x.c", 5); reason != "does not match pattern *.go" {
		t.Errorf("Unexpected include reason: %q", reason)
	}
	if reason := filter.rejection("/src/x.go", 0); reason == "" {
		t.Error("Expected size rejection for empty file")
	}
}

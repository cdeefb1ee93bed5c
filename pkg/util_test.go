package lsdups

import (
	"testing"
)

func TestParseHumanSize(t *testing.T) {
	testCases := []struct {
		input    string
		expected uint64
		valid    bool
	}{
		{"0", 0, true},
		{"10", 10, true},
		{"10B", 10, true},
		{"4K", 4096, true},
		{"4kb", 4096, true},
		{" 2M ", 2 << 20, true},
		{"1.5M", 1572864, true},
		{"2G", 2 << 30, true},
		{"1T", 1 << 40, true},
		{"", 0, false},
		{"K", 0, false},
		{"abc", 0, false},
		{"10X", 0, false},
		{"1.2.3M", 0, false},
		{"99999999999999999999", 0, false},
		{"17179869184T", 0, false},
	}

	for _, tc := range testCases {
		got, err := ParseHumanSize(tc.input)
		if tc.valid {
			if err != nil {
				t.Errorf("ParseHumanSize(%q) should succeed but got error: %v", tc.input, err)
				continue
			}
			if got != tc.expected {
				t.Errorf("ParseHumanSize(%q) = %d, expected %d", tc.input, got, tc.expected)
			}
		} else if err == nil {
			t.Errorf("ParseHumanSize(%q) should fail but returned %d", tc.input, got)
		}
	}
}

func TestToMB(t *testing.T) {
	if got := ToMB(1 << 20); got != 1.0 {
		t.Errorf("ToMB(1MiB) = %f, expected 1", got)
	}
	if got := ToMB(512 << 10); got != 0.5 {
		t.Errorf("ToMB(512KiB) = %f, expected 0.5", got)
	}
	if got := ToMB(0); got != 0 {
		t.Errorf("ToMB(0) = %f, expected 0", got)
	}
}

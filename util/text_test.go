// util/text_test.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"testing"
)

func TestWrapText(t *testing.T) {
	input := "this is a test_of_wrapping..."
	expected := "this is \n  a \n  test_of_wrapping..."
	wrap, lines := WrapText(input, 8, 2, true, false)
	if wrap != expected {
		t.Errorf("wrapping gave %q; expected %q", wrap, expected)
	}
	if lines != 3 {
		t.Errorf("wrapping returned %d lines, expected 3", lines)
	}

	// Lines starting with a space pass through untouched unless wrapAll.
	pre := " keep this line exactly as it is\n"
	wrap, _ = WrapText(pre, 8, 2, false, false)
	if wrap != pre {
		t.Errorf("preformatted line was rewrapped: %q", wrap)
	}
}

func TestStopShouting(t *testing.T) {
	cases := []struct{ in, want string }{
		{"MACHINE PARTS", "Machine Parts"},
		{"LIVE TROPICAL FISH", "Live Tropical Fish"},
		{"already ok", "already ok"},
		{"MIXED Case WORDS", "Mixed Case Words"},
	}
	for _, c := range cases {
		if got := StopShouting(c.in); got != c.want {
			t.Errorf("StopShouting(%q) = %q, expected %q", c.in, got, c.want)
		}
	}
}

func TestAtof(t *testing.T) {
	if v, err := Atof(" 1532.5 "); err != nil || v != 1532.5 {
		t.Errorf("Atof gave %v, %v", v, err)
	}
	if _, err := Atof("12x"); err == nil {
		t.Errorf("Atof didn't report an error for garbage input")
	}
}

func TestCommaKeyExpand(t *testing.T) {
	m, err := CommaKeyExpand(map[string]int{"AKE,AVE, DVE": 1, "PMC": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for k, want := range map[string]int{"AKE": 1, "AVE": 1, "DVE": 1, "PMC": 2} {
		if m[k] != want {
			t.Errorf("key %q: got %d, expected %d", k, m[k], want)
		}
	}

	if _, err := CommaKeyExpand(map[string]int{"AKE,AVE": 1, "AVE": 2}); err == nil {
		t.Errorf("repeated key not reported")
	}
}

func TestByteCount(t *testing.T) {
	cases := []struct {
		b    ByteCount
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, c := range cases {
		if got := c.b.String(); got != c.want {
			t.Errorf("ByteCount(%d) = %q, expected %q", int64(c.b), got, c.want)
		}
	}
}

package utils

import "testing"

func TestIsValidQuery(t *testing.T) {
	testCases := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"Sar", true},
		{"Sarah", true},
		{"acme-corp", true},
		{"o'brien", true},
		{"FY26", true},
		{"12345", false},
		{"!!!", false},
		{"a@b", false},
		{"héllo", true},
	}

	for _, tc := range testCases {
		if got := IsValidQuery(tc.query); got != tc.want {
			t.Errorf("IsValidQuery(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestEqualFold(t *testing.T) {
	testCases := []struct {
		a, b rune
		want bool
	}{
		{'a', 'A', true},
		{'z', 'z', true},
		{'a', 'b', false},
		{'É', 'é', true},
		{'1', '1', true},
		{'1', '2', false},
	}

	for _, tc := range testCases {
		if got := EqualFold(tc.a, tc.b); got != tc.want {
			t.Errorf("EqualFold(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestHasPrefixIgnoreCase(t *testing.T) {
	if !HasPrefixIgnoreCase("Sarah Martinez", "sar") {
		t.Error("expected prefix match")
	}
	if HasPrefixIgnoreCase("Sarah", "Martinez") {
		t.Error("unexpected prefix match")
	}
}

func TestSeenFilter(t *testing.T) {
	f := NewSeenFilter()
	if !f.ShouldInclude("s1") {
		t.Error("first sighting must pass")
	}
	if f.ShouldInclude("s1") {
		t.Error("duplicate must be filtered")
	}
	if !f.ShouldInclude("s2") {
		t.Error("distinct id must pass")
	}
}

func TestCreateRankList(t *testing.T) {
	ranks := CreateRankList(3)
	if len(ranks) != 3 {
		t.Fatalf("len = %d, want 3", len(ranks))
	}
	for i, r := range ranks {
		if r != uint16(i+1) {
			t.Errorf("rank[%d] = %d, want %d", i, r, i+1)
		}
	}
}

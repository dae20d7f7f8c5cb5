package util

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare ten digits", "7075551234", "+17075551234"},
		{"formatted", "(707) 555-1234", "+17075551234"},
		{"eleven with country code", "17075551234", "+17075551234"},
		{"already e164", "+17075551234", "+17075551234"},
		{"e164 with spaces", " +1 707 555 1234 ", "+17075551234"},
		{"too short", "555-1234", ""},
		{"empty", "", ""},
		{"garbage", "call me", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePhone(tc.in); got != tc.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

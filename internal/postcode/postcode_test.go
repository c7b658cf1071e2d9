package postcode

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "AB10 1AB", want: "AB10 1AB"},
		{in: "ab101ab", want: "AB10 1AB"},
		{in: "  sw1a   2aa ", want: "SW1A 2AA"},
		{in: "m11ae", want: "M1 1AE"},
		{in: "abc", want: "ABC"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "AB10 1AB", want: true},
		{in: "ab101ab", want: true},
		{in: "M1 1AE", want: true},
		{in: "SW1A 2AA", want: true},
		{in: "GIR 0AA", want: true},
		{in: "ZZ99 9ZZ", want: true},
		{in: "12345", want: false},
		{in: "AB10", want: false},
		{in: "ERROR", want: false},
		{in: "", want: false},
	}

	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.want {
			t.Fatalf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

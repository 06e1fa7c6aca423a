package internal

import "testing"

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"sst", true},
		{"_", true},
		{"2m_temperature", true},
		{"lat°", true},
		{"analysed sst", true},
		{"", false},
		{"sst ", false},
		{"a/b", false},
		{"\tsst", false},
		{"°C", false},
		{"double", false},
		{"uint64", false},
		{"x\x08", false},
	}
	for _, test := range tests {
		if got := ValidName(test.name); got != test.valid {
			t.Errorf("%q: got %v", test.name, got)
		}
	}
}

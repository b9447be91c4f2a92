package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// 2-letter codes pass through
		{"en", "en"},
		{"EN", "en"},
		{"sv", "sv"},
		// 3-letter codes convert
		{"eng", "en"},
		{"swe", "sv"},
		{"fra", "fr"},
		{"fre", "fr"},
		{"deu", "de"},
		{"ger", "de"},
		{"zho", "zh"},
		{"chi", "zh"},
		{"dut", "nl"},
		// Word forms
		{"english", "en"},
		{"Swedish", "sv"},
		{"GERMAN", "de"},
		// Unknown values pass through lowercased
		{"xy", "xy"},
		{"XYZ", "xyz"},
		// Empty
		{"", ""},
		{" ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"eng", "English"},
		{"sv", "Swedish"},
		{"swe", "Swedish"},
		{"fr", "French"},
		{"fre", "French"},
		{"de", "German"},
		{"ger", "German"},
		{"zh", "Chinese"},
		{"chi", "Chinese"},
		{"nl", "Dutch"},
		{"dut", "Dutch"},
		{"english", "English"},
		{"", "Unknown"},
		{"unknown", "Unknown"},
		{"xyz", "XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"basic trim", "  hello  ", "hello"},
		{"multiple spaces", "hello    world", "hello world"},
		{"tabs and newlines", "hello\t\nworld", "hello world"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeAddress(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  12 Baker St,\n  London ", "12 Baker St, London"},
		{"Unit 4\x00 Dock Rd", "Unit 4 Dock Rd"},
		{"\x07\x08", ""},
	}

	for _, tt := range tests {
		if got := SanitizeAddress(tt.input); got != tt.want {
			t.Errorf("SanitizeAddress(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if again := SanitizeAddress(SanitizeAddress(tt.input)); again != tt.want {
			t.Errorf("SanitizeAddress is not idempotent for %q", tt.input)
		}
	}
}

func TestSanitizeNotes(t *testing.T) {
	got := SanitizeNotes("Gate code 1234\r\n\r\n   use   side door  \n\x1b")
	want := "Gate code 1234\nuse side door"
	if got != want {
		t.Errorf("SanitizeNotes() = %q, want %q", got, want)
	}
}

func TestSanitizeCurrency(t *testing.T) {
	if got := SanitizeCurrency(" USD "); got != "usd" {
		t.Errorf("SanitizeCurrency() = %q, want usd", got)
	}
}

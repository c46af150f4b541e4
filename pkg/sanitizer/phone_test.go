package sanitizer

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "valid E.164 format",
			input: "+6281234567890",
			want:  "+6281234567890",
		},
		{
			name:  "local mobile with dashes",
			input: "0812-3456-7890",
			want:  "+6281234567890",
		},
		{
			name:  "local mobile with spaces",
			input: "0812 3456 7890",
			want:  "+6281234567890",
		},
		{
			name:  "international with spaces",
			input: "+62 812 3456 7890",
			want:  "+6281234567890",
		},
		{
			name:  "foreign number keeps its country",
			input: "+1 (212) 555-1234",
			want:  "+12125551234",
		},
		{
			name:  "leading and trailing spaces",
			input: "  +6281234567890  ",
			want:  "+6281234567890",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   ",
			want:  "",
		},
		{
			name:  "letters only",
			input: "not-a-phone",
			want:  "",
		},
		{
			name:  "too short",
			input: "123",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePhoneIn_RegionIsCaseInsensitive(t *testing.T) {
	got := NormalizePhoneIn("(212) 555-1234", "us")
	if got != "+12125551234" {
		t.Errorf("NormalizePhoneIn with region us = %q, want +12125551234", got)
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	once := NormalizePhone("0812-3456-7890")
	twice := NormalizePhone(once)
	if once != twice {
		t.Errorf("not idempotent: %q then %q", once, twice)
	}
}

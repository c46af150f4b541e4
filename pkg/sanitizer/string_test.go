package sanitizer

import (
	"reflect"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  PT Sinar Jaya  ",
			want:  "PT Sinar Jaya",
		},
		{
			name:  "multiple spaces between words",
			input: "SMA   Negeri 3",
			want:  "SMA Negeri 3",
		},
		{
			name:  "tabs and newlines",
			input: "Budi\t\nSantoso",
			want:  "Budi Santoso",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserve punctuation",
			input: " CV. Maju & Sejahtera ",
			want:  "CV. Maju & Sejahtera",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lower case", input: "b 7001 xyz", want: "B 7001 XYZ"},
		{name: "extra spaces", input: "  B  7001   XYZ ", want: "B 7001 XYZ"},
		{name: "dashes become spaces", input: "B-7001-XYZ", want: "B 7001 XYZ"},
		{name: "already normalized", input: "AD 1234 BC", want: "AD 1234 BC"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePlate(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePlate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Admin@Sekolah.SCH.ID "); got != "admin@sekolah.sch.id" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode(" big_bus "); got != "BIG_BUS" {
		t.Errorf("NormalizeCode = %q", got)
	}
}

func TestPipeline_Apply(t *testing.T) {
	p := Pipeline{TrimAndNormalize, NormalizeCode}
	if got := p.Apply("  qris \t"); got != "QRIS" {
		t.Errorf("Pipeline.Apply = %q", got)
	}
}

func TestNormalizeIDs(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil input", input: nil, want: []string{}},
		{name: "drops blanks", input: []string{"a", "", "  ", "b"}, want: []string{"a", "b"}},
		{name: "drops duplicates keeping order", input: []string{"b", "a", " b "}, want: []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeIDs(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeIDs(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeText(text string) string {
	return TrimAndNormalize(text)
}

func NormalizePlate(plate string) string {
	p := Pipeline{
		func(s string) string { return strings.ReplaceAll(s, "-", " ") },
		TrimAndNormalize,
		strings.ToUpper,
	}
	return p.Apply(plate)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeCode upper-cases enum-like input such as "big_bus" or " transfer ".
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultRegion = "ID"

// fallbackRegions are tried after the caller's region when a number has no
// country prefix and does not parse as a local number.
var fallbackRegions = []string{
	"ID",
	"MY",
	"SG",
}

func NormalizePhone(phone string) string {
	return NormalizePhoneIn(phone, DefaultRegion)
}

func NormalizePhoneIn(phone, region string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	regions := append([]string{strings.ToUpper(region)}, fallbackRegions...)
	for _, r := range regions {
		parsed, err := phonenumbers.Parse(phone, r)
		if err != nil {
			continue
		}
		if !phonenumbers.IsPossibleNumber(parsed) {
			continue
		}
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}
	return ""
}

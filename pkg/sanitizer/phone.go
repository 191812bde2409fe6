package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegions are tried in order for numbers written without a country code.
var DefaultRegions = []string{"EG", "US", "GB"}

// NormalizePhone returns phone in E.164, or "" when no region yields a valid number.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range DefaultRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil && phonenumbers.IsValidNumber(parsedNumber) {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}

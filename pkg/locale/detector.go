package locale

import (
	"time"
	_ "time/tzdata"
	"tripmarket/pkg/sanitizer"

	"github.com/nyaruka/phonenumbers"
)

// InferCountryFromPhone returns the rider's home country, or nil when the
// number is invalid or the country is not in Countries.
func InferCountryFromPhone(phone string) *Country {
	e164 := sanitizer.NormalizePhone(phone)
	if e164 == "" {
		return nil
	}

	parsed, err := phonenumbers.Parse(e164, "")
	if err != nil {
		return nil
	}

	country, ok := Countries[phonenumbers.GetRegionCodeForNumber(parsed)]
	if !ok {
		return nil
	}
	return &country
}

func InferTimezoneFromPhone(phone string) string {
	if country := InferCountryFromPhone(phone); country != nil {
		return country.DefaultTimezone
	}
	return DefaultTimezone
}

// LocationForPhone resolves the rider's time zone, falling back to UTC.
func LocationForPhone(phone string) *time.Location {
	loc, err := time.LoadLocation(InferTimezoneFromPhone(phone))
	if err != nil {
		return time.UTC
	}
	return loc
}

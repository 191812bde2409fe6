package locale

const DefaultTimezone = "UTC"

type Country struct {
	Code            string // ISO 3166-1 alpha-2
	Name            string
	DefaultTimezone string // IANA identifier
}

// Countries holds the rider home countries we localize notifications for.
var Countries = map[string]Country{
	"EG": {Code: "EG", Name: "Egypt", DefaultTimezone: "Africa/Cairo"},
	"US": {Code: "US", Name: "United States", DefaultTimezone: "America/New_York"},
	"GB": {Code: "GB", Name: "United Kingdom", DefaultTimezone: "Europe/London"},
	"DE": {Code: "DE", Name: "Germany", DefaultTimezone: "Europe/Berlin"},
	"FR": {Code: "FR", Name: "France", DefaultTimezone: "Europe/Paris"},
	"IT": {Code: "IT", Name: "Italy", DefaultTimezone: "Europe/Rome"},
	"ES": {Code: "ES", Name: "Spain", DefaultTimezone: "Europe/Madrid"},
	"AE": {Code: "AE", Name: "United Arab Emirates", DefaultTimezone: "Asia/Dubai"},
	"SA": {Code: "SA", Name: "Saudi Arabia", DefaultTimezone: "Asia/Riyadh"},
	"IL": {Code: "IL", Name: "Israel", DefaultTimezone: "Asia/Jerusalem"},
	"JP": {Code: "JP", Name: "Japan", DefaultTimezone: "Asia/Tokyo"},
}

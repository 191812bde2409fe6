package discovery

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"tripmarket/pkg/model"
)

type Mode int

const (
	// ModeNormal applies the request criteria and search.
	ModeNormal Mode = iota
	// ModePreference ranks the pool against the rider's stored preference.
	ModePreference
	// ModeOwn lists the caller's own offerings, past ones included.
	ModeOwn
)

func (m Mode) String() string {
	switch m {
	case ModePreference:
		return "preference"
	case ModeOwn:
		return "own"
	default:
		return "normal"
	}
}

const (
	SortByPrice     = "price"
	SortByRating    = "rating"
	SortByDate      = "date"
	SortByName      = "name"
	SortByCreatedAt = "created_at"
)

type SortSpec struct {
	Field     string
	Ascending bool
}

// Query is a parsed discovery request.
type Query struct {
	Criteria Criteria
	Search   string
	Sort     SortSpec
	Mode     Mode
}

const dateOnly = "2006-01-02"

// ParseQuery reads discovery parameters leniently: malformed numbers, dates
// and sort fields are dropped as if they were never sent.
func ParseQuery(values url.Values) Query {
	q := Query{
		Search: strings.TrimSpace(values.Get("searchBy")),
		Sort:   SortSpec{Field: SortByCreatedAt},
	}

	q.Criteria.MaxPrice = parseFloat(values.Get("price"))
	q.Criteria.MinPrice = parseFloat(values.Get("minPrice"))
	q.Criteria.MinRating = parseFloat(values.Get("minRating"))
	q.Criteria.StartDate = parseDate(values.Get("startDate"), false)
	q.Criteria.EndDate = parseDate(values.Get("endDate"), true)
	q.Criteria.Categories = parseList(values["category"])
	q.Criteria.Languages = parseList(values["language"])

	switch field := strings.ToLower(strings.TrimSpace(values.Get("sort"))); field {
	case SortByPrice, SortByRating, SortByDate, SortByName, SortByCreatedAt:
		q.Sort.Field = field
		q.Sort.Ascending = true
	}
	switch strings.TrimSpace(values.Get("asc")) {
	case "1":
		q.Sort.Ascending = true
	case "-1":
		q.Sort.Ascending = false
	}

	switch {
	case parseBool(values.Get("own")):
		q.Mode = ModeOwn
	case parseBool(values.Get("preferences")):
		q.Mode = ModePreference
	}

	return q
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseDate accepts RFC3339 or a bare date. A bare end date covers the whole day.
func parseDate(s string, endOfDay bool) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && v
}

func parseList(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Sort orders pool in place by spec. The sort is stable so ties keep
// their incoming order.
func Sort(pool []*model.Offering, spec SortSpec) {
	less := lessFunc(spec.Field)
	sort.SliceStable(pool, func(i, j int) bool {
		if spec.Ascending {
			return less(pool[i], pool[j])
		}
		return less(pool[j], pool[i])
	})
}

func lessFunc(field string) func(a, b *model.Offering) bool {
	switch field {
	case SortByPrice:
		return func(a, b *model.Offering) bool { return a.Price < b.Price }
	case SortByRating:
		return func(a, b *model.Offering) bool { return a.Rating < b.Rating }
	case SortByName:
		return func(a, b *model.Offering) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortByDate:
		return func(a, b *model.Offering) bool { return firstDate(a).Before(firstDate(b)) }
	default:
		return func(a, b *model.Offering) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func firstDate(o *model.Offering) time.Time {
	var first time.Time
	for i, d := range o.Dates() {
		if i == 0 || d.Before(first) {
			first = d
		}
	}
	return first
}

// Paginate slices pool to the requested window.
func Paginate(pool []*model.Offering, limit int, offset int64) []*model.Offering {
	if offset >= int64(len(pool)) {
		return []*model.Offering{}
	}
	end := offset + int64(limit)
	if end > int64(len(pool)) {
		end = int64(len(pool))
	}
	return pool[offset:end]
}

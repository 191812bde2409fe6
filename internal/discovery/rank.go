package discovery

import (
	"tripmarket/pkg/model"
)

// Ranking is a stable two-bucket partition of a discovery pool.
type Ranking struct {
	Preferred []*model.Offering
	Other     []*model.Offering
}

// Ordered returns the preferred bucket followed by the other bucket.
func (r Ranking) Ordered() []*model.Offering {
	out := make([]*model.Offering, 0, len(r.Preferred)+len(r.Other))
	out = append(out, r.Preferred...)
	return append(out, r.Other...)
}

// Rank splits pool by pred. Relative order inside each bucket is pool order.
func Rank(pool []*model.Offering, pred Predicate) Ranking {
	r := Ranking{
		Preferred: make([]*model.Offering, 0, len(pool)),
		Other:     make([]*model.Offering, 0),
	}
	for _, o := range pool {
		if pred(o) {
			r.Preferred = append(r.Preferred, o)
		} else {
			r.Other = append(r.Other, o)
		}
	}
	return r
}

// Difference returns a \ b keyed by offering ID, in a's order. Nothing is
// assumed about the order of b.
func Difference(a, b []*model.Offering) []*model.Offering {
	exclude := idSet(b)
	out := make([]*model.Offering, 0, len(a))
	for _, o := range a {
		if _, ok := exclude[o.ID]; !ok {
			out = append(out, o)
		}
	}
	return out
}

// PreferenceCriteria maps a rider profile onto the filter used in preference
// mode. Budget caps the price, tour types match tags, and languages only apply
// to itineraries since activities carry no guide language.
func PreferenceCriteria(pref model.Preference, kind model.OfferingKind) Criteria {
	c := Criteria{
		MaxPrice:   pref.Budget,
		Categories: pref.Categories,
		TourTypes:  pref.TourTypes,
	}
	if kind == model.KindItinerary {
		c.Languages = pref.Languages
	}
	return c
}

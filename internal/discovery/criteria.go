// Package discovery holds the pure filtering, searching and ranking logic
// behind the activity and itinerary listings. Nothing here touches storage.
package discovery

import (
	"strings"
	"time"
	"tripmarket/pkg/model"
)

// Predicate decides whether a single offering is kept.
type Predicate func(o *model.Offering) bool

// All is the conjunction of preds. With no predicates it keeps everything.
func All(preds ...Predicate) Predicate {
	return func(o *model.Offering) bool {
		for _, p := range preds {
			if !p(o) {
				return false
			}
		}
		return true
	}
}

// Filter returns the offerings accepted by pred, keeping pool order.
func Filter(pool []*model.Offering, pred Predicate) []*model.Offering {
	out := make([]*model.Offering, 0, len(pool))
	for _, o := range pool {
		if pred(o) {
			out = append(out, o)
		}
	}
	return out
}

// Criteria is an open filter: every nil or empty field imposes no restriction.
type Criteria struct {
	MinPrice   *float64
	MaxPrice   *float64
	StartDate  *time.Time
	EndDate    *time.Time
	Categories []string
	MinRating  *float64
	Languages  []string
	TourTypes  []string
}

// IsEmpty reports whether no constraint is set.
func (c Criteria) IsEmpty() bool {
	return c.MinPrice == nil && c.MaxPrice == nil &&
		c.StartDate == nil && c.EndDate == nil &&
		len(c.Categories) == 0 && c.MinRating == nil &&
		len(c.Languages) == 0 && len(c.TourTypes) == 0
}

// Predicate compiles the provided constraints into one conjunction.
func (c Criteria) Predicate() Predicate {
	var preds []Predicate

	if c.MinPrice != nil {
		minPrice := *c.MinPrice
		preds = append(preds, func(o *model.Offering) bool { return o.Price >= minPrice })
	}
	if c.MaxPrice != nil {
		maxPrice := *c.MaxPrice
		preds = append(preds, func(o *model.Offering) bool { return o.Price <= maxPrice })
	}
	if c.StartDate != nil || c.EndDate != nil {
		preds = append(preds, DateRange(c.StartDate, c.EndDate))
	}
	if len(c.Categories) > 0 {
		categories := c.Categories
		preds = append(preds, func(o *model.Offering) bool { return intersects(o.Categories, categories) })
	}
	if c.MinRating != nil {
		minRating := *c.MinRating
		preds = append(preds, func(o *model.Offering) bool { return o.Rating >= minRating })
	}
	if len(c.Languages) > 0 {
		languages := c.Languages
		preds = append(preds, func(o *model.Offering) bool { return intersects(o.Languages, languages) })
	}
	if len(c.TourTypes) > 0 {
		tourTypes := c.TourTypes
		preds = append(preds, func(o *model.Offering) bool { return intersects(o.Tags, tourTypes) })
	}

	return All(preds...)
}

// DateRange keeps offerings with at least one date inside [start, end].
// Either bound may be nil.
func DateRange(start, end *time.Time) Predicate {
	return func(o *model.Offering) bool {
		for _, d := range o.Dates() {
			if start != nil && d.Before(*start) {
				continue
			}
			if end != nil && d.After(*end) {
				continue
			}
			return true
		}
		return false
	}
}

// Upcoming keeps offerings that still have a date after now.
func Upcoming(now time.Time) Predicate {
	return func(o *model.Offering) bool { return o.IsUpcoming(now) }
}

// Listed keeps offerings visible to riders.
func Listed() Predicate {
	return func(o *model.Offering) bool { return o.Active && o.Appropriate }
}

// OwnedBy keeps offerings created by ownerID.
func OwnedBy(ownerID string) Predicate {
	return func(o *model.Offering) bool { return o.OwnerID == ownerID }
}

func intersects(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

package model

import (
	"time"
)

type OfferingKind string

const (
	KindActivity  OfferingKind = "activity"
	KindItinerary OfferingKind = "itinerary"
)

func (k OfferingKind) Valid() bool {
	return k == KindActivity || k == KindItinerary
}

type Location struct {
	Address string  `json:"address" bson:"address"`
	Lat     float64 `json:"lat,omitempty" bson:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty" bson:"lng,omitempty"`
}

type AvailableDate struct {
	Date      time.Time `json:"date" bson:"date"`
	TimeSlots []string  `json:"time_slots,omitempty" bson:"time_slots,omitempty"`
}

// Offering is either a single-date activity or a multi-date itinerary.
// Activities use Timing, itineraries use AvailableDates.
type Offering struct {
	ID             string          `json:"id,omitempty" bson:"_id,omitempty"`
	Kind           OfferingKind    `json:"kind" bson:"kind"`
	Name           string          `json:"name" bson:"name"`
	Description    string          `json:"description,omitempty" bson:"description,omitempty"`
	Location       Location        `json:"location" bson:"location"`
	Price          float64         `json:"price" bson:"price"`
	Currency       string          `json:"currency" bson:"currency"`
	Timing         *time.Time      `json:"timing,omitempty" bson:"timing,omitempty"`
	AvailableDates []AvailableDate `json:"available_dates,omitempty" bson:"available_dates,omitempty"`
	Categories     []string        `json:"categories" bson:"categories"`
	Tags           []string        `json:"tags" bson:"tags"`
	Languages      []string        `json:"languages,omitempty" bson:"languages,omitempty"`
	Rating         float64         `json:"rating" bson:"rating"`
	Comments       []Comment       `json:"comments,omitempty" bson:"comments,omitempty"`
	OwnerID        string          `json:"owner_id" bson:"owner_id"`
	Active         bool            `json:"active" bson:"active"`
	Appropriate    bool            `json:"appropriate" bson:"appropriate"`
	CreatedAt      time.Time       `json:"created_at" bson:"created_at"`
}

// Dates returns every point in time the offering takes place.
func (o *Offering) Dates() []time.Time {
	if o.Kind == KindActivity || len(o.AvailableDates) == 0 {
		if o.Timing == nil {
			return nil
		}
		return []time.Time{*o.Timing}
	}
	dates := make([]time.Time, 0, len(o.AvailableDates))
	for _, d := range o.AvailableDates {
		dates = append(dates, d.Date)
	}
	return dates
}

// IsUpcoming reports whether at least one date lies after now.
func (o *Offering) IsUpcoming(now time.Time) bool {
	for _, d := range o.Dates() {
		if d.After(now) {
			return true
		}
	}
	return false
}

// Bookable is the availability rule applied before any payment.
func (o *Offering) Bookable(now time.Time) bool {
	return o.Active && o.Appropriate && o.IsUpcoming(now)
}

// OffersDate reports whether day matches one of the itinerary's available
// calendar days (compared in UTC).
func (o *Offering) OffersDate(day time.Time) bool {
	y, m, d := day.UTC().Date()
	for _, candidate := range o.Dates() {
		cy, cm, cd := candidate.UTC().Date()
		if cy == y && cm == m && cd == d {
			return true
		}
	}
	return false
}

// OfferingSummary is the discovery representation with category details attached.
type OfferingSummary struct {
	*Offering
	CategoryDetails []*Category `json:"category_details"`
}

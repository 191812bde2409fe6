package model

// Preference is the rider's stored taste profile. Historical place fields are
// persisted for completeness but do not influence activity or itinerary ranking.
type Preference struct {
	Budget                 *float64 `json:"budget,omitempty" bson:"budget,omitempty"`
	Categories             []string `json:"categories,omitempty" bson:"categories,omitempty"`
	Languages              []string `json:"languages,omitempty" bson:"languages,omitempty"`
	TourTypes              []string `json:"tour_types,omitempty" bson:"tour_types,omitempty"`
	HistoricalPlaceTypes   []string `json:"historical_place_types,omitempty" bson:"historical_place_types,omitempty"`
	HistoricalPlacePeriods []string `json:"historical_place_periods,omitempty" bson:"historical_place_periods,omitempty"`
}

// Rider is a tourist account. Wallet, points and badge are owned by the
// booking and loyalty flows and are never written by profile updates.
type Rider struct {
	ID            string     `json:"id" bson:"_id,omitempty"`
	Username      string     `json:"username" bson:"username"`
	Email         string     `json:"email" bson:"email"`
	Phone         string     `json:"phone,omitempty" bson:"phone,omitempty"`
	Preference    Preference `json:"preference" bson:"preference"`
	Wallet        float64    `json:"wallet" bson:"wallet"`
	LoyaltyPoints float64    `json:"loyalty_points" bson:"loyalty_points"`
	TotalPoints   float64    `json:"total_points" bson:"total_points"`
	LoyaltyBadge  string     `json:"loyalty_badge" bson:"loyalty_badge"`
}

// RiderSnapshot is the post-transaction view returned alongside a booking.
type RiderSnapshot struct {
	Wallet        float64 `json:"wallet"`
	LoyaltyPoints float64 `json:"loyalty_points"`
	TotalPoints   float64 `json:"total_points"`
	LoyaltyBadge  string  `json:"loyalty_badge"`
}

func (r *Rider) Snapshot() RiderSnapshot {
	return RiderSnapshot{
		Wallet:        r.Wallet,
		LoyaltyPoints: r.LoyaltyPoints,
		TotalPoints:   r.TotalPoints,
		LoyaltyBadge:  r.LoyaltyBadge,
	}
}

type RedeemRequest struct {
	Points float64 `json:"points" validate:"required,gt=0"`
}

// LoyaltySummary is the rider's loyalty standing with the ladder it was derived from.
type LoyaltySummary struct {
	RiderSnapshot
	Multiplier      float64 `json:"multiplier"`
	NextBadge       string  `json:"next_badge,omitempty"`
	PointsToNext    float64 `json:"points_to_next,omitempty"`
	RedeemableValue float64 `json:"redeemable_value"`
	TableVersion    string  `json:"table_version"`
}

// RedeemReceipt reports a points to wallet conversion.
type RedeemReceipt struct {
	PointsRedeemed float64       `json:"points_redeemed"`
	WalletCredit   float64       `json:"wallet_credit"`
	Rider          RiderSnapshot `json:"rider"`
}

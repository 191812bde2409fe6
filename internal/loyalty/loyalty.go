// Package loyalty turns payments into points and derives the rider badge.
// Every function is pure; persistence belongs to the bookings and riders packages.
package loyalty

import (
	"math"
	"tripmarket/pkg/model"
)

type Badge string

const (
	Bronze Badge = "Bronze"
	Silver Badge = "Silver"
	Gold   Badge = "Gold"
)

// Tier is one step of the badge ladder.
type Tier struct {
	Badge      Badge
	MinTotal   float64
	Multiplier float64
}

// Table is an ordered, versioned badge ladder. Tiers must be sorted by MinTotal
// ascending and the first tier must start at zero.
type Table struct {
	Version string
	Tiers   []Tier
}

// DefaultTable is the ladder currently in force.
var DefaultTable = Table{
	Version: "2024.1",
	Tiers: []Tier{
		{Badge: Bronze, MinTotal: 0, Multiplier: 0.5},
		{Badge: Silver, MinTotal: 100000, Multiplier: 1.0},
		{Badge: Gold, MinTotal: 500000, Multiplier: 1.5},
	},
}

// RedemptionRate is how many points buy one currency unit (10000 points = 100).
const RedemptionRate = 100.0

func (t Table) rank(b Badge) int {
	for i, tier := range t.Tiers {
		if tier.Badge == b {
			return i
		}
	}
	return -1
}

// Lowest returns the entry badge.
func (t Table) Lowest() Badge {
	return t.Tiers[0].Badge
}

// Normalize maps an unknown or empty badge to the entry badge.
func (t Table) Normalize(b Badge) Badge {
	if t.rank(b) < 0 {
		return t.Lowest()
	}
	return b
}

// TierMultiplier returns the points earned per currency unit for b.
// Unknown badges earn at the entry rate.
func (t Table) TierMultiplier(b Badge) float64 {
	return t.Tiers[t.rank(t.Normalize(b))].Multiplier
}

// BadgeForTotal is a monotone step function of cumulative points.
func (t Table) BadgeForTotal(total float64) Badge {
	badge := t.Lowest()
	for _, tier := range t.Tiers {
		if total >= tier.MinTotal {
			badge = tier.Badge
		}
	}
	return badge
}

// Next returns the tier after b and whether one exists.
func (t Table) Next(b Badge) (Tier, bool) {
	i := t.rank(t.Normalize(b)) + 1
	if i >= len(t.Tiers) {
		return Tier{}, false
	}
	return t.Tiers[i], true
}

// Max returns the higher of two badges.
func (t Table) Max(a, b Badge) Badge {
	if t.rank(t.Normalize(a)) >= t.rank(t.Normalize(b)) {
		return t.Normalize(a)
	}
	return t.Normalize(b)
}

// State is the loyalty part of a rider.
type State struct {
	Points      float64
	TotalPoints float64
	Badge       Badge
}

func StateOf(r *model.Rider) State {
	return State{
		Points:      r.LoyaltyPoints,
		TotalPoints: r.TotalPoints,
		Badge:       Badge(r.LoyaltyBadge),
	}
}

// Accrual is the result of applying one payment.
type Accrual struct {
	Earned float64
	State  State
}

// PointsFor returns the points a payment earns at the given badge.
func (t Table) PointsFor(b Badge, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	return model.RoundMoney(amount * t.TierMultiplier(b))
}

// Accrue credits the points for amount, using the multiplier of the badge
// held before the payment. The badge never goes down.
func (t Table) Accrue(s State, amount float64) Accrual {
	earned := t.PointsFor(s.Badge, amount)
	next := State{
		Points:      model.RoundMoney(s.Points + earned),
		TotalPoints: model.RoundMoney(s.TotalPoints + earned),
		Badge:       s.Badge,
	}
	return Accrual{Earned: earned, State: t.Promote(next)}
}

// Promote raises the badge to the one the cumulative total has reached.
// It never lowers it.
func (t Table) Promote(s State) State {
	s.Badge = t.Max(s.Badge, t.BadgeForTotal(s.TotalPoints))
	return s
}

// Redemption is the result of converting spendable points to wallet credit.
type Redemption struct {
	Points float64
	Credit float64
	State  State
}

// Redeem converts points to wallet credit. Only spendable points go down;
// cumulative totals and the badge stay as they are. ok is false when the
// rider does not hold enough points.
func (t Table) Redeem(s State, points float64) (Redemption, bool) {
	if points <= 0 || points > s.Points {
		return Redemption{State: s}, false
	}
	next := s
	next.Points = model.RoundMoney(s.Points - points)
	return Redemption{
		Points: points,
		Credit: CreditFor(points),
		State:  next,
	}, true
}

// CreditFor is the wallet credit bought by points, rounded down to the cent.
func CreditFor(points float64) float64 {
	cents := math.Floor(points*100/RedemptionRate + 1e-9)
	return cents / 100
}

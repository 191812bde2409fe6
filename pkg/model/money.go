package model

import "math"

// RoundMoney rounds to whole cents, half away from zero.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

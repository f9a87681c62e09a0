package model

import "math"

const TaxRate = 0.10

func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// Tax is a display value derived from the stored total; it is never persisted.
func Tax(total float64) float64 {
	return RoundMoney(total * TaxRate)
}

func GrandTotal(total float64) float64 {
	return RoundMoney(total + Tax(total))
}

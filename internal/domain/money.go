package domain

import "fmt"

// Money is a monetary amount in minor currency units (cents).
// All ledger arithmetic is integer arithmetic; amounts never touch floats,
// so repeated batch runs cannot drift.
type Money int64

// String formats the amount as a decimal with two fraction digits,
// e.g. -2000 → "-20.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Abs returns the absolute value of the amount.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// MonthlyInterest computes one month of interest on a balance at the given
// annual rate in basis points: balance * rate / 12, rounded half away from
// zero to the cent. The legacy cycle-end programs rounded this way, and the
// statement totals only reconcile if we do too.
func MonthlyInterest(balance Money, rateBPS int64) Money {
	// rateBPS/10000 is the annual rate; divide by a further 12 for one month.
	return Money(divRoundHalfAway(int64(balance)*rateBPS, 120000))
}

// PercentOf returns rateBPS basis points of the amount, rounded half away
// from zero. Used for minimum-payment computation.
func PercentOf(amount Money, rateBPS int64) Money {
	return Money(divRoundHalfAway(int64(amount)*rateBPS, 10000))
}

// divRoundHalfAway divides num by den rounding half away from zero.
// den must be positive.
func divRoundHalfAway(num, den int64) int64 {
	if num >= 0 {
		return (num + den/2) / den
	}
	return -((-num + den/2) / den)
}

package auction

import "github.com/shopspring/decimal"

var minIncrement = decimal.RequireFromString("1.10")

// MinimumBid is the amount a new bid must strictly exceed: floor(price * 1.10),
// never below the price itself so the pointer only moves up.
func MinimumBid(price decimal.Decimal) decimal.Decimal {
	min := price.Mul(minIncrement).Floor()
	if min.LessThan(price) {
		return price
	}
	return min
}

// Outbids reports whether amount is acceptable against the current price.
func Outbids(amount, price decimal.Decimal) bool {
	return amount.GreaterThan(MinimumBid(price))
}

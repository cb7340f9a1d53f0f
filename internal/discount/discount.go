// Package discount redistributes a promotion coupon's percentage across the
// eligible lines of a basket.
//
// Percentages are expressed in basis points (2000 = 20.00%). A discounted
// unit price is floor(unitPrice * (10000 - bp) / 10000) in integer minor
// units.
package discount

import (
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

// MaxBasisPoints is 100%.
const MaxBasisPoints = 10000

var maxBP = decimal.NewFromInt(MaxBasisPoints)

// HasPromotion reports whether any line is a promotion coupon.
func HasPromotion(lines []domain.BasketLine) bool {
	for _, l := range lines {
		if l.Category.IsPromotion() {
			return true
		}
	}
	return false
}

// Apply returns a copy of lines with the discount applied. Without a
// promotion line, every line is priced at its unit price with no discount.
// The promotion line and lines not flagged DiscountApplicable are never
// discounted.
func Apply(lines []domain.BasketLine, percentBP int64) []domain.BasketLine {
	out := make([]domain.BasketLine, len(lines))
	copy(out, lines)

	percentBP = clamp(percentBP)
	promo := HasPromotion(lines)

	for i := range out {
		l := &out[i]
		if !promo || l.Category.IsPromotion() || !l.DiscountApplicable {
			l.DiscountedUnitPrice = l.UnitPrice
			l.DiscountPercent = 0
			continue
		}
		l.DiscountPercent = percentBP
		l.DiscountedUnitPrice = domain.Money{
			Currency:         l.UnitPrice.Currency,
			AmountMinorUnits: Price(l.UnitPrice.AmountMinorUnits, percentBP),
		}
	}

	return out
}

// Price applies percentBP to a single minor-unit amount, truncating toward
// zero.
func Price(amount, percentBP int64) int64 {
	percentBP = clamp(percentBP)
	keep := maxBP.Sub(decimal.NewFromInt(percentBP))
	return decimal.NewFromInt(amount).Mul(keep).Div(maxBP).Truncate(0).IntPart()
}

func clamp(bp int64) int64 {
	if bp < 0 {
		return 0
	}
	if bp > MaxBasisPoints {
		return MaxBasisPoints
	}
	return bp
}

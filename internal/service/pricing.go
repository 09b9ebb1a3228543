package service

import (
	"fmt"
	"math"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
)

// Order pricing. All arithmetic happens in integer cents so repeated
// float additions cannot drift the stored value; rounding to two fraction
// digits exists only at the presentation edge (FormatTotal).

// toCents converts a monetary amount to integer cents.
func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// ComputeTotal returns the order total:
//
//	Σ (unitPrice × totalQuantity) over items with ignore=false
//	+ shippingCost − discountValue
//
// An empty item list yields shippingCost − discountValue. A discount larger
// than the goods value produces a negative total; the gateway does not clamp
// it — whether that is valid business state is upstream's call.
func ComputeTotal(items []domain.OrderLineItem, shippingCost, discountValue float64) float64 {
	var cents int64
	for _, item := range items {
		if item.Ignore {
			continue
		}
		cents += toCents(item.UnitPrice) * int64(item.TotalQuantity)
	}
	cents += toCents(shippingCost)
	cents -= toCents(discountValue)
	return float64(cents) / 100
}

// FormatTotal renders a total with two fraction digits for display.
func FormatTotal(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

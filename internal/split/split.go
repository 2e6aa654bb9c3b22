// Package split computes per-diner payment shares for a table's order
// history. All arithmetic is done in integer cents so that shares always sum
// exactly to the total consumed, with remainder cents assigned
// deterministically by join order.
package split

import (
	"fmt"
	"math"

	"github.com/tavolo/go-table-backend/internal/domain"
)

// ComputeShares allocates the total of all non-cancelled orders among diners
// using the given split method. It is a pure function: no clocks, no
// persistence, no randomness.
//
// Methods:
//   - equal: total ÷ diner count; remainder cents go to the first N diners
//     in join order so the shares sum exactly to the total.
//   - by_consumption: each diner owes the sum of their own items across all
//     rounds; diners who added nothing get an explicit zero share.
//   - custom: returns a zeroed share per diner for the caller to override.
//
// Items in by_consumption whose owning diner is not in the diner list are
// ignored; the session store never produces such items.
func ComputeShares(method domain.SplitMethod, diners []domain.Diner, orders []domain.OrderRecord) ([]domain.PaymentShare, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("unknown split method %q", method)
	}
	if len(diners) == 0 {
		return nil, fmt.Errorf("must have at least one diner")
	}

	switch method {
	case domain.SplitEqual:
		return equalShares(diners, orders), nil
	case domain.SplitByConsumption:
		return consumptionShares(diners, orders), nil
	default: // domain.SplitCustom
		return zeroShares(diners, method), nil
	}
}

// itemCents returns the integer-cent value of one cart line.
func itemCents(it domain.CartItem) int64 {
	return int64(math.Round(it.Price*100)) * int64(it.Quantity)
}

// totalCents sums all non-cancelled order items in cents.
func totalCents(orders []domain.OrderRecord) int64 {
	var total int64
	for _, o := range orders {
		if o.Status == domain.OrderCancelled {
			continue
		}
		for _, it := range o.Items {
			total += itemCents(it)
		}
	}
	return total
}

func equalShares(diners []domain.Diner, orders []domain.OrderRecord) []domain.PaymentShare {
	total := totalCents(orders)
	n := int64(len(diners))
	base := total / n
	rem := total % n

	shares := make([]domain.PaymentShare, len(diners))
	for i, d := range diners {
		cents := base
		if int64(i) < rem {
			cents++
		}
		shares[i] = domain.PaymentShare{
			DinerID:   d.ID,
			DinerName: d.Name,
			Amount:    float64(cents) / 100,
			Method:    string(domain.SplitEqual),
		}
	}
	return shares
}

func consumptionShares(diners []domain.Diner, orders []domain.OrderRecord) []domain.PaymentShare {
	owed := make(map[string]int64, len(diners))
	for _, o := range orders {
		if o.Status == domain.OrderCancelled {
			continue
		}
		for _, it := range o.Items {
			owed[it.DinerID] += itemCents(it)
		}
	}

	shares := make([]domain.PaymentShare, len(diners))
	for i, d := range diners {
		shares[i] = domain.PaymentShare{
			DinerID:   d.ID,
			DinerName: d.Name,
			Amount:    float64(owed[d.ID]) / 100,
			Method:    string(domain.SplitByConsumption),
		}
	}
	return shares
}

func zeroShares(diners []domain.Diner, method domain.SplitMethod) []domain.PaymentShare {
	shares := make([]domain.PaymentShare, len(diners))
	for i, d := range diners {
		shares[i] = domain.PaymentShare{
			DinerID:   d.ID,
			DinerName: d.Name,
			Method:    string(method),
		}
	}
	return shares
}

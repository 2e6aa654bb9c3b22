package split

import (
	"math"
	"testing"

	"github.com/tavolo/go-table-backend/internal/domain"
)

func diner(id, name string) domain.Diner {
	return domain.Diner{ID: id, Name: name}
}

func order(round int, status domain.OrderStatus, items ...domain.CartItem) domain.OrderRecord {
	var subtotal float64
	for _, it := range items {
		subtotal += it.Subtotal()
	}
	return domain.OrderRecord{Round: round, Status: status, Items: items, Subtotal: subtotal}
}

func item(dinerID string, price float64, qty int) domain.CartItem {
	return domain.CartItem{DinerID: dinerID, Price: price, Quantity: qty}
}

func sumShares(shares []domain.PaymentShare) float64 {
	var s float64
	for _, sh := range shares {
		s += sh.Amount
	}
	return s
}

func TestComputeShares(t *testing.T) {
	tests := []struct {
		name     string
		method   domain.SplitMethod
		diners   []domain.Diner
		orders   []domain.OrderRecord
		wantErr  bool
		validate func(t *testing.T, shares []domain.PaymentShare)
	}{
		{
			name:   "equal split, even total",
			method: domain.SplitEqual,
			diners: []domain.Diner{diner("a", "Alice"), diner("b", "Bob")},
			orders: []domain.OrderRecord{
				order(1, domain.OrderSubmitted, item("a", 10.00, 2), item("b", 5.00, 2)),
			},
			validate: func(t *testing.T, shares []domain.PaymentShare) {
				// 30.00 total, 15.00 each
				for _, sh := range shares {
					if math.Abs(sh.Amount-15.00) > 1e-9 {
						t.Errorf("%s amount = %v, want 15.00", sh.DinerName, sh.Amount)
					}
				}
			},
		},
		{
			name:   "equal split distributes remainder cents to first diners",
			method: domain.SplitEqual,
			diners: []domain.Diner{diner("a", "Alice"), diner("b", "Bob"), diner("c", "Carol")},
			orders: []domain.OrderRecord{
				order(1, domain.OrderSubmitted, item("a", 10.00, 1)),
			},
			validate: func(t *testing.T, shares []domain.PaymentShare) {
				// 1000 cents / 3 = 333 rem 1; Alice gets the extra cent.
				want := []float64{3.34, 3.33, 3.33}
				for i, sh := range shares {
					if math.Abs(sh.Amount-want[i]) > 1e-9 {
						t.Errorf("share[%d] = %v, want %v", i, sh.Amount, want[i])
					}
				}
				if math.Abs(sumShares(shares)-10.00) > 1e-9 {
					t.Errorf("shares sum = %v, want 10.00", sumShares(shares))
				}
			},
		},
		{
			name:   "equal split single diner",
			method: domain.SplitEqual,
			diners: []domain.Diner{diner("a", "Alice")},
			orders: []domain.OrderRecord{
				order(1, domain.OrderSubmitted, item("a", 7.77, 3)),
			},
			validate: func(t *testing.T, shares []domain.PaymentShare) {
				if len(shares) != 1 || math.Abs(shares[0].Amount-23.31) > 1e-9 {
					t.Errorf("shares = %+v, want single 23.31", shares)
				}
			},
		},
		{
			name:   "by consumption zero share for late joiner",
			method: domain.SplitByConsumption,
			diners: []domain.Diner{diner("a", "Alice"), diner("b", "Bob")},
			orders: []domain.OrderRecord{
				// Alice ordered $10.00 x2 and $5.50 x1; Bob joined later, nothing yet.
				order(1, domain.OrderSubmitted, item("a", 10.00, 2), item("a", 5.50, 1)),
			},
			validate: func(t *testing.T, shares []domain.PaymentShare) {
				if math.Abs(shares[0].Amount-25.50) > 1e-9 {
					t.Errorf("Alice = %v, want 25.50", shares[0].Amount)
				}
				if shares[1].Amount != 0 {
					t.Errorf("Bob = %v, want explicit zero share", shares[1].Amount)
				}
				if math.Abs(sumShares(shares)-25.50) > 1e-9 {
					t.Errorf("shares sum = %v, want 25.50", sumShares(shares))
				}
			},
		},
		{
			name:   "cancelled rounds excluded",
			method: domain.SplitByConsumption,
			diners: []domain.Diner{diner("a", "Alice")},
			orders: []domain.OrderRecord{
				order(1, domain.OrderDelivered, item("a", 12.00, 1)),
				order(2, domain.OrderCancelled, item("a", 99.00, 1)),
			},
			validate: func(t *testing.T, shares []domain.PaymentShare) {
				if math.Abs(shares[0].Amount-12.00) > 1e-9 {
					t.Errorf("Alice = %v, want 12.00", shares[0].Amount)
				}
			},
		},
		{
			name:   "custom returns zeroed override-ready shares",
			method: domain.SplitCustom,
			diners: []domain.Diner{diner("a", "Alice"), diner("b", "Bob")},
			orders: []domain.OrderRecord{
				order(1, domain.OrderSubmitted, item("a", 10.00, 1)),
			},
			validate: func(t *testing.T, shares []domain.PaymentShare) {
				if len(shares) != 2 {
					t.Fatalf("got %d shares, want 2", len(shares))
				}
				for _, sh := range shares {
					if sh.Amount != 0 {
						t.Errorf("%s amount = %v, want 0", sh.DinerName, sh.Amount)
					}
					if sh.Method != string(domain.SplitCustom) {
						t.Errorf("%s method = %q", sh.DinerName, sh.Method)
					}
				}
			},
		},
		{
			name:    "no diners should error",
			method:  domain.SplitEqual,
			diners:  nil,
			wantErr: true,
		},
		{
			name:    "unknown method should error",
			method:  domain.SplitMethod("halvsies"),
			diners:  []domain.Diner{diner("a", "Alice")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := ComputeShares(tt.method, tt.diners, tt.orders)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got shares %+v", shares)
				}
				return
			}
			if err != nil {
				t.Fatalf("ComputeShares failed: %v", err)
			}
			if len(shares) != len(tt.diners) {
				t.Fatalf("got %d shares, want %d", len(shares), len(tt.diners))
			}
			tt.validate(t, shares)
		})
	}
}

// Shares must sum to the total to the cent for awkward prices and any diner count.
func TestComputeShares_EqualSumsExactly(t *testing.T) {
	orders := []domain.OrderRecord{
		order(1, domain.OrderSubmitted, item("a", 3.33, 3), item("a", 0.01, 1)),
		order(2, domain.OrderSubmitted, item("a", 19.99, 1)),
	}
	total := 3.33*3 + 0.01 + 19.99

	for n := 1; n <= 7; n++ {
		diners := make([]domain.Diner, n)
		for i := range diners {
			diners[i] = diner(string(rune('a'+i)), "D")
		}
		shares, err := ComputeShares(domain.SplitEqual, diners, orders)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if math.Abs(sumShares(shares)-total) > 0.001 {
			t.Errorf("n=%d: shares sum = %v, want %v", n, sumShares(shares), total)
		}
	}
}

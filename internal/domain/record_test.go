package domain

import (
	"testing"
	"time"
)

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusOpen, OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCancelled} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if OrderStatus("expired").Valid() {
		t.Error("expired should not be valid")
	}
}

func TestOrderRecord_Lifecycle(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	o := NewOrder(OrderTypeGoodTillCanceled, "b1", SideBuy, 100, 10)

	r := NewOrderRecord("AAPL", o, created)
	if r.Status != OrderStatusOpen || r.RemainingQuantity != 10 || r.FilledQuantity() != 0 {
		t.Fatalf("unexpected new record: %+v", r)
	}
	if r.Symbol != "AAPL" || r.Price != 100 || r.Side != SideBuy {
		t.Fatalf("record did not capture the order: %+v", r)
	}

	filled := created.Add(time.Second)
	r.ApplyFill(4, filled)
	if r.Status != OrderStatusPartiallyFilled || r.FilledQuantity() != 6 {
		t.Errorf("after partial fill: status %s filled %d", r.Status, r.FilledQuantity())
	}
	if !r.UpdatedAt.Equal(filled) || !r.CreatedAt.Equal(created) {
		t.Errorf("timestamps: created %v updated %v", r.CreatedAt, r.UpdatedAt)
	}

	r.ApplyFill(0, filled)
	if r.Status != OrderStatusFilled {
		t.Errorf("expected filled, got %s", r.Status)
	}
}

package broker

import (
	"context"
	"errors"
	"testing"

	"grid-broker/internal/types"

	"github.com/shopspring/decimal"
)

func TestPaperAdapter_Lifecycle(t *testing.T) {
	ctx := context.Background()
	a := NewPaperAdapter("ACC.001")
	id, err := a.PlaceLimitOrder(ctx, limitRequest())
	if err != nil || id == "" {
		t.Fatalf("place = %q, %v", id, err)
	}

	o, err := a.FetchOrder(ctx, id)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if o.State.Status != types.OrderStatusWorking {
		t.Fatalf("status = %q, want working", o.State.Status)
	}

	o, err = a.FetchOrder(ctx, id)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if o.State.Status != types.OrderStatusFilled || len(o.State.Fills) != 1 {
		t.Fatalf("unexpected order %+v", o)
	}
	if !o.State.Fills[0].Price.Equal(decimal.RequireFromString("1.02")) {
		t.Fatalf("fill price = %s", o.State.Fills[0].Price)
	}

	again, _ := a.FetchOrder(ctx, id)
	if !again.Equal(o) {
		t.Fatal("filled order must stay unchanged on later fetches")
	}
}

func TestPaperAdapter_Errors(t *testing.T) {
	a := NewPaperAdapter("ACC.001")
	if _, err := a.FetchOrder(context.Background(), "nope"); !errors.Is(err, ErrUnknownOrder) {
		t.Fatalf("err = %v, want ErrUnknownOrder", err)
	}
	req := limitRequest()
	req.Quantity = decimal.Zero
	if _, err := a.PlaceLimitOrder(context.Background(), req); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

package orders

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"grid-broker/internal/model"
	"grid-broker/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeFetcher struct {
	mu     sync.Mutex
	orders map[string]model.Order
	errs   map[string]error
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		orders: map[string]model.Order{},
		errs:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeFetcher) set(o model.Order) {
	f.mu.Lock()
	f.orders[o.ID] = o
	f.mu.Unlock()
}

func (f *fakeFetcher) fail(id string, err error) {
	f.mu.Lock()
	f.errs[id] = err
	f.mu.Unlock()
}

func (f *fakeFetcher) FetchOrder(_ context.Context, id string) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if err := f.errs[id]; err != nil {
		return model.Order{}, err
	}
	return f.orders[id].Clone(), nil
}

func order(id string, status types.OrderStatus, fills ...model.Fill) model.Order {
	return model.Order{
		ID:    id,
		State: model.OrderState{Status: status, Fills: fills},
		Parameters: model.OrderParameters{
			Side:       types.OrderSideBuy,
			Quantity:   decimal.NewFromInt(10),
			Instrument: "EUR/USD.E.FX",
			OrderType:  types.OrderTypeLimit,
		},
	}
}

func TestPoller_AddOrderIsIdempotent(t *testing.T) {
	f := newFakeFetcher()
	f.set(order("A", types.OrderStatusWorking))
	p := NewPoller(f, time.Second, nil, nil, nil)

	p.AddOrder("A")
	if got := p.PollOnce(context.Background()); len(got) != 1 {
		t.Fatalf("first scan changed = %d, want 1", len(got))
	}
	p.AddOrder("A")
	if snap, _ := p.Snapshot("A"); snap.State.Status != types.OrderStatusWorking {
		t.Fatalf("re-adding reset stored state: %+v", snap)
	}
	if p.Len() != 1 {
		t.Fatalf("len = %d", p.Len())
	}
}

func TestPoller_RemoveUnknownIsNoop(t *testing.T) {
	p := NewPoller(newFakeFetcher(), time.Second, nil, nil, nil)
	p.AddOrder("A")
	p.RemoveOrder("missing")
	p.RemoveOrder("A")
	p.RemoveOrder("A")
	if p.Len() != 0 {
		t.Fatalf("len = %d", p.Len())
	}
}

func TestPoller_ReportsOnlyChanges(t *testing.T) {
	f := newFakeFetcher()
	f.set(order("A", types.OrderStatusWorking))
	f.set(order("B", types.OrderStatusWorking))
	p := NewPoller(f, time.Second, nil, nil, nil)
	p.AddOrder("A")
	p.AddOrder("B")
	ctx := context.Background()

	if got := p.PollOnce(ctx); len(got) != 2 {
		t.Fatalf("first scan changed = %d, want 2", len(got))
	}
	if got := p.PollOnce(ctx); len(got) != 0 {
		t.Fatalf("unchanged scan reported %v", got)
	}

	f.set(order("B", types.OrderStatusFilled, model.Fill{Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(16)}))
	got := p.PollOnce(ctx)
	if len(got) != 1 || got[0].ID != "B" || got[0].State.Status != types.OrderStatusFilled {
		t.Fatalf("changed = %+v", got)
	}
}

func TestPoller_FetchFailureKeepsStoredState(t *testing.T) {
	f := newFakeFetcher()
	f.set(order("A", types.OrderStatusWorking))
	f.set(order("B", types.OrderStatusWorking))
	p := NewPoller(f, time.Second, nil, nil, nil)
	p.AddOrder("A")
	p.AddOrder("B")
	ctx := context.Background()
	p.PollOnce(ctx)

	f.set(order("A", types.OrderStatusCancelled))
	f.fail("B", errors.New("503"))
	got := p.PollOnce(ctx)
	if len(got) != 1 || got[0].ID != "A" {
		t.Fatalf("changed = %+v, want only A", got)
	}
	if snap, ok := p.Snapshot("B"); !ok || snap.State.Status != types.OrderStatusWorking {
		t.Fatalf("B snapshot = %+v, %v", snap, ok)
	}

	f.fail("B", nil)
	if got := p.PollOnce(ctx); len(got) != 0 {
		t.Fatalf("B recovered unchanged but reported %+v", got)
	}
}

func TestPoller_WarnsOnUnrecognisedStatus(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFakeFetcher()
	f.set(order("A", types.OrderStatusWorking))
	f.set(order("B", types.OrderStatus("suspended")))
	p := NewPoller(f, time.Second, nil, zap.New(core).Sugar(), nil)
	p.AddOrder("A")
	p.AddOrder("B")

	if got := p.PollOnce(context.Background()); len(got) != 2 {
		t.Fatalf("changed = %d, want 2", len(got))
	}
	warned := logs.FilterMessage("order reported an unrecognised status").All()
	if len(warned) != 1 || warned[0].ContextMap()["order_id"] != "B" {
		t.Fatalf("warnings = %+v", logs.All())
	}
}

func TestPoller_ChangedOrdersAreCopies(t *testing.T) {
	f := newFakeFetcher()
	f.set(order("A", types.OrderStatusFilled, model.Fill{Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(2)}))
	p := NewPoller(f, time.Second, nil, nil, nil)
	p.AddOrder("A")

	got := p.PollOnce(context.Background())
	got[0].State.Fills[0].Price = decimal.NewFromInt(99)
	snap, _ := p.Snapshot("A")
	if !snap.State.Fills[0].Price.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("stored fill mutated through callback copy: %s", snap.State.Fills[0].Price)
	}
}

func TestPoller_TrackedIDsSorted(t *testing.T) {
	p := NewPoller(newFakeFetcher(), time.Second, nil, nil, nil)
	for _, id := range []string{"c", "a", "b"} {
		p.AddOrder(id)
	}
	if got := p.TrackedIDs(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("ids = %v", got)
	}
}

func TestPoller_RunInvokesCallbackOutsideLock(t *testing.T) {
	f := newFakeFetcher()
	f.set(order("A", types.OrderStatusFilled))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []model.Order, 1)
	var p *Poller
	p = NewPoller(f, 5*time.Millisecond, func(changed []model.Order) {
		for _, o := range changed {
			p.RemoveOrder(o.ID)
		}
		select {
		case got <- changed:
		default:
		}
	}, nil, nil)
	p.AddOrder("A")

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case changed := <-got:
		if len(changed) != 1 || changed[0].ID != "A" {
			t.Fatalf("changed = %+v", changed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if p.Len() != 0 {
		t.Fatalf("order not removed from callback, len = %d", p.Len())
	}
}

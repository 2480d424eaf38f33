package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"grid-broker/internal/model"
	"grid-broker/internal/types"

	"github.com/shopspring/decimal"
)

// ErrZeroFill is returned for a filled order whose fills sum to zero quantity.
var ErrZeroFill = errors.New("ledger: filled order has zero filled quantity")

type Balance struct {
	Cash     decimal.Decimal `json:"cash"`
	Position decimal.Decimal `json:"position"`
}

// Execution is one filled order as applied to the ledger.
type Execution struct {
	OrderID    string          `json:"orderId"`
	Instrument string          `json:"instrument"`
	Side       types.OrderSide `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	AvgPrice   decimal.Decimal `json:"avgPrice"`
	Notional   decimal.Decimal `json:"notional"`
	After      Balance         `json:"after"`
}

// Journal records executions somewhere outside the process.
type Journal interface {
	Record(ctx context.Context, exec Execution) error
}

// Summarize returns the filled quantity, the exact notional sum(q*p) and the
// volume-weighted average price. avg is rounded by the division and is only
// for display; cash is booked from notional.
func Summarize(fills []model.Fill) (qty, notional, avg decimal.Decimal, err error) {
	notional = decimal.Zero
	qty = decimal.Zero
	for _, f := range fills {
		qty = qty.Add(f.Quantity)
		notional = notional.Add(f.Quantity.Mul(f.Price))
	}
	if qty.IsZero() {
		return decimal.Zero, decimal.Zero, decimal.Zero, ErrZeroFill
	}
	return qty, notional, notional.Div(qty), nil
}

// Ledger keeps the running cash and position. A buy adds the fill notional to
// cash and qty to position; a sell subtracts both.
type Ledger struct {
	mu       sync.RWMutex
	balance  Balance
	fills    int
	lastExec *Execution
}

func New() *Ledger {
	return &Ledger{balance: Balance{Cash: decimal.Zero, Position: decimal.Zero}}
}

// Apply books a filled order. The ledger is left untouched on error.
func (l *Ledger) Apply(o model.Order) (Execution, error) {
	if o.State.Status != types.OrderStatusFilled {
		return Execution{}, fmt.Errorf("ledger: order %s is %s, not filled", o.ID, o.State.Status)
	}
	side := o.Parameters.Side
	if side != types.OrderSideBuy && side != types.OrderSideSell {
		return Execution{}, fmt.Errorf("ledger: order %s has unknown side %q", o.ID, side)
	}
	qty, notional, avg, err := Summarize(o.State.Fills)
	if err != nil {
		return Execution{}, fmt.Errorf("order %s: %w", o.ID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if side == types.OrderSideBuy {
		l.balance.Cash = l.balance.Cash.Add(notional)
		l.balance.Position = l.balance.Position.Add(qty)
	} else {
		l.balance.Cash = l.balance.Cash.Sub(notional)
		l.balance.Position = l.balance.Position.Sub(qty)
	}
	l.fills++
	exec := Execution{
		OrderID:    o.ID,
		Instrument: o.Parameters.Instrument,
		Side:       side,
		Quantity:   qty,
		AvgPrice:   avg,
		Notional:   notional,
		After:      l.balance,
	}
	l.lastExec = &exec
	return exec, nil
}

func (l *Ledger) Balance() Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

func (l *Ledger) Fills() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fills
}

func (l *Ledger) LastExecution() (Execution, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.lastExec == nil {
		return Execution{}, false
	}
	return *l.lastExec, true
}

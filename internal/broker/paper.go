package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"grid-broker/internal/model"
	"grid-broker/internal/types"

	"github.com/google/uuid"
)

var ErrUnknownOrder = errors.New("broker: unknown order")

// PaperAdapter accepts every limit order and reports it working on the first
// fetch and filled at its limit price on the next one. Used for dry runs.
type PaperAdapter struct {
	mu      sync.Mutex
	account string
	orders  map[string]*paperOrder
	now     func() time.Time
}

type paperOrder struct {
	order   model.Order
	fetches int
}

func NewPaperAdapter(account string) *PaperAdapter {
	return &PaperAdapter{
		account: account,
		orders:  make(map[string]*paperOrder),
		now:     time.Now,
	}
}

func (a *PaperAdapter) PlaceLimitOrder(ctx context.Context, req LimitOrderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !req.Quantity.IsPositive() || !req.Price.IsPositive() {
		return "", errors.New("paper broker: quantity and price must be positive")
	}
	id := uuid.NewString()
	price := req.Price
	a.mu.Lock()
	a.orders[id] = &paperOrder{order: model.Order{
		ID:        id,
		AccountID: a.account,
		PlaceTime: a.now().UTC().Format(time.RFC3339Nano),
		State:     model.OrderState{Status: types.OrderStatusPending},
		Parameters: model.OrderParameters{
			Side:       req.Side,
			Duration:   req.Duration,
			Quantity:   req.Quantity,
			Instrument: req.Instrument,
			OrderType:  types.OrderTypeLimit,
			LimitPrice: &price,
			ClientTag:  req.ClientTag,
		},
	}}
	a.mu.Unlock()
	return id, nil
}

func (a *PaperAdapter) FetchOrder(ctx context.Context, orderID string) (model.Order, error) {
	if err := ctx.Err(); err != nil {
		return model.Order{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	po, ok := a.orders[orderID]
	if !ok {
		return model.Order{}, ErrUnknownOrder
	}
	po.fetches++
	switch {
	case po.fetches == 1:
		po.order.State.Status = types.OrderStatusWorking
	case po.order.State.Status == types.OrderStatusWorking:
		po.order.State.Status = types.OrderStatusFilled
		po.order.State.LastUpdate = a.now().UTC().Format(time.RFC3339Nano)
		po.order.State.Fills = []model.Fill{{
			Quantity: po.order.Parameters.Quantity,
			Price:    *po.order.Parameters.LimitPrice,
			Time:     po.order.State.LastUpdate,
		}}
	}
	return po.order.Clone(), nil
}

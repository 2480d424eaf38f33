package broker

import (
	"context"

	"grid-broker/internal/model"
	"grid-broker/internal/types"

	"github.com/shopspring/decimal"
)

type LimitOrderRequest struct {
	Account    string
	Instrument string
	Side       types.OrderSide
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Duration   types.OrderDuration
	ClientTag  string
}

// Adapter is the trading API as seen by the poller and the strategy.
type Adapter interface {
	FetchOrder(ctx context.Context, orderID string) (model.Order, error)
	PlaceLimitOrder(ctx context.Context, req LimitOrderRequest) (string, error)
}

package model

import (
	"grid-broker/internal/types"

	"github.com/shopspring/decimal"
)

type Fill struct {
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Time     string          `json:"time,omitempty"`
}

type OrderState struct {
	Status     types.OrderStatus `json:"status"`
	LastUpdate string            `json:"lastUpdate,omitempty"`
	Fills      []Fill            `json:"fills"`
}

type OrderParameters struct {
	Side       types.OrderSide     `json:"side"`
	Duration   types.OrderDuration `json:"duration"`
	Quantity   decimal.Decimal     `json:"quantity"`
	Instrument string              `json:"instrument"`
	OrderType  types.OrderType     `json:"orderType"`
	LimitPrice *decimal.Decimal    `json:"limitPrice,omitempty"`
	ClientTag  string              `json:"clientTag,omitempty"`
}

// Order is the last-known snapshot of an order as reported by the trading API.
// The zero value is the placeholder stored for an order that has not been fetched yet.
type Order struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"accountId,omitempty"`
	PlaceTime  string          `json:"placeTime,omitempty"`
	State      OrderState      `json:"orderState"`
	Parameters OrderParameters `json:"orderParameters"`
}

func (o Order) IsZero() bool {
	return o.ID == "" && o.State.Status == "" && len(o.State.Fills) == 0
}

// Normalize maps the API status vocabulary onto types.OrderStatus.
func (o *Order) Normalize() {
	o.State.Status = types.ParseOrderStatus(string(o.State.Status))
	if side, ok := types.ParseOrderSide(string(o.Parameters.Side)); ok {
		o.Parameters.Side = side
	}
}

func (o Order) Clone() Order {
	out := o
	if o.State.Fills != nil {
		out.State.Fills = make([]Fill, len(o.State.Fills))
		copy(out.State.Fills, o.State.Fills)
	}
	if o.Parameters.LimitPrice != nil {
		p := *o.Parameters.LimitPrice
		out.Parameters.LimitPrice = &p
	}
	return out
}

// Equal compares two snapshots by value. Decimals are compared numerically so
// "1.10" and "1.1" are the same price.
func (o Order) Equal(other Order) bool {
	if o.ID != other.ID || o.AccountID != other.AccountID || o.PlaceTime != other.PlaceTime {
		return false
	}
	if o.State.Status != other.State.Status || o.State.LastUpdate != other.State.LastUpdate {
		return false
	}
	if len(o.State.Fills) != len(other.State.Fills) {
		return false
	}
	for i, f := range o.State.Fills {
		g := other.State.Fills[i]
		if !f.Quantity.Equal(g.Quantity) || !f.Price.Equal(g.Price) || f.Time != g.Time {
			return false
		}
	}
	p, q := o.Parameters, other.Parameters
	if p.Side != q.Side || p.Duration != q.Duration || p.Instrument != q.Instrument ||
		p.OrderType != q.OrderType || p.ClientTag != q.ClientTag || !p.Quantity.Equal(q.Quantity) {
		return false
	}
	if (p.LimitPrice == nil) != (q.LimitPrice == nil) {
		return false
	}
	if p.LimitPrice != nil && !p.LimitPrice.Equal(*q.LimitPrice) {
		return false
	}
	return true
}

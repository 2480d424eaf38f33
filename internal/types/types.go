package types

import "strings"

type OrderSide string

type OrderType string

type OrderStatus string

type OrderDuration string

type EventType string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderTypeLimit OrderType = "limit"
)

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPlacing   OrderStatus = "placing"
	OrderStatusWorking   OrderStatus = "working"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

const (
	DurationDay               OrderDuration = "day"
	DurationGoodTillCancel    OrderDuration = "good_till_cancel"
	DurationImmediateOrCancel OrderDuration = "immediate_or_cancel"
	DurationFillOrKill        OrderDuration = "fill_or_kill"
)

const (
	EventQuote       EventType = "quote"
	EventFeedState   EventType = "feed_state"
	EventOrder       EventType = "order"
	EventOrderPlaced EventType = "order_placed"
	EventFill        EventType = "fill"
	EventLedger      EventType = "ledger"
	EventIntegrity   EventType = "integrity_violation"
)

// ParseOrderStatus normalizes the status vocabulary reported by the trading API.
// Unknown values are returned as-is and are never terminal.
func ParseOrderStatus(s string) OrderStatus {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "canceled" {
		return OrderStatusCancelled
	}
	return OrderStatus(v)
}

func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

func (s OrderStatus) Known() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPending, OrderStatusAccepted, OrderStatusPlacing,
		OrderStatusWorking, OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

func ParseOrderSide(s string) (OrderSide, bool) {
	switch OrderSide(strings.ToLower(strings.TrimSpace(s))) {
	case OrderSideBuy:
		return OrderSideBuy, true
	case OrderSideSell:
		return OrderSideSell, true
	}
	return "", false
}

func ParseOrderDuration(s string) (OrderDuration, bool) {
	d := OrderDuration(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DurationDay, DurationGoodTillCancel, DurationImmediateOrCancel, DurationFillOrKill:
		return d, true
	}
	return "", false
}

package model

import "github.com/shopspring/decimal"

var two = decimal.NewFromInt(2)

type Quote struct {
	Instrument string          `json:"symbolId"`
	Bid        decimal.Decimal `json:"bid"`
	Ask        decimal.Decimal `json:"ask"`
	Timestamp  int64           `json:"timestamp,omitempty"`
}

// Mid returns (bid+ask)/2.
func (q Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(two)
}

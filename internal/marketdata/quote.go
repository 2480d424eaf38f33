package marketdata

import (
	"encoding/json"
	"errors"
	"fmt"

	"grid-broker/internal/model"

	"github.com/shopspring/decimal"
)

var ErrMalformedQuote = errors.New("marketdata: malformed quote")

type rawQuote struct {
	SymbolID  string           `json:"symbolId"`
	Bid       *decimal.Decimal `json:"bid"`
	Ask       *decimal.Decimal `json:"ask"`
	Timestamp json.Number      `json:"timestamp"`
	Event     json.RawMessage  `json:"event"`
}

// ParseLine decodes one line of the feed. Lines carrying an "event" field are
// control or heartbeat messages and are reported with isEvent=true.
func ParseLine(line []byte) (q model.Quote, isEvent bool, err error) {
	var raw rawQuote
	if err := json.Unmarshal(line, &raw); err != nil {
		return q, false, fmt.Errorf("%w: %v", ErrMalformedQuote, err)
	}
	if raw.Event != nil {
		return q, true, nil
	}
	if raw.Bid == nil || raw.Ask == nil {
		return q, false, fmt.Errorf("%w: bid and ask are required", ErrMalformedQuote)
	}
	q = model.Quote{Instrument: raw.SymbolID, Bid: *raw.Bid, Ask: *raw.Ask}
	if raw.Timestamp != "" {
		q.Timestamp, _ = raw.Timestamp.Int64()
	}
	return q, false, nil
}

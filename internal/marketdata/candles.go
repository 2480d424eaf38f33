package marketdata

import (
	"context"
	"errors"
	"sync"
	"time"

	"grid-broker/internal/model"
	"grid-broker/internal/types"

	"github.com/shopspring/decimal"
)

var ErrInvalidInterval = errors.New("interval must be a positive multiple of one minute")

// Candle is an OHLC bar of quote midpoints. Time is the bucket start in unix seconds.
type Candle struct {
	Time  int64           `json:"time"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
	Ticks int             `json:"ticks"`
}

func (c *Candle) add(mid decimal.Decimal) {
	if mid.GreaterThan(c.High) {
		c.High = mid
	}
	if mid.LessThan(c.Low) {
		c.Low = mid
	}
	c.Close = mid
	c.Ticks++
}

// CandleRecorder keeps the most recent one-minute midpoint candles in memory.
type CandleRecorder struct {
	mu      sync.RWMutex
	candles []Candle
	max     int
}

func NewCandleRecorder(max int) *CandleRecorder {
	if max <= 0 {
		max = 1440
	}
	return &CandleRecorder{max: max}
}

// Record adds one quote observed at ts. Quotes older than the current bucket are dropped.
func (r *CandleRecorder) Record(q model.Quote, ts time.Time) {
	mid := q.Mid()
	bucket := ts.Unix() - ts.Unix()%60

	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.candles)
	if n > 0 {
		last := &r.candles[n-1]
		if last.Time == bucket {
			last.add(mid)
			return
		}
		if last.Time > bucket {
			return
		}
	}
	r.candles = append(r.candles, Candle{Time: bucket, Open: mid, High: mid, Low: mid, Close: mid, Ticks: 1})
	if len(r.candles) > r.max {
		r.candles = append(r.candles[:0:0], r.candles[len(r.candles)-r.max:]...)
	}
}

// Candles returns up to limit candles of the given interval, oldest first.
func (r *CandleRecorder) Candles(interval time.Duration, limit int) ([]Candle, error) {
	if interval <= 0 || interval%time.Minute != 0 {
		return nil, ErrInvalidInterval
	}
	r.mu.RLock()
	base := make([]Candle, len(r.candles))
	copy(base, r.candles)
	r.mu.RUnlock()
	return trimCandles(aggregateCandles(base, interval), limit), nil
}

// Run records quote events from a bus subscription until ctx is done.
func (r *CandleRecorder) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt.Type != types.EventQuote {
				continue
			}
			q, ok := evt.Data.(model.Quote)
			if !ok {
				continue
			}
			r.Record(q, time.UnixMilli(evt.TS))
		}
	}
}

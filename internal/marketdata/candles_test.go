package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grid-broker/internal/model"
	"grid-broker/internal/types"

	"github.com/shopspring/decimal"
)

func mid(s string) model.Quote {
	d := decimal.RequireFromString(s)
	return model.Quote{Bid: d, Ask: d}
}

func TestCandleRecorder_OneMinuteBars(t *testing.T) {
	r := NewCandleRecorder(10)
	t0 := time.Unix(1_700_000_040, 0)
	r.Record(mid("1.00"), t0)
	r.Record(mid("1.05"), t0.Add(10*time.Second))
	r.Record(mid("0.95"), t0.Add(15*time.Second))
	r.Record(mid("1.01"), t0.Add(19*time.Second))
	r.Record(mid("2.00"), t0.Add(time.Minute))
	r.Record(mid("9.99"), t0)

	got, err := r.Candles(time.Minute, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("candles = %+v", got)
	}
	c := got[0]
	if !c.Open.Equal(decimal.RequireFromString("1")) || !c.High.Equal(decimal.RequireFromString("1.05")) ||
		!c.Low.Equal(decimal.RequireFromString("0.95")) || !c.Close.Equal(decimal.RequireFromString("1.01")) || c.Ticks != 4 {
		t.Fatalf("first candle = %+v", c)
	}
	if c.Time%60 != 0 {
		t.Fatalf("bucket not aligned: %d", c.Time)
	}
}

func TestCandleRecorder_AggregateAndTrim(t *testing.T) {
	r := NewCandleRecorder(3)
	base := time.Unix(1_700_000_100, 0).Truncate(5 * time.Minute)
	for i, v := range []string{"1", "3", "2", "5"} {
		r.Record(mid(v), base.Add(time.Duration(i)*time.Minute))
	}
	all, _ := r.Candles(time.Minute, 0)
	if len(all) != 3 || !all[0].Open.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("recorder did not cap history: %+v", all)
	}

	five, err := r.Candles(5*time.Minute, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(five) != 1 || !five[0].High.Equal(decimal.NewFromInt(5)) || !five[0].Low.Equal(decimal.NewFromInt(2)) ||
		!five[0].Close.Equal(decimal.NewFromInt(5)) || five[0].Ticks != 3 {
		t.Fatalf("5m candles = %+v", five)
	}

	last, _ := r.Candles(time.Minute, 1)
	if len(last) != 1 || !last[0].Close.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("limit = %+v", last)
	}
	if _, err := r.Candles(90*time.Second, 0); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("err = %v", err)
	}
}

func TestCandleRecorder_RunConsumesQuoteEvents(t *testing.T) {
	r := NewCandleRecorder(10)
	events := make(chan Event, 3)
	now := time.Now().UnixMilli()
	events <- Event{Type: types.EventFeedState, Data: "streaming", TS: now}
	events <- Event{Type: types.EventQuote, Data: mid("1.5"), TS: now}
	close(events)
	r.Run(context.Background(), events)

	got, _ := r.Candles(time.Minute, 0)
	if len(got) != 1 || !got[0].Close.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("candles = %+v", got)
	}
}

func TestHandler_Candles(t *testing.T) {
	r := NewCandleRecorder(10)
	r.Record(mid("1"), time.Unix(1_700_000_040, 0))
	h := NewHandler(r)

	tests := []struct {
		query string
		code  int
	}{
		{"", http.StatusOK},
		{"?timeframe=5m&limit=10", http.StatusOK},
		{"?timeframe=7m", http.StatusBadRequest},
		{"?limit=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.Candles(rec, httptest.NewRequest(http.MethodGet, "/v1/candles"+tt.query, nil))
		if rec.Code != tt.code {
			t.Errorf("%q: code = %d, want %d", tt.query, rec.Code, tt.code)
		}
	}
}

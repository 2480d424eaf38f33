package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"grid-broker/internal/ledger"
	"grid-broker/internal/marketdata"

	"github.com/shopspring/decimal"
)

type stubStats struct{ state marketdata.FeedState }

func (s stubStats) FeedState() marketdata.FeedState { return s.state }
func (stubStats) FeedReconnects() int               { return 4 }
func (stubStats) TrackedOrders() int                { return 2 }
func (stubStats) OrdersPlaced() int                 { return 7 }
func (stubStats) Fills() int                        { return 5 }
func (stubStats) Balance() ledger.Balance {
	return ledger.Balance{Cash: decimal.RequireFromString("-80.5"), Position: decimal.NewFromInt(5)}
}

func TestLive(t *testing.T) {
	h := NewHandler(nil, stubStats{}, time.Now().Add(-time.Minute))
	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body liveResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || body.Status != "ok" || body.UptimeSec < 59 {
		t.Fatalf("live = %d %+v", rec.Code, body)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		state marketdata.FeedState
		code  int
	}{
		{marketdata.StateStreaming, http.StatusOK},
		{marketdata.StateBackingOff, http.StatusServiceUnavailable},
		{marketdata.StateConnecting, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		h := NewHandler(nil, stubStats{state: tt.state}, time.Time{})
		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		if rec.Code != tt.code {
			t.Errorf("%s: code = %d, want %d", tt.state, rec.Code, tt.code)
		}
		var body readinessResponse
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if body.FeedState != tt.state.String() || body.Database.Enabled {
			t.Errorf("%s: body = %+v", tt.state, body)
		}
	}
}

func TestMetrics(t *testing.T) {
	h := NewHandler(nil, stubStats{state: marketdata.StateStreaming}, time.Time{})
	rec := httptest.NewRecorder()
	h.Metrics(rec, httptest.NewRequest(http.MethodGet, "/v1/metrics", nil))
	out := rec.Body.String()
	for _, want := range []string{
		"gridbot_feed_streaming 1\n",
		"gridbot_feed_reconnects_total 4\n",
		"gridbot_orders_placed_total 7\n",
		"gridbot_orders_tracked 2\n",
		"gridbot_fills_total 5\n",
		"gridbot_cash -80.5\n",
		"gridbot_position 5\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

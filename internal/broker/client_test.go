package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"grid-broker/internal/auth"
	"grid-broker/internal/types"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", auth.Basic{Application: "app", Token: "tok"})
}

func limitRequest() LimitOrderRequest {
	return LimitOrderRequest{
		Account:    "ACC.001",
		Instrument: "EUR/USD.E.FX",
		Side:       types.OrderSideSell,
		Quantity:   decimal.NewFromInt(1),
		Price:      decimal.RequireFromString("1.02"),
		Duration:   types.DurationGoodTillCancel,
		ClientTag:  "tag-1",
	}
}

func TestClient_PlaceLimitOrder(t *testing.T) {
	var got placeOrderBody
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/trade/1.0/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if u, p, ok := r.BasicAuth(); !ok || u != "app" || p != "tok" {
			t.Errorf("missing basic auth")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"id":"ord-1","orderState":{"status":"placing"}}`))
	})

	id, err := c.PlaceLimitOrder(context.Background(), limitRequest())
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if id != "ord-1" {
		t.Fatalf("id = %q, want ord-1", id)
	}
	if got.OrderType != types.OrderTypeLimit || got.LimitPrice != "1.02" || got.Quantity != "1" ||
		got.Side != types.OrderSideSell || got.Duration != types.DurationGoodTillCancel || got.Account != "ACC.001" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestClient_PlaceLimitOrderListResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"ord-7"}]`))
	})
	id, err := c.PlaceLimitOrder(context.Background(), limitRequest())
	if err != nil || id != "ord-7" {
		t.Fatalf("place = %q, %v", id, err)
	}
}

func TestClient_PlaceLimitOrderFailures(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantResponse bool
	}{
		{"missing id", http.StatusOK, `{"message":"insufficient margin"}`, true},
		{"non-string id", http.StatusOK, `{"id":42}`, true},
		{"error status with json", http.StatusBadRequest, `{"message":"bad instrument"}`, true},
		{"error status without json", http.StatusBadGateway, `<html>bad gateway</html>`, true},
		{"garbage with ok status", http.StatusOK, `not json`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			id, err := c.PlaceLimitOrder(context.Background(), limitRequest())
			if err == nil {
				t.Fatalf("expected error, got id %q", id)
			}
			var respErr *ResponseError
			if errors.As(err, &respErr) != tt.wantResponse {
				t.Fatalf("ResponseError = %v, want %v (err %v)", respErr != nil, tt.wantResponse, err)
			}
			if tt.wantResponse && string(respErr.Payload) != tt.body {
				t.Fatalf("payload = %q, want %q", respErr.Payload, tt.body)
			}
		})
	}
}

func TestClient_PlaceLimitOrderTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", nil)
	_, err := c.PlaceLimitOrder(context.Background(), limitRequest())
	if err == nil {
		t.Fatal("expected transport error")
	}
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		t.Fatal("transport failure must not be a ResponseError")
	}
}

func TestClient_FetchOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.EscapedPath(), "/trade/1.0/orders/ord-1") {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		w.Write([]byte(`{"id":"ord-1","orderState":{"status":"Cancelled","fills":[]},"orderParameters":{"side":"buy","quantity":"1"}}`))
	})
	o, err := c.FetchOrder(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if o.ID != "ord-1" || o.State.Status != types.OrderStatusCancelled || o.Parameters.Side != types.OrderSideBuy {
		t.Fatalf("unexpected order: %+v", o)
	}
}

func TestClient_FetchOrderNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"not found"}`))
	})
	_, err := c.FetchOrder(context.Background(), "missing")
	var respErr *ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 ResponseError", err)
	}
	if _, err := c.FetchOrder(context.Background(), ""); !errors.Is(err, ErrEmptyOrderID) {
		t.Fatalf("err = %v, want ErrEmptyOrderID", err)
	}
}

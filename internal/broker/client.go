package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"grid-broker/internal/auth"
	"grid-broker/internal/model"
	"grid-broker/internal/types"
)

const maxBodyBytes = 1 << 20

// Client talks to the trade/1.0 REST API.
type Client struct {
	baseURL string
	http    *http.Client
	creds   auth.Credentials
}

func NewClient(baseURL string, creds auth.Credentials) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		creds:   creds,
	}
}

type placeOrderBody struct {
	Account    string              `json:"account"`
	Duration   types.OrderDuration `json:"duration"`
	Instrument string              `json:"instrument"`
	OrderType  types.OrderType     `json:"orderType"`
	Quantity   string              `json:"quantity"`
	LimitPrice string              `json:"limitPrice"`
	Side       types.OrderSide     `json:"side"`
	ClientTag  string              `json:"clientTag,omitempty"`
}

func (c *Client) ordersURL() string {
	return c.baseURL + "/trade/1.0/orders"
}

func (c *Client) FetchOrder(ctx context.Context, orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, ErrEmptyOrderID
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ordersURL()+"/"+url.PathEscape(orderID), nil)
	if err != nil {
		return model.Order{}, err
	}
	status, body, err := c.send(req)
	if err != nil {
		return model.Order{}, err
	}
	if status < 200 || status >= 300 {
		return model.Order{}, &ResponseError{Op: "fetch order", StatusCode: status, Payload: body}
	}
	var o model.Order
	if err := json.Unmarshal(body, &o); err != nil {
		return model.Order{}, fmt.Errorf("decode order %s: %w", orderID, err)
	}
	if o.ID == "" {
		return model.Order{}, &ResponseError{Op: "fetch order", StatusCode: status, Payload: body}
	}
	o.Normalize()
	return o, nil
}

// PlaceLimitOrder submits a resting limit order and returns the API-assigned id.
// A decodable response without a string id yields *ResponseError carrying the
// raw payload; transport and decode failures are returned as plain errors.
func (c *Client) PlaceLimitOrder(ctx context.Context, in LimitOrderRequest) (string, error) {
	payload, err := json.Marshal(placeOrderBody{
		Account:    in.Account,
		Duration:   in.Duration,
		Instrument: in.Instrument,
		OrderType:  types.OrderTypeLimit,
		Quantity:   in.Quantity.String(),
		LimitPrice: in.Price.String(),
		Side:       in.Side,
		ClientTag:  in.ClientTag,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ordersURL(), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	status, body, err := c.send(req)
	if err != nil {
		return "", err
	}
	id, err := extractOrderID(body)
	if err != nil {
		if status < 200 || status >= 300 {
			return "", &ResponseError{Op: "place order", StatusCode: status, Payload: body}
		}
		return "", fmt.Errorf("decode place response: %w", err)
	}
	if id == "" {
		return "", &ResponseError{Op: "place order", StatusCode: status, Payload: body}
	}
	return id, nil
}

// extractOrderID accepts either a single order object or a list of them and
// returns "" when no string id is present.
func extractOrderID(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", err
		}
		if len(list) == 0 {
			return "", nil
		}
		return stringField(list[0], "id"), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", err
	}
	return stringField(obj, "id"), nil
}

func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (c *Client) send(req *http.Request) (int, []byte, error) {
	if c.creds != nil {
		if err := c.creds.Apply(req); err != nil {
			return 0, nil, err
		}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

package broker

import (
	"errors"
	"fmt"
)

var ErrEmptyOrderID = errors.New("broker: empty order id")

// ResponseError is returned when the API answered but the payload is not what
// the operation expects (non-2xx status, or an order placement without a
// string id). Payload holds the raw body for logging.
type ResponseError struct {
	Op         string
	StatusCode int
	Payload    []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("broker %s: unexpected response (http %d): %s", e.Op, e.StatusCode, truncate(e.Payload, 512))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"grid-broker/internal/auth"
)

var (
	ErrTimeout     = errors.New("read timeout")
	ErrChunkDecode = errors.New("chunk decode failed")
	ErrConnection  = errors.New("connection error")
	ErrSocket      = errors.New("socket error")
)

// StreamError tags a transport failure with one of the Err* kinds.
type StreamError struct {
	Kind error
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *StreamError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func classify(err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	var se *StreamError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &StreamError{Kind: ErrTimeout, Err: err}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || strings.Contains(err.Error(), "chunk") {
		return &StreamError{Kind: ErrChunkDecode, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &StreamError{Kind: ErrConnection, Err: err}
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.As(err, &opErr) {
		return &StreamError{Kind: ErrSocket, Err: err}
	}
	return &StreamError{Kind: ErrConnection, Err: err}
}

// StreamClient opens the md/1.0 quote feed, a newline-delimited JSON stream.
type StreamClient struct {
	baseURL     string
	http        *http.Client
	creds       auth.Credentials
	readTimeout time.Duration
}

func NewStreamClient(baseURL string, creds auth.Credentials, readTimeout time.Duration) *StreamClient {
	if readTimeout <= 0 {
		readTimeout = 60 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = readTimeout
	return &StreamClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Transport: transport},
		creds:       creds,
		readTimeout: readTimeout,
	}
}

func (c *StreamClient) feedURL(instrument string) string {
	return c.baseURL + "/md/1.0/feed/" + url.QueryEscape(instrument)
}

func (c *StreamClient) OpenQuoteStream(ctx context.Context, instrument string) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL(instrument), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "application/x-json-stream")
	if c.creds != nil {
		if err := c.creds.Apply(req); err != nil {
			cancel()
			return nil, err
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		return nil, &StreamError{Kind: ErrConnection, Err: fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	return newIdleTimeoutBody(resp.Body, c.readTimeout, cancel), nil
}

// idleTimeoutBody cancels the request when no bytes arrive for timeout.
type idleTimeoutBody struct {
	body    io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelFunc
	expired atomic.Bool
}

func newIdleTimeoutBody(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleTimeoutBody {
	b := &idleTimeoutBody{body: body, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, func() {
		b.expired.Store(true)
		cancel()
	})
	return b
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if n > 0 && !b.expired.Load() {
		b.timer.Reset(b.timeout)
	}
	if err != nil && err != io.EOF {
		if b.expired.Load() {
			return n, &StreamError{Kind: ErrTimeout, Err: err}
		}
		return n, classify(err)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	b.cancel()
	return b.body.Close()
}

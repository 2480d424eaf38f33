package marketdata

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"grid-broker/internal/model"
	"grid-broker/internal/types"

	"go.uber.org/zap"
)

const DefaultBackoff = 60 * time.Second

var errStreamClosed = errors.New("stream closed by server")

// StreamOpener opens a live quote stream for one instrument.
type StreamOpener interface {
	OpenQuoteStream(ctx context.Context, instrument string) (io.ReadCloser, error)
}

type FeedState int32

const (
	StateConnecting FeedState = iota
	StateStreaming
	StateBackingOff
	StateStopped
)

func (s FeedState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateBackingOff:
		return "backing_off"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Feed turns a reconnecting quote stream into a channel of quotes.
type Feed struct {
	instrument string
	opener     StreamOpener
	backoff    time.Duration
	logger     *zap.SugaredLogger
	pub        Publisher

	mu         sync.RWMutex
	state      FeedState
	last       model.Quote
	hasLast    bool
	reconnects int
}

func NewFeed(instrument string, opener StreamOpener, backoff time.Duration, logger *zap.SugaredLogger, pub Publisher) *Feed {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Feed{
		instrument: instrument,
		opener:     opener,
		backoff:    backoff,
		logger:     logger.Named("feed"),
		pub:        pub,
	}
}

// Run starts streaming and returns the quote channel. The channel is closed
// once ctx is cancelled; transport failures never close it.
func (f *Feed) Run(ctx context.Context) <-chan model.Quote {
	out := make(chan model.Quote)
	go f.loop(ctx, out)
	return out
}

func (f *Feed) loop(ctx context.Context, out chan<- model.Quote) {
	defer close(out)
	defer f.setState(StateStopped)
	for {
		if ctx.Err() != nil {
			return
		}
		f.setState(StateConnecting)
		err := f.stream(ctx, out)
		if ctx.Err() != nil {
			return
		}
		f.logFailure(err)

		f.setState(StateBackingOff)
		timer := time.NewTimer(f.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		f.mu.Lock()
		f.reconnects++
		f.mu.Unlock()
	}
}

func (f *Feed) stream(ctx context.Context, out chan<- model.Quote) error {
	body, err := f.opener.OpenQuoteStream(ctx, f.instrument)
	if err != nil {
		return err
	}
	defer body.Close()
	f.setState(StateStreaming)
	f.logger.Infow("stream_opened", "instrument", f.instrument)

	r := bufio.NewReader(body)
	for {
		line, err := r.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			if !f.handleLine(ctx, line, out) {
				return ctx.Err()
			}
		}
		if err == io.EOF {
			return errStreamClosed
		}
		if err != nil {
			return err
		}
	}
}

// handleLine returns false when ctx was cancelled while yielding.
func (f *Feed) handleLine(ctx context.Context, line []byte, out chan<- model.Quote) bool {
	q, isEvent, err := ParseLine(line)
	if err != nil {
		f.logger.Warnw("skipping malformed line", "err", err, "line", string(line))
		return true
	}
	if isEvent {
		f.logger.Debugw("feed event", "line", string(line))
		return true
	}
	if q.Instrument == "" {
		q.Instrument = f.instrument
	}
	f.logger.Debugw("quote", "bid", q.Bid, "ask", q.Ask)

	f.mu.Lock()
	f.last = q
	f.hasLast = true
	f.mu.Unlock()
	f.pub.Publish(Event{Type: types.EventQuote, Data: q})

	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- q:
		return true
	case <-ctx.Done():
		return false
	}
}

func (f *Feed) logFailure(err error) {
	switch {
	case errors.Is(err, ErrTimeout):
		f.logger.Warnw("timeout reached", "err", err, "backoff", f.backoff)
	case errors.Is(err, ErrChunkDecode):
		f.logger.Warnw("chunk read failed", "err", err, "backoff", f.backoff)
	case errors.Is(err, ErrSocket):
		f.logger.Warnw("socket error", "err", err, "backoff", f.backoff)
	case errors.Is(err, ErrConnection):
		f.logger.Warnw("connection error", "err", err, "backoff", f.backoff)
	case errors.Is(err, errStreamClosed):
		f.logger.Warnw("stream closed by server", "backoff", f.backoff)
	default:
		f.logger.Errorw("stream failed", "err", err, "backoff", f.backoff)
	}
}

func (f *Feed) setState(s FeedState) {
	f.mu.Lock()
	changed := f.state != s
	f.state = s
	f.mu.Unlock()
	if changed {
		f.pub.Publish(Event{Type: types.EventFeedState, Data: s.String()})
	}
}

func (f *Feed) State() FeedState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// LastQuote returns a copy of the most recent quote, for inspection only.
func (f *Feed) LastQuote() (model.Quote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last, f.hasLast
}

func (f *Feed) Reconnects() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.reconnects
}

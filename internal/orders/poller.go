package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"grid-broker/internal/marketdata"
	"grid-broker/internal/model"
	"grid-broker/internal/types"

	"go.uber.org/zap"
)

const DefaultInterval = 10 * time.Second

type Fetcher interface {
	FetchOrder(ctx context.Context, orderID string) (model.Order, error)
}

// ChangeFunc receives deep copies of the orders whose state changed during one scan.
type ChangeFunc func(changed []model.Order)

// Poller owns the set of tracked orders and their last-known state. All access
// goes through its methods; one scan holds the lock for its whole duration, so
// AddOrder/RemoveOrder never interleave with a scan.
type Poller struct {
	mu       sync.Mutex
	orders   map[string]model.Order
	fetcher  Fetcher
	interval time.Duration
	onChange ChangeFunc
	logger   *zap.SugaredLogger
	pub      marketdata.Publisher
}

func NewPoller(fetcher Fetcher, interval time.Duration, onChange ChangeFunc, logger *zap.SugaredLogger, pub marketdata.Publisher) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if pub == nil {
		pub = marketdata.NopPublisher{}
	}
	return &Poller{
		orders:   make(map[string]model.Order),
		fetcher:  fetcher,
		interval: interval,
		onChange: onChange,
		logger:   logger.Named("poller"),
		pub:      pub,
	}
}

// SetOnChange replaces the change callback. It must be called before Run.
func (p *Poller) SetOnChange(fn ChangeFunc) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// AddOrder starts tracking id with an empty placeholder state. Adding an id
// that is already tracked does nothing.
func (p *Poller) AddOrder(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.orders[id]; ok {
		return
	}
	p.orders[id] = model.Order{}
}

func (p *Poller) RemoveOrder(id string) {
	p.mu.Lock()
	delete(p.orders, id)
	p.mu.Unlock()
}

func (p *Poller) Snapshot(id string) (model.Order, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[id]
	if !ok {
		return model.Order{}, false
	}
	return o.Clone(), true
}

func (p *Poller) TrackedIDs() []string {
	p.mu.Lock()
	ids := make([]string, 0, len(p.orders))
	for id := range p.orders {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.orders)
}

// PollOnce fetches every tracked order and returns the ones whose state
// differs from what was stored. An order whose fetch fails keeps its stored
// state and is retried on the next scan.
func (p *Poller) PollOnce(ctx context.Context) []model.Order {
	p.mu.Lock()
	defer p.mu.Unlock()

	var changed []model.Order
	for id, stored := range p.orders {
		if ctx.Err() != nil {
			break
		}
		current, err := p.fetcher.FetchOrder(ctx, id)
		if err != nil {
			p.logger.Warnw("order fetch failed, retrying next cycle", "order_id", id, "err", err)
			continue
		}
		if current.Equal(stored) {
			continue
		}
		if !current.State.Status.Known() {
			p.logger.Warnw("order reported an unrecognised status", "order_id", id, "status", current.State.Status)
		} else {
			p.logger.Infow("order state changed", "order_id", id, "status", current.State.Status)
		}
		p.orders[id] = current
		changed = append(changed, current.Clone())
		p.pub.Publish(marketdata.Event{Type: types.EventOrder, Data: current.Clone()})
	}
	return changed
}

// Run scans every interval until ctx is cancelled. The change callback is
// invoked outside the lock so it may call RemoveOrder.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Infow("poller started", "interval", p.interval)
	for {
		changed := p.PollOnce(ctx)
		if len(changed) > 0 {
			p.mu.Lock()
			fn := p.onChange
			p.mu.Unlock()
			if fn != nil {
				fn(changed)
			}
		}
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("poller stopped")
			return
		case <-timer.C:
		}
	}
}

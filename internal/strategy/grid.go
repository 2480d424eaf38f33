package strategy

import (
	"context"
	"errors"
	"sync"

	"grid-broker/internal/broker"
	"grid-broker/internal/marketdata"
	"grid-broker/internal/model"
	"grid-broker/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidGrid     = errors.New("strategy: grid size must be positive")
	ErrInvalidQuantity = errors.New("strategy: quantity must be positive")
)

type Placer interface {
	PlaceLimitOrder(ctx context.Context, req broker.LimitOrderRequest) (string, error)
}

// Tracker is the poller side the strategy registers placed orders with.
type Tracker interface {
	AddOrder(id string)
}

type GridConfig struct {
	Account    string
	Instrument string
	Quantity   decimal.Decimal
	GridSize   decimal.Decimal
	Duration   types.OrderDuration
}

type PlacedOrder struct {
	ID        string          `json:"id"`
	Side      types.OrderSide `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	ClientTag string          `json:"clientTag"`
}

// Grid trades every time the midpoint moves at least GridSize away from the
// reference midpoint of the last successful placement.
type Grid struct {
	cfg     GridConfig
	placer  Placer
	tracker Tracker
	logger  *zap.SugaredLogger
	pub     marketdata.Publisher

	mu        sync.RWMutex
	reference *decimal.Decimal
	placed    int
}

func NewGrid(cfg GridConfig, placer Placer, tracker Tracker, logger *zap.SugaredLogger, pub marketdata.Publisher) (*Grid, error) {
	if !cfg.GridSize.IsPositive() {
		return nil, ErrInvalidGrid
	}
	if !cfg.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if cfg.Duration == "" {
		cfg.Duration = types.DurationGoodTillCancel
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if pub == nil {
		pub = marketdata.NopPublisher{}
	}
	return &Grid{
		cfg:     cfg,
		placer:  placer,
		tracker: tracker,
		logger:  logger.Named("grid"),
		pub:     pub,
	}, nil
}

// Run consumes quotes until the channel closes or ctx is cancelled.
func (g *Grid) Run(ctx context.Context, quotes <-chan model.Quote) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-quotes:
			if !ok {
				return
			}
			g.OnQuote(ctx, q)
		}
	}
}

// OnQuote processes one quote. It returns the placed order when the quote
// triggered a successful placement.
func (g *Grid) OnQuote(ctx context.Context, q model.Quote) (PlacedOrder, bool) {
	mid := q.Mid()

	g.mu.Lock()
	ref := g.reference
	if ref == nil {
		g.reference = &mid
		g.mu.Unlock()
		g.logger.Infow("reference midpoint set", "mid", mid)
		return PlacedOrder{}, false
	}
	g.mu.Unlock()

	diff := mid.Sub(*ref)
	if diff.Abs().LessThan(g.cfg.GridSize) {
		return PlacedOrder{}, false
	}
	if diff.IsZero() {
		g.logger.Errorw("invariant violated: zero movement passed the grid threshold",
			"mid", mid, "reference", *ref, "grid", g.cfg.GridSize)
		g.pub.Publish(marketdata.Event{Type: types.EventIntegrity, Data: map[string]any{
			"reason": "zero_direction", "mid": mid, "reference": *ref,
		}})
		return PlacedOrder{}, false
	}

	side := types.OrderSideBuy
	if diff.IsPositive() {
		side = types.OrderSideSell
	}
	req := broker.LimitOrderRequest{
		Account:    g.cfg.Account,
		Instrument: g.cfg.Instrument,
		Side:       side,
		Quantity:   g.cfg.Quantity,
		Price:      mid,
		Duration:   g.cfg.Duration,
		ClientTag:  uuid.NewString(),
	}
	id, err := g.placer.PlaceLimitOrder(ctx, req)
	if err != nil {
		g.logPlaceFailure(err, req)
		return PlacedOrder{}, false
	}

	g.tracker.AddOrder(id)
	g.mu.Lock()
	g.reference = &mid
	g.placed++
	g.mu.Unlock()

	placed := PlacedOrder{ID: id, Side: side, Price: mid, Quantity: g.cfg.Quantity, ClientTag: req.ClientTag}
	g.logger.Infow("order placed", "order_id", id, "side", side, "price", mid, "quantity", g.cfg.Quantity)
	g.pub.Publish(marketdata.Event{Type: types.EventOrderPlaced, Data: placed})
	return placed, true
}

func (g *Grid) logPlaceFailure(err error, req broker.LimitOrderRequest) {
	var respErr *broker.ResponseError
	if errors.As(err, &respErr) {
		g.logger.Errorw("order placement returned unexpected payload",
			"status", respErr.StatusCode, "payload", string(respErr.Payload), "side", req.Side, "price", req.Price)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	g.logger.Errorw("unexpected error", "err", err, "side", req.Side, "price", req.Price)
}

// Reference returns the current reference midpoint, if one is set.
func (g *Grid) Reference() (decimal.Decimal, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.reference == nil {
		return decimal.Decimal{}, false
	}
	return *g.reference, true
}

func (g *Grid) Placed() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.placed
}

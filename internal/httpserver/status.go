package httpserver

import (
	"net/http"
	"time"

	"grid-broker/internal/httputil"
	"grid-broker/internal/ledger"
	"grid-broker/internal/marketdata"
	"grid-broker/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type FeedView interface {
	State() marketdata.FeedState
	LastQuote() (model.Quote, bool)
	Reconnects() int
}

type OrderView interface {
	TrackedIDs() []string
	Snapshot(id string) (model.Order, bool)
}

type StrategyView interface {
	Reference() (decimal.Decimal, bool)
	Placed() int
}

type LedgerView interface {
	Balance() ledger.Balance
	Fills() int
	LastExecution() (ledger.Execution, bool)
}

// StatusHandler serves read-only views of the running bot.
type StatusHandler struct {
	instrument string
	dryRun     bool
	feed       FeedView
	orders     OrderView
	strategy   StrategyView
	ledger     LedgerView
	started    time.Time
}

func NewStatusHandler(instrument string, dryRun bool, feed FeedView, orders OrderView, strategy StrategyView, l LedgerView) *StatusHandler {
	return &StatusHandler{
		instrument: instrument,
		dryRun:     dryRun,
		feed:       feed,
		orders:     orders,
		strategy:   strategy,
		ledger:     l,
		started:    time.Now(),
	}
}

type statusResponse struct {
	Instrument    string            `json:"instrument"`
	DryRun        bool              `json:"dry_run"`
	Uptime        string            `json:"uptime"`
	FeedState     string            `json:"feed_state"`
	Reconnects    int               `json:"reconnects"`
	Reference     *decimal.Decimal  `json:"reference_mid,omitempty"`
	OrdersPlaced  int               `json:"orders_placed"`
	TrackedOrders int               `json:"tracked_orders"`
	Fills         int               `json:"fills"`
	Balance       ledger.Balance    `json:"balance"`
	LastExecution *ledger.Execution `json:"last_execution,omitempty"`
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Instrument:    h.instrument,
		DryRun:        h.dryRun,
		Uptime:        time.Since(h.started).Truncate(time.Second).String(),
		FeedState:     h.feed.State().String(),
		Reconnects:    h.feed.Reconnects(),
		OrdersPlaced:  h.strategy.Placed(),
		TrackedOrders: len(h.orders.TrackedIDs()),
		Fills:         h.ledger.Fills(),
		Balance:       h.ledger.Balance(),
	}
	if ref, ok := h.strategy.Reference(); ok {
		resp.Reference = &ref
	}
	if exec, ok := h.ledger.LastExecution(); ok {
		resp.LastExecution = &exec
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *StatusHandler) Orders(w http.ResponseWriter, r *http.Request) {
	ids := h.orders.TrackedIDs()
	items := make([]model.Order, 0, len(ids))
	for _, id := range ids {
		o, ok := h.orders.Snapshot(id)
		if !ok {
			continue
		}
		if o.IsZero() {
			o.ID = id
		}
		items = append(items, o)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *StatusHandler) Order(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, ok := h.orders.Snapshot(id)
	if !ok {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "order not tracked"})
		return
	}
	if o.IsZero() {
		o.ID = id
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *StatusHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q, ok := h.feed.LastQuote()
	if !ok {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "no quote yet"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"instrument": q.Instrument,
		"bid":        q.Bid,
		"ask":        q.Ask,
		"mid":        q.Mid(),
		"timestamp":  q.Timestamp,
	})
}

// The accessors below make StatusHandler a health.Stats source.

func (h *StatusHandler) FeedState() marketdata.FeedState { return h.feed.State() }
func (h *StatusHandler) FeedReconnects() int             { return h.feed.Reconnects() }
func (h *StatusHandler) TrackedOrders() int              { return len(h.orders.TrackedIDs()) }
func (h *StatusHandler) OrdersPlaced() int               { return h.strategy.Placed() }
func (h *StatusHandler) Balance() ledger.Balance         { return h.ledger.Balance() }
func (h *StatusHandler) Fills() int                      { return h.ledger.Fills() }

package health

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"grid-broker/internal/httputil"
	"grid-broker/internal/ledger"
	"grid-broker/internal/marketdata"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Stats is the live bot state exported by Metrics.
type Stats interface {
	FeedState() marketdata.FeedState
	FeedReconnects() int
	TrackedOrders() int
	OrdersPlaced() int
	Balance() ledger.Balance
	Fills() int
}

type Handler struct {
	pool      *pgxpool.Pool
	stats     Stats
	startedAt time.Time
}

// NewHandler builds the health handler. pool may be nil when the journal is disabled.
func NewHandler(pool *pgxpool.Pool, stats Stats, startedAt time.Time) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{pool: pool, stats: stats, startedAt: start}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
	Uptime    string `json:"uptime"`
}

type readinessResponse struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	UptimeSec int64           `json:"uptime_sec"`
	FeedState string          `json:"feed_state"`
	Database  readinessDBStat `json:"database"`
}

type readinessDBStat struct {
	Enabled   bool   `json:"enabled"`
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"ping_ms"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		return 0
	}
	return uptime
}

func (h *Handler) collectDB(ctx context.Context) readinessDBStat {
	if h.pool == nil {
		return readinessDBStat{}
	}
	stat := readinessDBStat{Enabled: true}
	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	err := h.pool.Ping(pingCtx)
	cancel()
	stat.PingMs = time.Since(start).Milliseconds()
	if err != nil {
		stat.Error = err.Error()
	} else {
		stat.Reachable = true
	}
	return stat
}

// Live reports that the process is up.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	uptime := h.uptime(now)
	httputil.WriteJSON(w, http.StatusOK, liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
	})
}

// Ready returns 503 unless the quote stream is open and the journal, when
// configured, answers a ping.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	feed := h.stats.FeedState()
	db := h.collectDB(r.Context())
	status := "ok"
	code := http.StatusOK
	if feed != marketdata.StateStreaming || (db.Enabled && !db.Reachable) {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, readinessResponse{
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(h.uptime(now).Seconds()),
		FeedState: feed.String(),
		Database:  db,
	})
}

// Metrics writes the bot counters in the Prometheus text format.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	streaming := 0
	if h.stats.FeedState() == marketdata.StateStreaming {
		streaming = 1
	}
	bal := h.stats.Balance()
	cash, _ := bal.Cash.Float64()
	position, _ := bal.Position.Float64()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "# HELP gridbot_uptime_seconds Process uptime in seconds.\n")
	_, _ = fmt.Fprintf(w, "# TYPE gridbot_uptime_seconds gauge\n")
	_, _ = fmt.Fprintf(w, "gridbot_uptime_seconds %d\n", int64(h.uptime(time.Now().UTC()).Seconds()))

	_, _ = fmt.Fprintf(w, "# HELP gridbot_feed_streaming Quote stream open (1) or not (0).\n")
	_, _ = fmt.Fprintf(w, "# TYPE gridbot_feed_streaming gauge\n")
	_, _ = fmt.Fprintf(w, "gridbot_feed_streaming %d\n", streaming)
	_, _ = fmt.Fprintf(w, "# TYPE gridbot_feed_reconnects_total counter\n")
	_, _ = fmt.Fprintf(w, "gridbot_feed_reconnects_total %d\n", h.stats.FeedReconnects())

	_, _ = fmt.Fprintf(w, "# TYPE gridbot_orders_placed_total counter\n")
	_, _ = fmt.Fprintf(w, "gridbot_orders_placed_total %d\n", h.stats.OrdersPlaced())
	_, _ = fmt.Fprintf(w, "# TYPE gridbot_orders_tracked gauge\n")
	_, _ = fmt.Fprintf(w, "gridbot_orders_tracked %d\n", h.stats.TrackedOrders())
	_, _ = fmt.Fprintf(w, "# TYPE gridbot_fills_total counter\n")
	_, _ = fmt.Fprintf(w, "gridbot_fills_total %d\n", h.stats.Fills())

	_, _ = fmt.Fprintf(w, "# HELP gridbot_cash Running ledger cash.\n")
	_, _ = fmt.Fprintf(w, "# TYPE gridbot_cash gauge\n")
	_, _ = fmt.Fprintf(w, "gridbot_cash %g\n", cash)
	_, _ = fmt.Fprintf(w, "# TYPE gridbot_position gauge\n")
	_, _ = fmt.Fprintf(w, "gridbot_position %g\n", position)

	_, _ = fmt.Fprintf(w, "# TYPE gridbot_go_goroutines gauge\n")
	_, _ = fmt.Fprintf(w, "gridbot_go_goroutines %d\n", runtime.NumGoroutine())
}

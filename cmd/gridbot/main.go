package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"grid-broker/internal/auth"
	"grid-broker/internal/broker"
	"grid-broker/internal/config"
	"grid-broker/internal/db"
	"grid-broker/internal/health"
	"grid-broker/internal/httpserver"
	"grid-broker/internal/ledger"
	"grid-broker/internal/logging"
	"grid-broker/internal/marketdata"
	"grid-broker/internal/orders"
	"grid-broker/internal/strategy"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	zl, err := logging.New(level, cfg.LogFile)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var creds auth.Credentials = auth.Basic{Application: cfg.ApplicationID, Token: cfg.Token}
	if cfg.AuthMode == config.AuthJWT {
		creds = auth.NewJWT(cfg.ClientID, cfg.ApplicationID, []byte(cfg.SharedKey), 0)
	}

	var adapter broker.Adapter = broker.NewClient(cfg.APIURL, creds)
	if cfg.DryRun {
		adapter = broker.NewPaperAdapter(cfg.AccountID)
		logger.Warnw("dry run: orders go to the paper broker", "account", cfg.AccountID)
	}

	started := time.Now()
	var journal ledger.Journal
	var pool *pgxpool.Pool
	if cfg.DBDSN != "" {
		pool, err = db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			logger.Fatalw("database connect failed", "err", err)
		}
		defer pool.Close()
		pg := ledger.NewPGJournal(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			logger.Fatalw("journal schema setup failed", "err", err)
		}
		journal = pg
	}

	bus := marketdata.NewBus()
	book := ledger.New()
	poller := orders.NewPoller(adapter, cfg.PollInterval, nil, logger, bus)
	processor := ledger.NewProcessor(book, poller, journal, logger, bus)
	poller.SetOnChange(processor.HandleUpdates)

	grid, err := strategy.NewGrid(strategy.GridConfig{
		Account:    cfg.AccountID,
		Instrument: cfg.Instrument,
		Quantity:   cfg.Quantity,
		GridSize:   cfg.Grid,
		Duration:   cfg.OrderDuration,
	}, adapter, poller, logger, bus)
	if err != nil {
		logger.Fatalw("invalid grid configuration", "err", err)
	}

	stream := marketdata.NewStreamClient(cfg.APIURL, creds, cfg.FeedReadTimeout)
	feed := marketdata.NewFeed(cfg.Instrument, stream, cfg.FeedBackoff, logger, bus)

	var srv *http.Server
	if cfg.StatusAddr != "" {
		status := httpserver.NewStatusHandler(cfg.Instrument, cfg.DryRun, feed, poller, grid, book)
		recorder := marketdata.NewCandleRecorder(0)
		quotes := bus.Subscribe()
		go recorder.Run(ctx, quotes)
		router := httpserver.NewRouter(httpserver.RouterDeps{
			StatusHandler:   status,
			HealthHandler:   health.NewHandler(pool, status, started),
			CandlesHandler:  marketdata.NewHandler(recorder),
			EventsWSHandler: httpserver.NewEventsWSHandler(bus, cfg.WebSocketOrigin),
			StatusTokenHash: cfg.StatusTokenHash,
			Origin:          cfg.WebSocketOrigin,
		})
		srv = &http.Server{Addr: cfg.StatusAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Infow("status server listening", "addr", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorw("status server failed", "err", err)
			}
		}()
	}

	go poller.Run(ctx)

	logger.Infow("grid bot started",
		"instrument", cfg.Instrument, "grid", cfg.Grid, "quantity", cfg.Quantity,
		"api", cfg.APIURL, "auth", cfg.AuthMode, "dry_run", cfg.DryRun)
	grid.Run(ctx, feed.Run(ctx))

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	bal := book.Balance()
	logger.Infow("grid bot stopped", "cash", bal.Cash, "position", bal.Position, "open_orders", poller.Len())
}

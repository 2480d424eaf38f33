package ledger

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGJournal appends executions to a Postgres table. It is write-only; the
// ledger never reads it back on start.
type PGJournal struct {
	pool *pgxpool.Pool
}

func NewPGJournal(pool *pgxpool.Pool) *PGJournal {
	return &PGJournal{pool: pool}
}

func (j *PGJournal) EnsureSchema(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS grid_executions (
			id          BIGSERIAL PRIMARY KEY,
			order_id    TEXT NOT NULL UNIQUE,
			instrument  TEXT NOT NULL,
			side        TEXT NOT NULL,
			quantity    NUMERIC NOT NULL,
			avg_price   NUMERIC NOT NULL,
			cash_after  NUMERIC NOT NULL,
			pos_after   NUMERIC NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (j *PGJournal) Record(ctx context.Context, exec Execution) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO grid_executions (order_id, instrument, side, quantity, avg_price, cash_after, pos_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO NOTHING
	`, exec.OrderID, exec.Instrument, string(exec.Side),
		exec.Quantity.String(), exec.AvgPrice.String(), exec.After.Cash.String(), exec.After.Position.String())
	return err
}

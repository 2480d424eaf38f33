package ledger

import (
	"context"
	"errors"
	"time"

	"grid-broker/internal/marketdata"
	"grid-broker/internal/model"
	"grid-broker/internal/types"

	"go.uber.org/zap"
)

// Remover stops tracking an order once it has been processed.
type Remover interface {
	RemoveOrder(id string)
}

// Processor handles the change batches reported by the poller: terminal
// orders are booked (when filled) and dropped from tracking.
type Processor struct {
	ledger  *Ledger
	remover Remover
	journal Journal
	logger  *zap.SugaredLogger
	pub     marketdata.Publisher
}

func NewProcessor(l *Ledger, remover Remover, journal Journal, logger *zap.SugaredLogger, pub marketdata.Publisher) *Processor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if pub == nil {
		pub = marketdata.NopPublisher{}
	}
	return &Processor{ledger: l, remover: remover, journal: journal, logger: logger.Named("ledger"), pub: pub}
}

// HandleUpdates is the poller's change callback.
func (p *Processor) HandleUpdates(changed []model.Order) {
	for _, o := range changed {
		if !o.State.Status.IsTerminal() {
			continue
		}
		switch o.State.Status {
		case types.OrderStatusFilled:
			p.book(o)
		default:
			p.logger.Infow("order closed without fill", "order_id", o.ID, "status", o.State.Status)
		}
		p.remover.RemoveOrder(o.ID)
	}
}

func (p *Processor) book(o model.Order) {
	exec, err := p.ledger.Apply(o)
	if err != nil {
		if errors.Is(err, ErrZeroFill) {
			p.logger.Errorw("integrity violation: filled order without fill quantity", "order_id", o.ID, "err", err)
			p.pub.Publish(marketdata.Event{Type: types.EventIntegrity, Data: map[string]any{
				"reason": "zero_fill", "order_id": o.ID,
			}})
			return
		}
		p.logger.Errorw("cannot book filled order", "order_id", o.ID, "err", err)
		return
	}
	p.logger.Infow("order filled",
		"order_id", exec.OrderID, "side", exec.Side, "quantity", exec.Quantity, "avg_price", exec.AvgPrice,
		"cash", exec.After.Cash, "position", exec.After.Position)
	p.pub.Publish(marketdata.Event{Type: types.EventFill, Data: exec})
	p.pub.Publish(marketdata.Event{Type: types.EventLedger, Data: exec.After})

	if p.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.journal.Record(ctx, exec); err != nil {
		p.logger.Warnw("journal write failed", "order_id", exec.OrderID, "err", err)
	}
}

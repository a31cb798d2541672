package ledger

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

const meterName = "github.com/jbrasil/stockledger/internal/ledger"

type ledgerMetrics struct {
	salesRegistered     metric.Int64Counter
	salesCancelled      metric.Int64Counter
	salesReset          metric.Int64Counter
	stockRejected       metric.Int64Counter
	persistenceFailures metric.Int64Counter
}

func newLedgerMetrics(meter metric.Meter, logger *zap.Logger) *ledgerMetrics {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	fallback := noop.NewMeterProvider().Meter(meterName)

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Warn("failed to create counter", zap.String("name", name), zap.Error(err))
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}

	return &ledgerMetrics{
		salesRegistered:     counter("ledger.sales.registered", "Sale lines recorded"),
		salesCancelled:      counter("ledger.sales.cancelled", "Sales cancelled with stock restored"),
		salesReset:          counter("ledger.sales.reset", "Sales removed by register resets"),
		stockRejected:       counter("ledger.stock.rejected", "Checkouts rejected for insufficient stock"),
		persistenceFailures: counter("ledger.persistence.failures", "Store writes that failed after the in-memory change"),
	}
}

func (m *ledgerMetrics) registered(ctx context.Context, category Category, lines int) {
	m.salesRegistered.Add(ctx, int64(lines), metric.WithAttributes(attribute.String("category", string(category))))
}

func (m *ledgerMetrics) cancelled(ctx context.Context, category Category) {
	m.salesCancelled.Add(ctx, 1, metric.WithAttributes(attribute.String("category", string(category))))
}

func (m *ledgerMetrics) reset(ctx context.Context, category Category, removed int) {
	scope := string(category)
	if scope == "" {
		scope = "all"
	}
	m.salesReset.Add(ctx, int64(removed), metric.WithAttributes(attribute.String("category", scope)))
}

func (m *ledgerMetrics) rejected(ctx context.Context) {
	m.stockRejected.Add(ctx, 1)
}

func (m *ledgerMetrics) persistenceFailed(ctx context.Context, op string) {
	m.persistenceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

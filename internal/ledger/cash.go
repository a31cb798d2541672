package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var zeroCash = decimal.Zero

// UpdateCash soma delta (negativo para retirada) ao saldo do caixa. Vendas
// nunca chamam isto; faturamento e caixa são conferidos à mão.
func (l *Ledger) UpdateCash(ctx context.Context, delta decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cash = l.cash.Add(delta)
	entries := map[string]string{}
	l.encodeCash(entries, l.cash)

	l.logger.Info("cash updated", zap.String("delta", delta.String()), zap.String("balance", l.cash.String()))
	return l.cash, l.persist(ctx, "update_cash", entries)
}

// ParseAmount lê um valor digitado. Aceita "12,50" e "12.50"; o resultado
// precisa ser positivo.
func ParseAmount(s string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q must be greater than zero", ErrInvalidAmount, s)
	}
	return amount, nil
}

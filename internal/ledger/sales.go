package ledger

import (
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
)

// RegisterSale registra uma única linha; é RegisterBatchSales com um item
func (l *Ledger) RegisterSale(ctx context.Context, productID string, quantity int) (Sale, error) {
	sales, err := l.RegisterBatchSales(ctx, []CartItem{{ProductID: productID, Quantity: quantity}})
	if len(sales) == 0 {
		return Sale{}, err
	}
	return sales[0], err
}

// RegisterBatchSales baixa o estoque de cada item e registra uma Sale por
// item, tudo numa única transação.
//
// Todos os itens são validados antes de qualquer mudança: quantidade positiva,
// produto existente e a soma pedida por produto cabendo no estoque atual. As
// baixas são somadas por produto sobre o estado anterior ao lote, então duas
// linhas do mesmo produto nunca leem o resultado uma da outra. Nome, categoria
// e preço vêm do produto no ledger. As vendas novas entram no início, na ordem
// dos itens, com o mesmo horário.
func (l *Ledger) RegisterBatchSales(ctx context.Context, items []CartItem) ([]Sale, error) {
	if len(items) == 0 {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s quantity %d", ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
		if l.productIndex(item.ProductID) < 0 {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, item.ProductID)
		}
	}

	requested := make(map[string]int, len(items))
	for _, item := range items {
		p := l.products[l.productIndex(item.ProductID)]
		already := requested[p.ID]
		// compara com o que sobra, assim a soma nunca passa do estoque nem estoura int
		if item.Quantity > p.Quantity-already {
			want := already + item.Quantity
			if want < already {
				want = math.MaxInt
			}
			l.logger.Info("sale rejected: insufficient stock",
				zap.String("product_id", p.ID),
				zap.Int("available", p.Quantity),
				zap.Int("requested", want),
			)
			l.metrics.rejected(ctx)
			return nil, fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, p.Name, p.Quantity, want)
		}
		requested[p.ID] = already + item.Quantity
	}

	products := slices.Clone(l.products)
	for i, p := range products {
		if want, ok := requested[p.ID]; ok {
			products[i].Quantity = p.Quantity - want
		}
	}

	now := l.now()
	newSales := make([]Sale, 0, len(items))
	for _, item := range items {
		p := l.products[l.productIndex(item.ProductID)]
		newSales = append(newSales, NewSale(l.newID(), p, item.Quantity, now))
	}
	sales := append(slices.Clone(newSales), l.sales...)

	entries := map[string]string{}
	if err := l.encodeProducts(entries, products); err != nil {
		return nil, err
	}
	if err := l.encodeSales(entries, sales); err != nil {
		return nil, err
	}
	l.products = products
	l.sales = sales

	for _, s := range newSales {
		l.metrics.registered(ctx, s.Category, 1)
		l.logger.Info("sale registered",
			zap.String("sale_id", s.ID),
			zap.String("product_id", s.ProductID),
			zap.Int("quantity", s.Quantity),
			zap.String("total", s.Total.String()),
		)
	}
	return newSales, l.persist(ctx, "register_sales", entries)
}

// RemoveSale cancela uma venda: a quantidade volta para o produto e o
// registro é removido. Id desconhecido não faz nada. Se o produto já foi
// excluído só o registro é removido.
func (l *Ledger) RemoveSale(ctx context.Context, saleID string) (Sale, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	si := l.saleIndex(saleID)
	if si < 0 {
		return Sale{}, false, nil
	}
	sale := l.sales[si]

	products := slices.Clone(l.products)
	if pi := l.productIndex(sale.ProductID); pi >= 0 {
		products[pi].Quantity += sale.Quantity
	} else {
		l.logger.Warn("cancelled sale references a deleted product, stock not restored",
			zap.String("sale_id", sale.ID),
			zap.String("product_id", sale.ProductID),
		)
	}
	sales := slices.Delete(slices.Clone(l.sales), si, si+1)

	entries := map[string]string{}
	if err := l.encodeProducts(entries, products); err != nil {
		return Sale{}, false, err
	}
	if err := l.encodeSales(entries, sales); err != nil {
		return Sale{}, false, err
	}
	l.products = products
	l.sales = sales

	l.metrics.cancelled(ctx, sale.Category)
	l.logger.Info("sale cancelled",
		zap.String("sale_id", sale.ID),
		zap.String("product_id", sale.ProductID),
		zap.Int("quantity", sale.Quantity),
	)
	return sale, true, l.persist(ctx, "remove_sale", entries)
}

// ResetSales fecha o caixa. Com categoria, remove só as vendas dela e não
// mexe no saldo. Com categoria vazia remove todas as vendas e zera o saldo.
// Retorna quantas vendas foram removidas.
func (l *Ledger) ResetSales(ctx context.Context, category Category) (int, error) {
	if category != "" && !category.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := map[string]string{}
	var sales []Sale
	if category != "" {
		sales = slices.DeleteFunc(slices.Clone(l.sales), func(s Sale) bool { return s.Category == category })
	} else {
		sales = []Sale{}
		l.encodeCash(entries, zeroCash)
	}
	if err := l.encodeSales(entries, sales); err != nil {
		return 0, err
	}

	removed := len(l.sales) - len(sales)
	l.sales = sales
	if category == "" {
		l.cash = zeroCash
	}

	l.metrics.reset(ctx, category, removed)
	l.logger.Info("sales reset",
		zap.String("category", string(category)),
		zap.Int("removed", removed),
		zap.Bool("cash_zeroed", category == ""),
	)
	return removed, l.persist(ctx, "reset_sales", entries)
}

package ledger

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func validateStockFields(category Category, quantity int, price decimal.Decimal) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	if quantity < 0 {
		return fmt.Errorf("%w: stock cannot be negative (%d)", ErrInvalidQuantity, quantity)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative (%s)", ErrInvalidAmount, price)
	}
	return nil
}

// AddProduct adiciona um produto no fim da ordem de exibição
func (l *Ledger) AddProduct(ctx context.Context, draft ProductDraft) (Product, error) {
	if err := validateStockFields(draft.Category, draft.Quantity, draft.Price); err != nil {
		return Product{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	product := Product{
		ID:       l.newID(),
		Name:     draft.Name,
		Category: draft.Category,
		Quantity: draft.Quantity,
		Price:    draft.Price,
	}

	products := append(slices.Clone(l.products), product)
	entries := map[string]string{}
	if err := l.encodeProducts(entries, products); err != nil {
		return Product{}, err
	}
	l.products = products

	l.logger.Info("product added",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("category", string(product.Category)),
		zap.Int("quantity", product.Quantity),
	)
	return product, l.persist(ctx, "add_product", entries)
}

// UpdateProduct aplica os campos não nil de patch no produto. Com id
// desconhecido found é false e nada muda.
func (l *Ledger) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (Product, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.productIndex(id)
	if i < 0 {
		return Product{}, false, nil
	}

	updated := l.products[i]
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Category != nil {
		updated.Category = *patch.Category
	}
	if patch.Quantity != nil {
		updated.Quantity = *patch.Quantity
	}
	if patch.Price != nil {
		updated.Price = *patch.Price
	}
	if err := validateStockFields(updated.Category, updated.Quantity, updated.Price); err != nil {
		return l.products[i], true, err
	}

	products := slices.Clone(l.products)
	products[i] = updated
	entries := map[string]string{}
	if err := l.encodeProducts(entries, products); err != nil {
		return l.products[i], true, err
	}
	l.products = products

	l.logger.Info("product updated", zap.String("product_id", id), zap.Int("quantity", updated.Quantity))
	return updated, true, l.persist(ctx, "update_product", entries)
}

// DeleteProduct remove o produto. As vendas que o referenciam mantêm o
// snapshot e não são alteradas.
func (l *Ledger) DeleteProduct(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.productIndex(id)
	if i < 0 {
		return false, nil
	}

	products := slices.Delete(slices.Clone(l.products), i, i+1)
	entries := map[string]string{}
	if err := l.encodeProducts(entries, products); err != nil {
		return false, err
	}
	l.products = products

	l.logger.Info("product deleted", zap.String("product_id", id))
	return true, l.persist(ctx, "delete_product", entries)
}

// MoveProduct troca o produto de posição com o vizinho de cima ou de baixo.
// Passar da ponta ou usar um id desconhecido não faz nada e retorna moved == false.
func (l *Ledger) MoveProduct(ctx context.Context, id string, direction Direction) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	index := l.productIndex(id)
	if index < 0 {
		return false, nil
	}

	var target int
	switch direction {
	case DirectionUp:
		target = index - 1
	case DirectionDown:
		target = index + 1
	default:
		return false, fmt.Errorf("invalid direction %q", direction)
	}
	if target < 0 || target >= len(l.products) {
		return false, nil
	}

	products := slices.Clone(l.products)
	moved := products[index]
	products = slices.Delete(products, index, index+1)
	products = slices.Insert(products, target, moved)

	entries := map[string]string{}
	if err := l.encodeProducts(entries, products); err != nil {
		return false, err
	}
	l.products = products

	l.logger.Debug("product moved", zap.String("product_id", id), zap.Int("from", index), zap.Int("to", target))
	return true, l.persist(ctx, "move_product", entries)
}

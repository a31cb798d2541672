package ledger_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/jbrasil/stockledger/internal/ledger"
	"github.com/jbrasil/stockledger/internal/store"
)

// seedLedger builds a ledger with one water product per stock value.
func seedLedger(stocks []int) (*ledger.Ledger, []string, error) {
	ctx := context.Background()
	l := ledger.New(store.NewMemoryStore(), ledger.WithIDGenerator(sequentialIDs("p")))
	ids := make([]string, 0, len(stocks))
	for _, stock := range stocks {
		p, err := l.AddProduct(ctx, ledger.ProductDraft{
			Name:     "item",
			Category: ledger.CategoryWater,
			Quantity: stock,
			Price:    decimal.NewFromInt(2),
		})
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, p.ID)
	}
	return l, ids, nil
}

// TestStockConservation checks that stock plus units sold is constant for
// every product, whether the checkout goes through or is rejected.
func TestStockConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("stock + sold is constant per product", prop.ForAll(
		func(stocks []int, picks []int, quantities []int) bool {
			if len(stocks) == 0 {
				return true
			}
			l, ids, err := seedLedger(stocks)
			if err != nil {
				return false
			}

			var items []ledger.CartItem
			for i := 0; i < len(picks) && i < len(quantities); i++ {
				items = append(items, ledger.CartItem{ProductID: ids[picks[i]%len(ids)], Quantity: quantities[i]})
			}

			_, err = l.RegisterBatchSales(context.Background(), items)
			if err != nil && !errors.Is(err, ledger.ErrInsufficientStock) {
				return false
			}
			if err != nil && len(l.Sales()) != 0 {
				return false
			}

			for i, id := range ids {
				p, ok := l.Product(id)
				if !ok || p.Quantity < 0 {
					return false
				}
				if p.Quantity+l.ProductSoldCount(id) != stocks[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(3, gen.IntRange(0, 20)),
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.SliceOf(gen.IntRange(1, 8)),
	))

	properties.TestingRun(t)
}

func TestCancelRestoresStock(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("sale then cancel is a no-op on stock and history", prop.ForAll(
		func(stock, quantity int) bool {
			ctx := context.Background()
			l, ids, err := seedLedger([]int{stock})
			if err != nil {
				return false
			}
			if quantity > stock {
				quantity = stock
			}

			sale, err := l.RegisterSale(ctx, ids[0], quantity)
			if err != nil {
				return false
			}
			if _, found, err := l.RemoveSale(ctx, sale.ID); err != nil || !found {
				return false
			}

			p, _ := l.Product(ids[0])
			return p.Quantity == stock && len(l.Sales()) == 0
		},
		gen.IntRange(1, 500),
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t)
}

func TestMoveKeepsEveryProduct(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("moves permute the product list", prop.ForAll(
		func(picks []int, ups []bool) bool {
			ctx := context.Background()
			l, ids, err := seedLedger([]int{1, 2, 3, 4, 5})
			if err != nil {
				return false
			}
			for i := 0; i < len(picks) && i < len(ups); i++ {
				dir := ledger.DirectionDown
				if ups[i] {
					dir = ledger.DirectionUp
				}
				if _, err := l.MoveProduct(ctx, ids[picks[i]%len(ids)], dir); err != nil {
					return false
				}
			}

			got := make([]string, 0, len(ids))
			for _, p := range l.Products() {
				got = append(got, p.ID)
			}
			slices.Sort(got)
			want := slices.Clone(ids)
			slices.Sort(want)
			return slices.Equal(got, want)
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesTotal soma Sale.Total de uma categoria, ou de todas as vendas quando
// category é vazia.
func (l *Ledger) SalesTotal(category Category) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for _, s := range l.sales {
		if category == "" || s.Category == category {
			total = total.Add(s.Total)
		}
	}
	return total
}

// HasSales informa se ResetSales(category) removeria alguma venda
func (l *Ledger) HasSales(category Category) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.sales {
		if category == "" || s.Category == category {
			return true
		}
	}
	return false
}

// ProductSales junta um produto e as unidades vendidas
type ProductSales struct {
	Product   Product `json:"product"`
	SoldCount int     `json:"soldCount"`
}

// SoldSummary lista os produtos da categoria, na ordem de exibição, com o
// total vendido de cada um.
func (l *Ledger) SoldSummary(category Category) []ProductSales {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ProductSales, 0, len(l.products))
	for _, p := range l.products {
		if p.Category != category {
			continue
		}
		out = append(out, ProductSales{Product: p, SoldCount: soldCount(l.sales, p.ID)})
	}
	return out
}

// Rótulos de GroupSalesByDay para os dois dias mais recentes
const (
	DayToday     = "today"
	DayYesterday = "yesterday"
)

// DaySales é um grupo do histórico de vendas
type DaySales struct {
	Label string `json:"label"`
	Sales []Sale `json:"sales"`
}

// GroupSalesByDay agrupa as vendas por dia no fuso de now. Hoje e ontem
// recebem os rótulos próprios e vêm primeiro; dias anteriores usam a data
// (2006-01-02) na ordem em que aparecem.
func GroupSalesByDay(sales []Sale, now time.Time) []DaySales {
	loc := now.Location()
	today := now.Format(time.DateOnly)
	yesterday := now.AddDate(0, 0, -1).Format(time.DateOnly)

	index := map[string]int{}
	var buckets []DaySales
	for _, s := range sales {
		label := s.Date.In(loc).Format(time.DateOnly)
		switch label {
		case today:
			label = DayToday
		case yesterday:
			label = DayYesterday
		}
		i, ok := index[label]
		if !ok {
			i = len(buckets)
			index[label] = i
			buckets = append(buckets, DaySales{Label: label})
		}
		buckets[i].Sales = append(buckets[i].Sales, s)
	}

	rank := func(label string) int {
		switch label {
		case DayToday:
			return 0
		case DayYesterday:
			return 1
		default:
			return 2
		}
	}
	out := make([]DaySales, 0, len(buckets))
	for r := 0; r <= 2; r++ {
		for _, b := range buckets {
			if rank(b.Label) == r {
				out = append(out, b)
			}
		}
	}
	return out
}

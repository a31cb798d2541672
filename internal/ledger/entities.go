package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category agrupa produtos e vendas
type Category string

const (
	CategoryWater    Category = "water"
	CategoryIceCream Category = "ice_cream"
)

// Categories lista as categorias na ordem de exibição
var Categories = []Category{CategoryWater, CategoryIceCream}

// ParseCategory aceita os nomes canônicos e os rótulos dos dados exportados
// pela primeira versão do app ("agua", "sorvete").
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "water", "agua", "água":
		return CategoryWater, nil
	case "ice_cream", "ice-cream", "icecream", "sorvete":
		return CategoryIceCream, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

func (c Category) Valid() bool {
	return c == CategoryWater || c == CategoryIceCream
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Product representa um item do estoque. A posição no slice define a ordem de exibição.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category Category        `json:"category"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ProductDraft carrega os campos do produto antes de ganhar um id
type ProductDraft struct {
	Name     string          `json:"name"`
	Category Category        `json:"category"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ProductPatch contém os campos a sobrescrever; campos nil ficam como estão
type ProductPatch struct {
	Name     *string          `json:"name,omitempty"`
	Category *Category        `json:"category,omitempty"`
	Quantity *int             `json:"quantity,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// Sale representa uma venda registrada. ProductName, Category e Total são
// copiados do produto no momento da venda e nunca recalculados.
type Sale struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Category    Category        `json:"category"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
	Date        time.Time       `json:"date"`
}

// NewSale cria uma nova instância de Sale a partir do estado atual do produto
func NewSale(id string, p Product, quantity int, at time.Time) Sale {
	return Sale{
		ID:          id,
		ProductID:   p.ID,
		ProductName: p.Name,
		Category:    p.Category,
		Quantity:    quantity,
		Total:       p.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Date:        at,
	}
}

// CartItem é uma linha do carrinho
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Direction move um produto na lista
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionUp:
		return DirectionUp, nil
	case DirectionDown:
		return DirectionDown, nil
	default:
		return "", fmt.Errorf("invalid direction %q", s)
	}
}

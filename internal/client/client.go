// Package client conversa com um servidor do ledger pela API JSON.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/jbrasil/stockledger/internal/httpapi"
	"github.com/jbrasil/stockledger/internal/ledger"
)

// APIError é uma resposta não 2xx do servidor. Unwrap devolve o erro do
// ledger correspondente ao status, então errors.Is funciona pela rede.
type APIError struct {
	Status  int
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusConflict:
		return ledger.ErrInsufficientStock
	case http.StatusUnauthorized:
		return ledger.ErrAuthFailed
	case http.StatusNotFound:
		return ledger.ErrNotFound
	default:
		return nil
	}
}

// Client encapsula um cliente resty apontado para um servidor
type Client struct {
	http *resty.Client
	pin  string
}

type Option func(*Client)

// WithPIN define o PIN enviado nas rotas protegidas
func WithPIN(pin string) Option {
	return func(c *Client) { c.pin = pin }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithHTTPClient usa o transporte de hc. O timeout de hc só vale quando
// definido; base URL e headers continuam os de New.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc.Transport != nil {
			c.http.SetTransport(hc.Transport)
		}
		if hc.Timeout > 0 {
			c.http.SetTimeout(hc.Timeout)
		}
	}
}

// New cria uma nova instância de Client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetHeader("Content-Type", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summary é a resposta de GET /api/summary
type Summary struct {
	Category ledger.Category       `json:"category"`
	Products []ledger.ProductSales `json:"products"`
	Total    decimal.Decimal       `json:"total"`
}

// SalesPage é a resposta de GET /api/sales
type SalesPage struct {
	Sales []ledger.Sale   `json:"sales"`
	Total decimal.Decimal `json:"total"`
}

func (c *Client) request(ctx context.Context, result any) *resty.Request {
	r := c.http.R().
		SetContext(ctx).
		SetError(&APIError{})
	if result != nil {
		r.SetResult(result)
	}
	return r
}

func (c *Client) gated(ctx context.Context, result any) *resty.Request {
	return c.request(ctx, result).SetHeader(httpapi.PinHeader, c.pin)
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr.Message == "" {
		apiErr = &APIError{Message: resp.String()}
	}
	apiErr.Status = resp.StatusCode()
	return apiErr
}

func withCategory(r *resty.Request, category ledger.Category) *resty.Request {
	if category != "" {
		r.SetQueryParam("category", string(category))
	}
	return r
}

func (c *Client) Health(ctx context.Context) error {
	return check(c.request(ctx, nil).Get("/health"))
}

func (c *Client) Products(ctx context.Context, category ledger.Category) ([]ledger.Product, error) {
	var out struct {
		Products []ledger.Product `json:"products"`
	}
	err := check(withCategory(c.request(ctx, &out), category).Get("/api/products"))
	return out.Products, err
}

func (c *Client) AddProduct(ctx context.Context, draft ledger.ProductDraft) (ledger.Product, error) {
	var out struct {
		Product ledger.Product `json:"product"`
	}
	err := check(c.gated(ctx, &out).SetBody(draft).Post("/api/products"))
	return out.Product, err
}

func (c *Client) UpdateProduct(ctx context.Context, id string, patch ledger.ProductPatch) (ledger.Product, error) {
	var out struct {
		Product ledger.Product `json:"product"`
	}
	err := check(c.gated(ctx, &out).SetBody(patch).SetPathParam("id", id).Patch("/api/products/{id}"))
	return out.Product, err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return check(c.gated(ctx, nil).SetPathParam("id", id).Delete("/api/products/{id}"))
}

// MoveProduct retorna false quando o produto já estava na ponta
func (c *Client) MoveProduct(ctx context.Context, id string, direction ledger.Direction) (bool, error) {
	var out struct {
		Moved bool `json:"moved"`
	}
	err := check(c.request(ctx, &out).
		SetPathParam("id", id).
		SetBody(map[string]string{"direction": string(direction)}).
		Post("/api/products/{id}/move"))
	return out.Moved, err
}

func (c *Client) SoldCount(ctx context.Context, id string) (int, error) {
	var out struct {
		SoldCount int `json:"soldCount"`
	}
	err := check(c.request(ctx, &out).SetPathParam("id", id).Get("/api/products/{id}/sold"))
	return out.SoldCount, err
}

func (c *Client) Summary(ctx context.Context, category ledger.Category) (Summary, error) {
	var out Summary
	err := check(withCategory(c.request(ctx, &out), category).Get("/api/summary"))
	return out, err
}

func (c *Client) Sales(ctx context.Context, category ledger.Category) (SalesPage, error) {
	var out SalesPage
	err := check(withCategory(c.request(ctx, &out), category).Get("/api/sales"))
	return out, err
}

func (c *Client) SalesByDay(ctx context.Context, category ledger.Category) ([]ledger.DaySales, error) {
	var out struct {
		Days []ledger.DaySales `json:"days"`
	}
	err := check(withCategory(c.request(ctx, &out), category).Get("/api/sales/days"))
	return out.Days, err
}

// Sell registra o carrinho inteiro numa única venda
func (c *Client) Sell(ctx context.Context, items []ledger.CartItem) ([]ledger.Sale, error) {
	var out struct {
		Sales []ledger.Sale `json:"sales"`
	}
	err := check(c.request(ctx, &out).SetBody(map[string]any{"items": items}).Post("/api/sales"))
	return out.Sales, err
}

func (c *Client) CancelSale(ctx context.Context, id string) (ledger.Sale, error) {
	var out struct {
		Sale ledger.Sale `json:"sale"`
	}
	err := check(c.gated(ctx, &out).SetPathParam("id", id).Delete("/api/sales/{id}"))
	return out.Sale, err
}

// ResetSales fecha uma categoria, ou tudo quando category é vazia
func (c *Client) ResetSales(ctx context.Context, category ledger.Category) (int, error) {
	var out struct {
		Removed int `json:"removed"`
	}
	err := check(c.gated(ctx, &out).SetBody(map[string]string{"category": string(category)}).Post("/api/sales/reset"))
	return out.Removed, err
}

func (c *Client) Cash(ctx context.Context) (decimal.Decimal, error) {
	var out struct {
		Cash decimal.Decimal `json:"cash"`
	}
	err := check(c.request(ctx, &out).Get("/api/cash"))
	return out.Cash, err
}

// Deposit soma amount ao caixa; amount pode usar vírgula decimal
func (c *Client) Deposit(ctx context.Context, amount string) (decimal.Decimal, error) {
	return c.updateCash(ctx, amount, "in")
}

func (c *Client) Withdraw(ctx context.Context, amount string) (decimal.Decimal, error) {
	return c.updateCash(ctx, amount, "out")
}

func (c *Client) updateCash(ctx context.Context, amount, direction string) (decimal.Decimal, error) {
	var out struct {
		Cash decimal.Decimal `json:"cash"`
	}
	err := check(c.gated(ctx, &out).
		SetBody(map[string]string{"amount": amount, "direction": direction}).
		Post("/api/cash"))
	return out.Cash, err
}

func (c *Client) CheckPassword(ctx context.Context, pin string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	err := check(c.request(ctx, &out).SetBody(map[string]string{"password": pin}).Post("/api/password/check"))
	return out.Valid, err
}

func (c *Client) UpdatePassword(ctx context.Context, current, next string) error {
	return check(c.request(ctx, nil).
		SetBody(map[string]string{"current": current, "new": next}).
		Put("/api/password"))
}

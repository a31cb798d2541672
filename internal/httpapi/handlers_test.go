package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/jbrasil/stockledger/internal/ledger"
	"github.com/jbrasil/stockledger/internal/store"
)

const testPIN = ledger.DefaultPassword

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, st store.Store) (*gin.Engine, *LedgerHandler, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(st)
	require.NoError(t, l.Load(context.Background()))
	h := NewLedgerHandler(l, noop.NewTracerProvider().Tracer("test"), zap.NewNop())
	return NewRouter(h, "stockledger-test"), h, l
}

func do(r http.Handler, method, path string, body any, pin string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if pin != "" {
		req.Header.Set(PinHeader, pin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type productBody struct {
	Product ledger.Product `json:"product"`
}

type salesBody struct {
	Sales []ledger.Sale   `json:"sales"`
	Total decimal.Decimal `json:"total"`
	Error string          `json:"error"`
}

type cashBody struct {
	Cash  decimal.Decimal `json:"cash"`
	Error string          `json:"error"`
}

func seedProduct(t *testing.T, l *ledger.Ledger, name string, category ledger.Category, qty int, price string) ledger.Product {
	t.Helper()
	p, err := l.AddProduct(context.Background(), ledger.ProductDraft{
		Name: name, Category: category, Quantity: qty, Price: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return p
}

func TestHealthCheck(t *testing.T) {
	r, _, _ := newTestRouter(t, store.NewMemoryStore())

	w := do(r, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestAddProduct_RequiresPIN(t *testing.T) {
	// Arrange
	r, _, l := newTestRouter(t, store.NewMemoryStore())
	body := map[string]any{"name": "Crystal 500ml", "category": "agua", "quantity": 12, "price": "2.50"}

	// Act
	noPin := do(r, http.MethodPost, "/api/products", body, "")
	wrongPin := do(r, http.MethodPost, "/api/products", body, "0000")
	ok := do(r, http.MethodPost, "/api/products", body, testPIN)

	// Assert
	assert.Equal(t, http.StatusUnauthorized, noPin.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPin.Code)
	assert.Contains(t, wrongPin.Body.String(), "incorrect password")
	require.Equal(t, http.StatusCreated, ok.Code, ok.Body.String())

	created := decode[productBody](t, ok).Product
	assert.Equal(t, ledger.CategoryWater, created.Category)
	assert.Equal(t, "2.5", created.Price.String())
	assert.Len(t, l.Products(), 1)
}

func TestAddProduct_BadInput(t *testing.T) {
	r, _, l := newTestRouter(t, store.NewMemoryStore())

	tests := []struct {
		name string
		body any
	}{
		{"unknown category", map[string]any{"name": "X", "category": "soda", "quantity": 1, "price": "1"}},
		{"missing name", map[string]any{"category": "water", "quantity": 1, "price": "1"}},
		{"negative stock", map[string]any{"name": "X", "category": "water", "quantity": -1, "price": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/products", tt.body, testPIN)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, l.Products())
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	r, _, l := newTestRouter(t, store.NewMemoryStore())
	p := seedProduct(t, l, "A", ledger.CategoryWater, 5, "1")

	w := do(r, http.MethodPatch, "/api/products/"+p.ID, map[string]any{"quantity": 9}, testPIN)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 9, decode[productBody](t, w).Product.Quantity)

	w = do(r, http.MethodPatch, "/api/products/nope", map[string]any{"quantity": 9}, testPIN)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/api/products/"+p.ID, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodDelete, "/api/products/"+p.ID, nil, testPIN)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, l.Products())

	w = do(r, http.MethodDelete, "/api/products/"+p.ID, nil, testPIN)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProducts_ByCategory(t *testing.T) {
	r, _, l := newTestRouter(t, store.NewMemoryStore())
	seedProduct(t, l, "A", ledger.CategoryWater, 5, "1")
	seedProduct(t, l, "B", ledger.CategoryIceCream, 5, "1")

	w := do(r, http.MethodGet, "/api/products?category=sorvete", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	products := decode[struct {
		Products []ledger.Product `json:"products"`
	}](t, w).Products
	require.Len(t, products, 1)
	assert.Equal(t, "B", products[0].Name)

	w = do(r, http.MethodGet, "/api/products?category=soda", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMoveProduct(t *testing.T) {
	r, _, l := newTestRouter(t, store.NewMemoryStore())
	a := seedProduct(t, l, "A", ledger.CategoryWater, 1, "1")
	b := seedProduct(t, l, "B", ledger.CategoryWater, 1, "1")

	w := do(r, http.MethodPost, "/api/products/"+a.ID+"/move", map[string]string{"direction": "up"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"moved":false}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/products/"+b.ID+"/move", map[string]string{"direction": "up"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"moved":true}`, w.Body.String())
	assert.Equal(t, "B", l.Products()[0].Name)

	w = do(r, http.MethodPost, "/api/products/"+b.ID+"/move", map[string]string{"direction": "sideways"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterSales(t *testing.T) {
	// Arrange
	r, _, l := newTestRouter(t, store.NewMemoryStore())
	p := seedProduct(t, l, "Crystal 500ml", ledger.CategoryWater, 10, "2.50")
	items := map[string]any{"items": []map[string]any{
		{"productId": p.ID, "quantity": 2},
		{"productId": p.ID, "quantity": 3},
	}}

	// Act
	w := do(r, http.MethodPost, "/api/sales", items, "")

	// Assert
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, decode[salesBody](t, w).Sales, 2)
	got, _ := l.Product(p.ID)
	assert.Equal(t, 5, got.Quantity)

	w = do(r, http.MethodGet, "/api/products/"+p.ID+"/sold", nil, "")
	assert.JSONEq(t, `{"productId":"`+p.ID+`","soldCount":5}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/sales?category=water", nil, "")
	listed := decode[salesBody](t, w)
	assert.Len(t, listed.Sales, 2)
	assert.Equal(t, "12.5", listed.Total.String())
}

func TestRegisterSales_Rejections(t *testing.T) {
	r, _, l := newTestRouter(t, store.NewMemoryStore())
	p := seedProduct(t, l, "A", ledger.CategoryWater, 3, "1")

	tests := []struct {
		name   string
		items  any
		status int
	}{
		{"insufficient stock", []map[string]any{{"productId": p.ID, "quantity": 4}}, http.StatusConflict},
		{"lines summing past max int", []map[string]any{
			{"productId": p.ID, "quantity": math.MaxInt},
			{"productId": p.ID, "quantity": 2},
		}, http.StatusConflict},
		{"zero quantity", []map[string]any{{"productId": p.ID, "quantity": 0}}, http.StatusBadRequest},
		{"unknown product", []map[string]any{{"productId": "ghost", "quantity": 1}}, http.StatusNotFound},
		{"empty cart", []map[string]any{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/sales", map[string]any{"items": tt.items}, "")
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[salesBody](t, w).Error)
		})
	}

	got, _ := l.Product(p.ID)
	assert.Equal(t, 3, got.Quantity)
	assert.Empty(t, l.Sales())
}

func TestRemoveSale(t *testing.T) {
	r, _, l := newTestRouter(t, store.NewMemoryStore())
	p := seedProduct(t, l, "A", ledger.CategoryWater, 10, "1")
	sale, err := l.RegisterSale(context.Background(), p.ID, 4)
	require.NoError(t, err)

	w := do(r, http.MethodDelete, "/api/sales/"+sale.ID, nil, "9999")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, l.Sales(), 1)

	w = do(r, http.MethodDelete, "/api/sales/"+sale.ID, nil, testPIN)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got, _ := l.Product(p.ID)
	assert.Equal(t, 10, got.Quantity)

	w = do(r, http.MethodDelete, "/api/sales/"+sale.ID, nil, testPIN)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetSales(t *testing.T) {
	ctx := context.Background()
	r, _, l := newTestRouter(t, store.NewMemoryStore())
	water := seedProduct(t, l, "A", ledger.CategoryWater, 10, "1")
	ice := seedProduct(t, l, "B", ledger.CategoryIceCream, 10, "1")
	_, err := l.RegisterBatchSales(ctx, []ledger.CartItem{{ProductID: water.ID, Quantity: 1}, {ProductID: ice.ID, Quantity: 1}})
	require.NoError(t, err)
	_, err = l.UpdateCash(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)

	w := do(r, http.MethodPost, "/api/sales/reset", map[string]string{"category": "water"}, testPIN)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, l.Sales(), 1)
	assert.Equal(t, "100", l.Cash().String())

	w = do(r, http.MethodPost, "/api/sales/reset", map[string]string{"category": "soda"}, testPIN)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/sales/reset", nil, testPIN)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, l.Sales())
	assert.True(t, l.Cash().IsZero())
}

func TestCash(t *testing.T) {
	r, _, l := newTestRouter(t, store.NewMemoryStore())

	w := do(r, http.MethodPost, "/api/cash", map[string]string{"amount": "12,50", "direction": "in"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/cash", map[string]string{"amount": "12,50", "direction": "in"}, testPIN)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "12.5", decode[cashBody](t, w).Cash.String())

	w = do(r, http.MethodPost, "/api/cash", map[string]string{"amount": "2.5", "direction": "out"}, testPIN)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", l.Cash().String())

	w = do(r, http.MethodPost, "/api/cash", map[string]string{"amount": "-3", "direction": "in"}, testPIN)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/cash", map[string]string{"amount": "3", "direction": "sideways"}, testPIN)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/cash", nil, "")
	assert.Equal(t, "10", decode[cashBody](t, w).Cash.String())
}

func TestPasswordRoutes(t *testing.T) {
	r, _, l := newTestRouter(t, store.NewMemoryStore())

	w := do(r, http.MethodPost, "/api/password/check", map[string]string{"password": testPIN}, "")
	assert.JSONEq(t, `{"valid":true}`, w.Body.String())

	w = do(r, http.MethodPut, "/api/password", map[string]string{"current": "0000", "new": "5555"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPut, "/api/password", map[string]string{"current": testPIN, "new": "55"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/api/password", map[string]string{"current": testPIN, "new": "5555"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, l.CheckPassword("5555"))

	w = do(r, http.MethodPost, "/api/cash", map[string]string{"amount": "1", "direction": "in"}, testPIN)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "old PIN no longer opens the gate")
}

func TestSummaryAndDays(t *testing.T) {
	r, h, l := newTestRouter(t, store.NewMemoryStore())
	p := seedProduct(t, l, "A", ledger.CategoryWater, 10, "1")
	_, err := l.RegisterSale(context.Background(), p.ID, 2)
	require.NoError(t, err)
	h.now = func() time.Time { return time.Now().Add(24 * time.Hour) }

	w := do(r, http.MethodGet, "/api/summary", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/summary?category=water", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[struct {
		Products []ledger.ProductSales `json:"products"`
	}](t, w)
	require.Len(t, summary.Products, 1)
	assert.Equal(t, 2, summary.Products[0].SoldCount)

	w = do(r, http.MethodGet, "/api/sales/days", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	days := decode[struct {
		Days []ledger.DaySales `json:"days"`
	}](t, w).Days
	require.Len(t, days, 1)
	assert.Equal(t, ledger.DayYesterday, days[0].Label)
}

// failingStore reads like an empty store and refuses every write.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) { return "", store.ErrKeyNotFound }
func (failingStore) BeginTx(context.Context) (store.Tx, error) {
	return nil, errors.New("read-only filesystem")
}
func (failingStore) Close() error { return nil }

func TestPersistenceFailure_ReturnsInMemoryResult(t *testing.T) {
	r, _, l := newTestRouter(t, failingStore{})

	w := do(r, http.MethodPost, "/api/products", map[string]any{"name": "A", "category": "water", "quantity": 3, "price": "1"}, testPIN)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "persistence failed")
	body := decode[productBody](t, w)
	assert.Equal(t, "A", body.Product.Name)
	assert.Len(t, l.Products(), 1)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(ledger.ErrInsufficientStock))
	assert.Equal(t, http.StatusBadRequest, statusFor(ledger.ErrInvalidAmount))
	assert.Equal(t, http.StatusUnauthorized, statusFor(ledger.ErrAuthFailed))
	assert.Equal(t, http.StatusNotFound, statusFor(ledger.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

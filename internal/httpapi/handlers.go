package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jbrasil/stockledger/internal/gate"
	"github.com/jbrasil/stockledger/internal/ledger"
)

// PinHeader carrega o PIN das rotas protegidas
const PinHeader = "X-Ledger-Pin"

// LedgerHandler contém os handlers HTTP do ledger
type LedgerHandler struct {
	ledger *ledger.Ledger
	tracer trace.Tracer
	logger *zap.Logger
	now    func() time.Time
}

// NewLedgerHandler cria uma nova instância de LedgerHandler
func NewLedgerHandler(l *ledger.Ledger, tracer trace.Tracer, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: l,
		tracer: tracer,
		logger: logger,
		now:    time.Now,
	}
}

type addProductRequest struct {
	Name     string          `json:"name" binding:"required"`
	Category ledger.Category `json:"category" binding:"required"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type moveRequest struct {
	Direction string `json:"direction" binding:"required"`
}

type registerSalesRequest struct {
	Items []ledger.CartItem `json:"items" binding:"required"`
}

type resetRequest struct {
	Category string `json:"category"`
}

type cashRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Direction string `json:"direction" binding:"required,oneof=in out"`
}

type checkPasswordRequest struct {
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	Current string `json:"current" binding:"required"`
	New     string `json:"new" binding:"required"`
}

// HealthCheck é o endpoint de health check
func (h *LedgerHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// ListProducts lista os produtos, opcionalmente de uma categoria
func (h *LedgerHandler) ListProducts(c *gin.Context) {
	category, ok := h.categoryQuery(c)
	if !ok {
		return
	}
	if category == "" {
		c.JSON(http.StatusOK, gin.H{"products": h.ledger.Products()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": h.ledger.ProductsByCategory(category)})
}

// AddProduct cadastra um produto (requer PIN)
func (h *LedgerHandler) AddProduct(c *gin.Context) {
	var req addProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "add_product")
	defer span.End()
	span.SetAttributes(attribute.String("category", string(req.Category)))

	var product ledger.Product
	err := h.guarded(ctx, c, "add_product", func(ctx context.Context) error {
		var err error
		product, err = h.ledger.AddProduct(ctx, ledger.ProductDraft{
			Name:     req.Name,
			Category: req.Category,
			Quantity: req.Quantity,
			Price:    req.Price,
		})
		return err
	})
	if err != nil {
		h.fail(c, span, "add product", err, gin.H{"product": product})
		return
	}

	span.SetAttributes(attribute.String("product_id", product.ID))
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct aplica um patch parcial (requer PIN)
func (h *LedgerHandler) UpdateProduct(c *gin.Context) {
	var patch ledger.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	ctx, span := h.tracer.Start(c.Request.Context(), "update_product")
	defer span.End()
	span.SetAttributes(attribute.String("product_id", id))

	var (
		product ledger.Product
		found   bool
	)
	err := h.guarded(ctx, c, "update_product", func(ctx context.Context) error {
		var err error
		product, found, err = h.ledger.UpdateProduct(ctx, id, patch)
		return err
	})
	if err == nil && !found {
		err = ledger.ErrNotFound
	}
	if err != nil {
		h.fail(c, span, "update product", err, gin.H{"product": product})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct remove um produto (requer PIN)
func (h *LedgerHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	ctx, span := h.tracer.Start(c.Request.Context(), "delete_product")
	defer span.End()
	span.SetAttributes(attribute.String("product_id", id))

	var found bool
	err := h.guarded(ctx, c, "delete_product", func(ctx context.Context) error {
		var err error
		found, err = h.ledger.DeleteProduct(ctx, id)
		return err
	})
	if err == nil && !found {
		err = ledger.ErrNotFound
	}
	if err != nil {
		h.fail(c, span, "delete product", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

// MoveProduct troca o produto de posição com o vizinho
func (h *LedgerHandler) MoveProduct(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	direction, err := ledger.ParseDirection(req.Direction)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	ctx, span := h.tracer.Start(c.Request.Context(), "move_product")
	defer span.End()
	span.SetAttributes(attribute.String("product_id", id), attribute.String("direction", string(direction)))

	moved, err := h.ledger.MoveProduct(ctx, id, direction)
	if err != nil {
		h.fail(c, span, "move product", err, gin.H{"moved": moved})
		return
	}

	c.JSON(http.StatusOK, gin.H{"moved": moved})
}

// ProductSold retorna quantas unidades do produto foram vendidas
func (h *LedgerHandler) ProductSold(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"productId": id, "soldCount": h.ledger.ProductSoldCount(id)})
}

// Summary lista os produtos de uma categoria com o total vendido
func (h *LedgerHandler) Summary(c *gin.Context) {
	category, ok := h.categoryQuery(c)
	if !ok {
		return
	}
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"products": h.ledger.SoldSummary(category),
		"total":    h.ledger.SalesTotal(category),
	})
}

// ListSales lista as vendas, mais recentes primeiro
func (h *LedgerHandler) ListSales(c *gin.Context) {
	category, ok := h.categoryQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sales": h.ledger.SalesFiltered(category),
		"total": h.ledger.SalesTotal(category),
	})
}

// SalesByDay agrupa as vendas por dia
func (h *LedgerHandler) SalesByDay(c *gin.Context) {
	category, ok := h.categoryQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": ledger.GroupSalesByDay(h.ledger.SalesFiltered(category), h.now())})
}

// RegisterSales registra um carrinho inteiro como uma transação
func (h *LedgerHandler) RegisterSales(c *gin.Context) {
	var req registerSalesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "items must not be empty"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "register_sales")
	defer span.End()
	span.SetAttributes(attribute.Int("items", len(req.Items)))

	sales, err := h.ledger.RegisterBatchSales(ctx, req.Items)
	if err != nil {
		h.fail(c, span, "register sales", err, gin.H{"sales": sales})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"sales": sales})
}

// RemoveSale cancela uma venda e devolve o estoque (requer PIN)
func (h *LedgerHandler) RemoveSale(c *gin.Context) {
	id := c.Param("id")
	ctx, span := h.tracer.Start(c.Request.Context(), "remove_sale")
	defer span.End()
	span.SetAttributes(attribute.String("sale_id", id))

	var (
		sale  ledger.Sale
		found bool
	)
	err := h.guarded(ctx, c, "remove_sale", func(ctx context.Context) error {
		var err error
		sale, found, err = h.ledger.RemoveSale(ctx, id)
		return err
	})
	if err == nil && !found {
		err = ledger.ErrNotFound
	}
	if err != nil {
		h.fail(c, span, "remove sale", err, gin.H{"sale": sale})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sale": sale})
}

// ResetSales fecha o caixa de uma categoria ou de tudo (requer PIN)
func (h *LedgerHandler) ResetSales(c *gin.Context) {
	var req resetRequest
	// corpo vazio zera tudo
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var category ledger.Category
	if req.Category != "" {
		parsed, err := ledger.ParseCategory(req.Category)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		category = parsed
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "reset_sales")
	defer span.End()
	span.SetAttributes(attribute.String("category", string(category)))

	var removed int
	err := h.guarded(ctx, c, "reset_sales", func(ctx context.Context) error {
		var err error
		removed, err = h.ledger.ResetSales(ctx, category)
		return err
	})
	if err != nil {
		h.fail(c, span, "reset sales", err, gin.H{"removed": removed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed, "cash": h.ledger.Cash()})
}

// GetCash retorna o saldo do caixa
func (h *LedgerHandler) GetCash(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cash": h.ledger.Cash()})
}

// UpdateCash registra entrada ou saída de dinheiro (requer PIN)
func (h *LedgerHandler) UpdateCash(c *gin.Context) {
	var req cashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Direction == "out" {
		amount = amount.Neg()
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "update_cash")
	defer span.End()
	span.SetAttributes(attribute.String("direction", req.Direction))

	var balance decimal.Decimal
	err = h.guarded(ctx, c, "update_cash", func(ctx context.Context) error {
		var err error
		balance, err = h.ledger.UpdateCash(ctx, amount)
		return err
	})
	if err != nil {
		h.fail(c, span, "update cash", err, gin.H{"cash": balance})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cash": balance})
}

// CheckPassword verifica o PIN sem executar nada
func (h *LedgerHandler) CheckPassword(c *gin.Context) {
	var req checkPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": h.ledger.CheckPassword(req.Password)})
}

// UpdatePassword troca o PIN
func (h *LedgerHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "update_password")
	defer span.End()

	if err := h.ledger.UpdatePassword(ctx, req.Current, req.New); err != nil {
		h.fail(c, span, "update password", err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

// guarded só executa fn quando a requisição traz o PIN certo
func (h *LedgerHandler) guarded(ctx context.Context, c *gin.Context, name string, fn func(context.Context) error) error {
	return gate.Guard(ctx, h.ledger, c.GetHeader(PinHeader), gate.Action{Name: name, Run: fn})
}

func (h *LedgerHandler) categoryQuery(c *gin.Context) (ledger.Category, bool) {
	raw := c.Query("category")
	if raw == "" {
		return "", true
	}
	category, err := ledger.ParseCategory(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return category, true
}

// fail registra err no span e responde com o status mapeado. Se a gravação no
// store falhou, o resultado em memória vai junto com o erro.
func (h *LedgerHandler) fail(c *gin.Context, span trace.Span, op string, err error, partial gin.H) {
	status := statusFor(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.Error(err))
	} else {
		h.logger.Info(op+" rejected", zap.Int("status", status), zap.Error(err))
	}

	body := gin.H{"error": err.Error()}
	switch {
	case errors.Is(err, ledger.ErrPersistenceFailed):
		for k, v := range partial {
			body[k] = v
		}
	case status == http.StatusInternalServerError:
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidCategory),
		errors.Is(err, ledger.ErrPasswordTooShort):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Package httpapi expõe o ledger como API JSON sobre gin.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// NewRouter monta o engine gin com middlewares e rotas
func NewRouter(h *LedgerHandler, serviceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(requestLogger(h.logger))

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes registra as rotas do ledger em r
func RegisterRoutes(r gin.IRouter, h *LedgerHandler) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")

	api.GET("/products", h.ListProducts)
	api.POST("/products", h.AddProduct)
	api.PATCH("/products/:id", h.UpdateProduct)
	api.DELETE("/products/:id", h.DeleteProduct)
	api.POST("/products/:id/move", h.MoveProduct)
	api.GET("/products/:id/sold", h.ProductSold)

	api.GET("/summary", h.Summary)

	api.GET("/sales", h.ListSales)
	api.POST("/sales", h.RegisterSales)
	api.GET("/sales/days", h.SalesByDay)
	api.POST("/sales/reset", h.ResetSales)
	api.DELETE("/sales/:id", h.RemoveSale)

	api.GET("/cash", h.GetCash)
	api.POST("/cash", h.UpdateCash)

	api.POST("/password/check", h.CheckPassword)
	api.PUT("/password", h.UpdatePassword)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

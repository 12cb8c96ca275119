package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/rentx-marketplace/service-rental/internal/application"
	"github.com/rentx-marketplace/service-rental/internal/payment"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/middleware"
	"github.com/rentx-marketplace/service-rental/internal/platform/response"
)

// PaymentUseCases is the checkout behaviour the HTTP layer depends on.
type PaymentUseCases interface {
	CreateOrder(ctx context.Context, req application.CreateOrderRequest) (*payment.Order, error)
	VerifyPayment(ctx context.Context, p auth.Principal, req application.VerifyPaymentRequest) (*application.ReconciliationResult, error)
}

// PaymentHandler handles checkout requests.
type PaymentHandler struct {
	service PaymentUseCases
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service PaymentUseCases) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers payment routes.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	payments := r.Group("/api/v1/payments")
	payments.Use(middleware.AuthMiddleware(jwtManager))
	{
		payments.POST("/orders", h.CreateOrder)
		payments.POST("/verify", h.VerifyPayment)
	}
}

// CreateOrder handles POST /api/v1/payments/orders.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req application.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, order)
}

// VerifyPayment handles POST /api/v1/payments/verify. Lines that could not be
// booked are reported next to the bookings that were created.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req application.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.VerifyPayment(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentx-marketplace/service-rental/internal/application"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/middleware"
	"github.com/rentx-marketplace/service-rental/internal/platform/response"
)

// CartUseCases is the cart behaviour the HTTP layer depends on.
type CartUseCases interface {
	GetCart(ctx context.Context, p auth.Principal) (*application.CartDTO, error)
	AddItem(ctx context.Context, p auth.Principal, req application.AddToCartRequest) (*application.CartDTO, error)
	UpdateQuantity(ctx context.Context, p auth.Principal, vehicleID uuid.UUID, req application.UpdateCartItemRequest) (*application.CartDTO, error)
	RemoveItem(ctx context.Context, p auth.Principal, vehicleID uuid.UUID) (*application.CartDTO, error)
}

// CartHandler handles HTTP requests for the customer cart.
type CartHandler struct {
	service CartUseCases
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service CartUseCases) *CartHandler {
	return &CartHandler{service: service}
}

// RegisterRoutes registers cart routes.
func (h *CartHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	cart := r.Group("/api/v1/cart")
	cart.Use(middleware.AuthMiddleware(jwtManager))
	{
		cart.GET("", h.GetCart)
		cart.POST("", h.AddItem)
		cart.PUT("/:id", h.UpdateQuantity)
		cart.DELETE("/:id", h.RemoveItem)
	}
}

// GetCart handles GET /api/v1/cart.
func (h *CartHandler) GetCart(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	result, err := h.service.GetCart(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// AddItem handles POST /api/v1/cart.
func (h *CartHandler) AddItem(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req application.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AddItem(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdateQuantity handles PUT /api/v1/cart/:id, where id is the vehicle.
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	vehicleID, ok := parseID(c, "vehicle")
	if !ok {
		return
	}

	var req application.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateQuantity(c.Request.Context(), principal, vehicleID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// RemoveItem handles DELETE /api/v1/cart/:id.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	vehicleID, ok := parseID(c, "vehicle")
	if !ok {
		return
	}

	result, err := h.service.RemoveItem(c.Request.Context(), principal, vehicleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

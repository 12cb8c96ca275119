package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentx-marketplace/service-rental/internal/application"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
	"github.com/rentx-marketplace/service-rental/internal/platform/middleware"
	"github.com/rentx-marketplace/service-rental/internal/platform/response"
)

// VehicleUseCases is the listing behaviour the HTTP layer depends on.
type VehicleUseCases interface {
	CreateVehicle(ctx context.Context, p auth.Principal, req application.CreateVehicleRequest) (*application.VehicleDTO, error)
	GetVehicle(ctx context.Context, vehicleID uuid.UUID) (*application.VehicleDTO, error)
	ListVehicles(ctx context.Context, page, limit int) (*domain.PaginatedResult[application.VehicleDTO], error)
	ListMyVehicles(ctx context.Context, p auth.Principal, page, limit int) (*domain.PaginatedResult[application.VehicleDTO], error)
	UpdateVehicle(ctx context.Context, p auth.Principal, vehicleID uuid.UUID, req application.UpdateVehicleRequest) (*application.VehicleDTO, error)
	DeleteVehicle(ctx context.Context, p auth.Principal, vehicleID uuid.UUID) error
}

// VehicleHandler handles HTTP requests for vehicle listings.
type VehicleHandler struct {
	service VehicleUseCases
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(service VehicleUseCases) *VehicleHandler {
	return &VehicleHandler{service: service}
}

// RegisterRoutes registers vehicle routes. Browsing is public; changes need
// an owner token.
func (h *VehicleHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	ownerRole := middleware.RequireRole(auth.RoleOwner)

	vehicles := r.Group("/api/v1/vehicles")
	{
		vehicles.GET("", h.ListVehicles)
		vehicles.GET("/mine", authMW, ownerRole, h.ListMyVehicles)
		vehicles.GET("/:id", h.GetVehicle)
		vehicles.POST("", authMW, ownerRole, h.CreateVehicle)
		vehicles.PUT("/:id", authMW, ownerRole, h.UpdateVehicle)
		vehicles.DELETE("/:id", authMW, ownerRole, h.DeleteVehicle)
	}
}

// CreateVehicle handles POST /api/v1/vehicles.
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req application.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateVehicle(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListVehicles handles GET /api/v1/vehicles.
func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.service.ListVehicles(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ListMyVehicles handles GET /api/v1/vehicles/mine.
func (h *VehicleHandler) ListMyVehicles(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)

	result, err := h.service.ListMyVehicles(c.Request.Context(), principal, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetVehicle handles GET /api/v1/vehicles/:id.
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	vehicleID, ok := parseID(c, "vehicle")
	if !ok {
		return
	}

	result, err := h.service.GetVehicle(c.Request.Context(), vehicleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateVehicle handles PUT /api/v1/vehicles/:id.
func (h *VehicleHandler) UpdateVehicle(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	vehicleID, ok := parseID(c, "vehicle")
	if !ok {
		return
	}

	var req application.UpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateVehicle(c.Request.Context(), principal, vehicleID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteVehicle handles DELETE /api/v1/vehicles/:id.
func (h *VehicleHandler) DeleteVehicle(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	vehicleID, ok := parseID(c, "vehicle")
	if !ok {
		return
	}

	if err := h.service.DeleteVehicle(c.Request.Context(), principal, vehicleID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": vehicleID})
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentx-marketplace/service-rental/internal/application"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
	"github.com/rentx-marketplace/service-rental/internal/platform/middleware"
	"github.com/rentx-marketplace/service-rental/internal/platform/response"
)

// BookingUseCases is the booking behaviour the HTTP layer depends on.
type BookingUseCases interface {
	CreateBooking(ctx context.Context, p auth.Principal, req application.CreateBookingRequest) (*application.BookingDTO, error)
	UpdateStatus(ctx context.Context, p auth.Principal, bookingID uuid.UUID, status string) (*application.BookingDTO, error)
	CancelBooking(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (*application.BookingDTO, error)
	GetBooking(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (*application.BookingDTO, error)
	ListCustomerBookings(ctx context.Context, p auth.Principal, page, limit int) (*domain.PaginatedResult[application.BookingDTO], error)
	ListOwnerBookings(ctx context.Context, p auth.Principal, page, limit int) (*domain.PaginatedResult[application.BookingDTO], error)
}

// InvoiceUseCases renders invoices for download.
type InvoiceUseCases interface {
	DownloadInvoice(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (*application.InvoiceFile, error)
}

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service  BookingUseCases
	invoices InvoiceUseCases
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service BookingUseCases, invoices InvoiceUseCases) *BookingHandler {
	return &BookingHandler{service: service, invoices: invoices}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListMyBookings)
		bookings.GET("/owner", middleware.RequireRole(auth.RoleOwner), h.ListOwnerBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PUT("/:id/status", middleware.RequireRole(auth.RoleOwner), h.UpdateStatus)
		bookings.PUT("/:id/cancel", h.CancelBooking)
		bookings.GET("/:id/invoice", h.DownloadInvoice)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListMyBookings handles GET /api/v1/bookings.
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)

	result, err := h.service.ListCustomerBookings(c.Request.Context(), principal, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ListOwnerBookings handles GET /api/v1/bookings/owner.
func (h *BookingHandler) ListOwnerBookings(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)

	result, err := h.service.ListOwnerBookings(c.Request.Context(), principal, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	bookingID, ok := parseID(c, "booking")
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), principal, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateStatus handles PUT /api/v1/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	bookingID, ok := parseID(c, "booking")
	if !ok {
		return
	}

	var req application.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateStatus(c.Request.Context(), principal, bookingID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles PUT /api/v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	bookingID, ok := parseID(c, "booking")
	if !ok {
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), principal, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DownloadInvoice handles GET /api/v1/bookings/:id/invoice.
func (h *BookingHandler) DownloadInvoice(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	bookingID, ok := parseID(c, "booking")
	if !ok {
		return
	}

	file, err := h.invoices.DownloadInvoice(c.Request.Context(), principal, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", file.Content)
}

// requirePrincipal returns the authenticated principal or writes a 401.
func requirePrincipal(c *gin.Context) (auth.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
	}
	return principal, ok
}

// parseID reads the :id path parameter or writes a 400.
func parseID(c *gin.Context, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid "+entity+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}

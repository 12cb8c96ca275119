package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentx-marketplace/service-rental/internal/application"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/middleware"
	"github.com/rentx-marketplace/service-rental/internal/platform/response"
)

// OwnerUseCases is the owner profile behaviour the HTTP layer depends on.
type OwnerUseCases interface {
	Register(ctx context.Context, p auth.Principal, req application.RegisterOwnerRequest) (*application.OwnerDTO, auth.Principal, error)
	GetMine(ctx context.Context, p auth.Principal) (*application.OwnerDTO, error)
	UpdatePreferences(ctx context.Context, p auth.Principal, req application.UpdatePreferencesRequest) (*application.OwnerDTO, error)
}

// OwnerStatsProvider supplies the owner dashboard counters.
type OwnerStatsProvider interface {
	GetOwnerStats(ctx context.Context, p auth.Principal) (*application.BookingStatsDTO, error)
}

// OwnerHandler handles owner onboarding and the owner dashboard.
type OwnerHandler struct {
	service       OwnerUseCases
	stats         OwnerStatsProvider
	tokens        *auth.JWTManager
	secureCookies bool
}

// NewOwnerHandler creates a new OwnerHandler. The token manager re-issues
// the caller's token once they become an owner.
func NewOwnerHandler(service OwnerUseCases, stats OwnerStatsProvider, tokens *auth.JWTManager, secureCookies bool) *OwnerHandler {
	return &OwnerHandler{service: service, stats: stats, tokens: tokens, secureCookies: secureCookies}
}

// ownerRegistration is returned from POST /api/v1/owners.
type ownerRegistration struct {
	Owner       *application.OwnerDTO `json:"owner"`
	AccessToken string                `json:"access_token"`
}

// RegisterRoutes registers owner routes.
func (h *OwnerHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	ownerRole := middleware.RequireRole(auth.RoleOwner)

	owners := r.Group("/api/v1/owners")
	owners.Use(authMW)
	{
		owners.POST("", h.Register)
		owners.GET("/me", ownerRole, h.GetMine)
		owners.PUT("/me/preferences", ownerRole, h.UpdatePreferences)
	}

	dashboard := r.Group("/api/v1/owner")
	dashboard.Use(authMW, ownerRole)
	{
		dashboard.GET("/stats/bookings", h.BookingStats)
	}
}

// Register handles POST /api/v1/owners.
func (h *OwnerHandler) Register(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req application.RegisterOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	owner, upgraded, err := h.service.Register(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.tokens.GenerateAccessToken(upgraded)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, token, int(h.tokens.AccessExpiry().Seconds()), "/", "", h.secureCookies, true)
	response.Created(c, ownerRegistration{Owner: owner, AccessToken: token})
}

// GetMine handles GET /api/v1/owners/me.
func (h *OwnerHandler) GetMine(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	owner, err := h.service.GetMine(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, owner)
}

// UpdatePreferences handles PUT /api/v1/owners/me/preferences.
func (h *OwnerHandler) UpdatePreferences(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req application.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	owner, err := h.service.UpdatePreferences(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, owner)
}

// BookingStats handles GET /api/v1/owner/stats/bookings.
func (h *OwnerHandler) BookingStats(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	stats, err := h.stats.GetOwnerStats(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

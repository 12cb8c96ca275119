package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentx-marketplace/service-rental/internal/application"
	"github.com/rentx-marketplace/service-rental/internal/payment"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
	"github.com/rentx-marketplace/service-rental/internal/platform/response"
)

var testTokens = auth.NewJWTManager("handler-test-secret", time.Hour, 24*time.Hour)

type routeRegistrar interface {
	RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager)
}

func newRouter(h routeRegistrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(&r.RouterGroup, testTokens)
	return r
}

func customerPrincipal() auth.Principal {
	return auth.Principal{UserID: uuid.New(), Role: auth.RoleCustomer}
}

func ownerPrincipal() auth.Principal {
	ownerID := uuid.New()
	return auth.Principal{UserID: uuid.New(), Role: auth.RoleOwner, OwnerProfileID: &ownerID}
}

// do sends a JSON request as the given principal. A nil principal sends no token.
func do(t *testing.T, router http.Handler, method, path string, p *auth.Principal, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if p != nil {
		token, err := testTokens.GenerateAccessToken(*p)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// principalFor matches a mocked call on the caller's user ID.
func principalFor(p auth.Principal) any {
	return mock.MatchedBy(func(got auth.Principal) bool { return got.UserID == p.UserID })
}

type mockBookings struct{ mock.Mock }

func (m *mockBookings) CreateBooking(ctx context.Context, p auth.Principal, req application.CreateBookingRequest) (*application.BookingDTO, error) {
	args := m.Called(ctx, p, req)
	dto, _ := args.Get(0).(*application.BookingDTO)
	return dto, args.Error(1)
}

func (m *mockBookings) UpdateStatus(ctx context.Context, p auth.Principal, bookingID uuid.UUID, status string) (*application.BookingDTO, error) {
	args := m.Called(ctx, p, bookingID, status)
	dto, _ := args.Get(0).(*application.BookingDTO)
	return dto, args.Error(1)
}

func (m *mockBookings) CancelBooking(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (*application.BookingDTO, error) {
	args := m.Called(ctx, p, bookingID)
	dto, _ := args.Get(0).(*application.BookingDTO)
	return dto, args.Error(1)
}

func (m *mockBookings) GetBooking(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (*application.BookingDTO, error) {
	args := m.Called(ctx, p, bookingID)
	dto, _ := args.Get(0).(*application.BookingDTO)
	return dto, args.Error(1)
}

func (m *mockBookings) ListCustomerBookings(ctx context.Context, p auth.Principal, page, limit int) (*domain.PaginatedResult[application.BookingDTO], error) {
	args := m.Called(ctx, p, page, limit)
	res, _ := args.Get(0).(*domain.PaginatedResult[application.BookingDTO])
	return res, args.Error(1)
}

func (m *mockBookings) ListOwnerBookings(ctx context.Context, p auth.Principal, page, limit int) (*domain.PaginatedResult[application.BookingDTO], error) {
	args := m.Called(ctx, p, page, limit)
	res, _ := args.Get(0).(*domain.PaginatedResult[application.BookingDTO])
	return res, args.Error(1)
}

func (m *mockBookings) GetOwnerStats(ctx context.Context, p auth.Principal) (*application.BookingStatsDTO, error) {
	args := m.Called(ctx, p)
	dto, _ := args.Get(0).(*application.BookingStatsDTO)
	return dto, args.Error(1)
}

type mockInvoices struct{ mock.Mock }

func (m *mockInvoices) DownloadInvoice(ctx context.Context, p auth.Principal, bookingID uuid.UUID) (*application.InvoiceFile, error) {
	args := m.Called(ctx, p, bookingID)
	f, _ := args.Get(0).(*application.InvoiceFile)
	return f, args.Error(1)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) CreateOrder(ctx context.Context, req application.CreateOrderRequest) (*payment.Order, error) {
	args := m.Called(ctx, req)
	o, _ := args.Get(0).(*payment.Order)
	return o, args.Error(1)
}

func (m *mockPayments) VerifyPayment(ctx context.Context, p auth.Principal, req application.VerifyPaymentRequest) (*application.ReconciliationResult, error) {
	args := m.Called(ctx, p, req)
	r, _ := args.Get(0).(*application.ReconciliationResult)
	return r, args.Error(1)
}

type mockVehicles struct{ mock.Mock }

func (m *mockVehicles) CreateVehicle(ctx context.Context, p auth.Principal, req application.CreateVehicleRequest) (*application.VehicleDTO, error) {
	args := m.Called(ctx, p, req)
	dto, _ := args.Get(0).(*application.VehicleDTO)
	return dto, args.Error(1)
}

func (m *mockVehicles) GetVehicle(ctx context.Context, vehicleID uuid.UUID) (*application.VehicleDTO, error) {
	args := m.Called(ctx, vehicleID)
	dto, _ := args.Get(0).(*application.VehicleDTO)
	return dto, args.Error(1)
}

func (m *mockVehicles) ListVehicles(ctx context.Context, page, limit int) (*domain.PaginatedResult[application.VehicleDTO], error) {
	args := m.Called(ctx, page, limit)
	res, _ := args.Get(0).(*domain.PaginatedResult[application.VehicleDTO])
	return res, args.Error(1)
}

func (m *mockVehicles) ListMyVehicles(ctx context.Context, p auth.Principal, page, limit int) (*domain.PaginatedResult[application.VehicleDTO], error) {
	args := m.Called(ctx, p, page, limit)
	res, _ := args.Get(0).(*domain.PaginatedResult[application.VehicleDTO])
	return res, args.Error(1)
}

func (m *mockVehicles) UpdateVehicle(ctx context.Context, p auth.Principal, vehicleID uuid.UUID, req application.UpdateVehicleRequest) (*application.VehicleDTO, error) {
	args := m.Called(ctx, p, vehicleID, req)
	dto, _ := args.Get(0).(*application.VehicleDTO)
	return dto, args.Error(1)
}

func (m *mockVehicles) DeleteVehicle(ctx context.Context, p auth.Principal, vehicleID uuid.UUID) error {
	return m.Called(ctx, p, vehicleID).Error(0)
}

type mockCart struct{ mock.Mock }

func (m *mockCart) GetCart(ctx context.Context, p auth.Principal) (*application.CartDTO, error) {
	args := m.Called(ctx, p)
	dto, _ := args.Get(0).(*application.CartDTO)
	return dto, args.Error(1)
}

func (m *mockCart) AddItem(ctx context.Context, p auth.Principal, req application.AddToCartRequest) (*application.CartDTO, error) {
	args := m.Called(ctx, p, req)
	dto, _ := args.Get(0).(*application.CartDTO)
	return dto, args.Error(1)
}

func (m *mockCart) UpdateQuantity(ctx context.Context, p auth.Principal, vehicleID uuid.UUID, req application.UpdateCartItemRequest) (*application.CartDTO, error) {
	args := m.Called(ctx, p, vehicleID, req)
	dto, _ := args.Get(0).(*application.CartDTO)
	return dto, args.Error(1)
}

func (m *mockCart) RemoveItem(ctx context.Context, p auth.Principal, vehicleID uuid.UUID) (*application.CartDTO, error) {
	args := m.Called(ctx, p, vehicleID)
	dto, _ := args.Get(0).(*application.CartDTO)
	return dto, args.Error(1)
}

type mockOwners struct{ mock.Mock }

func (m *mockOwners) Register(ctx context.Context, p auth.Principal, req application.RegisterOwnerRequest) (*application.OwnerDTO, auth.Principal, error) {
	args := m.Called(ctx, p, req)
	dto, _ := args.Get(0).(*application.OwnerDTO)
	return dto, args.Get(1).(auth.Principal), args.Error(2)
}

func (m *mockOwners) GetMine(ctx context.Context, p auth.Principal) (*application.OwnerDTO, error) {
	args := m.Called(ctx, p)
	dto, _ := args.Get(0).(*application.OwnerDTO)
	return dto, args.Error(1)
}

func (m *mockOwners) UpdatePreferences(ctx context.Context, p auth.Principal, req application.UpdatePreferencesRequest) (*application.OwnerDTO, error) {
	args := m.Called(ctx, p, req)
	dto, _ := args.Get(0).(*application.OwnerDTO)
	return dto, args.Error(1)
}

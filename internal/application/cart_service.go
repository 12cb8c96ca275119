package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cartDomain "github.com/rentx-marketplace/service-rental/internal/domain/cart"
	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
)

// AddToCartRequest adds quantity units of a vehicle to the cart.
type AddToCartRequest struct {
	VehicleID uuid.UUID `json:"vehicle_id" binding:"required"`
	Quantity  int       `json:"quantity"`
}

// UpdateCartItemRequest replaces a line's quantity.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// CartItemDTO is one cart line joined with its vehicle.
type CartItemDTO struct {
	Vehicle  VehicleDTO `json:"vehicle"`
	Quantity int        `json:"quantity"`
}

// CartDTO is the API response representation of a cart.
type CartDTO struct {
	Items []CartItemDTO `json:"items"`
}

// CartService implements use cases for the customer cart.
type CartService struct {
	repo     cartDomain.CartRepository
	vehicles vehicleDomain.VehicleRepository
	logger   *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(repo cartDomain.CartRepository, vehicles vehicleDomain.VehicleRepository, logger *zap.Logger) *CartService {
	return &CartService{repo: repo, vehicles: vehicles, logger: logger}
}

// GetCart returns the principal's cart. Lines whose vehicle has been deleted
// are left out.
func (s *CartService) GetCart(ctx context.Context, principal auth.Principal) (*CartDTO, error) {
	c, err := s.repo.FindByCustomerID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return s.toCartDTO(ctx, c)
}

// AddItem merges a vehicle into the principal's cart.
func (s *CartService) AddItem(ctx context.Context, principal auth.Principal, req AddToCartRequest) (*CartDTO, error) {
	if _, err := s.vehicles.FindByID(ctx, req.VehicleID); err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	c, err := s.repo.FindByCustomerID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if err := c.Add(req.VehicleID, quantity); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.toCartDTO(ctx, c)
}

// UpdateQuantity replaces the quantity of an existing line.
func (s *CartService) UpdateQuantity(ctx context.Context, principal auth.Principal, vehicleID uuid.UUID, req UpdateCartItemRequest) (*CartDTO, error) {
	c, err := s.repo.FindByCustomerID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if err := c.SetQuantity(vehicleID, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.toCartDTO(ctx, c)
}

// RemoveItem drops a line from the principal's cart.
func (s *CartService) RemoveItem(ctx context.Context, principal auth.Principal, vehicleID uuid.UUID) (*CartDTO, error) {
	c, err := s.repo.FindByCustomerID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	c.Remove(vehicleID)
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.toCartDTO(ctx, c)
}

func (s *CartService) toCartDTO(ctx context.Context, c *cartDomain.Cart) (*CartDTO, error) {
	items := c.Items()
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.VehicleID
	}

	vehicles, err := s.vehicles.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*vehicleDomain.Vehicle, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID()] = v
	}

	dto := &CartDTO{Items: make([]CartItemDTO, 0, len(items))}
	for _, it := range items {
		v, ok := byID[it.VehicleID]
		if !ok {
			continue
		}
		dto.Items = append(dto.Items, CartItemDTO{Vehicle: toVehicleDTO(v), Quantity: it.Quantity})
	}
	return dto, nil
}

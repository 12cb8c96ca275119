package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	cartDomain "github.com/rentx-marketplace/service-rental/internal/domain/cart"
	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// CreateVehicleRequest is the request DTO for listing a vehicle.
type CreateVehicleRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	PriceUSD    decimal.Decimal `json:"price_usd" binding:"required"`
	Stock       int             `json:"stock"`
}

// UpdateVehicleRequest is a partial update; omitted fields are unchanged.
type UpdateVehicleRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	PriceUSD    *decimal.Decimal `json:"price_usd"`
	Stock       *int             `json:"stock"`
}

// VehicleDTO is the API response representation of a vehicle listing.
type VehicleDTO struct {
	ID               uuid.UUID       `json:"id"`
	OwnerID          uuid.UUID       `json:"owner_id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	PriceUSD         decimal.Decimal `json:"price_usd"`
	PricePerDayCents int64           `json:"price_per_day_cents"`
	Currency         string          `json:"currency"`
	Stock            int             `json:"stock"`
	Available        bool            `json:"available"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// VehicleService implements use cases for vehicle listings.
type VehicleService struct {
	tx        Transactor
	repo      vehicleDomain.VehicleRepository
	carts     cartDomain.CartRepository
	converter *vehicleDomain.CurrencyConverter
	logger    *zap.Logger
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(
	tx Transactor,
	repo vehicleDomain.VehicleRepository,
	carts cartDomain.CartRepository,
	converter *vehicleDomain.CurrencyConverter,
	logger *zap.Logger,
) *VehicleService {
	return &VehicleService{
		tx:        tx,
		repo:      repo,
		carts:     carts,
		converter: converter,
		logger:    logger,
	}
}

// CreateVehicle lists a vehicle under the principal's owner profile.
func (s *VehicleService) CreateVehicle(ctx context.Context, principal auth.Principal, req CreateVehicleRequest) (*VehicleDTO, error) {
	ownerID, err := ownerProfileOf(principal)
	if err != nil {
		return nil, err
	}

	v, err := vehicleDomain.NewVehicle(ownerID, req.Name, req.Description, req.PriceUSD, req.Stock, s.converter)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("vehicle listed",
		zap.String("vehicle_id", v.ID().String()),
		zap.String("owner_id", ownerID.String()),
		zap.Int64("price_per_day_cents", v.PricePerDayCents()),
	)

	dto := toVehicleDTO(v)
	return &dto, nil
}

// GetVehicle retrieves a listing by ID.
func (s *VehicleService) GetVehicle(ctx context.Context, vehicleID uuid.UUID) (*VehicleDTO, error) {
	v, err := s.repo.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	dto := toVehicleDTO(v)
	return &dto, nil
}

// ListVehicles retrieves all listings with pagination.
func (s *VehicleService) ListVehicles(ctx context.Context, page, limit int) (*domain.PaginatedResult[VehicleDTO], error) {
	vehicles, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toVehicleDTOs(vehicles), total, page, limit)
	return &result, nil
}

// ListMyVehicles retrieves the principal's own listings.
func (s *VehicleService) ListMyVehicles(ctx context.Context, principal auth.Principal, page, limit int) (*domain.PaginatedResult[VehicleDTO], error) {
	ownerID, err := ownerProfileOf(principal)
	if err != nil {
		return nil, err
	}
	vehicles, total, err := s.repo.FindByOwnerID(ctx, ownerID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toVehicleDTOs(vehicles), total, page, limit)
	return &result, nil
}

// UpdateVehicle applies a partial update to one of the principal's listings.
func (s *VehicleService) UpdateVehicle(ctx context.Context, principal auth.Principal, vehicleID uuid.UUID, req UpdateVehicleRequest) (*VehicleDTO, error) {
	v, err := s.ownedVehicle(ctx, principal, vehicleID)
	if err != nil {
		return nil, err
	}
	if err := v.UpdateDetails(req.Name, req.Description, req.PriceUSD, req.Stock, s.converter); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("vehicle updated", zap.String("vehicle_id", v.ID().String()))

	dto := toVehicleDTO(v)
	return &dto, nil
}

// DeleteVehicle removes a listing and pulls it out of every cart. Bookings
// keep their snapshot and are left untouched.
func (s *VehicleService) DeleteVehicle(ctx context.Context, principal auth.Principal, vehicleID uuid.UUID) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ownedVehicle(ctx, principal, vehicleID); err != nil {
			return err
		}
		if err := s.carts.RemoveVehicleFromAll(ctx, vehicleID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, vehicleID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("vehicle deleted", zap.String("vehicle_id", vehicleID.String()))
	return nil
}

func (s *VehicleService) ownedVehicle(ctx context.Context, principal auth.Principal, vehicleID uuid.UUID) (*vehicleDomain.Vehicle, error) {
	if _, err := ownerProfileOf(principal); err != nil {
		return nil, err
	}
	v, err := s.repo.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !principal.OwnsProfile(v.OwnerID()) {
		return nil, domain.NewForbiddenError("vehicle belongs to another owner")
	}
	return v, nil
}

func toVehicleDTOs(vehicles []*vehicleDomain.Vehicle) []VehicleDTO {
	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	return dtos
}

func toVehicleDTO(v *vehicleDomain.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:               v.ID(),
		OwnerID:          v.OwnerID(),
		Name:             v.Name(),
		Description:      v.Description(),
		PriceUSD:         v.PriceUSD(),
		PricePerDayCents: v.PricePerDayCents(),
		Currency:         domain.CurrencyINR,
		Stock:            v.Stock(),
		Available:        v.IsAvailable(),
		CreatedAt:        v.CreatedAt(),
		UpdatedAt:        v.UpdatedAt(),
	}
}

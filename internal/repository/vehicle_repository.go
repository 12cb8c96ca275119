package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
	"github.com/rentx-marketplace/service-rental/internal/platform/database"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// VehicleModel is the GORM model for the vehicles table.
type VehicleModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	Name             string          `gorm:"not null;size:200"`
	Description      string          `gorm:"size:2000"`
	PriceUSD         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	PricePerDayCents int64           `gorm:"not null"`
	Stock            int             `gorm:"not null;check:stock >= 0"`
	Version          int64           `gorm:"not null;default:1"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (VehicleModel) TableName() string {
	return "vehicles"
}

// GormVehicleRepository implements VehicleRepository and InventoryLedger.
type GormVehicleRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormVehicleRepository creates a new GormVehicleRepository.
func NewGormVehicleRepository(db *gorm.DB, logger *zap.Logger) *GormVehicleRepository {
	return &GormVehicleRepository{db: db, logger: logger}
}

// FindByID retrieves a vehicle by ID.
func (r *GormVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*vehicleDomain.Vehicle, error) {
	var model VehicleModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Vehicle", id.String())
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return toDomainVehicle(&model), nil
}

// FindByIDs retrieves the vehicles that still exist among ids.
func (r *GormVehicleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*vehicleDomain.Vehicle, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []VehicleModel
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find vehicles: %w", err)
	}
	out := make([]*vehicleDomain.Vehicle, len(models))
	for i := range models {
		out[i] = toDomainVehicle(&models[i])
	}
	return out, nil
}

// FindByOwnerID lists an owner's vehicles with pagination.
func (r *GormVehicleRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*vehicleDomain.Vehicle, int64, error) {
	return r.list(ctx, page, limit, "owner_id = ?", ownerID)
}

// List lists all vehicles with pagination.
func (r *GormVehicleRepository) List(ctx context.Context, page, limit int) ([]*vehicleDomain.Vehicle, int64, error) {
	return r.list(ctx, page, limit, "")
}

func (r *GormVehicleRepository) list(ctx context.Context, page, limit int, where string, args ...any) ([]*vehicleDomain.Vehicle, int64, error) {
	q := database.Conn(ctx, r.db).Model(&VehicleModel{})
	if where != "" {
		q = q.Where(where, args...)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count vehicles: %w", err)
	}

	var models []VehicleModel
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list vehicles: %w", err)
	}

	out := make([]*vehicleDomain.Vehicle, len(models))
	for i := range models {
		out[i] = toDomainVehicle(&models[i])
	}
	return out, total, nil
}

// Save persists a new vehicle.
func (r *GormVehicleRepository) Save(ctx context.Context, v *vehicleDomain.Vehicle) error {
	if err := database.Conn(ctx, r.db).Create(toVehicleModel(v)).Error; err != nil {
		return fmt.Errorf("failed to save vehicle: %w", err)
	}
	return nil
}

// Update persists listing changes with optimistic locking.
func (r *GormVehicleRepository) Update(ctx context.Context, v *vehicleDomain.Vehicle) error {
	model := toVehicleModel(v)
	result := database.Conn(ctx, r.db).
		Model(&VehicleModel{}).
		Where("id = ? AND version = ?", model.ID, v.Version()-1).
		Updates(map[string]any{
			"name":                model.Name,
			"description":         model.Description,
			"price_usd":           model.PriceUSD,
			"price_per_day_cents": model.PricePerDayCents,
			"stock":               model.Stock,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update vehicle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("vehicle was modified by another transaction")
	}
	return nil
}

// Delete removes a vehicle listing.
func (r *GormVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Where("id = ?", id).Delete(&VehicleModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete vehicle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Vehicle", id.String())
	}
	return nil
}

// Reserve takes one unit of stock with a single conditional UPDATE, so
// concurrent reservations against the last unit cannot both succeed.
func (r *GormVehicleRepository) Reserve(ctx context.Context, vehicleID uuid.UUID) error {
	result := database.Conn(ctx, r.db).
		Model(&VehicleModel{}).
		Where("id = ? AND stock > 0", vehicleID).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - 1"),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reserve stock: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := database.Conn(ctx, r.db).Model(&VehicleModel{}).Where("id = ?", vehicleID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check vehicle: %w", err)
	}
	if count == 0 {
		return domain.NewNotFoundError("Vehicle", vehicleID.String())
	}
	return domain.NewOutOfStockError(vehicleID.String())
}

// Release returns one unit of stock. A vehicle deleted since the booking was
// made has nothing to return to; that case is logged and ignored.
func (r *GormVehicleRepository) Release(ctx context.Context, vehicleID uuid.UUID) error {
	result := database.Conn(ctx, r.db).
		Model(&VehicleModel{}).
		Where("id = ?", vehicleID).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + 1"),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to release stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Warn("stock release skipped, vehicle no longer exists",
			zap.String("vehicle_id", vehicleID.String()),
		)
	}
	return nil
}

// --- Conversion Helpers ---

func toVehicleModel(v *vehicleDomain.Vehicle) *VehicleModel {
	return &VehicleModel{
		ID:               v.ID(),
		OwnerID:          v.OwnerID(),
		Name:             v.Name(),
		Description:      v.Description(),
		PriceUSD:         v.PriceUSD(),
		PricePerDayCents: v.PricePerDayCents(),
		Stock:            v.Stock(),
		Version:          v.Version(),
		CreatedAt:        v.CreatedAt(),
		UpdatedAt:        v.UpdatedAt(),
	}
}

func toDomainVehicle(m *VehicleModel) *vehicleDomain.Vehicle {
	return vehicleDomain.Reconstruct(
		m.ID, m.OwnerID,
		m.Name, m.Description,
		m.PriceUSD, m.PricePerDayCents,
		m.Stock, m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}

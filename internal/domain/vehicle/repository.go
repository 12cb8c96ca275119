package vehicle

import (
	"context"

	"github.com/google/uuid"
)

// VehicleRepository defines the persistence contract for vehicle listings.
type VehicleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Vehicle, error)
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*Vehicle, int64, error)
	List(ctx context.Context, page, limit int) ([]*Vehicle, int64, error)
	Save(ctx context.Context, v *Vehicle) error
	Update(ctx context.Context, v *Vehicle) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InventoryLedger moves single units of stock in and out of a vehicle.
// Implementations must make Reserve atomic: two concurrent reservations
// against the last unit cannot both succeed.
type InventoryLedger interface {
	// Reserve decrements stock by one, failing with OutOfStock when none is left.
	Reserve(ctx context.Context, vehicleID uuid.UUID) error

	// Release increments stock by one.
	Release(ctx context.Context, vehicleID uuid.UUID) error
}

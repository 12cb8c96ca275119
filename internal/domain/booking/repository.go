package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByCustomerID retrieves bookings placed by a customer with pagination.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByOwnerID retrieves bookings against an owner's vehicles with pagination.
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status for one owner.
	CountByStatus(ctx context.Context, ownerID uuid.UUID) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error

	// AssignInvoiceNumber stores number only if the booking has none yet and
	// reports whether this call set it.
	AssignInvoiceNumber(ctx context.Context, id uuid.UUID, number string, at time.Time) (bool, error)
}

package booking

import (
	"time"

	"github.com/google/uuid"
)

// TopicBookingEvents carries every booking lifecycle event.
const TopicBookingEvents = "rental.booking.events"

// Event types published on TopicBookingEvents.
const (
	EventBookingCreated       = "rental.booking.created"
	EventBookingConfirmed     = "rental.booking.confirmed"
	EventBookingStatusChanged = "rental.booking.status_changed"
	EventBookingCancelled     = "rental.booking.cancelled"
)

// CancelledBy identifies which party cancelled a booking.
type CancelledBy string

const (
	CancelledByCustomer CancelledBy = "customer"
	CancelledByOwner    CancelledBy = "owner"
)

// LifecycleEvent is the payload of every booking event. Consumers reload the
// booking for anything beyond these fields.
type LifecycleEvent struct {
	BookingID      uuid.UUID   `json:"booking_id"`
	CustomerID     uuid.UUID   `json:"customer_id"`
	VehicleID      uuid.UUID   `json:"vehicle_id"`
	OwnerID        uuid.UUID   `json:"owner_id"`
	Status         string      `json:"status"`
	PreviousStatus string      `json:"previous_status,omitempty"`
	CancelledBy    CancelledBy `json:"cancelled_by,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

// NewLifecycleEvent snapshots b for publishing.
func NewLifecycleEvent(b *Booking) LifecycleEvent {
	return LifecycleEvent{
		BookingID:  b.ID(),
		CustomerID: b.CustomerID(),
		VehicleID:  b.VehicleID(),
		OwnerID:    b.OwnerID(),
		Status:     string(b.Status()),
		OccurredAt: time.Now().UTC(),
	}
}

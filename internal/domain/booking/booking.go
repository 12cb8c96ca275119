package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// Booking is the aggregate root for the booking domain. A booking rents one
// unit of a vehicle for a date range at the daily price captured when it was
// created.
type Booking struct {
	id             uuid.UUID
	customerID     uuid.UUID
	vehicleID      uuid.UUID
	ownerID        uuid.UUID
	startDate      time.Time
	endDate        time.Time
	pickupLocation string
	returnLocation string

	numberOfDays     int
	pricePerDayCents int64
	totalAmountCents int64
	currency         string

	status        BookingStatus
	paymentStatus PaymentStatus

	invoiceNumber      *string
	invoiceGeneratedAt *time.Time

	bookedAt    time.Time
	completedAt *time.Time
	cancelledAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// RentalTerms are the customer-chosen parts of a booking.
type RentalTerms struct {
	StartDate      time.Time
	EndDate        time.Time
	PickupLocation string
	ReturnLocation string
}

func (t RentalTerms) validate() error {
	if strings.TrimSpace(t.PickupLocation) == "" {
		return domain.NewValidationError("pickup location is required")
	}
	if strings.TrimSpace(t.ReturnLocation) == "" {
		return domain.NewValidationError("return location is required")
	}
	return nil
}

// NewBooking creates a booking awaiting confirmation and payment (status=Pending).
func NewBooking(customerID, vehicleID, ownerID uuid.UUID, terms RentalTerms, quote Quote, currency string) (*Booking, error) {
	return newBooking(customerID, vehicleID, ownerID, terms, quote, currency, StatusPending, PaymentPending)
}

// NewPaidBooking creates a booking that was settled up front (status=Confirmed, payment=Paid).
func NewPaidBooking(customerID, vehicleID, ownerID uuid.UUID, terms RentalTerms, quote Quote, currency string) (*Booking, error) {
	return newBooking(customerID, vehicleID, ownerID, terms, quote, currency, StatusConfirmed, PaymentPaid)
}

func newBooking(
	customerID, vehicleID, ownerID uuid.UUID,
	terms RentalTerms,
	quote Quote,
	currency string,
	status BookingStatus,
	paymentStatus PaymentStatus,
) (*Booking, error) {
	if customerID == uuid.Nil {
		return nil, domain.NewValidationError("customer ID is required")
	}
	if vehicleID == uuid.Nil {
		return nil, domain.NewValidationError("vehicle ID is required")
	}
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if err := terms.validate(); err != nil {
		return nil, err
	}
	if !terms.EndDate.After(terms.StartDate) {
		return nil, domain.NewInvalidDateRangeError("end date must be after start date")
	}
	if quote.NumberOfDays < 1 || quote.TotalCents <= 0 {
		return nil, domain.NewValidationError("booking must have a positive price")
	}

	now := time.Now().UTC()
	return &Booking{
		id:               uuid.New(),
		customerID:       customerID,
		vehicleID:        vehicleID,
		ownerID:          ownerID,
		startDate:        terms.StartDate.UTC(),
		endDate:          terms.EndDate.UTC(),
		pickupLocation:   strings.TrimSpace(terms.PickupLocation),
		returnLocation:   strings.TrimSpace(terms.ReturnLocation),
		numberOfDays:     quote.NumberOfDays,
		pricePerDayCents: quote.PricePerDayCents,
		totalAmountCents: quote.TotalCents,
		currency:         currency,
		status:           status,
		paymentStatus:    paymentStatus,
		bookedAt:         now,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id, customerID, vehicleID, ownerID uuid.UUID,
	terms RentalTerms,
	numberOfDays int,
	pricePerDayCents, totalAmountCents int64,
	currency string,
	status BookingStatus,
	paymentStatus PaymentStatus,
	invoiceNumber *string,
	invoiceGeneratedAt *time.Time,
	bookedAt time.Time,
	completedAt, cancelledAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:                 id,
		customerID:         customerID,
		vehicleID:          vehicleID,
		ownerID:            ownerID,
		startDate:          terms.StartDate,
		endDate:            terms.EndDate,
		pickupLocation:     terms.PickupLocation,
		returnLocation:     terms.ReturnLocation,
		numberOfDays:       numberOfDays,
		pricePerDayCents:   pricePerDayCents,
		totalAmountCents:   totalAmountCents,
		currency:           currency,
		status:             status,
		paymentStatus:      paymentStatus,
		invoiceNumber:      invoiceNumber,
		invoiceGeneratedAt: invoiceGeneratedAt,
		bookedAt:           bookedAt,
		completedAt:        completedAt,
		cancelledAt:        cancelledAt,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// CustomerID returns the renting user's ID.
func (b *Booking) CustomerID() uuid.UUID { return b.customerID }

// VehicleID returns the rented vehicle's ID.
func (b *Booking) VehicleID() uuid.UUID { return b.vehicleID }

// OwnerID returns the vehicle owner's profile ID.
func (b *Booking) OwnerID() uuid.UUID { return b.ownerID }

// StartDate returns when the rental begins.
func (b *Booking) StartDate() time.Time { return b.startDate }

// EndDate returns when the vehicle is due back.
func (b *Booking) EndDate() time.Time { return b.endDate }

// PickupLocation returns where the customer collects the vehicle.
func (b *Booking) PickupLocation() string { return b.pickupLocation }

// ReturnLocation returns where the customer drops the vehicle off.
func (b *Booking) ReturnLocation() string { return b.returnLocation }

// NumberOfDays returns the billed rental days.
func (b *Booking) NumberOfDays() int { return b.numberOfDays }

// PricePerDayCents returns the daily rate captured when the booking was made.
func (b *Booking) PricePerDayCents() int64 { return b.pricePerDayCents }

// TotalAmountCents returns the booking total in minor units.
func (b *Booking) TotalAmountCents() int64 { return b.totalAmountCents }

// Currency returns the ISO code the amounts are in.
func (b *Booking) Currency() string { return b.currency }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// PaymentStatus returns the current payment status.
func (b *Booking) PaymentStatus() PaymentStatus { return b.paymentStatus }

// InvoiceNumber returns the assigned invoice number, or nil if none yet.
func (b *Booking) InvoiceNumber() *string { return b.invoiceNumber }

// InvoiceGeneratedAt returns when the invoice number was assigned.
func (b *Booking) InvoiceGeneratedAt() *time.Time { return b.invoiceGeneratedAt }

// BookedAt returns when the booking was placed.
func (b *Booking) BookedAt() time.Time { return b.bookedAt }

// CompletedAt returns when the rental was completed.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// CancelledAt returns when the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// UpdateStatus moves the booking to target. Requesting the current status is
// a no-op and reports changed=false, so repeated requests never repeat side
// effects.
func (b *Booking) UpdateStatus(target BookingStatus) (changed bool, err error) {
	if !target.IsValid() {
		return false, domain.NewValidationError("invalid booking status: " + string(target))
	}
	if b.status == target {
		return false, nil
	}
	if !b.status.CanTransitionTo(target) {
		return false, domain.NewInvalidStateError(string(b.status), string(target))
	}
	b.apply(target)
	return true, nil
}

// Cancel cancels a booking that has not started yet.
func (b *Booking) Cancel() error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	b.apply(StatusCancelled)
	return nil
}

// ReleasesInventory reports whether the booking's unit is back in stock.
// True exactly when the booking is in a terminal state.
func (b *Booking) ReleasesInventory() bool {
	return b.status.IsTerminal()
}

// IsPaid reports whether payment has been captured.
func (b *Booking) IsPaid() bool {
	return b.paymentStatus == PaymentPaid
}

// HasInvoice reports whether an invoice number is assigned.
func (b *Booking) HasInvoice() bool {
	return b.invoiceNumber != nil
}

// AssignInvoiceNumber sets the invoice number once. It returns false and
// leaves the booking untouched when a number is already present.
func (b *Booking) AssignInvoiceNumber(number string, at time.Time) bool {
	if b.invoiceNumber != nil {
		return false
	}
	at = at.UTC()
	b.invoiceNumber = &number
	b.invoiceGeneratedAt = &at
	b.updatedAt = time.Now().UTC()
	return true
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

func (b *Booking) apply(target BookingStatus) {
	now := time.Now().UTC()
	b.status = target
	switch target {
	case StatusCompleted:
		b.completedAt = &now
	case StatusCancelled:
		b.cancelledAt = &now
	}
	b.updatedAt = now
}

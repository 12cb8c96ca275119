package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
	"github.com/rentx-marketplace/service-rental/internal/metrics"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	VehicleID      uuid.UUID `json:"vehicle_id" binding:"required"`
	StartDate      time.Time `json:"start_date" binding:"required"`
	EndDate        time.Time `json:"end_date" binding:"required"`
	PickupLocation string    `json:"pickup_location" binding:"required"`
	ReturnLocation string    `json:"return_location" binding:"required"`
}

// UpdateStatusRequest is the body of an owner status update.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID                 uuid.UUID  `json:"id"`
	CustomerID         uuid.UUID  `json:"customer_id"`
	VehicleID          uuid.UUID  `json:"vehicle_id"`
	OwnerID            uuid.UUID  `json:"owner_id"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            time.Time  `json:"end_date"`
	PickupLocation     string     `json:"pickup_location"`
	ReturnLocation     string     `json:"return_location"`
	NumberOfDays       int        `json:"number_of_days"`
	PricePerDayCents   int64      `json:"price_per_day_cents"`
	TotalAmountCents   int64      `json:"total_amount_cents"`
	Currency           string     `json:"currency"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	InvoiceNumber      *string    `json:"invoice_number,omitempty"`
	InvoiceGeneratedAt *time.Time `json:"invoice_generated_at,omitempty"`
	BookedAt           time.Time  `json:"booked_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	Version            int64      `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// BookingStatsDTO holds booking counts for the owner dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	tx        Transactor
	repo      bookingDomain.BookingRepository
	vehicles  vehicleDomain.VehicleRepository
	ledger    vehicleDomain.InventoryLedger
	pricing   bookingDomain.PricingStrategy
	publisher EventPublisher
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	tx Transactor,
	repo bookingDomain.BookingRepository,
	vehicles vehicleDomain.VehicleRepository,
	ledger vehicleDomain.InventoryLedger,
	pricing bookingDomain.PricingStrategy,
	publisher EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:        tx,
		repo:      repo,
		vehicles:  vehicles,
		ledger:    ledger,
		pricing:   pricing,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateBooking books one unit of a vehicle for the principal, awaiting
// owner confirmation and payment.
func (s *BookingService) CreateBooking(ctx context.Context, principal auth.Principal, req CreateBookingRequest) (*BookingDTO, error) {
	if req.VehicleID == uuid.Nil {
		return nil, domain.NewValidationError("vehicle ID is required")
	}

	v, err := s.vehicles.FindByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if principal.OwnsProfile(v.OwnerID()) {
		return nil, domain.NewSelfBookingError()
	}

	quote, err := s.pricing.Calculate(bookingDomain.PricingParams{
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		PricePerDayCents: v.PricePerDayCents(),
	})
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(principal.UserID, v.ID(), v.OwnerID(), bookingDomain.RentalTerms{
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
	}, quote, domain.CurrencyINR)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := reserve(ctx, s.ledger, v.ID()); err != nil {
			return err
		}
		return s.repo.Save(ctx, bk)
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.WithLabelValues("manual").Inc()
	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("vehicle_id", v.ID().String()),
		zap.Int("days", bk.NumberOfDays()),
	)

	publishEvent(ctx, s.publisher, s.logger, bookingDomain.TopicBookingEvents, bookingDomain.EventBookingCreated,
		bk.ID(), bookingDomain.NewLifecycleEvent(bk))

	result := toBookingDTO(bk)
	return &result, nil
}

// UpdateStatus moves a booking along the state machine on behalf of the
// vehicle owner. Entering a terminal state returns the unit to stock once.
func (s *BookingService) UpdateStatus(ctx context.Context, principal auth.Principal, bookingID uuid.UUID, status string) (*BookingDTO, error) {
	target, err := bookingDomain.ParseBookingStatus(status)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	var (
		bk       *bookingDomain.Booking
		previous bookingDomain.BookingStatus
		changed  bool
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		bk, err = s.repo.FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !principal.OwnsProfile(bk.OwnerID()) {
			return domain.NewForbiddenError("only the vehicle owner can update this booking")
		}

		previous = bk.Status()
		changed, err = bk.UpdateStatus(target)
		if err != nil || !changed {
			return err
		}

		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			return err
		}
		if !previous.IsTerminal() && bk.ReleasesInventory() {
			return s.release(ctx, bk)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("booking status updated",
			zap.String("booking_id", bk.ID().String()),
			zap.String("from", string(previous)),
			zap.String("to", string(bk.Status())),
		)
		evt := bookingDomain.NewLifecycleEvent(bk)
		evt.PreviousStatus = string(previous)
		publishEvent(ctx, s.publisher, s.logger, bookingDomain.TopicBookingEvents, bookingDomain.EventBookingStatusChanged, bk.ID(), evt)
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels a booking that has not started yet. Either party to
// the booking may cancel.
func (s *BookingService) CancelBooking(ctx context.Context, principal auth.Principal, bookingID uuid.UUID) (*BookingDTO, error) {
	var (
		bk       *bookingDomain.Booking
		previous bookingDomain.BookingStatus
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		bk, err = s.repo.FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !principal.CanActOnBooking(bk.CustomerID(), bk.OwnerID()) {
			return domain.NewForbiddenError("booking does not belong to this user")
		}

		previous = bk.Status()
		if err := bk.Cancel(); err != nil {
			return err
		}

		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			return err
		}
		return s.release(ctx, bk)
	})
	if err != nil {
		return nil, err
	}

	cancelledBy := bookingDomain.CancelledByOwner
	if principal.IsUser(bk.CustomerID()) {
		cancelledBy = bookingDomain.CancelledByCustomer
	}
	s.logger.Info("booking cancelled",
		zap.String("booking_id", bk.ID().String()),
		zap.String("cancelled_by", string(cancelledBy)),
	)

	evt := bookingDomain.NewLifecycleEvent(bk)
	evt.PreviousStatus = string(previous)
	evt.CancelledBy = cancelledBy
	publishEvent(ctx, s.publisher, s.logger, bookingDomain.TopicBookingEvents, bookingDomain.EventBookingCancelled, bk.ID(), evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a single booking visible to the principal.
func (s *BookingService) GetBooking(ctx context.Context, principal auth.Principal, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !principal.CanActOnBooking(bk.CustomerID(), bk.OwnerID()) {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListCustomerBookings retrieves the principal's own bookings.
func (s *BookingService) ListCustomerBookings(ctx context.Context, principal auth.Principal, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByCustomerID(ctx, principal.UserID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// ListOwnerBookings retrieves bookings against the principal's vehicles.
func (s *BookingService) ListOwnerBookings(ctx context.Context, principal auth.Principal, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	ownerID, err := ownerProfileOf(principal)
	if err != nil {
		return nil, err
	}
	bookings, total, err := s.repo.FindByOwnerID(ctx, ownerID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// GetOwnerStats returns booking counts by status for the owner dashboard.
func (s *BookingService) GetOwnerStats(ctx context.Context, principal auth.Principal) (*BookingStatsDTO, error) {
	ownerID, err := ownerProfileOf(principal)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

func (s *BookingService) release(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := s.ledger.Release(ctx, bk.VehicleID()); err != nil {
		return err
	}
	metrics.StockReleased.Inc()
	return nil
}

// --- Helpers ---

// reserve takes a unit of stock, reporting failure as VehicleUnavailable.
// A missing vehicle stays NotFound.
func reserve(ctx context.Context, ledger vehicleDomain.InventoryLedger, vehicleID uuid.UUID) error {
	err := ledger.Reserve(ctx, vehicleID)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrOutOfStock) {
		return domain.NewVehicleUnavailableError(vehicleID.String(), err)
	}
	return err
}

func ownerProfileOf(principal auth.Principal) (uuid.UUID, error) {
	if !principal.CanManageListings() {
		return uuid.Nil, domain.NewForbiddenError("an owner profile is required")
	}
	return *principal.OwnerProfileID, nil
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:                 bk.ID(),
		CustomerID:         bk.CustomerID(),
		VehicleID:          bk.VehicleID(),
		OwnerID:            bk.OwnerID(),
		StartDate:          bk.StartDate(),
		EndDate:            bk.EndDate(),
		PickupLocation:     bk.PickupLocation(),
		ReturnLocation:     bk.ReturnLocation(),
		NumberOfDays:       bk.NumberOfDays(),
		PricePerDayCents:   bk.PricePerDayCents(),
		TotalAmountCents:   bk.TotalAmountCents(),
		Currency:           bk.Currency(),
		Status:             string(bk.Status()),
		PaymentStatus:      string(bk.PaymentStatus()),
		InvoiceNumber:      bk.InvoiceNumber(),
		InvoiceGeneratedAt: bk.InvoiceGeneratedAt(),
		BookedAt:           bk.BookedAt(),
		CompletedAt:        bk.CompletedAt(),
		CancelledAt:        bk.CancelledAt(),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}
}

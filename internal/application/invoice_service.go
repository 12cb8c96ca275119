package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	"github.com/rentx-marketplace/service-rental/internal/domain/party"
	paymentDomain "github.com/rentx-marketplace/service-rental/internal/domain/payment"
	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
	"github.com/rentx-marketplace/service-rental/internal/invoice"
	"github.com/rentx-marketplace/service-rental/internal/metrics"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// invoiceNumberAttempts bounds regeneration after a number collision.
const invoiceNumberAttempts = 2

// InvoiceFile is a rendered invoice ready for download or attachment.
type InvoiceFile struct {
	Filename string
	Content  []byte
}

// InvoiceService numbers and renders invoices.
type InvoiceService struct {
	bookings  bookingDomain.BookingRepository
	vehicles  vehicleDomain.VehicleRepository
	customers party.CustomerRepository
	owners    party.OwnerRepository
	payments  paymentDomain.PaymentRepository
	numberer  bookingDomain.InvoiceNumberGenerator
	renderer  invoice.Renderer
	logger    *zap.Logger
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(
	bookings bookingDomain.BookingRepository,
	vehicles vehicleDomain.VehicleRepository,
	customers party.CustomerRepository,
	owners party.OwnerRepository,
	payments paymentDomain.PaymentRepository,
	numberer bookingDomain.InvoiceNumberGenerator,
	renderer invoice.Renderer,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		bookings:  bookings,
		vehicles:  vehicles,
		customers: customers,
		owners:    owners,
		payments:  payments,
		numberer:  numberer,
		renderer:  renderer,
		logger:    logger,
	}
}

// Assign gives bk an invoice number unless it already has one, and returns
// the number now stored. When a concurrent caller wins the race the stored
// number is reloaded and returned instead.
func (s *InvoiceService) Assign(ctx context.Context, bk *bookingDomain.Booking) (string, error) {
	if bk.HasInvoice() {
		return *bk.InvoiceNumber(), nil
	}

	now := time.Now().UTC()
	var (
		number   string
		assigned bool
		err      error
	)
	for attempt := range invoiceNumberAttempts {
		number = s.numberer.Generate(bk.ID(), now.Add(time.Duration(attempt)*time.Millisecond))
		assigned, err = s.bookings.AssignInvoiceNumber(ctx, bk.ID(), number, now)
		if !errors.Is(err, bookingDomain.ErrInvoiceNumberTaken) {
			break
		}
		s.logger.Warn("invoice number collision",
			zap.String("booking_id", bk.ID().String()),
			zap.String("invoice_number", number),
		)
	}
	if err != nil {
		return "", err
	}
	if assigned {
		bk.AssignInvoiceNumber(number, now)
		metrics.InvoicesAssigned.Inc()
		s.logger.Info("invoice number assigned",
			zap.String("booking_id", bk.ID().String()),
			zap.String("invoice_number", number),
		)
		return number, nil
	}

	stored, err := s.bookings.FindByID(ctx, bk.ID())
	if err != nil {
		return "", err
	}
	if !stored.HasInvoice() {
		return "", domain.NewConflictError("invoice number could not be assigned")
	}
	bk.AssignInvoiceNumber(*stored.InvoiceNumber(), *stored.InvoiceGeneratedAt())
	return *stored.InvoiceNumber(), nil
}

// DownloadInvoice renders the invoice of a paid booking for either party to it.
func (s *InvoiceService) DownloadInvoice(ctx context.Context, principal auth.Principal, bookingID uuid.UUID) (*InvoiceFile, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !principal.CanActOnBooking(bk.CustomerID(), bk.OwnerID()) {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	if !bk.IsPaid() {
		return nil, domain.NewPaymentNotCompletedError()
	}
	return s.Render(ctx, bk)
}

// Render numbers bk if needed and renders its invoice. A deleted vehicle or
// a missing payment record leaves those sections out of the document.
func (s *InvoiceService) Render(ctx context.Context, bk *bookingDomain.Booking) (*InvoiceFile, error) {
	number, err := s.Assign(ctx, bk)
	if err != nil {
		return nil, err
	}

	in := invoice.Input{Booking: bk}

	if in.Vehicle, err = s.vehicles.FindByID(ctx, bk.VehicleID()); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		in.Vehicle = nil
	}
	if in.Customer, err = s.customers.FindByID(ctx, bk.CustomerID()); err != nil {
		return nil, err
	}
	if in.Owner, err = s.owners.FindByID(ctx, bk.OwnerID()); err != nil {
		return nil, err
	}
	if in.Payment, err = s.payments.FindByBookingID(ctx, bk.ID()); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		in.Payment = nil
	}

	content, err := s.renderer.Render(in)
	if err != nil {
		s.logger.Error("invoice rendering failed",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
		return nil, domain.NewUpstreamError("invoice renderer", err)
	}

	return &InvoiceFile{
		Filename: invoice.Filename(number),
		Content:  content,
	}, nil
}

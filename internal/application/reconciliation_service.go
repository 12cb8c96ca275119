package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	cartDomain "github.com/rentx-marketplace/service-rental/internal/domain/cart"
	paymentDomain "github.com/rentx-marketplace/service-rental/internal/domain/payment"
	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
	"github.com/rentx-marketplace/service-rental/internal/metrics"
	"github.com/rentx-marketplace/service-rental/internal/payment"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// CreateOrderRequest asks the payment provider for an order.
type CreateOrderRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

// CheckoutLine is one cart line being paid for.
type CheckoutLine struct {
	VehicleID uuid.UUID `json:"vehicle_id" binding:"required"`
	Quantity  int       `json:"quantity"`
}

// RentalDetail holds the customer's choices for one vehicle.
type RentalDetail struct {
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	PickupLocation string    `json:"pickup_location"`
	ReturnLocation string    `json:"return_location"`
}

// VerifyPaymentRequest is the provider confirmation plus the cart it paid for.
// RentalDetails is keyed by vehicle ID.
type VerifyPaymentRequest struct {
	OrderID       string                  `json:"razorpay_order_id" binding:"required"`
	PaymentID     string                  `json:"razorpay_payment_id" binding:"required"`
	Signature     string                  `json:"razorpay_signature" binding:"required"`
	PaymentMethod string                  `json:"payment_method"`
	AmountCents   *int64                  `json:"amount_cents"`
	Items         []CheckoutLine          `json:"items" binding:"required,min=1,dive"`
	RentalDetails map[string]RentalDetail `json:"rental_details"`
}

// LineError describes why one cart line produced no booking.
type LineError struct {
	VehicleID string `json:"vehicle_id"`
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// ReconciliationResult lists the bookings created and the lines that failed.
type ReconciliationResult struct {
	Bookings []BookingDTO `json:"bookings"`
	Errors   []LineError  `json:"errors"`
}

// ReconciliationService turns verified payments into bookings.
type ReconciliationService struct {
	tx        Transactor
	bookings  bookingDomain.BookingRepository
	vehicles  vehicleDomain.VehicleRepository
	ledger    vehicleDomain.InventoryLedger
	payments  paymentDomain.PaymentRepository
	carts     cartDomain.CartRepository
	pricing   bookingDomain.PricingStrategy
	invoices  *InvoiceService
	verifier  payment.SignatureVerifier
	gateway   payment.Gateway
	guard     ReconciliationGuard
	publisher EventPublisher
	logger    *zap.Logger
}

// ReconciliationDeps groups the collaborators of ReconciliationService.
type ReconciliationDeps struct {
	Tx        Transactor
	Bookings  bookingDomain.BookingRepository
	Vehicles  vehicleDomain.VehicleRepository
	Ledger    vehicleDomain.InventoryLedger
	Payments  paymentDomain.PaymentRepository
	Carts     cartDomain.CartRepository
	Pricing   bookingDomain.PricingStrategy
	Invoices  *InvoiceService
	Verifier  payment.SignatureVerifier
	Gateway   payment.Gateway
	Guard     ReconciliationGuard
	Publisher EventPublisher
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(deps ReconciliationDeps, logger *zap.Logger) *ReconciliationService {
	return &ReconciliationService{
		tx:        deps.Tx,
		bookings:  deps.Bookings,
		vehicles:  deps.Vehicles,
		ledger:    deps.Ledger,
		payments:  deps.Payments,
		carts:     deps.Carts,
		pricing:   deps.Pricing,
		invoices:  deps.Invoices,
		verifier:  deps.Verifier,
		gateway:   deps.Gateway,
		guard:     deps.Guard,
		publisher: deps.Publisher,
		logger:    logger,
	}
}

// CreateOrder opens a provider order in the settlement currency.
func (s *ReconciliationService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*payment.Order, error) {
	if req.AmountCents <= 0 {
		return nil, domain.NewValidationError("amount must be positive")
	}
	return s.gateway.CreateOrder(ctx, req.AmountCents, domain.CurrencyINR)
}

// VerifyPayment checks the provider signature and then books every cart line
// independently. A failing line is reported and does not stop the others.
// The call fails only when the signature is bad or no line could be booked.
func (s *ReconciliationService) VerifyPayment(ctx context.Context, principal auth.Principal, req VerifyPaymentRequest) (*ReconciliationResult, error) {
	if err := s.verifier.Verify(req.OrderID, req.PaymentID, req.Signature); err != nil {
		s.logger.Warn("payment signature rejected",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
		)
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, domain.NewValidationError("at least one item is required")
	}
	method, err := paymentDomain.ParseMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	guardKey := "reconcile:" + req.PaymentID
	acquired, err := s.guard.Acquire(ctx, guardKey)
	switch {
	case err != nil:
		s.logger.Warn("reconciliation guard unavailable, proceeding without it",
			zap.String("payment_id", req.PaymentID),
			zap.Error(err),
		)
	case !acquired:
		return nil, domain.NewPaymentAlreadyReconciledError(req.PaymentID)
	}

	// The guard expires and may be unavailable; recorded payments are the
	// durable answer.
	reconciled, err := s.payments.ExistsByTransactionID(ctx, req.PaymentID)
	if err != nil {
		s.releaseGuard(ctx, acquired, guardKey)
		return nil, err
	}
	if reconciled {
		s.logger.Warn("replayed payment confirmation rejected",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
		)
		return nil, domain.NewPaymentAlreadyReconciledError(req.PaymentID)
	}

	details := make(map[uuid.UUID]RentalDetail, len(req.RentalDetails))
	for key, d := range req.RentalDetails {
		if id, err := uuid.Parse(key); err == nil {
			details[id] = d
		}
	}

	result := &ReconciliationResult{
		Bookings: []BookingDTO{},
		Errors:   []LineError{},
	}
	var (
		booked      []uuid.UUID
		bookedTotal int64
	)

	for _, line := range req.Items {
		var (
			bk  *bookingDomain.Booking
			err error
		)
		if err = ctx.Err(); err == nil {
			bk, err = s.bookLine(ctx, principal, line, details, method, req)
		}
		if err != nil {
			lineErr := toLineError(line.VehicleID, err)
			result.Errors = append(result.Errors, lineErr)
			metrics.ReconciliationLineFailures.WithLabelValues(lineErr.Code).Inc()
			s.logger.Warn("reconciliation line failed",
				zap.String("payment_id", req.PaymentID),
				zap.String("vehicle_id", line.VehicleID.String()),
				zap.String("code", lineErr.Code),
				zap.Error(err),
			)
			continue
		}

		metrics.BookingsCreated.WithLabelValues("payment").Inc()
		publishEvent(ctx, s.publisher, s.logger, bookingDomain.TopicBookingEvents, bookingDomain.EventBookingConfirmed,
			bk.ID(), bookingDomain.NewLifecycleEvent(bk))

		result.Bookings = append(result.Bookings, toBookingDTO(bk))
		booked = append(booked, bk.VehicleID())
		bookedTotal += bk.TotalAmountCents()
	}

	if len(result.Bookings) == 0 {
		s.releaseGuard(ctx, acquired, guardKey)
		if replayed(result.Errors) {
			return nil, domain.NewPaymentAlreadyReconciledError(req.PaymentID)
		}
		s.logger.Error("verified payment produced no bookings",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
			zap.Int("failed_lines", len(result.Errors)),
		)
		return nil, domain.NewBookingCreationFailedError(result.Errors)
	}

	if req.AmountCents != nil && *req.AmountCents != bookedTotal {
		metrics.ReconciliationAmountMismatch.Inc()
		s.logger.Warn("verified payment amount differs from booked total",
			zap.String("payment_id", req.PaymentID),
			zap.Int64("paid_cents", *req.AmountCents),
			zap.Int64("booked_cents", bookedTotal),
		)
	}

	s.clearCart(context.WithoutCancel(ctx), principal.UserID, booked)

	s.logger.Info("payment reconciled",
		zap.String("payment_id", req.PaymentID),
		zap.Int("bookings", len(result.Bookings)),
		zap.Int("failed_lines", len(result.Errors)),
	)
	return result, nil
}

// bookLine creates one Confirmed/Paid booking with its payment record and
// invoice number. The stock reservation and all writes commit together.
func (s *ReconciliationService) bookLine(
	ctx context.Context,
	principal auth.Principal,
	line CheckoutLine,
	details map[uuid.UUID]RentalDetail,
	method paymentDomain.Method,
	req VerifyPaymentRequest,
) (*bookingDomain.Booking, error) {
	v, err := s.vehicles.FindByID(ctx, line.VehicleID)
	if err != nil {
		return nil, err
	}
	d, ok := details[line.VehicleID]
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("rental details missing for vehicle %s", line.VehicleID))
	}
	if principal.OwnsProfile(v.OwnerID()) {
		return nil, domain.NewSelfBookingError()
	}

	quote, err := s.pricing.Calculate(bookingDomain.PricingParams{
		StartDate:        d.StartDate,
		EndDate:          d.EndDate,
		PricePerDayCents: v.PricePerDayCents(),
	})
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewPaidBooking(principal.UserID, v.ID(), v.OwnerID(), bookingDomain.RentalTerms{
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		PickupLocation: d.PickupLocation,
		ReturnLocation: d.ReturnLocation,
	}, quote, domain.CurrencyINR)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := reserve(ctx, s.ledger, v.ID()); err != nil {
			return err
		}
		if err := s.bookings.Save(ctx, bk); err != nil {
			return err
		}
		p, err := paymentDomain.NewPayment(bk.ID(), bk.VehicleID(), principal.UserID, method, req.OrderID, req.PaymentID, bk.TotalAmountCents(), bk.Currency())
		if err != nil {
			return err
		}
		if err := s.payments.Save(ctx, p); err != nil {
			return err
		}
		_, err = s.invoices.Assign(ctx, bk)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bk, nil
}

func (s *ReconciliationService) releaseGuard(ctx context.Context, acquired bool, key string) {
	if !acquired {
		return
	}
	if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("failed to release reconciliation guard", zap.Error(err))
	}
}

// replayed reports whether a concurrent call already recorded this payment
// for the failed lines.
func replayed(lineErrs []LineError) bool {
	for _, le := range lineErrs {
		if le.Code == domain.CodePaymentAlreadyReconciled {
			return true
		}
	}
	return false
}

func (s *ReconciliationService) clearCart(ctx context.Context, customerID uuid.UUID, vehicleIDs []uuid.UUID) {
	c, err := s.carts.FindByCustomerID(ctx, customerID)
	if err == nil {
		c.Remove(vehicleIDs...)
		err = s.carts.Save(ctx, c)
	}
	if err != nil {
		s.logger.Warn("failed to remove booked vehicles from cart",
			zap.String("customer_id", customerID.String()),
			zap.Error(err),
		)
	}
}

func toLineError(vehicleID uuid.UUID, err error) LineError {
	le := LineError{VehicleID: vehicleID.String(), Message: err.Error()}
	if appErr, ok := domain.AsAppError(err); ok {
		le.Code = appErr.Code
		le.Kind = string(appErr.Kind)
		le.Message = appErr.Message
		return le
	}
	le.Code = domain.CodeInternal
	le.Kind = string(domain.KindInternal)
	return le
}

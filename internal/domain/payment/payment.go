package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// Method is how the customer paid.
type Method string

const (
	MethodCreditCard Method = "Credit Card"
	MethodDebitCard  Method = "Debit Card"
	MethodNetBanking Method = "Net Banking"
	MethodUPI        Method = "UPI"
	MethodWallet     Method = "Wallet"
	MethodCash       Method = "Cash"
)

// ParseMethod validates a payment method. Empty input defaults to UPI, the
// most common method reported by the checkout widget.
func ParseMethod(s string) (Method, error) {
	if strings.TrimSpace(s) == "" {
		return MethodUPI, nil
	}
	switch m := Method(s); m {
	case MethodCreditCard, MethodDebitCard, MethodNetBanking, MethodUPI, MethodWallet, MethodCash:
		return m, nil
	default:
		return "", domain.NewValidationError(fmt.Sprintf("invalid payment method: %s", s))
	}
}

// Status of a recorded payment. Only successful captures are recorded.
const StatusSuccess = "Success"

// Payment is an immutable record of one captured provider transaction
// settling one booking. A provider transaction settles each vehicle at most once.
type Payment struct {
	id              uuid.UUID
	bookingID       uuid.UUID
	vehicleID       uuid.UUID
	customerID      uuid.UUID
	method          Method
	providerOrderID string
	transactionID   string
	amountCents     int64
	currency        string
	paidAt          time.Time
}

// NewPayment records a captured payment.
func NewPayment(
	bookingID, vehicleID, customerID uuid.UUID,
	method Method,
	providerOrderID, transactionID string,
	amountCents int64,
	currency string,
) (*Payment, error) {
	if bookingID == uuid.Nil || vehicleID == uuid.Nil || customerID == uuid.Nil {
		return nil, domain.NewValidationError("booking, vehicle and customer are required")
	}
	if transactionID == "" {
		return nil, domain.NewValidationError("transaction ID is required")
	}
	if amountCents < 0 {
		return nil, domain.NewValidationError("amount cannot be negative")
	}
	return &Payment{
		id:              uuid.New(),
		bookingID:       bookingID,
		vehicleID:       vehicleID,
		customerID:      customerID,
		method:          method,
		providerOrderID: providerOrderID,
		transactionID:   transactionID,
		amountCents:     amountCents,
		currency:        currency,
		paidAt:          time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Payment from persistence data.
func Reconstruct(
	id, bookingID, vehicleID, customerID uuid.UUID,
	method Method,
	providerOrderID, transactionID string,
	amountCents int64,
	currency string,
	paidAt time.Time,
) *Payment {
	return &Payment{
		id:              id,
		bookingID:       bookingID,
		vehicleID:       vehicleID,
		customerID:      customerID,
		method:          method,
		providerOrderID: providerOrderID,
		transactionID:   transactionID,
		amountCents:     amountCents,
		currency:        currency,
		paidAt:          paidAt,
	}
}

func (p *Payment) ID() uuid.UUID           { return p.id }
func (p *Payment) BookingID() uuid.UUID    { return p.bookingID }
func (p *Payment) VehicleID() uuid.UUID    { return p.vehicleID }
func (p *Payment) CustomerID() uuid.UUID   { return p.customerID }
func (p *Payment) Method() Method          { return p.method }
func (p *Payment) ProviderOrderID() string { return p.providerOrderID }
func (p *Payment) TransactionID() string   { return p.transactionID }
func (p *Payment) AmountCents() int64      { return p.amountCents }
func (p *Payment) Currency() string        { return p.currency }
func (p *Payment) PaidAt() time.Time       { return p.paidAt }

// PaymentRepository stores payments. There is no update: records are immutable.
type PaymentRepository interface {
	// Save rejects a second payment for the same booking with a conflict, and
	// a second record of one transaction for the same vehicle with
	// PAYMENT_ALREADY_RECONCILED.
	Save(ctx context.Context, p *Payment) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error)
	// ExistsByTransactionID reports whether any booking was settled by the
	// provider transaction.
	ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error)
}

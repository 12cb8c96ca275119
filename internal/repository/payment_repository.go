package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	paymentDomain "github.com/rentx-marketplace/service-rental/internal/domain/payment"
	"github.com/rentx-marketplace/service-rental/internal/platform/database"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// PaymentModel is the GORM model for the payments table.
type PaymentModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	VehicleID       uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_payments_transaction_vehicle,priority:2;not null"`
	CustomerID      uuid.UUID `gorm:"type:uuid;index;not null"`
	Method          string    `gorm:"not null;size:20"`
	Status          string    `gorm:"not null;size:20"`
	ProviderOrderID string    `gorm:"size:100"`
	TransactionID   string    `gorm:"uniqueIndex:idx_payments_transaction_vehicle,priority:1;not null;size:100"`
	AmountCents     int64     `gorm:"not null"`
	Currency        string    `gorm:"not null;size:3"`
	PaidAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (PaymentModel) TableName() string {
	return "payments"
}

// GormPaymentRepository is the GORM-based implementation of PaymentRepository.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository.
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Save records a payment. The unique booking_id index rejects a second
// payment for the same booking, and the transaction/vehicle index rejects a
// replayed provider transaction.
func (r *GormPaymentRepository) Save(ctx context.Context, p *paymentDomain.Payment) error {
	model := &PaymentModel{
		ID:              p.ID(),
		BookingID:       p.BookingID(),
		VehicleID:       p.VehicleID(),
		CustomerID:      p.CustomerID(),
		Method:          string(p.Method()),
		Status:          paymentDomain.StatusSuccess,
		ProviderOrderID: p.ProviderOrderID(),
		TransactionID:   p.TransactionID(),
		AmountCents:     p.AmountCents(),
		Currency:        p.Currency(),
		PaidAt:          p.PaidAt(),
	}
	result := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}, {Name: "vehicle_id"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("booking already has a payment")
		}
		return fmt.Errorf("failed to save payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewPaymentAlreadyReconciledError(p.TransactionID())
	}
	return nil
}

// FindByBookingID retrieves the payment settling a booking.
func (r *GormPaymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*paymentDomain.Payment, error) {
	var m PaymentModel
	if err := database.Conn(ctx, r.db).Where("booking_id = ?", bookingID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Payment for booking", bookingID.String())
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return paymentDomain.Reconstruct(
		m.ID, m.BookingID, m.VehicleID, m.CustomerID,
		paymentDomain.Method(m.Method),
		m.ProviderOrderID, m.TransactionID,
		m.AmountCents, m.Currency,
		m.PaidAt,
	), nil
}

// ExistsByTransactionID reports whether the provider transaction already
// settled a booking.
func (r *GormPaymentRepository) ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error) {
	var count int64
	if err := database.Conn(ctx, r.db).Model(&PaymentModel{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check payment transaction: %w", err)
	}
	return count > 0, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	"github.com/rentx-marketplace/service-rental/internal/platform/database"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CustomerID         uuid.UUID  `gorm:"type:uuid;index;not null"`
	VehicleID          uuid.UUID  `gorm:"type:uuid;index;not null"`
	OwnerID            uuid.UUID  `gorm:"type:uuid;index;not null"`
	StartDate          time.Time  `gorm:"not null"`
	EndDate            time.Time  `gorm:"not null"`
	PickupLocation     string     `gorm:"not null;size:500"`
	ReturnLocation     string     `gorm:"not null;size:500"`
	NumberOfDays       int        `gorm:"not null"`
	PricePerDayCents   int64      `gorm:"not null"`
	TotalAmountCents   int64      `gorm:"not null"`
	Currency           string     `gorm:"not null;size:3;default:'INR'"`
	Status             string     `gorm:"not null;size:20;index"`
	PaymentStatus      string     `gorm:"not null;size:20"`
	InvoiceNumber      *string    `gorm:"uniqueIndex;size:40"`
	InvoiceGeneratedAt *time.Time `gorm:""`
	BookedAt           time.Time  `gorm:"not null"`
	CompletedAt        *time.Time `gorm:""`
	CancelledAt        *time.Time `gorm:""`
	Version            int64      `gorm:"not null;default:1"`
	CreatedAt          time.Time  `gorm:"not null"`
	UpdatedAt          time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByCustomerID retrieves bookings placed by a customer with pagination.
func (r *GormBookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, "customer_id = ?", customerID, page, limit)
}

// FindByOwnerID retrieves bookings against an owner's vehicles with pagination.
func (r *GormBookingRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, "owner_id = ?", ownerID, page, limit)
}

func (r *GormBookingRepository) findPage(ctx context.Context, where string, id uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := database.Conn(ctx, r.db).Model(&BookingModel{}).Where(where, id).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := database.Conn(ctx, r.db).
		Where(where, id).
		Order("booked_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}

	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status for one owner.
func (r *GormBookingRepository) CountByStatus(ctx context.Context, ownerID uuid.UUID) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := database.Conn(ctx, r.db).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Where("owner_id = ?", ownerID).
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := database.Conn(ctx, r.db).Create(toBookingModel(bk)).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	// IncrementVersion was called before Update, so the stored row is one behind.
	expectedVersion := bk.Version() - 1
	result := database.Conn(ctx, r.db).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]any{
			"status":         model.Status,
			"payment_status": model.PaymentStatus,
			"completed_at":   model.CompletedAt,
			"cancelled_at":   model.CancelledAt,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// AssignInvoiceNumber stores number only while the column is still empty.
// The write is conditional so two concurrent callers cannot both assign.
// Inside a caller's transaction it runs under a savepoint, so a number held
// by another booking leaves that transaction usable for a retry.
func (r *GormBookingRepository) AssignInvoiceNumber(ctx context.Context, id uuid.UUID, number string, at time.Time) (bool, error) {
	var assigned bool
	err := database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&BookingModel{}).
			Where("id = ? AND invoice_number IS NULL", id).
			Updates(map[string]any{
				"invoice_number":       number,
				"invoice_generated_at": at.UTC(),
				"updated_at":           time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		assigned = result.RowsAffected == 1
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, bookingDomain.ErrInvoiceNumberTaken
		}
		return false, fmt.Errorf("failed to assign invoice number: %w", err)
	}
	return assigned, nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
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

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}
	paymentStatus, err := bookingDomain.ParsePaymentStatus(m.PaymentStatus)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.CustomerID,
		m.VehicleID,
		m.OwnerID,
		bookingDomain.RentalTerms{
			StartDate:      m.StartDate,
			EndDate:        m.EndDate,
			PickupLocation: m.PickupLocation,
			ReturnLocation: m.ReturnLocation,
		},
		m.NumberOfDays,
		m.PricePerDayCents,
		m.TotalAmountCents,
		m.Currency,
		status,
		paymentStatus,
		m.InvoiceNumber,
		m.InvoiceGeneratedAt,
		m.BookedAt,
		m.CompletedAt,
		m.CancelledAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

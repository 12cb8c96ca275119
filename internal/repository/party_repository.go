package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentx-marketplace/service-rental/internal/domain/party"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/database"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// UserModel maps the users table owned by the identity service. Only the
// contact fields and the role are read or written here.
type UserModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName  string    `gorm:"size:200"`
	Username  string    `gorm:"uniqueIndex;size:100"`
	Email     string    `gorm:"uniqueIndex;size:200"`
	Phone     string    `gorm:"size:30"`
	Role      string    `gorm:"not null;size:20;default:'customer'"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (UserModel) TableName() string {
	return "users"
}

// OwnerProfileModel is the GORM model for the owner_profiles table.
type OwnerProfileModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	StoreName   string    `gorm:"uniqueIndex;not null;size:200"`
	Address     string    `gorm:"not null;size:500"`
	GSTNumber   string    `gorm:"column:gst_number;not null;size:20"`
	Email       string    `gorm:"size:200"`
	Phone       string    `gorm:"size:30"`
	NotifyEmail bool      `gorm:"not null;default:true"`
	NotifySMS   bool      `gorm:"column:notify_sms;not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (OwnerProfileModel) TableName() string {
	return "owner_profiles"
}

// GormCustomerRepository reads user contact cards.
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository.
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID retrieves a customer's contact card.
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*party.Customer, error) {
	var m UserModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("User", id.String())
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &party.Customer{
		ID:       m.ID,
		FullName: m.FullName,
		Username: m.Username,
		Email:    m.Email,
		Phone:    m.Phone,
	}, nil
}

// GormOwnerRepository is the GORM-based implementation of OwnerRepository.
type GormOwnerRepository struct {
	db *gorm.DB
}

// NewGormOwnerRepository creates a new GormOwnerRepository.
func NewGormOwnerRepository(db *gorm.DB) *GormOwnerRepository {
	return &GormOwnerRepository{db: db}
}

// FindByID retrieves an owner profile by its ID.
func (r *GormOwnerRepository) FindByID(ctx context.Context, id uuid.UUID) (*party.OwnerProfile, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByUserID retrieves the owner profile of a user.
func (r *GormOwnerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*party.OwnerProfile, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

func (r *GormOwnerRepository) findOne(ctx context.Context, where string, id uuid.UUID) (*party.OwnerProfile, error) {
	var m OwnerProfileModel
	if err := database.Conn(ctx, r.db).Where(where, id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Owner profile", id.String())
		}
		return nil, fmt.Errorf("failed to find owner profile: %w", err)
	}
	return party.ReconstructOwnerProfile(
		m.ID, m.UserID,
		m.StoreName, m.Address, m.GSTNumber, m.Email, m.Phone,
		party.NotificationPreferences{Email: m.NotifyEmail, SMS: m.NotifySMS},
		m.CreatedAt,
	), nil
}

// ExistsByStoreName reports whether a store name is taken.
func (r *GormOwnerRepository) ExistsByStoreName(ctx context.Context, storeName string) (bool, error) {
	var count int64
	if err := database.Conn(ctx, r.db).Model(&OwnerProfileModel{}).
		Where("LOWER(store_name) = LOWER(?)", storeName).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check store name: %w", err)
	}
	return count > 0, nil
}

// Save stores the profile and promotes the user to the owner role.
func (r *GormOwnerRepository) Save(ctx context.Context, o *party.OwnerProfile) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		model := &OwnerProfileModel{
			ID:          o.ID(),
			UserID:      o.UserID(),
			StoreName:   o.StoreName(),
			Address:     o.Address(),
			GSTNumber:   o.GSTNumber(),
			Email:       o.Email(),
			Phone:       o.Phone(),
			NotifyEmail: o.Preferences().Email,
			NotifySMS:   o.Preferences().SMS,
			CreatedAt:   o.CreatedAt(),
		}
		if err := tx.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.NewConflictError("user already has an owner profile or store name is taken")
			}
			return fmt.Errorf("failed to save owner profile: %w", err)
		}
		if err := tx.Model(&UserModel{}).
			Where("id = ?", o.UserID()).
			Updates(map[string]any{
				"role":       string(auth.RoleOwner),
				"updated_at": time.Now().UTC(),
			}).Error; err != nil {
			return fmt.Errorf("failed to promote user: %w", err)
		}
		return nil
	})
}

// UpdatePreferences stores the owner's notification preferences.
func (r *GormOwnerRepository) UpdatePreferences(ctx context.Context, o *party.OwnerProfile) error {
	result := database.Conn(ctx, r.db).Model(&OwnerProfileModel{}).
		Where("id = ?", o.ID()).
		Updates(map[string]any{
			"notify_email": o.Preferences().Email,
			"notify_sms":   o.Preferences().SMS,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update preferences: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Owner profile", o.ID().String())
	}
	return nil
}

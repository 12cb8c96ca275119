package party

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// Customer is the contact card of a user account. Accounts are created by
// the identity service; this service only reads them.
type Customer struct {
	ID       uuid.UUID
	FullName string
	Username string
	Email    string
	Phone    string
}

// DisplayName prefers the full name over the username.
func (c Customer) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return c.Username
}

// NotificationPreferences controls which channels an owner is contacted on.
type NotificationPreferences struct {
	Email bool
	SMS   bool
}

// OwnerProfile is the store a user runs on the marketplace.
type OwnerProfile struct {
	id          uuid.UUID
	userID      uuid.UUID
	storeName   string
	address     string
	gstNumber   string
	email       string
	phone       string
	preferences NotificationPreferences
	createdAt   time.Time
}

// NewOwnerProfile registers a store for userID.
func NewOwnerProfile(userID uuid.UUID, storeName, address, gstNumber, email, phone string) (*OwnerProfile, error) {
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user ID is required")
	}
	storeName = strings.TrimSpace(storeName)
	address = strings.TrimSpace(address)
	gstNumber = strings.ToUpper(strings.TrimSpace(gstNumber))
	if storeName == "" || address == "" || gstNumber == "" {
		return nil, domain.NewValidationError("store name, address and GST number are required")
	}
	return &OwnerProfile{
		id:          uuid.New(),
		userID:      userID,
		storeName:   storeName,
		address:     address,
		gstNumber:   gstNumber,
		email:       strings.TrimSpace(email),
		phone:       strings.TrimSpace(phone),
		preferences: NotificationPreferences{Email: true, SMS: true},
		createdAt:   time.Now().UTC(),
	}, nil
}

// ReconstructOwnerProfile rebuilds an OwnerProfile from persistence data.
func ReconstructOwnerProfile(
	id, userID uuid.UUID,
	storeName, address, gstNumber, email, phone string,
	prefs NotificationPreferences,
	createdAt time.Time,
) *OwnerProfile {
	return &OwnerProfile{
		id:          id,
		userID:      userID,
		storeName:   storeName,
		address:     address,
		gstNumber:   gstNumber,
		email:       email,
		phone:       phone,
		preferences: prefs,
		createdAt:   createdAt,
	}
}

func (o *OwnerProfile) ID() uuid.UUID                        { return o.id }
func (o *OwnerProfile) UserID() uuid.UUID                    { return o.userID }
func (o *OwnerProfile) StoreName() string                    { return o.storeName }
func (o *OwnerProfile) Address() string                      { return o.address }
func (o *OwnerProfile) GSTNumber() string                    { return o.gstNumber }
func (o *OwnerProfile) Email() string                        { return o.email }
func (o *OwnerProfile) Phone() string                        { return o.phone }
func (o *OwnerProfile) Preferences() NotificationPreferences { return o.preferences }
func (o *OwnerProfile) CreatedAt() time.Time                 { return o.createdAt }

// SetPreferences replaces the notification preferences.
func (o *OwnerProfile) SetPreferences(p NotificationPreferences) { o.preferences = p }

// CustomerRepository reads user contact cards.
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
}

// OwnerRepository persists owner profiles.
type OwnerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OwnerProfile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*OwnerProfile, error)
	ExistsByStoreName(ctx context.Context, storeName string) (bool, error)
	// Save stores the profile and promotes the user to the owner role.
	Save(ctx context.Context, o *OwnerProfile) error
	UpdatePreferences(ctx context.Context, o *OwnerProfile) error
}

package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rentx-marketplace/service-rental/internal/domain/party"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// RegisterOwnerRequest opens a store for the calling user.
type RegisterOwnerRequest struct {
	StoreName string `json:"store_name" binding:"required"`
	Address   string `json:"address" binding:"required"`
	GSTNumber string `json:"gst_number" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone"`
}

// UpdatePreferencesRequest toggles owner notification channels.
type UpdatePreferencesRequest struct {
	NotifyEmail *bool `json:"notify_email"`
	NotifySMS   *bool `json:"notify_sms"`
}

// OwnerDTO is the API response representation of an owner profile.
type OwnerDTO struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	StoreName   string    `json:"store_name"`
	Address     string    `json:"address"`
	GSTNumber   string    `json:"gst_number"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	NotifyEmail bool      `json:"notify_email"`
	NotifySMS   bool      `json:"notify_sms"`
	CreatedAt   time.Time `json:"created_at"`
}

// OwnerService implements owner profile use cases.
type OwnerService struct {
	repo   party.OwnerRepository
	logger *zap.Logger
}

// NewOwnerService creates a new OwnerService.
func NewOwnerService(repo party.OwnerRepository, logger *zap.Logger) *OwnerService {
	return &OwnerService{repo: repo, logger: logger}
}

// Register creates an owner profile for the principal and promotes the user
// to the owner role. The returned principal carries the new profile.
func (s *OwnerService) Register(ctx context.Context, principal auth.Principal, req RegisterOwnerRequest) (*OwnerDTO, auth.Principal, error) {
	if principal.OwnerProfileID != nil {
		return nil, principal, domain.NewConflictError("user already has an owner profile")
	}
	if _, err := s.repo.FindByUserID(ctx, principal.UserID); err == nil {
		return nil, principal, domain.NewConflictError("user already has an owner profile")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, principal, err
	}

	taken, err := s.repo.ExistsByStoreName(ctx, req.StoreName)
	if err != nil {
		return nil, principal, err
	}
	if taken {
		return nil, principal, domain.NewConflictError("store name is already taken")
	}

	profile, err := party.NewOwnerProfile(principal.UserID, req.StoreName, req.Address, req.GSTNumber, req.Email, req.Phone)
	if err != nil {
		return nil, principal, err
	}
	if err := s.repo.Save(ctx, profile); err != nil {
		return nil, principal, err
	}

	s.logger.Info("owner registered",
		zap.String("user_id", principal.UserID.String()),
		zap.String("owner_id", profile.ID().String()),
	)

	ownerID := profile.ID()
	upgraded := auth.Principal{UserID: principal.UserID, Role: auth.RoleOwner, OwnerProfileID: &ownerID}
	dto := toOwnerDTO(profile)
	return &dto, upgraded, nil
}

// GetMine returns the principal's owner profile.
func (s *OwnerService) GetMine(ctx context.Context, principal auth.Principal) (*OwnerDTO, error) {
	profile, err := s.repo.FindByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	dto := toOwnerDTO(profile)
	return &dto, nil
}

// UpdatePreferences changes which channels the owner is notified on.
func (s *OwnerService) UpdatePreferences(ctx context.Context, principal auth.Principal, req UpdatePreferencesRequest) (*OwnerDTO, error) {
	profile, err := s.repo.FindByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	prefs := profile.Preferences()
	if req.NotifyEmail != nil {
		prefs.Email = *req.NotifyEmail
	}
	if req.NotifySMS != nil {
		prefs.SMS = *req.NotifySMS
	}
	profile.SetPreferences(prefs)

	if err := s.repo.UpdatePreferences(ctx, profile); err != nil {
		return nil, err
	}
	dto := toOwnerDTO(profile)
	return &dto, nil
}

func toOwnerDTO(o *party.OwnerProfile) OwnerDTO {
	prefs := o.Preferences()
	return OwnerDTO{
		ID:          o.ID(),
		UserID:      o.UserID(),
		StoreName:   o.StoreName(),
		Address:     o.Address(),
		GSTNumber:   o.GSTNumber(),
		Email:       o.Email(),
		Phone:       o.Phone(),
		NotifyEmail: prefs.Email,
		NotifySMS:   prefs.SMS,
		CreatedAt:   o.CreatedAt(),
	}
}

package auth

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the closed set of account kinds a principal can hold.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
)

// ParseRole converts a claim value into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleOwner:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID         uuid.UUID
	Role           Role
	OwnerProfileID *uuid.UUID
}

// IsUser reports whether the principal is the given user.
func (p Principal) IsUser(userID uuid.UUID) bool {
	return p.UserID == userID
}

// OwnsProfile reports whether the principal acts for the given owner profile.
func (p Principal) OwnsProfile(ownerProfileID uuid.UUID) bool {
	switch p.Role {
	case RoleOwner:
		return p.OwnerProfileID != nil && *p.OwnerProfileID == ownerProfileID
	case RoleCustomer:
		return false
	default:
		return false
	}
}

// CanManageListings reports whether the principal may create or edit vehicles.
func (p Principal) CanManageListings() bool {
	switch p.Role {
	case RoleOwner:
		return p.OwnerProfileID != nil
	case RoleCustomer:
		return false
	default:
		return false
	}
}

// CanActOnBooking reports whether the principal is a party to a booking,
// either as the renting customer or as the owner of the rented vehicle.
func (p Principal) CanActOnBooking(customerID, ownerProfileID uuid.UUID) bool {
	return p.IsUser(customerID) || p.OwnsProfile(ownerProfileID)
}

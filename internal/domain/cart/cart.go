package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// Item is one cart line.
type Item struct {
	VehicleID uuid.UUID
	Quantity  int
}

// Cart is a customer's pending selection. It is advisory: checkout
// re-validates every vehicle and its stock.
type Cart struct {
	customerID uuid.UUID
	items      []Item
}

// New returns an empty cart.
func New(customerID uuid.UUID) *Cart {
	return &Cart{customerID: customerID}
}

// Reconstruct rebuilds a Cart from persistence data.
func Reconstruct(customerID uuid.UUID, items []Item) *Cart {
	return &Cart{customerID: customerID, items: items}
}

func (c *Cart) CustomerID() uuid.UUID { return c.customerID }

// Items returns a copy of the cart lines.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Add merges quantity into an existing line or appends a new one.
func (c *Cart) Add(vehicleID uuid.UUID, quantity int) error {
	if vehicleID == uuid.Nil {
		return domain.NewValidationError("vehicle ID is required")
	}
	if quantity < 1 {
		return domain.NewValidationError("quantity must be at least 1")
	}
	for i := range c.items {
		if c.items[i].VehicleID == vehicleID {
			c.items[i].Quantity += quantity
			return nil
		}
	}
	c.items = append(c.items, Item{VehicleID: vehicleID, Quantity: quantity})
	return nil
}

// SetQuantity replaces the quantity of an existing line.
func (c *Cart) SetQuantity(vehicleID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return domain.NewValidationError("quantity must be at least 1")
	}
	for i := range c.items {
		if c.items[i].VehicleID == vehicleID {
			c.items[i].Quantity = quantity
			return nil
		}
	}
	return domain.NewNotFoundError("Cart item", vehicleID.String())
}

// Remove drops a line; removing an absent line is not an error.
func (c *Cart) Remove(vehicleIDs ...uuid.UUID) {
	drop := make(map[uuid.UUID]struct{}, len(vehicleIDs))
	for _, id := range vehicleIDs {
		drop[id] = struct{}{}
	}
	kept := c.items[:0]
	for _, it := range c.items {
		if _, ok := drop[it.VehicleID]; !ok {
			kept = append(kept, it)
		}
	}
	c.items = kept
}

// CartRepository persists carts.
type CartRepository interface {
	// FindByCustomerID returns the customer's cart, or an empty cart.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*Cart, error)

	// Save replaces the stored lines with the cart's current lines.
	Save(ctx context.Context, c *Cart) error

	// RemoveVehicleFromAll drops a vehicle from every cart.
	RemoveVehicleFromAll(ctx context.Context, vehicleID uuid.UUID) error
}

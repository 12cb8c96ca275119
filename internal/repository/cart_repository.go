package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cartDomain "github.com/rentx-marketplace/service-rental/internal/domain/cart"
	"github.com/rentx-marketplace/service-rental/internal/platform/database"
)

// CartItemModel is the GORM model for the cart_items table.
type CartItemModel struct {
	CustomerID uuid.UUID `gorm:"type:uuid;primaryKey"`
	VehicleID  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Quantity   int       `gorm:"not null"`
	Position   int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (CartItemModel) TableName() string {
	return "cart_items"
}

// GormCartRepository is the GORM-based implementation of CartRepository.
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository.
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByCustomerID loads the customer's cart lines in insertion order.
func (r *GormCartRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*cartDomain.Cart, error) {
	var models []CartItemModel
	if err := database.Conn(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("position ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	items := make([]cartDomain.Item, len(models))
	for i, m := range models {
		items[i] = cartDomain.Item{VehicleID: m.VehicleID, Quantity: m.Quantity}
	}
	return cartDomain.Reconstruct(customerID, items), nil
}

// Save replaces the stored lines with the cart's current lines.
func (r *GormCartRepository) Save(ctx context.Context, c *cartDomain.Cart) error {
	db := database.Conn(ctx, r.db)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", c.CustomerID()).Delete(&CartItemModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		items := c.Items()
		if len(items) == 0 {
			return nil
		}
		now := time.Now().UTC()
		models := make([]CartItemModel, len(items))
		for i, it := range items {
			models[i] = CartItemModel{
				CustomerID: c.CustomerID(),
				VehicleID:  it.VehicleID,
				Quantity:   it.Quantity,
				Position:   i,
				CreatedAt:  now,
			}
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("failed to save cart: %w", err)
		}
		return nil
	})
}

// RemoveVehicleFromAll drops a vehicle from every cart.
func (r *GormCartRepository) RemoveVehicleFromAll(ctx context.Context, vehicleID uuid.UUID) error {
	if err := database.Conn(ctx, r.db).Where("vehicle_id = ?", vehicleID).Delete(&CartItemModel{}).Error; err != nil {
		return fmt.Errorf("failed to remove vehicle from carts: %w", err)
	}
	return nil
}

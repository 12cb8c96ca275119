package vehicle

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// Vehicle is the aggregate root for a rentable vehicle listing. Its stock is
// the number of units currently available to rent.
type Vehicle struct {
	id               uuid.UUID
	ownerID          uuid.UUID
	name             string
	description      string
	priceUSD         decimal.Decimal
	pricePerDayCents int64
	stock            int
	version          int64
	createdAt        time.Time
	updatedAt        time.Time
}

// NewVehicle creates a listing. The daily price is entered in USD and
// converted into the settlement currency with conv.
func NewVehicle(
	ownerID uuid.UUID,
	name, description string,
	priceUSD decimal.Decimal,
	stock int,
	conv *CurrencyConverter,
) (*Vehicle, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("vehicle name is required")
	}
	if priceUSD.IsNegative() || priceUSD.IsZero() {
		return nil, domain.NewValidationError("price must be positive")
	}
	if stock < 0 {
		return nil, domain.NewValidationError("stock cannot be negative")
	}

	now := time.Now().UTC()
	return &Vehicle{
		id:               uuid.New(),
		ownerID:          ownerID,
		name:             name,
		description:      strings.TrimSpace(description),
		priceUSD:         priceUSD,
		pricePerDayCents: conv.USDToMinorINR(priceUSD),
		stock:            stock,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// Reconstruct rebuilds a Vehicle from persistence data (no validation).
func Reconstruct(
	id, ownerID uuid.UUID,
	name, description string,
	priceUSD decimal.Decimal,
	pricePerDayCents int64,
	stock int,
	version int64,
	createdAt, updatedAt time.Time,
) *Vehicle {
	return &Vehicle{
		id:               id,
		ownerID:          ownerID,
		name:             name,
		description:      description,
		priceUSD:         priceUSD,
		pricePerDayCents: pricePerDayCents,
		stock:            stock,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func (v *Vehicle) ID() uuid.UUID             { return v.id }
func (v *Vehicle) OwnerID() uuid.UUID        { return v.ownerID }
func (v *Vehicle) Name() string              { return v.name }
func (v *Vehicle) Description() string       { return v.description }
func (v *Vehicle) PriceUSD() decimal.Decimal { return v.priceUSD }

// PricePerDayCents is the daily rate in paise.
func (v *Vehicle) PricePerDayCents() int64 { return v.pricePerDayCents }
func (v *Vehicle) Stock() int              { return v.stock }
func (v *Vehicle) Version() int64          { return v.version }
func (v *Vehicle) CreatedAt() time.Time    { return v.createdAt }
func (v *Vehicle) UpdatedAt() time.Time    { return v.updatedAt }

// IsOwnedBy reports whether the listing belongs to the owner profile.
func (v *Vehicle) IsOwnedBy(ownerID uuid.UUID) bool {
	return v.ownerID == ownerID
}

// IsAvailable reports whether at least one unit can be reserved.
func (v *Vehicle) IsAvailable() bool { return v.stock > 0 }

// Reserve takes one unit out of stock.
func (v *Vehicle) Reserve() error {
	if v.stock <= 0 {
		return domain.NewOutOfStockError(v.id.String())
	}
	v.stock--
	v.touch()
	return nil
}

// Release returns one unit to stock.
func (v *Vehicle) Release() {
	v.stock++
	v.touch()
}

// UpdateDetails applies a partial update. Nil fields are left unchanged.
func (v *Vehicle) UpdateDetails(
	name, description *string,
	priceUSD *decimal.Decimal,
	stock *int,
	conv *CurrencyConverter,
) error {
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return domain.NewValidationError("vehicle name cannot be empty")
		}
		v.name = n
	}
	if description != nil {
		v.description = strings.TrimSpace(*description)
	}
	if priceUSD != nil {
		if !priceUSD.IsPositive() {
			return domain.NewValidationError("price must be positive")
		}
		v.priceUSD = *priceUSD
		v.pricePerDayCents = conv.USDToMinorINR(*priceUSD)
	}
	if stock != nil {
		if *stock < 0 {
			return domain.NewValidationError("stock cannot be negative")
		}
		v.stock = *stock
	}
	v.touch()
	return nil
}

func (v *Vehicle) touch() {
	v.version++
	v.updatedAt = time.Now().UTC()
}

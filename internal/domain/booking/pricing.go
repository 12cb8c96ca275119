package booking

import (
	"time"

	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

const day = 24 * time.Hour

// PricingStrategy defines the interface for calculating booking prices.
type PricingStrategy interface {
	// Calculate returns the rental quote for the given parameters.
	Calculate(params PricingParams) (Quote, error)
}

// PricingParams holds the inputs for price calculation.
type PricingParams struct {
	StartDate        time.Time
	EndDate          time.Time
	PricePerDayCents int64
}

// Quote is the priced result for a rental window.
type Quote struct {
	NumberOfDays     int
	PricePerDayCents int64
	TotalCents       int64
}

// DailyRatePricingStrategy charges the vehicle's daily rate for every started day.
type DailyRatePricingStrategy struct{}

// NewDailyRatePricingStrategy creates a new DailyRatePricingStrategy.
func NewDailyRatePricingStrategy() *DailyRatePricingStrategy {
	return &DailyRatePricingStrategy{}
}

// Calculate computes the quote. Partial days round up, so a rental from
// day 0 00:00 to day 1 12:00 is two days.
func (s *DailyRatePricingStrategy) Calculate(params PricingParams) (Quote, error) {
	if params.StartDate.IsZero() || params.EndDate.IsZero() {
		return Quote{}, domain.NewInvalidDateRangeError("start and end dates are required")
	}
	if !params.EndDate.After(params.StartDate) {
		return Quote{}, domain.NewInvalidDateRangeError("end date must be after start date")
	}
	if params.PricePerDayCents <= 0 {
		return Quote{}, domain.NewValidationError("price per day must be positive")
	}

	days := int((params.EndDate.Sub(params.StartDate) + day - 1) / day)

	return Quote{
		NumberOfDays:     days,
		PricePerDayCents: params.PricePerDayCents,
		TotalCents:       int64(days) * params.PricePerDayCents,
	}, nil
}

package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

func TestCreateBooking_ReservesStock(t *testing.T) {
	f := newFixture()
	v := f.addVehicle(1)

	dto, err := f.createBooking(v.ID())
	require.NoError(t, err)

	assert.Equal(t, string(bookingDomain.StatusPending), dto.Status)
	assert.Equal(t, string(bookingDomain.PaymentPending), dto.PaymentStatus)
	assert.Equal(t, 3, dto.NumberOfDays)
	assert.Equal(t, int64(83000), dto.PricePerDayCents)
	assert.Equal(t, int64(3*83000), dto.TotalAmountCents)
	assert.Equal(t, domain.CurrencyINR, dto.Currency)
	assert.Equal(t, 0, f.vehicles.stock(v.ID()))
	assert.Equal(t, []string{bookingDomain.EventBookingCreated}, f.publisher.types())
}

func TestCreateBooking_LastUnitTakenFails(t *testing.T) {
	f := newFixture()
	v := f.addVehicle(1)

	_, err := f.createBooking(v.ID())
	require.NoError(t, err)

	_, err = f.createBooking(v.ID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVehicleUnavailable))
	assert.True(t, errors.Is(err, domain.ErrOutOfStock))
	assert.Equal(t, 0, f.vehicles.stock(v.ID()))
	assert.Len(t, f.bookings.all(), 1)
}

func TestCreateBooking_Rejections(t *testing.T) {
	t.Run("unknown vehicle", func(t *testing.T) {
		f := newFixture()
		_, err := f.createBooking(uuid.New())
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("owner books own vehicle", func(t *testing.T) {
		f := newFixture()
		v := f.addVehicle(2)
		start, end := rentalWindow(1)
		_, err := f.bookingSvc.CreateBooking(context.Background(), f.owner, CreateBookingRequest{
			VehicleID: v.ID(), StartDate: start, EndDate: end, PickupLocation: "A", ReturnLocation: "B",
		})
		assert.True(t, errors.Is(err, domain.ErrSelfBookingForbidden))
		assert.Equal(t, 2, f.vehicles.stock(v.ID()))
	})

	t.Run("end before start", func(t *testing.T) {
		f := newFixture()
		v := f.addVehicle(2)
		start, end := rentalWindow(1)
		_, err := f.bookingSvc.CreateBooking(context.Background(), f.customer, CreateBookingRequest{
			VehicleID: v.ID(), StartDate: end, EndDate: start, PickupLocation: "A", ReturnLocation: "B",
		})
		assert.True(t, errors.Is(err, domain.ErrInvalidDateRange))
		assert.Equal(t, 2, f.vehicles.stock(v.ID()))
	})
}

func TestUpdateStatus_CompletedReleasesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.addVehicle(1)
	bk, err := f.createBooking(v.ID())
	require.NoError(t, err)

	_, err = f.bookingSvc.UpdateStatus(ctx, f.owner, bk.ID, "Confirmed")
	require.NoError(t, err)
	assert.Equal(t, 0, f.vehicles.stock(v.ID()))

	done, err := f.bookingSvc.UpdateStatus(ctx, f.owner, bk.ID, "Completed")
	require.NoError(t, err)
	assert.Equal(t, "Completed", done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, 1, f.vehicles.stock(v.ID()))

	again, err := f.bookingSvc.UpdateStatus(ctx, f.owner, bk.ID, "Completed")
	require.NoError(t, err)
	assert.Equal(t, "Completed", again.Status)
	assert.Equal(t, 1, f.vehicles.stock(v.ID()))
	assert.Equal(t, 1, f.vehicles.releaseCount(v.ID()))
}

func TestUpdateStatus_Rules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.addVehicle(3)
	bk, err := f.createBooking(v.ID())
	require.NoError(t, err)

	_, err = f.bookingSvc.UpdateStatus(ctx, f.customer, bk.ID, "Confirmed")
	assert.True(t, errors.Is(err, domain.ErrForbidden), "customer cannot drive the state machine")

	_, err = f.bookingSvc.UpdateStatus(ctx, f.owner, bk.ID, "Returned")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.bookingSvc.UpdateStatus(ctx, f.owner, bk.ID, "Ongoing")
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	_, err = f.bookingSvc.UpdateStatus(ctx, f.owner, uuid.New(), "Confirmed")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateStatus_TerminalIsFinal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.addVehicle(1)
	bk, err := f.createBooking(v.ID())
	require.NoError(t, err)

	_, err = f.bookingSvc.UpdateStatus(ctx, f.owner, bk.ID, "Cancelled")
	require.NoError(t, err)
	assert.Equal(t, 1, f.vehicles.stock(v.ID()))

	for _, target := range []string{"Pending", "Confirmed", "Ongoing", "Completed"} {
		_, err := f.bookingSvc.UpdateStatus(ctx, f.owner, bk.ID, target)
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition), target)
	}
	assert.Equal(t, 1, f.vehicles.stock(v.ID()))
	assert.Equal(t, 1, f.vehicles.releaseCount(v.ID()))
}

func TestCancelBooking_ReleasesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.addVehicle(1)
	bk, err := f.createBooking(v.ID())
	require.NoError(t, err)

	cancelled, err := f.bookingSvc.CancelBooking(ctx, f.customer, bk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cancelled", cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 1, f.vehicles.stock(v.ID()))

	_, err = f.bookingSvc.CancelBooking(ctx, f.customer, bk.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Equal(t, 1, f.vehicles.stock(v.ID()))
	assert.Equal(t, 1, f.vehicles.releaseCount(v.ID()))

	assert.Equal(t, []string{bookingDomain.EventBookingCreated, bookingDomain.EventBookingCancelled}, f.publisher.types())
}

func TestCancelBooking_Authorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.addVehicle(2)
	bk, err := f.createBooking(v.ID())
	require.NoError(t, err)

	stranger := f.customer
	stranger.UserID = uuid.New()
	_, err = f.bookingSvc.CancelBooking(ctx, stranger, bk.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.bookingSvc.CancelBooking(ctx, f.owner, bk.ID)
	require.NoError(t, err)
}

func TestCancelBooking_NotAfterRentalStarted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.addVehicle(1)
	bk, err := f.createBooking(v.ID())
	require.NoError(t, err)

	for _, s := range []string{"Confirmed", "Ongoing"} {
		_, err = f.bookingSvc.UpdateStatus(ctx, f.owner, bk.ID, s)
		require.NoError(t, err)
	}

	_, err = f.bookingSvc.CancelBooking(ctx, f.customer, bk.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Equal(t, 0, f.vehicles.stock(v.ID()))
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture()
	f.publisher.err = errBoom
	v := f.addVehicle(1)

	_, err := f.createBooking(v.ID())
	require.NoError(t, err)
	assert.Len(t, f.bookings.all(), 1)
}

func TestBookingReads(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v := f.addVehicle(5)
	first, err := f.createBooking(v.ID())
	require.NoError(t, err)
	_, err = f.createBooking(v.ID())
	require.NoError(t, err)
	_, err = f.bookingSvc.CancelBooking(ctx, f.customer, first.ID)
	require.NoError(t, err)

	got, err := f.bookingSvc.GetBooking(ctx, f.owner, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	mine, err := f.bookingSvc.ListCustomerBookings(ctx, f.customer, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)

	owned, err := f.bookingSvc.ListOwnerBookings(ctx, f.owner, 1, 20)
	require.NoError(t, err)
	assert.Len(t, owned.Items, 2)

	_, err = f.bookingSvc.ListOwnerBookings(ctx, f.customer, 1, 20)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	stats, err := f.bookingSvc.GetOwnerStats(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBookings)
	assert.Equal(t, int64(1), stats.ByStatus["Cancelled"])
	assert.Equal(t, int64(1), stats.ByStatus["Pending"])
}

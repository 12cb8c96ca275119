package application

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	"github.com/rentx-marketplace/service-rental/internal/domain/party"
	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
	"github.com/rentx-marketplace/service-rental/internal/metrics"
	"github.com/rentx-marketplace/service-rental/internal/notification"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

const (
	channelEmail = "email"
	channelSMS   = "sms"

	maxParallelSends = 4
)

// NotificationService tells customers and owners about booking lifecycle
// events. Delivery failures are logged and counted, never returned.
type NotificationService struct {
	bookings    bookingDomain.BookingRepository
	vehicles    vehicleDomain.VehicleRepository
	customers   party.CustomerRepository
	owners      party.OwnerRepository
	invoices    *InvoiceService
	email       notification.EmailSender
	sms         notification.SMSSender
	frontendURL string
	logger      *zap.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	bookings bookingDomain.BookingRepository,
	vehicles vehicleDomain.VehicleRepository,
	customers party.CustomerRepository,
	owners party.OwnerRepository,
	invoices *InvoiceService,
	email notification.EmailSender,
	sms notification.SMSSender,
	frontendURL string,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		bookings:    bookings,
		vehicles:    vehicles,
		customers:   customers,
		owners:      owners,
		invoices:    invoices,
		email:       email,
		sms:         sms,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// delivery is one message to one recipient on the channels they accept.
type delivery struct {
	recipient string
	name      string
	emailTo   string
	smsTo     string
	message   notification.Message
	attach    []notification.Attachment
}

// HandleBookingEvent sends the notifications for one booking event. It
// returns an error only when the booking itself cannot be read for a reason
// other than absence, so the event can be retried.
func (s *NotificationService) HandleBookingEvent(ctx context.Context, eventType string, evt bookingDomain.LifecycleEvent) error {
	bk, err := s.bookings.FindByID(ctx, evt.BookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("booking for event not found, skipping notification",
				zap.String("booking_id", evt.BookingID.String()),
				zap.String("event_type", eventType),
			)
			return nil
		}
		return err
	}

	customer, owner := s.loadParties(ctx, bk)
	details := s.details(ctx, bk, customer, owner)

	var deliveries []delivery
	switch eventType {
	case bookingDomain.EventBookingCreated:
		deliveries = append(deliveries, s.toOwner(owner, notification.OwnerNewBooking(details)))
	case bookingDomain.EventBookingConfirmed:
		confirmed := s.toCustomer(customer, notification.CustomerBookingConfirmed(details))
		confirmed.attach = s.invoiceAttachment(ctx, bk)
		deliveries = append(deliveries,
			s.toOwner(owner, notification.OwnerNewBooking(details)),
			confirmed,
		)
	case bookingDomain.EventBookingStatusChanged:
		deliveries = append(deliveries, s.toCustomer(customer, notification.CustomerStatusUpdate(details)))
	case bookingDomain.EventBookingCancelled:
		byCustomer := evt.CancelledBy == bookingDomain.CancelledByCustomer
		deliveries = append(deliveries,
			s.toCustomer(customer, notification.CustomerCancellation(details, byCustomer)),
			s.toOwner(owner, notification.OwnerCancellation(details, byCustomer)),
		)
	default:
		s.logger.Debug("no notifications for event type", zap.String("event_type", eventType))
		return nil
	}

	s.dispatch(ctx, bk, deliveries)
	return nil
}

func (s *NotificationService) loadParties(ctx context.Context, bk *bookingDomain.Booking) (*party.Customer, *party.OwnerProfile) {
	customer, err := s.customers.FindByID(ctx, bk.CustomerID())
	if err != nil {
		s.logger.Warn("failed to load customer for notification",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
		customer = nil
	}
	owner, err := s.owners.FindByID(ctx, bk.OwnerID())
	if err != nil {
		s.logger.Warn("failed to load owner for notification",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
		owner = nil
	}
	return customer, owner
}

func (s *NotificationService) details(ctx context.Context, bk *bookingDomain.Booking, customer *party.Customer, owner *party.OwnerProfile) notification.Details {
	d := notification.Details{
		BookingID:        bk.ID(),
		VehicleName:      "your vehicle",
		StartDate:        bk.StartDate(),
		EndDate:          bk.EndDate(),
		NumberOfDays:     bk.NumberOfDays(),
		TotalAmountCents: bk.TotalAmountCents(),
		Currency:         bk.Currency(),
		PickupLocation:   bk.PickupLocation(),
		Status:           string(bk.Status()),
		PaymentStatus:    string(bk.PaymentStatus()),
		DashboardURL:     s.frontendURL,
	}
	if v, err := s.vehicles.FindByID(ctx, bk.VehicleID()); err == nil {
		d.VehicleName = v.Name()
	}
	if customer != nil {
		d.CustomerName = customer.DisplayName()
	}
	if owner != nil {
		d.StoreName = owner.StoreName()
	}
	return d
}

func (s *NotificationService) toCustomer(c *party.Customer, msg notification.Message) delivery {
	d := delivery{recipient: "customer", message: msg}
	if c != nil {
		d.name = c.DisplayName()
		d.emailTo = c.Email
		d.smsTo = c.Phone
	}
	return d
}

func (s *NotificationService) toOwner(o *party.OwnerProfile, msg notification.Message) delivery {
	d := delivery{recipient: "owner", message: msg}
	if o == nil {
		return d
	}
	d.name = o.StoreName()
	prefs := o.Preferences()
	if prefs.Email {
		d.emailTo = o.Email()
	}
	if prefs.SMS {
		d.smsTo = o.Phone()
	}
	return d
}

func (s *NotificationService) invoiceAttachment(ctx context.Context, bk *bookingDomain.Booking) []notification.Attachment {
	file, err := s.invoices.Render(ctx, bk)
	if err != nil {
		s.logger.Warn("sending confirmation without invoice",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
		return nil
	}
	return []notification.Attachment{{
		Filename:    file.Filename,
		ContentType: "application/pdf",
		Data:        file.Content,
	}}
}

// dispatch sends every delivery on every channel concurrently.
func (s *NotificationService) dispatch(ctx context.Context, bk *bookingDomain.Booking, deliveries []delivery) {
	var g errgroup.Group
	g.SetLimit(maxParallelSends)

	for _, d := range deliveries {
		if d.emailTo != "" {
			g.Go(func() error {
				err := s.email.SendEmail(ctx, notification.Email{
					To:          d.emailTo,
					ToName:      d.name,
					Subject:     d.message.Subject,
					Text:        d.message.Text,
					HTML:        d.message.HTML,
					Attachments: d.attach,
				})
				s.record(bk, d.recipient, channelEmail, err)
				return nil
			})
		}
		if d.smsTo != "" {
			g.Go(func() error {
				err := s.sms.SendSMS(ctx, d.smsTo, d.message.SMS)
				s.record(bk, d.recipient, channelSMS, err)
				return nil
			})
		}
	}
	_ = g.Wait()
}

func (s *NotificationService) record(bk *bookingDomain.Booking, recipient, channel string, err error) {
	if err != nil {
		metrics.NotificationFailures.WithLabelValues(channel).Inc()
		s.logger.Error("notification failed",
			zap.String("booking_id", bk.ID().String()),
			zap.String("recipient", recipient),
			zap.String("channel", channel),
			zap.Error(err),
		)
		return
	}
	metrics.NotificationsSent.WithLabelValues(channel).Inc()
}

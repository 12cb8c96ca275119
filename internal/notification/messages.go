package notification

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
)

const displayDate = "2 January 2006"

// Details is the booking data every message is built from.
type Details struct {
	BookingID        uuid.UUID
	VehicleName      string
	CustomerName     string
	StoreName        string
	StartDate        time.Time
	EndDate          time.Time
	NumberOfDays     int
	TotalAmountCents int64
	Currency         string
	PickupLocation   string
	Status           string
	PaymentStatus    string
	DashboardURL     string
}

// Message is the content for one recipient on both channels.
type Message struct {
	Subject string
	Text    string
	HTML    string
	SMS     string
}

// Reference is the short booking reference shown to people: the last eight
// hex characters of the ID, upper-cased.
func Reference(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "#" + strings.ToUpper(hex[len(hex)-8:])
}

func (d Details) amount() string {
	return d.Currency + " " + vehicle.MinorToMajor(d.TotalAmountCents)
}

// OwnerNewBooking tells the owner a vehicle was booked.
func OwnerNewBooking(d Details) Message {
	lines := []string{
		fmt.Sprintf("You have a new booking for %s.", d.VehicleName),
		"Booking ID: " + Reference(d.BookingID),
		"Customer: " + d.CustomerName,
		fmt.Sprintf("Rental: %s to %s (%d days)", d.StartDate.Format(displayDate), d.EndDate.Format(displayDate), d.NumberOfDays),
		"Amount: " + d.amount(),
		"Pickup location: " + d.PickupLocation,
		"Status: " + d.Status,
		"Payment: " + d.PaymentStatus,
		"Please log in to your RentX dashboard to review this booking: " + d.ownerDashboard(),
	}
	return build(
		fmt.Sprintf("New Booking for %s - RentX", d.VehicleName),
		lines,
		fmt.Sprintf("RentX Alert: New booking for %s! Customer: %s, Duration: %d days, Amount: %s. Login to dashboard: %s",
			d.VehicleName, d.CustomerName, d.NumberOfDays, d.amount(), d.ownerDashboard()),
	)
}

// CustomerBookingConfirmed tells the customer their paid booking is confirmed.
// The invoice travels as an email attachment.
func CustomerBookingConfirmed(d Details) Message {
	lines := []string{
		fmt.Sprintf("Hi %s,", d.CustomerName),
		fmt.Sprintf("Your booking for %s is confirmed.", d.VehicleName),
		"Booking ID: " + Reference(d.BookingID),
		fmt.Sprintf("Rental: %s to %s (%d days)", d.StartDate.Format(displayDate), d.EndDate.Format(displayDate), d.NumberOfDays),
		"Total: " + d.amount(),
		"Pickup location: " + d.PickupLocation,
		"Owner: " + d.StoreName,
		"Your invoice is attached.",
	}
	return build(
		fmt.Sprintf("Booking Confirmed - %s - RentX", d.VehicleName),
		lines,
		fmt.Sprintf("RentX: Booking Confirmed! %s from %s to %s. Total: %s. Pickup: %s. Owner: %s. Booking ID: %s. Invoice sent via email.",
			d.VehicleName, d.StartDate.Format(displayDate), d.EndDate.Format(displayDate), d.amount(),
			d.PickupLocation, d.StoreName, Reference(d.BookingID)),
	)
}

// CustomerStatusUpdate tells the customer the owner moved their booking.
func CustomerStatusUpdate(d Details) Message {
	note := statusNote(d.Status)
	lines := []string{
		fmt.Sprintf("Hi %s,", d.CustomerName),
		note + ".",
		"Booking ID: " + Reference(d.BookingID),
		"Vehicle: " + d.VehicleName,
		"New status: " + d.Status,
		"Rental start: " + d.StartDate.Format(displayDate),
	}
	return build(
		fmt.Sprintf("Booking Status Update: %s - %s - RentX", d.Status, d.VehicleName),
		lines,
		fmt.Sprintf("RentX: Booking status updated! %s - Status: %s. Booking ID: %s. %s",
			d.VehicleName, d.Status, Reference(d.BookingID), note),
	)
}

// CustomerCancellation tells the customer a booking was cancelled.
func CustomerCancellation(d Details, byCustomer bool) Message {
	note := "Your booking has been cancelled by the owner"
	cancelledBy := d.StoreName
	if byCustomer {
		note = "You have cancelled your booking"
		cancelledBy = "You"
	}
	lines := []string{
		fmt.Sprintf("Hi %s,", d.CustomerName),
		note + ". A refund will be processed if applicable.",
		"Booking ID: " + Reference(d.BookingID),
		"Vehicle: " + d.VehicleName,
		"Rental start: " + d.StartDate.Format(displayDate),
		"Amount: " + d.amount(),
		"Cancelled by: " + cancelledBy,
	}
	return build(
		fmt.Sprintf("Booking Cancelled - %s - RentX", d.VehicleName),
		lines,
		fmt.Sprintf("RentX: Booking Cancelled! %s - Booking ID: %s. %s. Refund will be processed if applicable.",
			d.VehicleName, Reference(d.BookingID), note),
	)
}

// OwnerCancellation tells the owner a booking on their vehicle was cancelled.
func OwnerCancellation(d Details, byCustomer bool) Message {
	note := "You have cancelled this booking."
	sms := fmt.Sprintf("RentX: You have cancelled the booking for %s. Customer: %s. Booking ID: %s. Vehicle is now available.",
		d.VehicleName, d.CustomerName, Reference(d.BookingID))
	if byCustomer {
		note = "A booking for your vehicle has been cancelled by the customer."
		sms = fmt.Sprintf("RentX: Booking cancelled by customer %s for %s. Booking ID: %s. Vehicle is now available.",
			d.CustomerName, d.VehicleName, Reference(d.BookingID))
	}
	lines := []string{
		note,
		"Booking ID: " + Reference(d.BookingID),
		"Vehicle: " + d.VehicleName,
		"Customer: " + d.CustomerName,
		"Rental start: " + d.StartDate.Format(displayDate),
		"The vehicle is available again.",
	}
	return build(fmt.Sprintf("Booking Cancelled - %s - RentX", d.VehicleName), lines, sms)
}

func statusNote(status string) string {
	switch status {
	case "Confirmed":
		return "Your booking has been confirmed by the owner"
	case "Ongoing":
		return "Your rental period has started"
	case "Completed":
		return "Your booking has been completed. Thank you!"
	case "Cancelled":
		return "Your booking has been cancelled"
	default:
		return "Your booking status has been updated"
	}
}

func (d Details) ownerDashboard() string {
	return strings.TrimRight(d.DashboardURL, "/") + "/owner-dashboard"
}

func build(subject string, lines []string, sms string) Message {
	var b strings.Builder
	b.WriteString("<div>")
	for _, l := range lines {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(l))
		b.WriteString("</p>")
	}
	b.WriteString("<p>This is an automated notification from RentX.</p></div>")
	return Message{
		Subject: subject,
		Text:    strings.Join(lines, "\n"),
		HTML:    b.String(),
		SMS:     sms,
	}
}

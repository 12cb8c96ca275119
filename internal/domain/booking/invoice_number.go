package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const invoicePrefix = "RENTX-INV"

// ErrInvoiceNumberTaken is returned when another booking already holds the
// generated number.
var ErrInvoiceNumberTaken = errors.New("invoice number already in use")

// InvoiceNumberGenerator produces invoice identifiers for bookings.
type InvoiceNumberGenerator interface {
	Generate(bookingID uuid.UUID, at time.Time) string
}

// TimestampInvoiceNumberer builds numbers of the form
// RENTX-INV-<last 6 digits of unix millis>-<last 4 chars of booking id>.
// Collisions are unlikely but possible. The unique index on the column
// reports them as ErrInvoiceNumberTaken.
type TimestampInvoiceNumberer struct{}

// NewTimestampInvoiceNumberer creates a new TimestampInvoiceNumberer.
func NewTimestampInvoiceNumberer() *TimestampInvoiceNumberer {
	return &TimestampInvoiceNumberer{}
}

// Generate returns an invoice number for bookingID at time at.
func (TimestampInvoiceNumberer) Generate(bookingID uuid.UUID, at time.Time) string {
	ms := at.UnixMilli() % 1_000_000
	id := strings.ReplaceAll(bookingID.String(), "-", "")
	suffix := strings.ToUpper(id[len(id)-4:])
	return fmt.Sprintf("%s-%06d-%s", invoicePrefix, ms, suffix)
}

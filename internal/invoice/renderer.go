package invoice

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"

	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	"github.com/rentx-marketplace/service-rental/internal/domain/party"
	paymentDomain "github.com/rentx-marketplace/service-rental/internal/domain/payment"
	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
)

const dateLayout = "02 Jan 2006"

// Input is everything printed on an invoice. Vehicle and Payment may be nil
// when the listing was deleted or the payment record is missing.
type Input struct {
	Booking  *bookingDomain.Booking
	Vehicle  *vehicleDomain.Vehicle
	Customer *party.Customer
	Owner    *party.OwnerProfile
	Payment  *paymentDomain.Payment
}

// Renderer turns invoice data into a document.
type Renderer interface {
	Render(in Input) ([]byte, error)
}

// PDFRenderer renders A4 invoices with fpdf. It has no side effects.
type PDFRenderer struct{}

// NewPDFRenderer creates a new PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render produces the PDF bytes for one booking.
func (PDFRenderer) Render(in Input) ([]byte, error) {
	if in.Booking == nil || in.Customer == nil || in.Owner == nil {
		return nil, errors.New("invoice requires booking, customer and owner")
	}
	bk := in.Booking
	number := "PENDING"
	if bk.InvoiceNumber() != nil {
		number = *bk.InvoiceNumber()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+number, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "RentX", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Tax Invoice", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
	}

	field("Invoice number", number)
	if at := bk.InvoiceGeneratedAt(); at != nil {
		field("Invoice date", at.Format(dateLayout))
	}
	field("Booking ID", bk.ID().String())
	field("Booked on", bk.BookedAt().Format(dateLayout))
	pdf.Ln(4)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
		pdf.Ln(1)
	}

	section("Billed to")
	field("Name", in.Customer.DisplayName())
	field("Email", in.Customer.Email)
	if in.Customer.Phone != "" {
		field("Phone", in.Customer.Phone)
	}
	pdf.Ln(3)

	section("Rented from")
	field("Store", in.Owner.StoreName())
	field("Address", in.Owner.Address())
	field("GSTIN", in.Owner.GSTNumber())
	pdf.Ln(3)

	section("Rental")
	vehicleName := "Vehicle no longer listed"
	if in.Vehicle != nil {
		vehicleName = in.Vehicle.Name()
	}
	field("Vehicle", vehicleName)
	field("Period", fmt.Sprintf("%s to %s", bk.StartDate().Format(dateLayout), bk.EndDate().Format(dateLayout)))
	field("Pickup", bk.PickupLocation())
	field("Return", bk.ReturnLocation())
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(90, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Days", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Rate/day", "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 8, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(90, 8, vehicleName, "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, fmt.Sprintf("%d", bk.NumberOfDays()), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, money(bk.Currency(), bk.PricePerDayCents()), "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, money(bk.Currency(), bk.TotalAmountCents()), "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(150, 9, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 9, money(bk.Currency(), bk.TotalAmountCents()), "1", 1, "R", false, 0, "")
	pdf.Ln(4)

	section("Payment")
	field("Status", string(bk.PaymentStatus()))
	if p := in.Payment; p != nil {
		field("Method", string(p.Method()))
		field("Transaction", p.TransactionID())
		field("Paid on", p.PaidAt().Format(dateLayout))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename returns the download name for an invoice number.
func Filename(invoiceNumber string) string {
	return invoiceNumber + ".pdf"
}

func money(currency string, minor int64) string {
	return currency + " " + vehicleDomain.MinorToMajor(minor)
}

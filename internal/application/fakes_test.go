package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	cartDomain "github.com/rentx-marketplace/service-rental/internal/domain/cart"
	"github.com/rentx-marketplace/service-rental/internal/domain/party"
	paymentDomain "github.com/rentx-marketplace/service-rental/internal/domain/payment"
	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
	"github.com/rentx-marketplace/service-rental/internal/invoice"
	"github.com/rentx-marketplace/service-rental/internal/notification"
	"github.com/rentx-marketplace/service-rental/internal/payment"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
	"github.com/rentx-marketplace/service-rental/internal/platform/kafka"
)

// --- Transactor ---

// memTx restores the in-memory stores when fn fails, the way a database
// rollback would.
type memTx struct {
	vehicles *memVehicles
	bookings *memBookings
	payments *memPayments
}

func (tx memTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	restore := tx.snapshot()
	if err := fn(ctx); err != nil {
		restore()
		return err
	}
	return nil
}

func (tx memTx) snapshot() func() {
	tx.vehicles.mu.Lock()
	vehicles := make(map[uuid.UUID]*vehicleDomain.Vehicle, len(tx.vehicles.vehicles))
	for id, v := range tx.vehicles.vehicles {
		cp := *v
		vehicles[id] = &cp
	}
	tx.vehicles.mu.Unlock()

	tx.bookings.mu.Lock()
	bookings := make(map[uuid.UUID]*bookingDomain.Booking, len(tx.bookings.bookings))
	for id, b := range tx.bookings.bookings {
		cp := *b
		bookings[id] = &cp
	}
	tx.bookings.mu.Unlock()

	tx.payments.mu.Lock()
	payments := make(map[uuid.UUID]*paymentDomain.Payment, len(tx.payments.payments))
	for id, p := range tx.payments.payments {
		payments[id] = p
	}
	tx.payments.mu.Unlock()

	return func() {
		tx.vehicles.mu.Lock()
		tx.vehicles.vehicles = vehicles
		tx.vehicles.mu.Unlock()
		tx.bookings.mu.Lock()
		tx.bookings.bookings = bookings
		tx.bookings.mu.Unlock()
		tx.payments.mu.Lock()
		tx.payments.payments = payments
		tx.payments.mu.Unlock()
	}
}

// --- Vehicles and ledger ---

type memVehicles struct {
	mu       sync.Mutex
	vehicles map[uuid.UUID]*vehicleDomain.Vehicle
	releases map[uuid.UUID]int
}

func newMemVehicles() *memVehicles {
	return &memVehicles{
		vehicles: make(map[uuid.UUID]*vehicleDomain.Vehicle),
		releases: make(map[uuid.UUID]int),
	}
}

func (m *memVehicles) FindByID(_ context.Context, id uuid.UUID) (*vehicleDomain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, domain.NewNotFoundError("Vehicle", id.String())
	}
	cp := *v
	return &cp, nil
}

func (m *memVehicles) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*vehicleDomain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*vehicleDomain.Vehicle
	for _, id := range ids {
		if v, ok := m.vehicles[id]; ok {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memVehicles) FindByOwnerID(_ context.Context, ownerID uuid.UUID, _, _ int) ([]*vehicleDomain.Vehicle, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*vehicleDomain.Vehicle
	for _, v := range m.vehicles {
		if v.OwnerID() == ownerID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memVehicles) List(_ context.Context, _, _ int) ([]*vehicleDomain.Vehicle, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*vehicleDomain.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		cp := *v
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (m *memVehicles) Save(_ context.Context, v *vehicleDomain.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.vehicles[v.ID()] = &cp
	return nil
}

func (m *memVehicles) Update(_ context.Context, v *vehicleDomain.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.vehicles[v.ID()]
	if !ok {
		return domain.NewNotFoundError("Vehicle", v.ID().String())
	}
	if stored.Version() != v.Version()-1 {
		return domain.NewConflictError("vehicle was modified concurrently")
	}
	cp := *v
	m.vehicles[v.ID()] = &cp
	return nil
}

func (m *memVehicles) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[id]; !ok {
		return domain.NewNotFoundError("Vehicle", id.String())
	}
	delete(m.vehicles, id)
	return nil
}

func (m *memVehicles) Reserve(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return domain.NewNotFoundError("Vehicle", id.String())
	}
	return v.Reserve()
}

func (m *memVehicles) Release(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases[id]++
	if v, ok := m.vehicles[id]; ok {
		v.Release()
	}
	return nil
}

func (m *memVehicles) stock(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vehicles[id].Stock()
}

func (m *memVehicles) releaseCount(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases[id]
}

// --- Bookings ---

type memBookings struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*bookingDomain.Booking
	// assignErr, when set, is returned by AssignInvoiceNumber.
	assignErr error
}

func newMemBookings() *memBookings {
	return &memBookings{bookings: make(map[uuid.UUID]*bookingDomain.Booking)}
}

func (m *memBookings) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) filter(keep func(*bookingDomain.Booking) bool) []*bookingDomain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range m.bookings {
		if keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt().After(out[j].BookedAt()) })
	return out
}

func (m *memBookings) FindByCustomerID(_ context.Context, customerID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	out := m.filter(func(b *bookingDomain.Booking) bool { return b.CustomerID() == customerID })
	return out, int64(len(out)), nil
}

func (m *memBookings) FindByOwnerID(_ context.Context, ownerID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	out := m.filter(func(b *bookingDomain.Booking) bool { return b.OwnerID() == ownerID })
	return out, int64(len(out)), nil
}

func (m *memBookings) CountByStatus(_ context.Context, ownerID uuid.UUID) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, b := range m.filter(func(b *bookingDomain.Booking) bool { return b.OwnerID() == ownerID }) {
		counts[string(b.Status())]++
	}
	return counts, nil
}

func (m *memBookings) Save(_ context.Context, b *bookingDomain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID()] = &cp
	return nil
}

func (m *memBookings) Update(_ context.Context, b *bookingDomain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.bookings[b.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", b.ID().String())
	}
	if stored.Version() != b.Version()-1 {
		return domain.NewConflictError("booking was modified concurrently")
	}
	cp := *b
	m.bookings[b.ID()] = &cp
	return nil
}

func (m *memBookings) AssignInvoiceNumber(_ context.Context, id uuid.UUID, number string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assignErr != nil {
		return false, m.assignErr
	}
	b, ok := m.bookings[id]
	if !ok {
		return false, domain.NewNotFoundError("Booking", id.String())
	}
	for otherID, other := range m.bookings {
		if otherID != id && other.HasInvoice() && *other.InvoiceNumber() == number {
			return false, bookingDomain.ErrInvoiceNumberTaken
		}
	}
	return b.AssignInvoiceNumber(number, at), nil
}

func (m *memBookings) all() []*bookingDomain.Booking {
	return m.filter(func(*bookingDomain.Booking) bool { return true })
}

// --- Payments ---

type memPayments struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*paymentDomain.Payment
	// saveErr, when set, is returned by Save.
	saveErr error
}

func newMemPayments() *memPayments {
	return &memPayments{payments: make(map[uuid.UUID]*paymentDomain.Payment)}
}

func (m *memPayments) Save(_ context.Context, p *paymentDomain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.payments[p.BookingID()]; ok {
		return domain.NewConflictError("booking already has a payment")
	}
	for _, existing := range m.payments {
		if existing.TransactionID() == p.TransactionID() && existing.VehicleID() == p.VehicleID() {
			return domain.NewPaymentAlreadyReconciledError(p.TransactionID())
		}
	}
	m.payments[p.BookingID()] = p
	return nil
}

func (m *memPayments) ExistsByTransactionID(_ context.Context, transactionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TransactionID() == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPayments) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*paymentDomain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[bookingID]
	if !ok {
		return nil, domain.NewNotFoundError("Payment for booking", bookingID.String())
	}
	return p, nil
}

// --- Carts ---

type memCarts struct {
	mu    sync.Mutex
	items map[uuid.UUID][]cartDomain.Item
}

func newMemCarts() *memCarts {
	return &memCarts{items: make(map[uuid.UUID][]cartDomain.Item)}
}

func (m *memCarts) FindByCustomerID(_ context.Context, customerID uuid.UUID) (*cartDomain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]cartDomain.Item(nil), m.items[customerID]...)
	return cartDomain.Reconstruct(customerID, items), nil
}

func (m *memCarts) Save(_ context.Context, c *cartDomain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.CustomerID()] = c.Items()
	return nil
}

func (m *memCarts) RemoveVehicleFromAll(_ context.Context, vehicleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for customerID, items := range m.items {
		kept := items[:0]
		for _, it := range items {
			if it.VehicleID != vehicleID {
				kept = append(kept, it)
			}
		}
		m.items[customerID] = kept
	}
	return nil
}

// --- Parties ---

type memCustomers struct {
	customers map[uuid.UUID]*party.Customer
}

func (m *memCustomers) FindByID(_ context.Context, id uuid.UUID) (*party.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, domain.NewNotFoundError("User", id.String())
	}
	return c, nil
}

type memOwners struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*party.OwnerProfile
}

func newMemOwners() *memOwners {
	return &memOwners{profiles: make(map[uuid.UUID]*party.OwnerProfile)}
}

func (m *memOwners) FindByID(_ context.Context, id uuid.UUID) (*party.OwnerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.profiles[id]
	if !ok {
		return nil, domain.NewNotFoundError("Owner profile", id.String())
	}
	return o, nil
}

func (m *memOwners) FindByUserID(_ context.Context, userID uuid.UUID) (*party.OwnerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.profiles {
		if o.UserID() == userID {
			return o, nil
		}
	}
	return nil, domain.NewNotFoundError("Owner profile for user", userID.String())
}

func (m *memOwners) ExistsByStoreName(_ context.Context, storeName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.profiles {
		if o.StoreName() == storeName {
			return true, nil
		}
	}
	return false, nil
}

func (m *memOwners) Save(_ context.Context, o *party.OwnerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[o.ID()] = o
	return nil
}

func (m *memOwners) UpdatePreferences(_ context.Context, o *party.OwnerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[o.ID()] = o
	return nil
}

// --- Events, guard, adapters ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, ce kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ce)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type memGuard struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newMemGuard() *memGuard { return &memGuard{held: make(map[string]bool)} }

func (g *memGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.held[key] {
		return false, nil
	}
	g.held[key] = true
	return true, nil
}

func (g *memGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	return nil
}

type stubRenderer struct {
	err   error
	calls int
}

func (r *stubRenderer) Render(in invoice.Input) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.3 " + *in.Booking.InvoiceNumber()), nil
}

// sequenceNumberer hands out numbers in order, repeating the last one.
type sequenceNumberer struct {
	mu      sync.Mutex
	numbers []string
}

func (n *sequenceNumberer) Generate(uuid.UUID, time.Time) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	next := n.numbers[0]
	if len(n.numbers) > 1 {
		n.numbers = n.numbers[1:]
	}
	return next
}

type stubGateway struct {
	amount int64
}

func (g *stubGateway) CreateOrder(_ context.Context, amountCents int64, currency string) (*payment.Order, error) {
	g.amount = amountCents
	return &payment.Order{ID: "order_1", AmountCents: amountCents, Currency: currency, Status: "created"}, nil
}

type recordingSender struct {
	mu     sync.Mutex
	emails []notification.Email
	sms    []string
	err    error
}

func (s *recordingSender) SendEmail(_ context.Context, email notification.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.emails = append(s.emails, email)
	return nil
}

func (s *recordingSender) SendSMS(_ context.Context, to, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sms = append(s.sms, to)
	return nil
}

// --- Fixture ---

const testPaymentSecret = "test-secret"

var errBoom = errors.New("boom")

type fixture struct {
	vehicles  *memVehicles
	bookings  *memBookings
	payments  *memPayments
	carts     *memCarts
	customers *memCustomers
	owners    *memOwners
	publisher *recordingPublisher
	guard     *memGuard
	renderer  *stubRenderer
	gateway   *stubGateway
	sender    *recordingSender
	converter *vehicleDomain.CurrencyConverter

	bookingSvc   *BookingService
	invoiceSvc   *InvoiceService
	reconcileSvc *ReconciliationService
	vehicleSvc   *VehicleService
	cartSvc      *CartService
	ownerSvc     *OwnerService
	notifySvc    *NotificationService

	owner    auth.Principal
	ownerP   *party.OwnerProfile
	customer auth.Principal
}

func newFixture() *fixture {
	logger := zap.NewNop()
	f := &fixture{
		vehicles:  newMemVehicles(),
		bookings:  newMemBookings(),
		payments:  newMemPayments(),
		carts:     newMemCarts(),
		customers: &memCustomers{customers: make(map[uuid.UUID]*party.Customer)},
		owners:    newMemOwners(),
		publisher: &recordingPublisher{},
		guard:     newMemGuard(),
		renderer:  &stubRenderer{},
		gateway:   &stubGateway{},
		sender:    &recordingSender{},
		converter: vehicleDomain.NewCurrencyConverter(vehicleDomain.DefaultUSDToINRRate),
	}

	ownerUser := uuid.New()
	profile, err := party.NewOwnerProfile(ownerUser, "Fast Wheels", "12 MG Road", "29abcde1234f1z5", "owner@example.com", "+911111111111")
	if err != nil {
		panic(err)
	}
	_ = f.owners.Save(context.Background(), profile)
	ownerID := profile.ID()
	f.ownerP = profile
	f.owner = auth.Principal{UserID: ownerUser, Role: auth.RoleOwner, OwnerProfileID: &ownerID}

	customerID := uuid.New()
	f.customers.customers[customerID] = &party.Customer{
		ID: customerID, FullName: "Asha Rao", Username: "asha", Email: "asha@example.com", Phone: "+912222222222",
	}
	f.customers.customers[ownerUser] = &party.Customer{ID: ownerUser, Username: "owner"}
	f.customer = auth.Principal{UserID: customerID, Role: auth.RoleCustomer}

	tx := memTx{vehicles: f.vehicles, bookings: f.bookings, payments: f.payments}
	pricing := bookingDomain.NewDailyRatePricingStrategy()
	f.bookingSvc = NewBookingService(tx, f.bookings, f.vehicles, f.vehicles, pricing, f.publisher, logger)
	f.invoiceSvc = NewInvoiceService(f.bookings, f.vehicles, f.customers, f.owners, f.payments,
		bookingDomain.NewTimestampInvoiceNumberer(), f.renderer, logger)
	f.reconcileSvc = NewReconciliationService(ReconciliationDeps{
		Tx:        tx,
		Bookings:  f.bookings,
		Vehicles:  f.vehicles,
		Ledger:    f.vehicles,
		Payments:  f.payments,
		Carts:     f.carts,
		Pricing:   pricing,
		Invoices:  f.invoiceSvc,
		Verifier:  payment.NewHMACVerifier(testPaymentSecret),
		Gateway:   f.gateway,
		Guard:     f.guard,
		Publisher: f.publisher,
	}, logger)
	f.vehicleSvc = NewVehicleService(tx, f.vehicles, f.carts, f.converter, logger)
	f.cartSvc = NewCartService(f.carts, f.vehicles, logger)
	f.ownerSvc = NewOwnerService(f.owners, logger)
	f.notifySvc = NewNotificationService(f.bookings, f.vehicles, f.customers, f.owners, f.invoiceSvc,
		f.sender, f.sender, "http://localhost:5173", logger)
	return f
}

// addVehicle lists a vehicle for the fixture owner at 10 USD (830 INR) a day.
func (f *fixture) addVehicle(stock int) *vehicleDomain.Vehicle {
	v, err := vehicleDomain.NewVehicle(*f.owner.OwnerProfileID, "Swift", "hatchback", decimal.NewFromInt(10), stock, f.converter)
	if err != nil {
		panic(err)
	}
	_ = f.vehicles.Save(context.Background(), v)
	return v
}

func rentalWindow(days int) (time.Time, time.Time) {
	start := time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC)
	return start, start.Add(time.Duration(days) * 24 * time.Hour)
}

func (f *fixture) createBooking(vehicleID uuid.UUID) (*BookingDTO, error) {
	start, end := rentalWindow(3)
	return f.bookingSvc.CreateBooking(context.Background(), f.customer, CreateBookingRequest{
		VehicleID:      vehicleID,
		StartDate:      start,
		EndDate:        end,
		PickupLocation: "Airport",
		ReturnLocation: "Airport",
	})
}

func signedRequest(paymentID string, vehicleIDs ...uuid.UUID) VerifyPaymentRequest {
	orderID := "order_" + paymentID
	start, end := rentalWindow(2)
	req := VerifyPaymentRequest{
		OrderID:       orderID,
		PaymentID:     paymentID,
		Signature:     payment.NewHMACVerifier(testPaymentSecret).Sign(orderID, paymentID),
		PaymentMethod: "UPI",
		RentalDetails: make(map[string]RentalDetail),
	}
	for _, id := range vehicleIDs {
		req.Items = append(req.Items, CheckoutLine{VehicleID: id, Quantity: 1})
		req.RentalDetails[id.String()] = RentalDetail{
			StartDate:      start,
			EndDate:        end,
			PickupLocation: "Station",
			ReturnLocation: "Station",
		}
	}
	return req
}

func cartWith(customerID uuid.UUID, vehicleIDs ...uuid.UUID) *cartDomain.Cart {
	c := cartDomain.New(customerID)
	for _, id := range vehicleIDs {
		if err := c.Add(id, 1); err != nil {
			panic(err)
		}
	}
	return c
}

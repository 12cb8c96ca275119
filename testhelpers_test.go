//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rentx-marketplace/service-rental/internal/application"
	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
	rentalEvents "github.com/rentx-marketplace/service-rental/internal/events"
	"github.com/rentx-marketplace/service-rental/internal/invoice"
	"github.com/rentx-marketplace/service-rental/internal/notification"
	"github.com/rentx-marketplace/service-rental/internal/payment"
	"github.com/rentx-marketplace/service-rental/internal/platform/cache"
	"github.com/rentx-marketplace/service-rental/internal/platform/config"
	"github.com/rentx-marketplace/service-rental/internal/platform/database"
	"github.com/rentx-marketplace/service-rental/internal/platform/kafka"
	"github.com/rentx-marketplace/service-rental/internal/repository"
)

const testPaymentSecret = "integration-secret"

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Redis        *redis.Client
	Cleanup      func()
}

// rentalStack holds wired-up rental service components.
type rentalStack struct {
	Bookings        *application.BookingService
	Reconciliation  *application.ReconciliationService
	Consumer        *rentalEvents.BookingEventConsumer
	Sender          *recordingSender
	Verifier        *payment.HMACVerifier
	CleanupProducer func()
}

// setupContainers starts PostgreSQL, Redis and Kafka testcontainers and
// applies the SQL migrations.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	logger, _ := zap.NewDevelopment()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test_rental",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pgCfg := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_rental",
		SSLMode:  "disable",
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(pgCfg, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(pgCfg.DatabaseURL(), "migrations", logger))

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	redisEndpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err)
	rdb, err := cache.NewRedisClient(ctx, config.RedisConfig{Addr: redisEndpoint})
	require.NoError(t, err)

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, bookingDomain.TopicBookingEvents)

	cleanup := func() {
		_ = rdb.Close()
		for name, c := range map[string]testcontainers.Container{
			"Kafka": kafkaContainer, "Redis": redisContainer, "PostgreSQL": pgContainer,
		} {
			if err := c.Terminate(ctx); err != nil {
				t.Logf("failed to terminate %s container: %v", name, err)
			}
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Redis:        rdb,
		Cleanup:      cleanup,
	}
}

// setupRentalStack wires up the rental service the same way cmd/server does,
// with recording notification senders.
func setupRentalStack(t *testing.T, infra *testInfra) *rentalStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	db := infra.DB

	tx := database.NewTxManager(db)
	bookingRepo := repository.NewGormBookingRepository(db)
	vehicleRepo := repository.NewGormVehicleRepository(db, logger)
	paymentRepo := repository.NewGormPaymentRepository(db)
	cartRepo := repository.NewGormCartRepository(db)
	customerRepo := repository.NewGormCustomerRepository(db)
	ownerRepo := repository.NewGormOwnerRepository(db)
	pricing := bookingDomain.NewDailyRatePricingStrategy()
	producer := kafka.NewProducer(infra.KafkaBrokers, logger)
	verifier := payment.NewHMACVerifier(testPaymentSecret)
	sender := &recordingSender{}

	invoices := application.NewInvoiceService(bookingRepo, vehicleRepo, customerRepo, ownerRepo, paymentRepo,
		bookingDomain.NewTimestampInvoiceNumberer(), invoice.NewPDFRenderer(), logger)
	bookings := application.NewBookingService(tx, bookingRepo, vehicleRepo, vehicleRepo, pricing, producer, logger)
	reconciliation := application.NewReconciliationService(application.ReconciliationDeps{
		Tx:        tx,
		Bookings:  bookingRepo,
		Vehicles:  vehicleRepo,
		Ledger:    vehicleRepo,
		Payments:  paymentRepo,
		Carts:     cartRepo,
		Pricing:   pricing,
		Invoices:  invoices,
		Verifier:  verifier,
		Guard:     cache.NewKeyLock(infra.Redis, time.Minute),
		Publisher: producer,
	}, logger)
	notifications := application.NewNotificationService(bookingRepo, vehicleRepo, customerRepo, ownerRepo, invoices,
		sender, sender, "http://localhost:5173", logger)

	groupID := fmt.Sprintf("test-rental-%s", uuid.New().String()[:8])
	consumer := rentalEvents.NewBookingEventConsumer(infra.KafkaBrokers, groupID, notifications, logger)

	return &rentalStack{
		Bookings:        bookings,
		Reconciliation:  reconciliation,
		Consumer:        consumer,
		Sender:          sender,
		Verifier:        verifier,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seededParties are the users and listings created for one test.
type seededParties struct {
	CustomerID     uuid.UUID
	OwnerUserID    uuid.UUID
	OwnerProfileID uuid.UUID
}

// seedParties inserts a customer and an owner with a store profile.
func seedParties(t *testing.T, db *gorm.DB) seededParties {
	t.Helper()
	now := time.Now().UTC()
	suffix := uuid.New().String()[:8]

	customer := repository.UserModel{
		ID: uuid.New(), FullName: "Asha Rao", Username: "asha-" + suffix,
		Email: "asha-" + suffix + "@example.com", Phone: "+912222222222",
		Role: "customer", CreatedAt: now, UpdatedAt: now,
	}
	ownerUser := repository.UserModel{
		ID: uuid.New(), FullName: "Ravi Kumar", Username: "ravi-" + suffix,
		Email: "ravi-" + suffix + "@example.com", Phone: "+911111111111",
		Role: "owner", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&customer).Error)
	require.NoError(t, db.Create(&ownerUser).Error)

	profile := repository.OwnerProfileModel{
		ID: uuid.New(), UserID: ownerUser.ID, StoreName: "Fast Wheels " + suffix,
		Address: "MG Road, Bengaluru", GSTNumber: "29ABCDE1234F1Z5",
		Email: "store-" + suffix + "@example.com", Phone: "+911111111111",
		NotifyEmail: true, NotifySMS: true, CreatedAt: now,
	}
	require.NoError(t, db.Create(&profile).Error)

	return seededParties{CustomerID: customer.ID, OwnerUserID: ownerUser.ID, OwnerProfileID: profile.ID}
}

// seedVehicle lists a 10 USD per day vehicle with the given stock.
func seedVehicle(t *testing.T, db *gorm.DB, ownerProfileID uuid.UUID, stock int) uuid.UUID {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	v, err := vehicleDomain.NewVehicle(ownerProfileID, "Swift", "", decimal.NewFromInt(10), stock,
		vehicleDomain.NewCurrencyConverter(vehicleDomain.DefaultUSDToINRRate))
	require.NoError(t, err)
	require.NoError(t, repository.NewGormVehicleRepository(db, logger).Save(context.Background(), v))
	return v.ID()
}

func vehicleStock(t *testing.T, db *gorm.DB, vehicleID uuid.UUID) int {
	t.Helper()
	var m repository.VehicleModel
	require.NoError(t, db.Where("id = ?", vehicleID).First(&m).Error)
	return m.Stock
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}

// recordingSender captures every email and SMS.
type recordingSender struct {
	mu     sync.Mutex
	emails []notification.Email
	sms    []string
}

func (s *recordingSender) SendEmail(_ context.Context, email notification.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, email)
	return nil
}

func (s *recordingSender) SendSMS(_ context.Context, to, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sms = append(s.sms, to)
	return nil
}

func (s *recordingSender) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.emails), len(s.sms)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rentx-marketplace/service-rental/internal/application"
	"github.com/rentx-marketplace/service-rental/internal/config"
	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	vehicleDomain "github.com/rentx-marketplace/service-rental/internal/domain/vehicle"
	rentalEvents "github.com/rentx-marketplace/service-rental/internal/events"
	"github.com/rentx-marketplace/service-rental/internal/handler"
	"github.com/rentx-marketplace/service-rental/internal/invoice"
	"github.com/rentx-marketplace/service-rental/internal/notification"
	"github.com/rentx-marketplace/service-rental/internal/payment"
	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/cache"
	"github.com/rentx-marketplace/service-rental/internal/platform/database"
	"github.com/rentx-marketplace/service-rental/internal/platform/health"
	"github.com/rentx-marketplace/service-rental/internal/platform/kafka"
	"github.com/rentx-marketplace/service-rental/internal/platform/logger"
	"github.com/rentx-marketplace/service-rental/internal/platform/middleware"
	"github.com/rentx-marketplace/service-rental/internal/repository"
)

const (
	serviceName = "service-rental"

	// reconcileLockTTL bounds how long a crashed reconciliation blocks a retry.
	reconcileLockTTL = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.UserModel{},
			&repository.OwnerProfileModel{},
			&repository.VehicleModel{},
			&repository.BookingModel{},
			&repository.PaymentModel{},
			&repository.CartItemModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Reconciliation guard: Redis when configured, otherwise unguarded
	var guard application.ReconciliationGuard = cache.NoopLock{}
	if cfg.RedisConfig.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisConfig)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		guard = cache.NewKeyLock(rdb, reconcileLockTTL)
	} else {
		log.Warn("RENTAL_REDIS_ADDR not set, payment replays are not guarded")
	}

	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		cfg.JWTConfig.AccessExpiry,
		cfg.JWTConfig.RefreshExpiry,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories
	tx := database.NewTxManager(db)
	bookingRepo := repository.NewGormBookingRepository(db)
	vehicleRepo := repository.NewGormVehicleRepository(db, log)
	paymentRepo := repository.NewGormPaymentRepository(db)
	cartRepo := repository.NewGormCartRepository(db)
	customerRepo := repository.NewGormCustomerRepository(db)
	ownerRepo := repository.NewGormOwnerRepository(db)

	// Domain policies
	pricingStrategy := bookingDomain.NewDailyRatePricingStrategy()
	converter := vehicleDomain.NewCurrencyConverter(cfg.USDToINRRate)

	// External providers
	gateway := payment.NewRazorpayGateway(cfg.PaymentConfig.KeyID, cfg.PaymentConfig.KeySecret, log)
	verifier := payment.NewHMACVerifier(cfg.PaymentConfig.KeySecret)

	var emailSender notification.EmailSender = notification.NewDisabledSender("email", log)
	if cfg.NotifyConfig.SendGridAPIKey != "" {
		emailSender = notification.NewSendGridSender(cfg.NotifyConfig.SendGridAPIKey, cfg.NotifyConfig.FromEmail, cfg.NotifyConfig.FromName)
	}
	var smsSender notification.SMSSender = notification.NewDisabledSender("sms", log)
	if cfg.NotifyConfig.TwilioAccountSID != "" {
		smsSender = notification.NewTwilioSender(cfg.NotifyConfig.TwilioAccountSID, cfg.NotifyConfig.TwilioAuthToken, cfg.NotifyConfig.TwilioFromNumber)
	}

	// Initialize application services
	invoiceService := application.NewInvoiceService(
		bookingRepo,
		vehicleRepo,
		customerRepo,
		ownerRepo,
		paymentRepo,
		bookingDomain.NewTimestampInvoiceNumberer(),
		invoice.NewPDFRenderer(),
		log,
	)
	bookingService := application.NewBookingService(
		tx,
		bookingRepo,
		vehicleRepo,
		vehicleRepo,
		pricingStrategy,
		kafkaProducer,
		log,
	)
	reconciliationService := application.NewReconciliationService(application.ReconciliationDeps{
		Tx:        tx,
		Bookings:  bookingRepo,
		Vehicles:  vehicleRepo,
		Ledger:    vehicleRepo,
		Payments:  paymentRepo,
		Carts:     cartRepo,
		Pricing:   pricingStrategy,
		Invoices:  invoiceService,
		Verifier:  verifier,
		Gateway:   gateway,
		Guard:     guard,
		Publisher: kafkaProducer,
	}, log)
	vehicleService := application.NewVehicleService(tx, vehicleRepo, cartRepo, converter, log)
	cartService := application.NewCartService(cartRepo, vehicleRepo, log)
	ownerService := application.NewOwnerService(ownerRepo, log)
	notificationService := application.NewNotificationService(
		bookingRepo,
		vehicleRepo,
		customerRepo,
		ownerRepo,
		invoiceService,
		emailSender,
		smsSender,
		cfg.NotifyConfig.FrontendURL,
		log,
	)

	// Initialize and start booking event consumer in a goroutine
	groupID := cfg.KafkaConfig.GroupPrefix + "rental-notifications"
	bookingConsumer := rentalEvents.NewBookingEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		notificationService,
		log,
	)
	defer func() { _ = bookingConsumer.Close() }()

	go func() {
		log.Info("starting booking event consumer")
		if err := bookingConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("booking event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService, invoiceService)
	paymentHandler := handler.NewPaymentHandler(reconciliationService)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	cartHandler := handler.NewCartHandler(cartService)
	ownerHandler := handler.NewOwnerHandler(ownerService, bookingService, jwtManager, cfg.AppEnv != "development")

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check and metrics routes
	healthHandler := health.NewHandler(db, serviceName)
	healthHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Register routes
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	paymentHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	vehicleHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	cartHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	ownerHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

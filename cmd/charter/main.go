package main

import (
	bookingshandler "buscharter/internal/bookings/handler"
	"buscharter/internal/bookings/lifecycle"
	bookingsrepo "buscharter/internal/bookings/repository"
	bookingsservice "buscharter/internal/bookings/service"
	bookingsvalidator "buscharter/internal/bookings/validator"
	customershandler "buscharter/internal/customers/handler"
	customersrepo "buscharter/internal/customers/repository"
	customersservice "buscharter/internal/customers/service"
	financehandler "buscharter/internal/finance/handler"
	"buscharter/internal/finance/ledger"
	financerepo "buscharter/internal/finance/repository"
	financeservice "buscharter/internal/finance/service"
	financevalidator "buscharter/internal/finance/validator"
	"buscharter/internal/fleet/availability"
	fleethandler "buscharter/internal/fleet/handler"
	fleetrepo "buscharter/internal/fleet/repository"
	fleetservice "buscharter/internal/fleet/service"
	fleetvalidator "buscharter/internal/fleet/validator"
	"buscharter/pkg/app"
	"buscharter/pkg/config"
	"buscharter/pkg/contracts"
	"buscharter/pkg/kafka"
	kafka_config "buscharter/pkg/kafka/config"
	kafka_middleware "buscharter/pkg/kafka/middleware"
	"buscharter/pkg/notify"
	"buscharter/pkg/validator"
)

const ServiceName = "charter"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	if cfg.LockBackend == config.LockBackendRedis {
		cfg.SetRedis()
	}

	cfg.Log.Info("Starting Charter service")
	serverApp := app.NewApplication(cfg)

	publisher := initPublisher(cfg, serverApp)
	handlers := initHandlers(cfg, publisher)

	checks := map[string]app.Check{"mongo": app.MongoCheck(cfg.Client.Mongo)}
	if cfg.Client.Redis != nil {
		checks["redis"] = app.RedisCheck(cfg.Client.Redis)
	}

	serverApp.SetApp(handlers, checks)
	serverApp.OnShutdown(cfg.GracefulShutdown)
	serverApp.Run()
}

// initPublisher returns the Kafka publisher when enabled and falls back to
// logging events otherwise.
func initPublisher(cfg *config.Config, serverApp *app.Application) notify.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, notifications go to the service log")
		return notify.NewLogPublisher(cfg.Log)
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationTopic, cfg.NotificationDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		metrics := kafka_middleware.NewMetrics()
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(metrics.ProducerMiddleware())
		serverApp.OnShutdown(func() {
			cfg.Log.Info("Kafka producer metrics", metrics.Snapshot().LogArgs()...)
		})
	}

	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	cfg.Log.Info("Kafka publisher initialized", "topic", cfg.NotificationTopic)
	return notify.NewKafkaPublisher(producer, ServiceName)
}

func initHandlers(cfg *config.Config, publisher notify.Publisher) contracts.Handlers {
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	tripRepo := bookingsrepo.NewMongoTripRepository(cfg)
	codeRepo := bookingsrepo.NewMongoBookingCodeRepository(cfg)
	chargeRepo := financerepo.NewMongoChargeRepository(cfg)
	paymentRepo := financerepo.NewMongoPaymentRepository(cfg)
	customerRepo := customersrepo.NewMongoCustomerRepository(cfg)
	vehicleRepo := fleetrepo.NewMongoVehicleRepository(cfg)
	driverRepo := fleetrepo.NewMongoDriverRepository(cfg)
	assignmentRepo := fleetrepo.NewMongoAssignmentRepository(cfg)
	fenceRepo := fleetrepo.NewMongoFenceRepository(cfg)

	var locker fleetrepo.VehicleLocker
	if cfg.LockBackend == config.LockBackendRedis {
		locker = fleetrepo.NewRedisVehicleLocker(cfg.Client.Redis)
	} else {
		locker = fleetrepo.NewMongoVehicleLocker(cfg)
	}

	bookLedger := ledger.New(chargeRepo, paymentRepo)
	bookingLifecycle := lifecycle.New(cfg, bookingRepo, bookLedger, assignmentRepo, publisher)

	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		tripRepo,
		codeRepo,
		customerRepo,
		bookingLifecycle,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)

	financeService := financeservice.NewFinanceService(
		bookingRepo,
		chargeRepo,
		paymentRepo,
		bookLedger,
		financeservice.NewReconciler(bookingRepo, bookLedger, bookingLifecycle),
		financevalidator.NewFinanceValidator(cfg.Log),
		publisher,
		cfg,
	)

	fleetValidator := fleetvalidator.NewFleetValidator(cfg.Log)
	fleetService := fleetservice.NewFleetService(
		vehicleRepo,
		driverRepo,
		availability.New(vehicleRepo, driverRepo, assignmentRepo),
		fleetValidator,
		cfg,
	)
	assignmentService := fleetservice.NewAssignmentService(
		assignmentRepo,
		fenceRepo,
		locker,
		vehicleRepo,
		driverRepo,
		tripRepo,
		bookingRepo,
		bookingLifecycle,
		fleetValidator,
		publisher,
		cfg,
	)

	customerService := customersservice.NewCustomerService(customerRepo, validator.New(cfg.Log), cfg)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName, "lock_backend", cfg.LockBackend)
	return contracts.Handlers{
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
		financehandler.NewFinanceHandler(financeService, cfg.Log),
		fleethandler.NewFleetHandler(fleetService, assignmentService, cfg.Log),
		customershandler.NewCustomerHandler(customerService, cfg.Log),
	}
}

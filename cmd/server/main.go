package main

import (
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/harborline/ferry-reservation/internal/config"
	"github.com/harborline/ferry-reservation/internal/database"
	"github.com/harborline/ferry-reservation/internal/gateway"
	"github.com/harborline/ferry-reservation/internal/handler"
	"github.com/harborline/ferry-reservation/internal/queue"
	"github.com/harborline/ferry-reservation/internal/repository"
	"github.com/harborline/ferry-reservation/internal/router"
	"github.com/harborline/ferry-reservation/internal/service"
	"github.com/harborline/ferry-reservation/internal/tasks"
)

func main() {
	// .env is a development convenience; real deployments set the
	// environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.PoolConfig{
		MaxOpen:     cfg.DBMaxOpen,
		MaxIdle:     cfg.DBMaxIdle,
		MaxLifetime: time.Duration(cfg.DBConnLifetimeMin) * time.Minute,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: rate limiting and response caching disabled")
	}

	// Payment channels. The mock channel always registers; Stripe only
	// when a key is configured.
	gwCfg := &gateway.Config{
		MockSecret:          cfg.MockChannelSecret,
		StripeSecretKey:     cfg.StripeSecretKey,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		Currency:            cfg.PaymentCurrency,
	}
	gateways := gateway.NewRegistry()
	mock, err := gateway.NewChannel(gateway.ChannelMock, gwCfg)
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}
	gateways.Register(mock)
	if cfg.StripeSecretKey != "" {
		stripeCh, err := gateway.NewChannel(gateway.ChannelStripe, gwCfg)
		if err != nil {
			log.Fatalf("gateway: %v", err)
		}
		gateways.Register(stripeCh)
	}
	log.Printf("payment channels: %v", gateways.Codes())

	// Repositories.
	ledger := repository.NewCapacityRepo(db)
	reservations := repository.NewReservationRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)
	schedules := repository.NewScheduleRepo(db)
	classes := repository.NewFareClassRepo(db)

	// Background tasks share the Redis connection settings with the
	// middleware but use asynq's own pool.
	redisOpt := asynq.RedisClientOpt{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       config.RedisDB(),
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	deadlines := tasks.NewClient(asynqClient)

	// Services.
	reservationSvc := service.NewReservationService(
		ledger, reservations, schedules,
		time.Duration(cfg.ReservationTTLMin)*time.Minute,
	)
	bookingSvc := service.NewBookingService(
		reservations, bookings, classes, deadlines,
		time.Duration(cfg.PaymentWindowMin)*time.Minute,
	)
	paymentSvc := service.NewPaymentService(bookings, payments, ledger, gateways, queue.PublishBookingPaid)
	checkInSvc := service.NewCheckInService(bookings, schedules)

	// Reaper schedule and payment-deadline worker.
	go tasks.StartServer(redisOpt, &tasks.Handlers{
		Reservations: reservationSvc,
		Payments:     paymentSvc,
		ReapBatch:    cfg.ReapBatch,
	})

	// Downstream settlement consumer; reconnects on its own.
	go func() {
		if err := queue.StartSettlementConsumer(); err != nil {
			log.Printf("settlement consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, &router.Handlers{
		Schedules:    handler.NewScheduleHandler(schedules, ledger),
		Reservations: handler.NewReservationHandler(reservationSvc),
		Bookings:     handler.NewBookingHandler(bookingSvc, payments),
		Payments:     handler.NewPaymentHandler(paymentSvc, gateways),
		CheckIns:     handler.NewCheckInHandler(checkInSvc),
	}, rdb, cfg.StaffJWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"salonbooking/internal/api"
	"salonbooking/internal/app"
	"salonbooking/internal/config"
	"salonbooking/internal/repository"
	"salonbooking/internal/service"
)

type stores struct {
	slots        repository.AvailabilityStore
	coupons      repository.CouponStore
	appointments repository.AppointmentStore
	jobs         repository.JobStore
	admins       repository.AdminAuthRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := service.SystemClock{Location: cfg.Location}

	var st stores
	if cfg.UsePostgres() {
		conn, err := app.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to DB", zap.Error(err))
		}
		defer conn.Close()

		migrator, err := app.NewMigrator(conn, logger)
		if err != nil {
			logger.Fatal("Failed to init migrator", zap.Error(err))
		}
		if err := migrator.Run(ctx); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		st = postgresStores(conn)
		logger.Info("Using postgres stores")
	} else {
		st = memoryStores(clock)
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	authService := service.NewAdminAuthService(st.admins, cfg.JWTSecret, clock)
	if err := authService.CreateAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Fatal("Failed to seed admin", zap.Error(err))
	}

	sender, err := service.NewSenderService(
		service.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName, logger),
		service.NewTwilioSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger),
		cfg.AdminNotifyEmail, cfg.SMSCountryPrefix, cfg.Location, logger,
	)
	if err != nil {
		logger.Fatal("Failed to init notifications", zap.Error(err))
	}

	ledger := service.NewCouponLedger(st.coupons, cfg.Discount, cfg.CouponCodeLength, cfg.CouponMaxAttempts, logger)
	bookingService := service.NewBookingService(st.slots, ledger, st.appointments, service.UUIDGenerator{}, sender,
		service.BookingSettings{IssuePolicy: cfg.IssuePolicy, Timeout: cfg.BookingTimeout}, logger)
	adminService := service.NewAdminService(st.slots, st.appointments, ledger, logger)
	jobService := service.NewJobService(st.jobs, st.slots, clock, service.SeedSettings{
		Times:    cfg.SlotTimes,
		Weekdays: cfg.SlotWeekdays,
		Days:     cfg.SlotSeedDays,
	}, logger)

	scheduler := app.NewScheduler(jobService, cfg.Location, logger)
	if err := scheduler.Start(ctx, cfg.SeedCron, cfg.FinishCron); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	router := api.NewRouter(api.Services{Booking: bookingService, Admin: adminService, Auth: authService}, cfg.CORSOrigins, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server running", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", zap.Error(err))
	}
	scheduler.Stop()
	sender.Wait()
	logger.Info("Server stopped")
}

func postgresStores(conn *sql.DB) stores {
	return stores{
		slots:        repository.NewAvailabilityRepository(conn),
		coupons:      repository.NewCouponRepository(conn),
		appointments: repository.NewAppointmentRepository(conn),
		jobs:         repository.NewJobRepository(conn),
		admins:       repository.NewAdminAuthRepository(conn),
	}
}

func memoryStores(clock service.Clock) stores {
	appointments := repository.NewMemoryAppointmentStore(clock.Now)
	return stores{
		slots:        repository.NewMemoryAvailabilityStore(clock.Now),
		coupons:      repository.NewMemoryCouponStore(clock.Now),
		appointments: appointments,
		jobs:         appointments,
		admins:       repository.NewMemoryAdminAuthRepository(),
	}
}

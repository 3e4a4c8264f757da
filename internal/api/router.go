package api

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"salonbooking/internal/auth"
	"salonbooking/internal/service"
)

type Services struct {
	Booking *service.BookingService
	Admin   *service.AdminService
	Auth    service.AdminAuthService
}

func NewRouter(svc Services, corsOrigins []string, logger *zap.Logger) http.Handler {
	appointmentHandler := NewAppointmentHandler(svc.Booking, logger)
	adminHandler := NewAdminHandler(svc.Admin, logger)
	adminAuthHandler := NewAdminAuthHandler(svc.Auth, logger)

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// Public endpoints
	r.HandleFunc("/appointments", appointmentHandler.CreateAppointment).Methods("POST")
	r.HandleFunc("/availability", appointmentHandler.ListAvailability).Methods("GET")
	r.HandleFunc("/coupons/{code}", appointmentHandler.CheckCoupon).Methods("GET")

	r.HandleFunc("/api/admin/login", adminAuthHandler.Login).Methods("POST")
	r.HandleFunc("/api/admin/verify", adminAuthHandler.Verify).Methods("GET")

	// Admin endpoints (protected)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AdminAuthMiddleware(svc.Auth))
	admin.HandleFunc("/appointments", adminHandler.ListAppointments).Methods("GET")
	admin.HandleFunc("/appointments/{id}", adminHandler.CancelAppointment).Methods("DELETE")
	admin.HandleFunc("/appointments/{id}/complete", adminHandler.CompleteAppointment).Methods("POST")
	admin.HandleFunc("/availability", adminHandler.ListSlots).Methods("GET")
	admin.HandleFunc("/availability", adminHandler.OpenSlots).Methods("POST")
	admin.HandleFunc("/availability/{date}/{time}", adminHandler.CloseSlot).Methods("DELETE")
	admin.HandleFunc("/calendar", adminHandler.Calendar).Methods("GET")
	admin.HandleFunc("/coupons", adminHandler.ListCoupons).Methods("GET")
	admin.HandleFunc("/coupons/{code}", adminHandler.InvalidateCoupon).Methods("DELETE")

	r.Use(requestLogger(logger))

	cors := handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Idempotency-Key"}),
	)
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(zapRecoveryLogger{logger}), handlers.PrintRecoveryStack(false))
	return recovery(cors(r))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

type zapRecoveryLogger struct {
	logger *zap.Logger
}

func (l zapRecoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Recovered from panic", zap.Any("panic", v))
}

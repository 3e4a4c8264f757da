package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"salonbooking/internal/db"
	"salonbooking/internal/entities"
	"salonbooking/internal/service"
)

type AppointmentHandler struct {
	Service *service.BookingService
	logger  *zap.Logger
}

func NewAppointmentHandler(svc *service.BookingService, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{Service: svc, logger: logger}
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req entities.AppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get("Idempotency-Key")
	}

	conf, err := h.Service.Book(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}

func (h *AppointmentHandler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	slots, err := h.Service.ListOpenSlots(r.Context(), rng)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if slots == nil {
		slots = []db.Slot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *AppointmentHandler) CheckCoupon(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["code"]))
	coupon, err := h.Service.CheckCoupon(r.Context(), code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewCouponStatus(coupon))
}

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"salonbooking/internal/db"
	"salonbooking/internal/entities"
	apperr "salonbooking/internal/errors"
	"salonbooking/internal/service"
	"salonbooking/internal/utils"
)

type AdminHandler struct {
	Service *service.AdminService
	logger  *zap.Logger
}

func NewAdminHandler(svc *service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{Service: svc, logger: logger}
}

func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	appointments, err := h.Service.ListAppointments(r.Context(), rng)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	list := entities.AppointmentsList{Total: len(appointments), Appointments: make([]entities.AppointmentResponse, 0, len(appointments))}
	for _, a := range appointments {
		list.Appointments = append(list.Appointments, entities.NewAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	slots, err := h.Service.ListSlots(r.Context(), rng)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if slots == nil {
		slots = []db.Slot{}
	}
	writeJSON(w, http.StatusOK, entities.SlotsList{From: rng.From, To: rng.To, Slots: slots})
}

func (h *AdminHandler) OpenSlots(w http.ResponseWriter, r *http.Request) {
	var req entities.OpenSlotsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	refs, err := req.Refs()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	n, err := h.Service.OpenSlots(r.Context(), refs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.OpenSlotsResponse{Opened: n})
}

func (h *AdminHandler) CloseSlot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	date, err := utils.NormalizeDate(vars["date"])
	if err != nil {
		writeError(w, h.logger, apperr.Validation("date", "must be a date formatted YYYY-MM-DD"))
		return
	}
	label, err := utils.NormalizeTimeLabel(vars["time"])
	if err != nil {
		writeError(w, h.logger, apperr.Validation("time", "must be a time formatted HH:MM"))
		return
	}
	if err := h.Service.CloseSlot(r.Context(), db.SlotRef{Date: date, Time: label}); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.Service.Calendar(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (h *AdminHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	a, err := h.Service.CancelAppointment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewAppointmentResponse(*a))
}

func (h *AdminHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	var req entities.CompleteAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}
	a, err := h.Service.CompleteAppointment(r.Context(), mux.Vars(r)["id"], req.FinalPrice)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewAppointmentResponse(*a))
}

func (h *AdminHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.Service.ListCoupons(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := make([]entities.CouponResponse, 0, len(coupons))
	for _, c := range coupons {
		resp = append(resp, entities.NewCouponResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) InvalidateCoupon(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["code"]))
	if err := h.Service.InvalidateCoupon(r.Context(), code); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package entities

import (
	"time"

	"github.com/shopspring/decimal"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
)

// AppointmentConfirmation is returned by a successful booking.
type AppointmentConfirmation struct {
	AppointmentID    string           `json:"appointmentId"`
	DiscountApplied  bool             `json:"discountApplied,omitempty"`
	Discount         *db.DiscountSpec `json:"discount,omitempty"`
	IssuedCouponCode string           `json:"issuedCouponCode,omitempty"`
}

type AppointmentResponse struct {
	ID                string              `json:"id"`
	Date              string              `json:"date"`
	Time              string              `json:"time"`
	CustomerName      string              `json:"customerName"`
	CustomerPhone     string              `json:"customerPhone"`
	AppliedCouponCode string              `json:"appliedCouponCode,omitempty"`
	DiscountApplied   bool                `json:"discountApplied"`
	Discount          *db.DiscountSpec    `json:"discount,omitempty"`
	IssuedCouponCode  string              `json:"issuedCouponCode,omitempty"`
	Status            string              `json:"status"`
	FinalPrice        decimal.NullDecimal `json:"finalPrice"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

func NewAppointmentResponse(a db.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                a.ID,
		Date:              a.Date,
		Time:              a.Time,
		CustomerName:      a.CustomerName,
		CustomerPhone:     a.CustomerPhone,
		AppliedCouponCode: a.AppliedCouponCode,
		DiscountApplied:   a.DiscountApplied,
		IssuedCouponCode:  a.IssuedCouponCode,
		Status:            string(a.Status),
		FinalPrice:        a.FinalPrice,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	if a.DiscountApplied {
		resp.Discount = &db.DiscountSpec{Type: a.DiscountType, Value: a.DiscountValue}
	}
	return resp
}

type AppointmentsList struct {
	Total        int                   `json:"total"`
	Appointments []AppointmentResponse `json:"appointments"`
}

// CompleteAppointmentRequest is the body of POST /admin/appointments/{id}/complete.
type CompleteAppointmentRequest struct {
	FinalPrice decimal.Decimal `json:"finalPrice"`
}

func (r *CompleteAppointmentRequest) Validate() error {
	if r.FinalPrice.IsNegative() {
		return apperr.Validation("finalPrice", "must not be negative")
	}
	return nil
}

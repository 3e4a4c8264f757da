package entities

import (
	"time"

	"salonbooking/internal/db"
)

type CouponResponse struct {
	Code                    string     `json:"code"`
	Status                  string     `json:"status"`
	IssuedForAppointmentID  string     `json:"issuedForAppointmentId,omitempty"`
	RedeemedByAppointmentID string     `json:"redeemedByAppointmentId,omitempty"`
	CreatedAt               *time.Time `json:"createdAt,omitempty"`
	RedeemedAt              *time.Time `json:"redeemedAt,omitempty"`
}

// NewCouponStatus is the public view of a coupon: code and status only.
func NewCouponStatus(c db.Coupon) CouponResponse {
	return CouponResponse{Code: c.Code, Status: string(c.Status)}
}

func NewCouponResponse(c db.Coupon) CouponResponse {
	createdAt := c.CreatedAt
	return CouponResponse{
		Code:                    c.Code,
		Status:                  string(c.Status),
		IssuedForAppointmentID:  c.IssuedForAppointmentID,
		RedeemedByAppointmentID: c.RedeemedByAppointmentID,
		CreatedAt:               &createdAt,
		RedeemedAt:              c.RedeemedAt,
	}
}

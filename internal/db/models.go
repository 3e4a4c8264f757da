package db

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type SlotStatus string

const (
	SlotStatusOpen   SlotStatus = "open"
	SlotStatusBooked SlotStatus = "booked"
)

// SlotRef identifies a bookable unit by calendar day and time-of-day label.
type SlotRef struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (r SlotRef) Key() string {
	return r.Date + " " + r.Time
}

// Less orders slot refs by (date, time). Both parts are zero padded so
// string comparison is chronological.
func (r SlotRef) Less(other SlotRef) bool {
	if r.Date != other.Date {
		return r.Date < other.Date
	}
	return r.Time < other.Time
}

type Slot struct {
	Date      string     `json:"date"`
	Time      string     `json:"time"`
	Status    SlotStatus `json:"status"`
	UpdatedAt time.Time  `json:"-"`
}

func (s Slot) Ref() SlotRef {
	return SlotRef{Date: s.Date, Time: s.Time}
}

// Reservation is the receipt of a successful Open -> Booked transition.
type Reservation struct {
	Slot       SlotRef
	ReservedAt time.Time
}

// DateRange is inclusive on both ends. Empty bounds are open.
type DateRange struct {
	From string
	To   string
}

func (r DateRange) Contains(date string) bool {
	if r.From != "" && date < r.From {
		return false
	}
	if r.To != "" && date > r.To {
		return false
	}
	return true
}

type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFlat       DiscountType = "flat"
)

// DiscountSpec is the configured reward granted by redeeming a coupon.
type DiscountSpec struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

type Appointment struct {
	ID                string
	RequestID         string
	Date              string
	Time              string
	CustomerName      string
	CustomerPhone     string
	AppliedCouponCode string
	DiscountApplied   bool
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	IssuedCouponCode  string
	Status            AppointmentStatus
	FinalPrice        decimal.NullDecimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (a Appointment) Slot() SlotRef {
	return SlotRef{Date: a.Date, Time: a.Time}
}

type CouponStatus string

const (
	CouponStatusActive   CouponStatus = "active"
	CouponStatusRedeemed CouponStatus = "redeemed"
	CouponStatusInvalid  CouponStatus = "invalid"
)

type Coupon struct {
	Code                    string
	Status                  CouponStatus
	IssuedForAppointmentID  string
	RedeemedByAppointmentID string
	CreatedAt               time.Time
	RedeemedAt              *time.Time
}

type Admin struct {
	ID           int
	Username     string
	PasswordHash string
}

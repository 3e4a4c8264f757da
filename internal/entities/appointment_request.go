package entities

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
	"salonbooking/internal/utils"
)

// AppointmentRequest is the body of POST /appointments.
type AppointmentRequest struct {
	Date          string `json:"date" validate:"required,slotdate"`
	Time          string `json:"time" validate:"required,slottime"`
	CustomerName  string `json:"customerName" validate:"required,max=120"`
	CustomerPhone string `json:"customerPhone" validate:"required,phone"`
	CouponCode    string `json:"couponCode,omitempty" validate:"omitempty,alphanum,max=32"`
	RequestID     string `json:"requestId,omitempty" validate:"omitempty,max=128"`
}

func (r AppointmentRequest) Slot() db.SlotRef {
	return db.SlotRef{Date: r.Date, Time: r.Time}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return utils.IsValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("slotdate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(db.DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("slottime", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(db.TimeLayout, fl.Field().String())
		return err == nil && len(fl.Field().String()) == len(db.TimeLayout)
	})
	return v
}

// Normalize trims whitespace and canonicalizes the time label and coupon
// code. It never fails; Validate reports anything left malformed.
func (r *AppointmentRequest) Normalize() {
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	if label, err := utils.NormalizeTimeLabel(r.Time); err == nil {
		r.Time = label
	}
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.CouponCode = strings.ToUpper(strings.TrimSpace(r.CouponCode))
	r.RequestID = strings.TrimSpace(r.RequestID)
}

// Validate reports the first offending field as a ValidationError.
func (r *AppointmentRequest) Validate() error {
	return validateStruct(r)
}

func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("", err.Error())
	}
	fe := fieldErrs[0]
	return apperr.Validation(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "phone":
		return "must be a phone number with 7 to 15 digits"
	case "slotdate":
		return "must be a date formatted YYYY-MM-DD"
	case "slottime":
		return "must be a time formatted HH:MM"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "alphanum":
		return "must contain only letters and digits"
	case "gt", "gte":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

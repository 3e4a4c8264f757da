package entities

import (
	"strings"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
	"salonbooking/internal/utils"
)

type SlotsList struct {
	From  string    `json:"from,omitempty"`
	To    string    `json:"to,omitempty"`
	Slots []db.Slot `json:"slots"`
}

// OpenSlotsRequest is the body of POST /admin/availability.
type OpenSlotsRequest struct {
	Date  string   `json:"date" validate:"required,slotdate"`
	Times []string `json:"times" validate:"required,min=1,dive,required"`
}

// Refs validates the request and returns the slots it names with
// normalized time labels.
func (r *OpenSlotsRequest) Refs() ([]db.SlotRef, error) {
	r.Date = strings.TrimSpace(r.Date)
	if err := validateStruct(r); err != nil {
		return nil, err
	}
	labels, err := utils.ParseTimeLabels(strings.Join(r.Times, ","))
	if err != nil {
		return nil, apperr.Validation("times", err.Error())
	}
	refs := make([]db.SlotRef, 0, len(labels))
	for _, label := range labels {
		refs = append(refs, db.SlotRef{Date: r.Date, Time: label})
	}
	return refs, nil
}

type OpenSlotsResponse struct {
	Opened int `json:"opened"`
}

// CalendarDay summarizes one day of the admin calendar.
type CalendarDay struct {
	Date         string `json:"date"`
	Open         int    `json:"open"`
	Booked       int    `json:"booked"`
	Appointments int    `json:"appointments"`
}

type Calendar struct {
	Month string        `json:"month"`
	Days  []CalendarDay `json:"days"`
}

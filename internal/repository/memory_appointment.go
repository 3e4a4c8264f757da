package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
)

// MemoryAppointmentStore is the in-process AppointmentStore and JobStore.
type MemoryAppointmentStore struct {
	mu          sync.RWMutex
	byID        map[string]*db.Appointment
	byRequestID map[string]string
	now         func() time.Time
}

func NewMemoryAppointmentStore(now func() time.Time) *MemoryAppointmentStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryAppointmentStore{
		byID:        make(map[string]*db.Appointment),
		byRequestID: make(map[string]string),
		now:         now,
	}
}

func (s *MemoryAppointmentStore) Create(_ context.Context, a *db.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[a.ID]; ok {
		return ErrDuplicateRequest
	}
	if a.RequestID != "" {
		if _, ok := s.byRequestID[a.RequestID]; ok {
			return ErrDuplicateRequest
		}
		s.byRequestID[a.RequestID] = a.ID
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.Status == "" {
		a.Status = db.AppointmentStatusConfirmed
	}
	stored := *a
	s.byID[a.ID] = &stored
	return nil
}

func (s *MemoryAppointmentStore) Get(_ context.Context, id string) (*db.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, apperr.NotFound("appointment %s", id)
	}
	cp := *a
	return &cp, nil
}

// GetByRequestID returns nil, nil when no appointment carries requestID.
func (s *MemoryAppointmentStore) GetByRequestID(_ context.Context, requestID string) (*db.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byRequestID[requestID]
	if !ok {
		return nil, nil
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryAppointmentStore) List(_ context.Context, rng db.DateRange) ([]db.Appointment, error) {
	s.mu.RLock()
	list := make([]db.Appointment, 0, len(s.byID))
	for _, a := range s.byID {
		if rng.Contains(a.Date) {
			list = append(list, *a)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(list, compareAppointments)
	return list, nil
}

func (s *MemoryAppointmentStore) SetIssuedCoupon(_ context.Context, id, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return apperr.NotFound("appointment %s", id)
	}
	if a.Status != db.AppointmentStatusConfirmed {
		return ErrNotConfirmed
	}
	a.IssuedCouponCode = code
	a.UpdatedAt = s.now()
	return nil
}

// Transition moves an appointment from one status to another. It fails with
// a validation error when the current status is not from.
func (s *MemoryAppointmentStore) Transition(_ context.Context, id string, from, to db.AppointmentStatus, finalPrice decimal.NullDecimal) (*db.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, apperr.NotFound("appointment %s", id)
	}
	if a.Status != from {
		return nil, apperr.Validation("status", "appointment is "+string(a.Status))
	}
	a.Status = to
	if finalPrice.Valid {
		a.FinalPrice = finalPrice
	}
	a.UpdatedAt = s.now()
	cp := *a
	return &cp, nil
}

func (s *MemoryAppointmentStore) GetConfirmedAppointmentIDsBefore(_ context.Context, date string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, a := range s.byID {
		if a.Status == db.AppointmentStatusConfirmed && a.Date < date {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryAppointmentStore) UpdateAppointmentStatuses(_ context.Context, ids []string, status db.AppointmentStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := s.now()
	for _, id := range ids {
		if a, ok := s.byID[id]; ok && a.Status == db.AppointmentStatusConfirmed {
			a.Status = status
			a.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func compareAppointments(a, b db.Appointment) int {
	switch {
	case a.Slot().Less(b.Slot()):
		return -1
	case b.Slot().Less(a.Slot()):
		return 1
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

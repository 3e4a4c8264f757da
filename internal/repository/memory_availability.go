package repository

import (
	"context"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
)

const (
	slotOpen int32 = iota
	slotBooked
)

type memorySlot struct {
	ref       db.SlotRef
	state     atomic.Int32
	updatedAt atomic.Int64
}

func (s *memorySlot) snapshot() db.Slot {
	status := db.SlotStatusOpen
	if s.state.Load() == slotBooked {
		status = db.SlotStatusBooked
	}
	return db.Slot{
		Date:      s.ref.Date,
		Time:      s.ref.Time,
		Status:    status,
		UpdatedAt: time.Unix(0, s.updatedAt.Load()),
	}
}

// MemoryAvailabilityStore keeps slots in process. The index lock only guards
// the set of slots; occupancy is an atomic compare-and-set per slot, so
// reservations on different slots never wait on each other.
type MemoryAvailabilityStore struct {
	mu    sync.RWMutex
	slots map[string]*memorySlot
	now   func() time.Time
}

func NewMemoryAvailabilityStore(now func() time.Time) *MemoryAvailabilityStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryAvailabilityStore{slots: make(map[string]*memorySlot), now: now}
}

func (s *MemoryAvailabilityStore) ListOpenSlots(ctx context.Context, rng db.DateRange) iter.Seq2[db.Slot, error] {
	return s.list(ctx, rng, true)
}

func (s *MemoryAvailabilityStore) ListSlots(ctx context.Context, rng db.DateRange) iter.Seq2[db.Slot, error] {
	return s.list(ctx, rng, false)
}

func (s *MemoryAvailabilityStore) list(ctx context.Context, rng db.DateRange, openOnly bool) iter.Seq2[db.Slot, error] {
	return func(yield func(db.Slot, error) bool) {
		s.mu.RLock()
		entries := make([]*memorySlot, 0, len(s.slots))
		for _, e := range s.slots {
			if rng.Contains(e.ref.Date) {
				entries = append(entries, e)
			}
		}
		s.mu.RUnlock()

		slices.SortFunc(entries, func(a, b *memorySlot) int {
			switch {
			case a.ref.Less(b.ref):
				return -1
			case b.ref.Less(a.ref):
				return 1
			}
			return 0
		})

		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				yield(db.Slot{}, err)
				return
			}
			slot := e.snapshot()
			if openOnly && slot.Status != db.SlotStatusOpen {
				continue
			}
			if !yield(slot, nil) {
				return
			}
		}
	}
}

func (s *MemoryAvailabilityStore) Reserve(ctx context.Context, ref db.SlotRef) (db.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return db.Reservation{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.slots[ref.Key()]
	if !ok || !e.state.CompareAndSwap(slotOpen, slotBooked) {
		return db.Reservation{}, &apperr.BookingError{Kind: apperr.KindSlotUnavailable, Message: ref.Key()}
	}
	now := s.now()
	e.updatedAt.Store(now.UnixNano())
	return db.Reservation{Slot: ref, ReservedAt: now}, nil
}

// Release returns a booked slot to open. Releasing an open or unknown slot is
// a no-op.
func (s *MemoryAvailabilityStore) Release(_ context.Context, ref db.SlotRef) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.slots[ref.Key()]; ok && e.state.CompareAndSwap(slotBooked, slotOpen) {
		e.updatedAt.Store(s.now().UnixNano())
	}
	return nil
}

// OpenSlots adds new open slots and skips refs that already exist, whatever
// their status. It returns how many were added.
func (s *MemoryAvailabilityStore) OpenSlots(_ context.Context, refs []db.SlotRef) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixNano()
	added := 0
	for _, ref := range refs {
		if _, ok := s.slots[ref.Key()]; ok {
			continue
		}
		e := &memorySlot{ref: ref}
		e.updatedAt.Store(now)
		s.slots[ref.Key()] = e
		added++
	}
	return added, nil
}

// CloseSlot removes an open slot. Booked slots stay until released.
func (s *MemoryAvailabilityStore) CloseSlot(_ context.Context, ref db.SlotRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.slots[ref.Key()]
	if !ok {
		return apperr.NotFound("slot %s", ref.Key())
	}
	if e.state.Load() != slotOpen {
		return &apperr.BookingError{Kind: apperr.KindSlotUnavailable, Message: ref.Key() + " is booked"}
	}
	delete(s.slots, ref.Key())
	return nil
}

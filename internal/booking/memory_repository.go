package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryAppointmentRepository is a map-backed store with the same conditional
// update semantics as the Postgres adapter. It backs tests and single-node
// dev setups.
type MemoryAppointmentRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Appointment
}

func NewMemoryAppointmentRepository() *MemoryAppointmentRepository {
	return &MemoryAppointmentRepository{
		items: make(map[uuid.UUID]Appointment),
	}
}

func (r *MemoryAppointmentRepository) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return cloneAppointment(a), nil
}

func (r *MemoryAppointmentRepository) Save(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *cloneAppointment(*a)
	if existing, ok := r.items[a.ID]; ok {
		// Status only moves through UpdateStatus, matching the SQL adapter.
		stored.Status = existing.Status
	}
	r.items[a.ID] = stored
	return nil
}

func (r *MemoryAppointmentRepository) UpdateStatus(_ context.Context, id uuid.UUID, to AppointmentStatus, from ...AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	matched := false
	for _, s := range from {
		if a.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return nil, ErrStaleStatus
	}

	a.Status = to
	a.UpdatedAt = time.Now()
	r.items[id] = a
	return cloneAppointment(a), nil
}

func (r *MemoryAppointmentRepository) ExistsOverlapping(_ context.Context, start, end time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.items {
		if a.Status == StatusCancelled {
			continue
		}
		if a.StartTime.Before(end) && a.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryAppointmentRepository) CountByService(_ context.Context, serviceID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.items {
		if a.ServiceID == serviceID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryAppointmentRepository) ListByStatus(_ context.Context, status AppointmentStatus) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.items {
		if a.Status == status {
			result = append(result, *cloneAppointment(a))
		}
	}
	return result, nil
}

func cloneAppointment(a Appointment) *Appointment {
	out := a
	if a.ConfirmationCode != nil {
		code := *a.ConfirmationCode
		out.ConfirmationCode = &code
	}
	if a.CancellationReason != nil {
		reason := *a.CancellationReason
		out.CancellationReason = &reason
	}
	return &out
}

type MemoryServiceRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Service
}

func NewMemoryServiceRepository() *MemoryServiceRepository {
	return &MemoryServiceRepository{
		items: make(map[uuid.UUID]Service),
	}
}

func (r *MemoryServiceRepository) GetByID(_ context.Context, id uuid.UUID) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return cloneService(s), nil
}

func (r *MemoryServiceRepository) Save(_ context.Context, s *Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[s.ID] = *cloneService(*s)
	return nil
}

func cloneService(s Service) *Service {
	out := s
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.DiscountCode != nil {
		code := *s.DiscountCode
		out.DiscountCode = &code
	}
	return &out
}

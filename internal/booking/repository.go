package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrServiceNotFound     = errors.New("service not found")

	// ErrStaleStatus is returned by conditional status updates when the
	// appointment is no longer in any of the expected source states, e.g.
	// a direct cancel raced the queued auto-confirmation.
	ErrStaleStatus = errors.New("appointment status changed concurrently")
)

// AppointmentRepository contains all appointment store interactions needed by
// the engine. Status moves only through UpdateStatus so that every lifecycle
// transition is a conditional write; Save never touches the status column of
// an existing row.
type AppointmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Save upserts the appointment's fields (times, codes, reason, updated_at).
	Save(ctx context.Context, a *Appointment) error

	// UpdateStatus moves the appointment to the target status only if its
	// current status is one of from, returning ErrStaleStatus otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus, from ...AppointmentStatus) (*Appointment, error)

	// ExistsOverlapping reports whether any non-cancelled appointment's
	// interval strictly overlaps [start, end).
	ExistsOverlapping(ctx context.Context, start, end time.Time) (bool, error)

	CountByService(ctx context.Context, serviceID uuid.UUID) (int, error)

	ListByStatus(ctx context.Context, status AppointmentStatus) ([]Appointment, error)
}

// ServiceRepository is the engine's access to the booked service's billing
// and fulfillment fields.
type ServiceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	Save(ctx context.Context, s *Service) error
}

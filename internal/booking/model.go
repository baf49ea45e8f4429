package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusCompleted   AppointmentStatus = "completed"
)

// Terminal reports whether no further transition may leave this status.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRescheduled, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// ServiceStatus tracks delivery of the booked service, independent of the
// appointment's own lifecycle.
type ServiceStatus string

const (
	ServicePending   ServiceStatus = "pending"
	ServiceCompleted ServiceStatus = "completed"
)

type Appointment struct {
	ID                 uuid.UUID
	ServiceID          uuid.UUID
	StartTime          time.Time
	EndTime            time.Time
	Status             AppointmentStatus
	ConfirmationCode   *string
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Service struct {
	ID              uuid.UUID
	Name            string
	Price           decimal.Decimal
	PenaltyAmount   decimal.Decimal
	DurationMinutes int
	Status          ServiceStatus
	CompletedAt     *time.Time
	DiscountCode    *DiscountCode
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DefaultGraceWindow is the period after creation during which an appointment
// is auto-confirmable and cancellation carries a penalty. Outside the window
// the pair inverts: auto-confirmation no-ops and cancellation is free.
const DefaultGraceWindow = time.Hour

// GraceWindowElapsed is the single source of truth for both time-gated rules.
// The boundary counts as elapsed: at exactly the window, auto-confirmation no
// longer fires and penalty-free cancellation applies.
func GraceWindowElapsed(a *Appointment, now time.Time, window time.Duration) bool {
	return now.Sub(a.CreatedAt) >= window
}

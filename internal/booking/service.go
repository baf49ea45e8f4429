package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	redisclient "github.com/trimly/booking-core/internal/redis"
)

var (
	ErrInvalidTimeRange       = errors.New("end time must be after start time")
	ErrBookingConflict        = errors.New("time slot is already booked")
	ErrBookingBusy            = errors.New("another booking is in progress, please retry")
	ErrEmptyConfirmationCode  = errors.New("confirmation code is required")
	ErrNegativePenaltyPercent = errors.New("penalty percentage cannot be negative")
	ErrInvalidStatus          = errors.New("invalid appointment status")
	ErrAlreadyCancelled       = errors.New("appointment is already cancelled")
	ErrAlreadyCompleted       = errors.New("appointment is already completed")
)

// CancelOutcome tells the caller what a cancel request actually did. The
// grace-window rules can turn a cancel into a recorded-but-skipped request,
// and the two paths report it rather than claiming an unconditional success.
type CancelOutcome string

const (
	// CancelApplied means the appointment moved to cancelled.
	CancelApplied CancelOutcome = "applied"
	// CancelSkippedGraceActive means a penalty-free cancel arrived inside the
	// grace window: the reason was recorded but the status did not change.
	CancelSkippedGraceActive CancelOutcome = "skipped_grace_active"
	// CancelSkippedWindowElapsed means a penalty cancel arrived after the
	// grace window: nothing changed.
	CancelSkippedWindowElapsed CancelOutcome = "skipped_window_elapsed"
)

// Engine implements the appointment lifecycle state machine. All transitions
// go through conditional status writes so that a direct call racing the
// confirmation worker cannot resurrect a terminal appointment.
type Engine struct {
	appts       AppointmentRepository
	services    ServiceRepository
	locker      redisclient.Locker
	graceWindow time.Duration
}

func NewEngine(appts AppointmentRepository, services ServiceRepository, locker redisclient.Locker, graceWindow time.Duration) *Engine {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	return &Engine{
		appts:       appts,
		services:    services,
		locker:      locker,
		graceWindow: graceWindow,
	}
}

// Create books a new appointment for serviceID over [start, end). The
// overlap check and the insert run under the booking lock so two concurrent
// requests cannot both pass the conflict check.
func (e *Engine) Create(ctx context.Context, serviceID uuid.UUID, start, end time.Time) (*Appointment, error) {
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}

	if _, err := e.services.GetByID(ctx, serviceID); err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	var created *Appointment

	err := e.locker.WithBookingLock(ctx, func(lockCtx context.Context) error {
		taken, err := e.appts.ExistsOverlapping(lockCtx, start, end)
		if err != nil {
			return fmt.Errorf("check overlapping appointments: %w", err)
		}
		if taken {
			return ErrBookingConflict
		}

		now := time.Now()
		a := &Appointment{
			ID:        uuid.New(),
			ServiceID: serviceID,
			StartTime: start,
			EndTime:   end,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.appts.Save(lockCtx, a); err != nil {
			return fmt.Errorf("save appointment: %w", err)
		}

		created = a
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingBusy
		}
		return nil, err
	}

	return created, nil
}

func (e *Engine) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := e.appts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return a, nil
}

func (e *Engine) ListByStatus(ctx context.Context, status AppointmentStatus) ([]Appointment, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	list, err := e.appts.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list appointments by status: %w", err)
	}
	return list, nil
}

// ConfirmByCode confirms a pending or rescheduled appointment with the
// client's out-of-band code.
func (e *Engine) ConfirmByCode(ctx context.Context, id uuid.UUID, code string) (*Appointment, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyConfirmationCode
	}

	a, err := e.loadAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := terminalGuard(a); err != nil {
		return nil, err
	}

	updated, err := e.appts.UpdateStatus(ctx, id, StatusConfirmed, StatusPending, StatusRescheduled)
	if err != nil {
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}

	updated.ConfirmationCode = &code
	updated.UpdatedAt = time.Now()
	if err := e.appts.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("save confirmation code: %w", err)
	}

	return updated, nil
}

// ConfirmWithService confirms the appointment and marks its service as
// awaiting delivery.
func (e *Engine) ConfirmWithService(ctx context.Context, id, serviceID uuid.UUID) (*Appointment, error) {
	a, err := e.loadAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := terminalGuard(a); err != nil {
		return nil, err
	}

	svc, err := e.loadService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	updated, err := e.appts.UpdateStatus(ctx, id, StatusConfirmed, StatusPending, StatusRescheduled, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}

	svc.Status = ServicePending
	svc.UpdatedAt = time.Now()
	if err := e.services.Save(ctx, svc); err != nil {
		return nil, fmt.Errorf("save service: %w", err)
	}

	return updated, nil
}

// AutoConfirm is invoked by the confirmation worker. It confirms a pending
// appointment only while the grace window is still open; afterwards it is a
// silent no-op, reported through the confirmed flag.
func (e *Engine) AutoConfirm(ctx context.Context, id uuid.UUID) (*Appointment, bool, error) {
	a, err := e.loadAppointment(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if GraceWindowElapsed(a, time.Now(), e.graceWindow) {
		return a, false, nil
	}
	if a.Status != StatusPending {
		return a, false, nil
	}

	updated, err := e.appts.UpdateStatus(ctx, id, StatusConfirmed, StatusPending)
	if err != nil {
		if errors.Is(err, ErrStaleStatus) {
			// Lost a race with a direct call; nothing left to confirm.
			return a, false, nil
		}
		return nil, false, fmt.Errorf("auto-confirm appointment: %w", err)
	}

	return updated, true, nil
}

// Complete closes out a confirmed appointment and marks the service as
// delivered. A second call reports the terminal state instead of re-running
// the side effects, so completedAt is set exactly once.
func (e *Engine) Complete(ctx context.Context, id, serviceID uuid.UUID) (*Appointment, error) {
	a, err := e.loadAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := terminalGuard(a); err != nil {
		return nil, err
	}

	svc, err := e.loadService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	updated, err := e.appts.UpdateStatus(ctx, id, StatusCompleted, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	svc.Status = ServiceCompleted
	if svc.CompletedAt == nil {
		now := time.Now()
		svc.CompletedAt = &now
	}
	svc.UpdatedAt = time.Now()
	if err := e.services.Save(ctx, svc); err != nil {
		return nil, fmt.Errorf("save service: %w", err)
	}

	return updated, nil
}

// Reschedule moves the appointment to a new interval.
func (e *Engine) Reschedule(ctx context.Context, id uuid.UUID, newStart, newEnd time.Time) (*Appointment, error) {
	if !newEnd.After(newStart) {
		return nil, ErrInvalidTimeRange
	}

	a, err := e.loadAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := terminalGuard(a); err != nil {
		return nil, err
	}

	updated, err := e.appts.UpdateStatus(ctx, id, StatusRescheduled, StatusPending, StatusConfirmed, StatusRescheduled)
	if err != nil {
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}

	updated.StartTime = newStart
	updated.EndTime = newEnd
	updated.UpdatedAt = time.Now()
	if err := e.appts.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("save rescheduled times: %w", err)
	}

	return updated, nil
}

// CancelWithoutPenalty cancels an appointment free of charge. The status only
// flips once the grace window has elapsed; inside the window the reason and
// updatedAt are still recorded while the status stays put.
func (e *Engine) CancelWithoutPenalty(ctx context.Context, id uuid.UUID, reason string) (*Appointment, CancelOutcome, error) {
	a, err := e.loadAppointment(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := terminalGuard(a); err != nil {
		return nil, "", err
	}

	a.CancellationReason = &reason
	a.UpdatedAt = time.Now()
	if err := e.appts.Save(ctx, a); err != nil {
		return nil, "", fmt.Errorf("save cancellation reason: %w", err)
	}

	if !GraceWindowElapsed(a, time.Now(), e.graceWindow) {
		return a, CancelSkippedGraceActive, nil
	}

	updated, err := e.appts.UpdateStatus(ctx, id, StatusCancelled, StatusPending, StatusConfirmed, StatusRescheduled)
	if err != nil {
		return nil, "", fmt.Errorf("cancel appointment: %w", err)
	}

	return updated, CancelApplied, nil
}

// CancelWithPenalty cancels inside the grace window and surcharges the
// service: penalty = price × pct/100, added onto the price. The penalty is
// recomputed from the current price, never accumulated, and a cancelled
// appointment cannot be penalty-cancelled again.
func (e *Engine) CancelWithPenalty(ctx context.Context, id uuid.UUID, percent float64) (*Appointment, CancelOutcome, error) {
	if percent < 0 {
		return nil, "", ErrNegativePenaltyPercent
	}

	a, err := e.loadAppointment(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := terminalGuard(a); err != nil {
		return nil, "", err
	}

	if GraceWindowElapsed(a, time.Now(), e.graceWindow) {
		return a, CancelSkippedWindowElapsed, nil
	}

	svc, err := e.loadService(ctx, a.ServiceID)
	if err != nil {
		return nil, "", err
	}

	penalty := svc.Price.Mul(decimal.NewFromFloat(percent)).Div(decimal.NewFromInt(100))
	svc.PenaltyAmount = penalty
	svc.Price = svc.Price.Add(penalty)
	svc.UpdatedAt = time.Now()
	if err := e.services.Save(ctx, svc); err != nil {
		return nil, "", fmt.Errorf("save penalty: %w", err)
	}

	updated, err := e.appts.UpdateStatus(ctx, id, StatusCancelled, StatusPending, StatusConfirmed, StatusRescheduled)
	if err != nil {
		return nil, "", fmt.Errorf("cancel appointment with penalty: %w", err)
	}

	return updated, CancelApplied, nil
}

// CountByService returns how many appointments reference the service.
func (e *Engine) CountByService(ctx context.Context, serviceID uuid.UUID) (int, error) {
	if _, err := e.loadService(ctx, serviceID); err != nil {
		return 0, err
	}

	n, err := e.appts.CountByService(ctx, serviceID)
	if err != nil {
		return 0, fmt.Errorf("count appointments by service: %w", err)
	}
	return n, nil
}

// ApplyDiscount reduces the service price by the percentage embedded in the
// code and stores the code on the service.
func (e *Engine) ApplyDiscount(ctx context.Context, serviceID uuid.UUID, code DiscountCode) (*Service, error) {
	pct, err := code.Percent()
	if err != nil {
		return nil, err
	}

	svc, err := e.loadService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	discount := svc.Price.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100))
	svc.Price = svc.Price.Sub(discount)
	svc.DiscountCode = &code
	svc.UpdatedAt = time.Now()
	if err := e.services.Save(ctx, svc); err != nil {
		return nil, fmt.Errorf("save discounted service: %w", err)
	}

	return svc, nil
}

func (e *Engine) loadAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := e.appts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return a, nil
}

func (e *Engine) loadService(ctx context.Context, id uuid.UUID) (*Service, error) {
	svc, err := e.services.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}
	return svc, nil
}

func terminalGuard(a *Appointment) error {
	switch a.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusCompleted:
		return ErrAlreadyCompleted
	}
	return nil
}

package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	redisclient "github.com/trimly/booking-core/internal/redis"
)

func newTestEngine() (*Engine, *MemoryAppointmentRepository, *MemoryServiceRepository) {
	appts := NewMemoryAppointmentRepository()
	services := NewMemoryServiceRepository()
	engine := NewEngine(appts, services, redisclient.NoopLocker{}, time.Hour)
	return engine, appts, services
}

func seedService(t *testing.T, services *MemoryServiceRepository, price string) *Service {
	t.Helper()

	p, err := decimal.NewFromString(price)
	if err != nil {
		t.Fatalf("bad price fixture %q: %v", price, err)
	}

	now := time.Now()
	svc := &Service{
		ID:              uuid.New(),
		Name:            "Classic Cut",
		Price:           p,
		PenaltyAmount:   decimal.Zero,
		DurationMinutes: 30,
		Status:          ServicePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := services.Save(context.Background(), svc); err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return svc
}

// seedAppointment stores an appointment directly so tests can control
// CreatedAt relative to the grace window.
func seedAppointment(t *testing.T, appts *MemoryAppointmentRepository, serviceID uuid.UUID, status AppointmentStatus, createdAgo time.Duration) *Appointment {
	t.Helper()

	created := time.Now().Add(-createdAgo)
	a := &Appointment{
		ID:        uuid.New(),
		ServiceID: serviceID,
		StartTime: created.Add(24 * time.Hour),
		EndTime:   created.Add(24*time.Hour + 30*time.Minute),
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := appts.Save(context.Background(), a); err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return a
}

func TestCreate_RejectsInvalidRange(t *testing.T) {
	engine, _, services := newTestEngine()
	svc := seedService(t, services, "40.00")

	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	if _, err := engine.Create(context.Background(), svc.ID, start, start); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
	if _, err := engine.Create(context.Background(), svc.ID, start, start.Add(-time.Minute)); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestCreate_RejectsOverlap(t *testing.T) {
	engine, _, services := newTestEngine()
	svc := seedService(t, services, "40.00")
	other := seedService(t, services, "25.00")

	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	if _, err := engine.Create(context.Background(), svc.ID, start, start.Add(30*time.Minute)); err != nil {
		t.Fatalf("create first appointment: %v", err)
	}

	// Overlap applies across services.
	_, err := engine.Create(context.Background(), other.ID, start.Add(15*time.Minute), start.Add(45*time.Minute))
	if !errors.Is(err, ErrBookingConflict) {
		t.Fatalf("expected ErrBookingConflict, got %v", err)
	}

	// Adjacent intervals do not overlap: [9:00, 9:30) then [9:30, 10:00).
	if _, err := engine.Create(context.Background(), other.ID, start.Add(30*time.Minute), start.Add(time.Hour)); err != nil {
		t.Fatalf("adjacent interval should be bookable: %v", err)
	}
}

func TestCreate_CancelledAppointmentFreesInterval(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "40.00")

	a := seedAppointment(t, appts, svc.ID, StatusPending, 2*time.Hour)

	if _, _, err := engine.CancelWithoutPenalty(context.Background(), a.ID, "client no-show"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := engine.Create(context.Background(), svc.ID, a.StartTime, a.EndTime); err != nil {
		t.Fatalf("interval of a cancelled appointment should be bookable: %v", err)
	}
}

func TestConfirmByCode_Scenario(t *testing.T) {
	engine, _, services := newTestEngine()
	svc := seedService(t, services, "100.00")

	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	a, err := engine.Create(context.Background(), svc.ID, start, start.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != StatusPending {
		t.Fatalf("expected pending after create, got %s", a.Status)
	}

	if _, err := engine.ConfirmByCode(context.Background(), a.ID, ""); !errors.Is(err, ErrEmptyConfirmationCode) {
		t.Fatalf("expected ErrEmptyConfirmationCode, got %v", err)
	}

	confirmed, err := engine.ConfirmByCode(context.Background(), a.ID, "ABC123")
	if err != nil {
		t.Fatalf("confirm by code: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	if confirmed.ConfirmationCode == nil || *confirmed.ConfirmationCode != "ABC123" {
		t.Fatalf("expected confirmation code ABC123, got %v", confirmed.ConfirmationCode)
	}

	completed, err := engine.Complete(context.Background(), a.ID, svc.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}

	gotSvc, err := services.GetByID(context.Background(), svc.ID)
	if err != nil {
		t.Fatalf("load service: %v", err)
	}
	if gotSvc.Status != ServiceCompleted {
		t.Fatalf("expected service completed, got %s", gotSvc.Status)
	}
	if gotSvc.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}
}

func TestConfirmByCode_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.ConfirmByCode(context.Background(), uuid.New(), "ABC123")
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestConfirmWithService_MarksServiceAwaitingDelivery(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "50.00")
	svc.Status = ServiceCompleted
	if err := services.Save(context.Background(), svc); err != nil {
		t.Fatalf("save service: %v", err)
	}

	a := seedAppointment(t, appts, svc.ID, StatusPending, 0)

	confirmed, err := engine.ConfirmWithService(context.Background(), a.ID, svc.ID)
	if err != nil {
		t.Fatalf("confirm with service: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	gotSvc, _ := services.GetByID(context.Background(), svc.ID)
	if gotSvc.Status != ServicePending {
		t.Fatalf("expected service pending delivery, got %s", gotSvc.Status)
	}
}

func TestAutoConfirm_Window(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "40.00")

	inside := seedAppointment(t, appts, svc.ID, StatusPending, 30*time.Minute)
	outside := seedAppointment(t, appts, svc.ID, StatusPending, 90*time.Minute)

	got, confirmed, err := engine.AutoConfirm(context.Background(), inside.ID)
	if err != nil {
		t.Fatalf("auto-confirm inside window: %v", err)
	}
	if !confirmed || got.Status != StatusConfirmed {
		t.Fatalf("expected confirmation inside window, confirmed=%v status=%s", confirmed, got.Status)
	}

	got, confirmed, err = engine.AutoConfirm(context.Background(), outside.ID)
	if err != nil {
		t.Fatalf("auto-confirm outside window should be a no-op, got error: %v", err)
	}
	if confirmed || got.Status != StatusPending {
		t.Fatalf("expected no-op outside window, confirmed=%v status=%s", confirmed, got.Status)
	}
}

func TestAutoConfirm_NoOpWhenNotPending(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "40.00")

	a := seedAppointment(t, appts, svc.ID, StatusCancelled, 10*time.Minute)

	got, confirmed, err := engine.AutoConfirm(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("auto-confirm on cancelled should be a no-op, got error: %v", err)
	}
	if confirmed || got.Status != StatusCancelled {
		t.Fatalf("expected cancelled to stay put, confirmed=%v status=%s", confirmed, got.Status)
	}
}

func TestComplete_Idempotent(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "40.00")

	a := seedAppointment(t, appts, svc.ID, StatusConfirmed, 10*time.Minute)

	if _, err := engine.Complete(context.Background(), a.ID, svc.ID); err != nil {
		t.Fatalf("first complete: %v", err)
	}

	first, _ := services.GetByID(context.Background(), svc.ID)
	if first.CompletedAt == nil {
		t.Fatal("expected completedAt after first complete")
	}

	if _, err := engine.Complete(context.Background(), a.ID, svc.ID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted on second complete, got %v", err)
	}

	second, _ := services.GetByID(context.Background(), svc.ID)
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Fatal("completedAt must not change on a repeated complete")
	}
}

func TestComplete_RequiresConfirmed(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "40.00")

	a := seedAppointment(t, appts, svc.ID, StatusPending, 10*time.Minute)

	_, err := engine.Complete(context.Background(), a.ID, svc.ID)
	if !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("expected ErrStaleStatus for pending appointment, got %v", err)
	}
}

func TestReschedule(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "40.00")

	a := seedAppointment(t, appts, svc.ID, StatusConfirmed, 10*time.Minute)

	newStart := time.Date(2025, 2, 1, 14, 0, 0, 0, time.UTC)
	newEnd := newStart.Add(45 * time.Minute)

	updated, err := engine.Reschedule(context.Background(), a.ID, newStart, newEnd)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if updated.Status != StatusRescheduled {
		t.Fatalf("expected rescheduled, got %s", updated.Status)
	}
	if !updated.StartTime.Equal(newStart) || !updated.EndTime.Equal(newEnd) {
		t.Fatalf("expected times %s-%s, got %s-%s", newStart, newEnd, updated.StartTime, updated.EndTime)
	}

	if _, err := engine.Reschedule(context.Background(), a.ID, newEnd, newStart); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestCancelWithoutPenalty_InsideWindowRecordsReasonOnly(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "40.00")

	a := seedAppointment(t, appts, svc.ID, StatusPending, 10*time.Minute)

	got, outcome, err := engine.CancelWithoutPenalty(context.Background(), a.ID, "changed my mind")
	if err != nil {
		t.Fatalf("cancel without penalty: %v", err)
	}
	if outcome != CancelSkippedGraceActive {
		t.Fatalf("expected skipped outcome inside window, got %s", outcome)
	}
	if got.Status != StatusPending {
		t.Fatalf("status must not change inside the window, got %s", got.Status)
	}

	stored, _ := appts.GetByID(context.Background(), a.ID)
	if stored.CancellationReason == nil || *stored.CancellationReason != "changed my mind" {
		t.Fatalf("expected reason recorded, got %v", stored.CancellationReason)
	}
	if !stored.UpdatedAt.After(a.UpdatedAt) {
		t.Fatal("expected updatedAt to be refreshed")
	}
}

func TestCancelWithoutPenalty_AfterWindowCancels(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "40.00")

	a := seedAppointment(t, appts, svc.ID, StatusConfirmed, 2*time.Hour)

	got, outcome, err := engine.CancelWithoutPenalty(context.Background(), a.ID, "running late")
	if err != nil {
		t.Fatalf("cancel without penalty: %v", err)
	}
	if outcome != CancelApplied {
		t.Fatalf("expected applied outcome, got %s", outcome)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.CancellationReason == nil || *got.CancellationReason != "running late" {
		t.Fatalf("expected reason on cancelled appointment, got %v", got.CancellationReason)
	}
}

func TestCancelWithPenalty_InsideWindow(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "100.00")

	a := seedAppointment(t, appts, svc.ID, StatusPending, 10*time.Minute)

	got, outcome, err := engine.CancelWithPenalty(context.Background(), a.ID, 20)
	if err != nil {
		t.Fatalf("cancel with penalty: %v", err)
	}
	if outcome != CancelApplied {
		t.Fatalf("expected applied outcome, got %s", outcome)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}

	gotSvc, _ := services.GetByID(context.Background(), svc.ID)
	if gotSvc.PenaltyAmount.StringFixed(2) != "20.00" {
		t.Fatalf("expected penalty 20.00, got %s", gotSvc.PenaltyAmount.StringFixed(2))
	}
	if gotSvc.Price.StringFixed(2) != "120.00" {
		t.Fatalf("expected price 120.00, got %s", gotSvc.Price.StringFixed(2))
	}
}

func TestCancelWithPenalty_AfterWindowIsNoOp(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "100.00")

	a := seedAppointment(t, appts, svc.ID, StatusPending, 2*time.Hour)

	got, outcome, err := engine.CancelWithPenalty(context.Background(), a.ID, 20)
	if err != nil {
		t.Fatalf("cancel with penalty after window: %v", err)
	}
	if outcome != CancelSkippedWindowElapsed {
		t.Fatalf("expected skipped outcome, got %s", outcome)
	}
	if got.Status != StatusPending {
		t.Fatalf("status must not change after the window, got %s", got.Status)
	}

	gotSvc, _ := services.GetByID(context.Background(), svc.ID)
	if gotSvc.PenaltyAmount.StringFixed(2) != "0.00" {
		t.Fatalf("expected penalty unchanged, got %s", gotSvc.PenaltyAmount.StringFixed(2))
	}
	if gotSvc.Price.StringFixed(2) != "100.00" {
		t.Fatalf("expected price unchanged, got %s", gotSvc.Price.StringFixed(2))
	}
}

func TestCancelWithPenalty_Validation(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "100.00")
	a := seedAppointment(t, appts, svc.ID, StatusPending, 10*time.Minute)

	if _, _, err := engine.CancelWithPenalty(context.Background(), a.ID, -1); !errors.Is(err, ErrNegativePenaltyPercent) {
		t.Fatalf("expected ErrNegativePenaltyPercent, got %v", err)
	}
}

func TestLifecycle_TerminalStatesAreFinal(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "100.00")

	cancelled := seedAppointment(t, appts, svc.ID, StatusCancelled, 2*time.Hour)
	completed := seedAppointment(t, appts, svc.ID, StatusCompleted, 2*time.Hour)

	if _, err := engine.ConfirmByCode(context.Background(), cancelled.ID, "ABC123"); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
	if _, err := engine.Reschedule(context.Background(), cancelled.ID, time.Now(), time.Now().Add(time.Hour)); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
	if _, _, err := engine.CancelWithPenalty(context.Background(), cancelled.ID, 20); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("repeat penalty cancellation must be rejected, got %v", err)
	}
	if _, _, err := engine.CancelWithoutPenalty(context.Background(), completed.ID, "too late"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if _, err := engine.ConfirmWithService(context.Background(), completed.ID, svc.ID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestCountByService(t *testing.T) {
	engine, appts, services := newTestEngine()
	svc := seedService(t, services, "40.00")
	other := seedService(t, services, "25.00")

	seedAppointment(t, appts, svc.ID, StatusPending, 0)
	seedAppointment(t, appts, svc.ID, StatusCancelled, 0)
	seedAppointment(t, appts, other.ID, StatusPending, 0)

	n, err := engine.CountByService(context.Background(), svc.ID)
	if err != nil {
		t.Fatalf("count by service: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 appointments, got %d", n)
	}

	if _, err := engine.CountByService(context.Background(), uuid.New()); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestApplyDiscount(t *testing.T) {
	engine, _, services := newTestEngine()
	svc := seedService(t, services, "100.00")

	code, err := NewDiscountCode(25)
	if err != nil {
		t.Fatalf("mint discount code: %v", err)
	}

	got, err := engine.ApplyDiscount(context.Background(), svc.ID, code)
	if err != nil {
		t.Fatalf("apply discount: %v", err)
	}
	if got.Price.StringFixed(2) != "75.00" {
		t.Fatalf("expected price 75.00, got %s", got.Price.StringFixed(2))
	}
	if got.DiscountCode == nil || *got.DiscountCode != code {
		t.Fatalf("expected discount code stored, got %v", got.DiscountCode)
	}

	if _, err := engine.ApplyDiscount(context.Background(), svc.ID, DiscountCode("garbage")); !errors.Is(err, ErrInvalidDiscountCode) {
		t.Fatalf("expected ErrInvalidDiscountCode, got %v", err)
	}
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgAppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewPgAppointmentRepository(pool *pgxpool.Pool) *PgAppointmentRepository {
	return &PgAppointmentRepository{pool: pool}
}

const appointmentColumns = `id, service_id, start_time, end_time, status, confirmation_code, cancellation_reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var code, reason *string

	err := row.Scan(
		&a.ID,
		&a.ServiceID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&code,
		&reason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.ConfirmationCode = code
	a.CancellationReason = reason
	return &a, nil
}

func (r *PgAppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// Save upserts every field except status; status moves only through
// UpdateStatus so transitions stay conditional.
func (r *PgAppointmentRepository) Save(ctx context.Context, a *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (id, service_id, start_time, end_time, status, confirmation_code, cancellation_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			start_time          = EXCLUDED.start_time,
			end_time            = EXCLUDED.end_time,
			confirmation_code   = EXCLUDED.confirmation_code,
			cancellation_reason = EXCLUDED.cancellation_reason,
			updated_at          = EXCLUDED.updated_at
	`, a.ID, a.ServiceID, a.StartTime, a.EndTime, a.Status, a.ConfirmationCode, a.CancellationReason, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save appointment: %w", err)
	}
	return nil
}

func (r *PgAppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus, from ...AppointmentStatus) (*Appointment, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+appointmentColumns+`
	`, id, to, fromStrs)

	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Distinguish a missing row from a precondition miss.
			if _, getErr := r.GetByID(ctx, id); getErr == nil {
				return nil, ErrStaleStatus
			}
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *PgAppointmentRepository) ExistsOverlapping(ctx context.Context, start, end time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE start_time < $2
			  AND end_time > $1
			  AND status <> 'cancelled'
		)
	`, start, end).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgAppointmentRepository) CountByService(ctx context.Context, serviceID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE service_id = $1
	`, serviceID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PgAppointmentRepository) ListByStatus(ctx context.Context, status AppointmentStatus) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = $1
		ORDER BY start_time
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

type PgServiceRepository struct {
	pool *pgxpool.Pool
}

func NewPgServiceRepository(pool *pgxpool.Pool) *PgServiceRepository {
	return &PgServiceRepository{pool: pool}
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	var completedAt *time.Time
	var discountCode *string

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Price,
		&s.PenaltyAmount,
		&s.DurationMinutes,
		&s.Status,
		&completedAt,
		&discountCode,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	s.CompletedAt = completedAt
	if discountCode != nil {
		code := DiscountCode(*discountCode)
		s.DiscountCode = &code
	}
	return &s, nil
}

func (r *PgServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, price, penalty_amount, duration_minutes, status, completed_at, discount_code, created_at, updated_at
		FROM services
		WHERE id = $1
	`, id)
	return scanService(row)
}

func (r *PgServiceRepository) Save(ctx context.Context, s *Service) error {
	var discountCode *string
	if s.DiscountCode != nil {
		code := string(*s.DiscountCode)
		discountCode = &code
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, name, price, penalty_amount, duration_minutes, status, completed_at, discount_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name             = EXCLUDED.name,
			price            = EXCLUDED.price,
			penalty_amount   = EXCLUDED.penalty_amount,
			duration_minutes = EXCLUDED.duration_minutes,
			status           = EXCLUDED.status,
			completed_at     = EXCLUDED.completed_at,
			discount_code    = EXCLUDED.discount_code,
			updated_at       = EXCLUDED.updated_at
	`, s.ID, s.Name, s.Price, s.PenaltyAmount, s.DurationMinutes, s.Status, s.CompletedAt, discountCode, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save service: %w", err)
	}
	return nil
}

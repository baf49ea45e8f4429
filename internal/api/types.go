package api

import (
	"time"

	"github.com/google/uuid"
)

type CreateAppointmentRequest struct {
	ServiceID string    `json:"service_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type ConfirmByCodeRequest struct {
	Code string `json:"code"`
}

type ServiceRefRequest struct {
	ServiceID string `json:"service_id"`
}

type RescheduleRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type CancelWithPenaltyRequest struct {
	Percent float64 `json:"percent"`
}

type ApplyDiscountRequest struct {
	Percent int `json:"percent"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID `json:"id"`
	ServiceID          uuid.UUID `json:"service_id"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	Status             string    `json:"status"`
	ConfirmationCode   *string   `json:"confirmation_code,omitempty"`
	CancellationReason *string   `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type CancelResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Outcome     string              `json:"outcome"`
	Message     string              `json:"message"`
}

type CountResponse struct {
	ServiceID uuid.UUID `json:"service_id"`
	Count     int       `json:"count"`
}

type DiscountResponse struct {
	ServiceID uuid.UUID `json:"service_id"`
	Code      string    `json:"code"`
	Price     string    `json:"price"`
}

type EnqueueResponse struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

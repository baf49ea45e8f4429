package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/trimly/booking-core/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	serviceIDs, err := seedServices(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, serviceIDs, 200); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedServices(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d services", count)

	names := []string{
		"Classic Cut",
		"Skin Fade",
		"Beard Trim",
		"Hot Towel Shave",
		"Buzz Cut",
		"Scissor Cut",
		"Kids Cut",
		"Cut and Beard Combo",
		"Line Up",
		"Head Shave",
	}
	durations := []int{15, 20, 30, 45, 60}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := names[gofakeit.Number(0, len(names)-1)]
		price := decimal.NewFromFloat(gofakeit.Price(10, 80)).Round(2)
		duration := durations[gofakeit.Number(0, len(durations)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, name, price, penalty_amount, duration_minutes, status, created_at, updated_at)
			VALUES ($1, $2, $3, 0, $4, 'pending', now(), now())
		`, id, name, price, duration)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedAppointments books back-to-back slots on future days so none of the
// generated intervals overlap.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, serviceIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	statuses := []string{"pending", "confirmed", "rescheduled", "completed"}

	day := time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour)
	slot := day.Add(9 * time.Hour)
	for i := 0; i < count; i++ {
		id := uuid.New()
		serviceID := serviceIDs[gofakeit.Number(0, len(serviceIDs)-1)]
		status := statuses[gofakeit.Number(0, len(statuses)-1)]
		start := slot
		end := start.Add(30 * time.Minute)

		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, service_id, start_time, end_time, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, serviceID, start, end, status)
		if err != nil {
			return err
		}

		slot = end
		// Stay within a 09:00-18:00 working day.
		if slot.Sub(day) >= 18*time.Hour {
			day = day.Add(24 * time.Hour)
			slot = day.Add(9 * time.Hour)
		}
	}

	return tx.Commit(ctx)
}

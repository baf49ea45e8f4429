package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
)

// ConfirmWorker is the single consumer of the confirmation queue. It drains
// IDs and auto-confirms them through the engine. A failure on one item never
// stops the loop; the item is logged and dropped.
type ConfirmWorker struct {
	queue       *ConfirmQueue
	engine      *Engine
	itemTimeout time.Duration
}

func NewConfirmWorker(queue *ConfirmQueue, engine *Engine, itemTimeout time.Duration) *ConfirmWorker {
	if itemTimeout <= 0 {
		itemTimeout = 20 * time.Second
	}
	return &ConfirmWorker{
		queue:       queue,
		engine:      engine,
		itemTimeout: itemTimeout,
	}
}

// Run blocks until ctx is cancelled. An in-flight auto-confirmation is
// allowed to complete; no further items are drained after cancellation.
func (w *ConfirmWorker) Run(ctx context.Context) {
	log.Println("confirmation worker started")

	for {
		id, err := w.queue.Dequeue(ctx)
		if err != nil {
			log.Println("confirmation worker stopping")
			return
		}

		w.processOne(ctx, id)
	}
}

func (w *ConfirmWorker) processOne(ctx context.Context, id uuid.UUID) {
	// Detach the item timeout from ctx cancellation so a shutdown signal
	// does not abort the confirmation already in flight.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.itemTimeout)
	defer cancel()

	start := time.Now()
	_, confirmed, err := w.engine.AutoConfirm(runCtx, id)
	switch {
	case errors.Is(err, ErrAppointmentNotFound):
		log.Printf("auto-confirm skipped, appointment missing: id=%s", id)
	case err != nil:
		log.Printf("auto-confirm failed: id=%s err=%v", id, err)
	case confirmed:
		log.Printf("auto-confirmed appointment: id=%s duration=%s", id, time.Since(start))
	default:
		log.Printf("auto-confirm no-op: id=%s", id)
	}
}

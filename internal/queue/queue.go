// Package queue carries notification jobs from the request path to the
// delivery workers.
package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("queue closed")
	// ErrFull is returned when a bounded queue has no room.
	ErrFull = errors.New("queue full")
)

// Job is a single assignment notification waiting for delivery.
type Job struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	WorkItemID  int64     `json:"work_item_id"`
	ItemNumber  string    `json:"item_number"`
	Recipient   string    `json:"recipient"`
	Destination string    `json:"destination"`
	Message     string    `json:"message"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Queue is a FIFO of jobs. Dequeue blocks until a job is available or ctx
// is done, in which case it returns ctx.Err().
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, error)
	Close() error
}

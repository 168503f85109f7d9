package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task states.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeLoanEmail identifies the task that mails a loan notice to a borrower.
const TaskTypeLoanEmail = "loan_email"

// Task is one unit of background work.
type Task interface {
	ID() uuid.UUID
	Type() string

	// Payload is the encoded task data, kept for logging and inspection.
	Payload() []byte

	Status() TaskStatus

	// Execute does the work. It may run more than once when it fails with
	// an error not wrapped by Permanent.
	Execute(ctx context.Context) error
}

// TaskQueueReader is the consuming side of a queue.
type TaskQueueReader interface {
	// GetChannel returns the channel tasks are delivered on. It is closed
	// when the queue is closed.
	GetChannel() <-chan Task
}

// TaskQueueWriter is the producing side of a queue.
type TaskQueueWriter interface {
	// Enqueue submits a task without blocking. It fails with ErrQueueFull or
	// ErrQueueClosed.
	Enqueue(task Task) error

	Close()
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as one that retrying cannot fix, such as a mail relay
// rejecting the recipient. The worker pool gives up on such a task at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or an error it wraps, came from Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

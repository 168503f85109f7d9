package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/phrazzld/dibs-api/internal/task"
)

// EmailTask sends one message from the worker pool.
type EmailTask struct {
	id      uuid.UUID
	msg     Message
	payload []byte
	mailer  Mailer

	mu     sync.Mutex
	status task.TaskStatus
}

// Verify interface compliance at compile time
var _ task.Task = (*EmailTask)(nil)

// NewEmailTask creates a pending EmailTask.
func NewEmailTask(msg Message, mailer Mailer) (*EmailTask, error) {
	payload, err := jsoniter.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode email payload: %w", err)
	}
	return &EmailTask{
		id:      uuid.New(),
		msg:     msg,
		payload: payload,
		mailer:  mailer,
		status:  task.TaskStatusPending,
	}, nil
}

// ID implements task.Task.
func (t *EmailTask) ID() uuid.UUID { return t.id }

// Type implements task.Task.
func (t *EmailTask) Type() string { return task.TaskTypeLoanEmail }

// Payload implements task.Task.
func (t *EmailTask) Payload() []byte { return t.payload }

// Status implements task.Task.
func (t *EmailTask) Status() task.TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *EmailTask) setStatus(s task.TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Execute implements task.Task.
func (t *EmailTask) Execute(ctx context.Context) error {
	t.setStatus(task.TaskStatusProcessing)
	if err := t.mailer.Send(ctx, t.msg); err != nil {
		t.setStatus(task.TaskStatusFailed)
		return err
	}
	t.setStatus(task.TaskStatusCompleted)
	return nil
}

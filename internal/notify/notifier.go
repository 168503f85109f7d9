package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/events"
	"github.com/phrazzld/dibs-api/internal/platform/logger"
	"github.com/phrazzld/dibs-api/internal/task"
)

// Notifier tells a borrower about a new loan.
type Notifier interface {
	Notify(ctx context.Context, notice domain.LoanNotice) error
}

// TaskNotifier queues an EmailTask per notice.
type TaskNotifier struct {
	queue    task.TaskQueueWriter
	mailer   Mailer
	settings Settings
	logger   *slog.Logger
}

// NewTaskNotifier creates a TaskNotifier.
func NewTaskNotifier(queue task.TaskQueueWriter, mailer Mailer, settings Settings, logger *slog.Logger) *TaskNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskNotifier{
		queue:    queue,
		mailer:   mailer,
		settings: settings,
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

// Notify implements Notifier. Users without an email address are skipped.
func (n *TaskNotifier) Notify(ctx context.Context, notice domain.LoanNotice) error {
	log := logger.FromContextOrDefault(ctx, n.logger)

	if !strings.Contains(notice.User, "@") {
		log.Debug("no email address for user, skipping notice",
			slog.String("user", notice.User),
			slog.String("barcode", notice.Barcode))
		return nil
	}

	msg, err := ComposeLoanEmail(notice, n.settings)
	if err != nil {
		return err
	}
	t, err := NewEmailTask(msg, n.mailer)
	if err != nil {
		return err
	}
	if err := n.queue.Enqueue(t); err != nil {
		return fmt.Errorf("failed to queue loan email: %w", err)
	}

	log.Info("queued loan email",
		slog.String("user", notice.User),
		slog.String("barcode", notice.Barcode),
		slog.String("task_id", t.ID().String()))
	return nil
}

// GrantedHandler forwards granted loans to the notifier and ignores other events.
func GrantedHandler(n Notifier) events.EventHandler {
	return events.HandlerFunc(func(ctx context.Context, event *events.LoanEvent) error {
		if event.Type != events.LoanGranted {
			return nil
		}
		return n.Notify(ctx, event.Notice())
	})
}

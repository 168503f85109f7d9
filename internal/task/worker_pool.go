package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WorkerPoolConfig configures a WorkerPool.
type WorkerPoolConfig struct {
	// WorkerCount is the number of concurrent workers. Values below one
	// start a single worker.
	WorkerCount int

	// MaxAttempts bounds how often a failing task runs. Values below one
	// mean a single attempt.
	MaxAttempts int

	// RetryDelay is the wait before the second attempt. It doubles after
	// every further failure.
	RetryDelay time.Duration

	// Metrics records task outcomes when set.
	Metrics *Metrics
}

// DefaultWorkerPoolConfig returns two workers and three attempts per task.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 2,
		MaxAttempts: 3,
		RetryDelay:  2 * time.Second,
	}
}

// WorkerPool executes tasks read from a queue.
type WorkerPool struct {
	queue  TaskQueueReader
	config WorkerPoolConfig

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	// errorHandler sees every task that failed for good.
	errorHandler func(task Task, err error)
}

// NewWorkerPool creates a pool over queue. Call Start to run it.
func NewWorkerPool(queue TaskQueueReader, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "worker_pool"))

	if config.WorkerCount < 1 {
		logger.Warn("invalid worker count, using 1", slog.Int("configured", config.WorkerCount))
		config.WorkerCount = 1
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		queue:  queue,
		config: config,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// SetErrorHandler registers a callback for tasks that exhausted their
// attempts or failed permanently. Set it before Start.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// Start launches the workers and returns immediately.
func (p *WorkerPool) Start() {
	p.logger.Info("starting worker pool",
		slog.Int("worker_count", p.config.WorkerCount),
		slog.Int("max_attempts", p.config.MaxAttempts))
	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels running tasks and waits for the workers to return. Queued
// tasks are dropped.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// Shutdown waits for the workers to drain a closed queue. When ctx ends
// first, the remaining work is cancelled as by Stop and ctx's error is
// returned. The queue must be closed beforehand or Shutdown waits for ctx.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool drained")
		return nil
	case <-ctx.Done():
		p.Stop()
		return fmt.Errorf("worker pool did not drain: %w", ctx.Err())
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	tasks := p.queue.GetChannel()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-tasks:
			if !ok {
				p.logger.Debug("queue closed, worker exiting", slog.Int("worker_id", id))
				return
			}
			p.process(task, id)
		}
	}
}

// process runs task until it succeeds, fails permanently, runs out of
// attempts or the pool is stopped.
func (p *WorkerPool) process(task Task, workerID int) {
	log := p.logger.With(
		slog.String("task_id", task.ID().String()),
		slog.String("task_type", task.Type()),
		slog.Int("worker_id", workerID),
	)

	delay := p.config.RetryDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = p.runOnce(task)
		if err == nil {
			log.Debug("task completed", slog.Int("attempt", attempt))
			p.config.Metrics.finished(task.Type(), outcomeCompleted)
			return
		}
		if IsPermanent(err) || attempt >= p.config.MaxAttempts {
			break
		}

		log.Warn("task attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
		p.config.Metrics.retried(task.Type())

		if !p.sleep(delay) {
			err = fmt.Errorf("pool stopped before retry: %w", err)
			break
		}
		delay *= 2
	}

	log.Error("task failed", slog.String("error", err.Error()))
	p.config.Metrics.finished(task.Type(), outcomeFailed)
	if p.errorHandler != nil {
		p.errorHandler(task, err)
	}
}

// runOnce executes task, turning a panic into an error.
func (p *WorkerPool) runOnce(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("task panic: %v", r))
		}
	}()
	return task.Execute(p.ctx)
}

// sleep waits for d and reports false if the pool was stopped meanwhile.
func (p *WorkerPool) sleep(d time.Duration) bool {
	if d <= 0 {
		return p.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.ctx.Done():
		return false
	}
}

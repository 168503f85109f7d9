package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failures collects the tasks reported to the error handler.
type failures struct {
	mu   sync.Mutex
	errs []error
	done chan struct{}
}

func newFailures() *failures {
	return &failures{done: make(chan struct{}, 16)}
}

func (f *failures) handle(_ Task, err error) {
	f.mu.Lock()
	f.errs = append(f.errs, err)
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *failures) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task failure")
	}
}

func (f *failures) list() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.errs...)
}

func startPool(t *testing.T, config WorkerPoolConfig) (*TaskQueue, *WorkerPool) {
	t.Helper()
	q := NewTaskQueue(16, quietLogger())
	p := NewWorkerPool(q, config, quietLogger())
	p.Start()
	t.Cleanup(p.Stop)
	return q, p
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task")
	}
}

func TestNewWorkerPool_NormalizesConfig(t *testing.T) {
	p := NewWorkerPool(NewTaskQueue(1, nil), WorkerPoolConfig{WorkerCount: -3, MaxAttempts: 0, RetryDelay: -time.Second}, quietLogger())

	assert.Equal(t, 1, p.config.WorkerCount)
	assert.Equal(t, 1, p.config.MaxAttempts)
	assert.Zero(t, p.config.RetryDelay)

	def := DefaultWorkerPoolConfig()
	assert.Equal(t, 2, def.WorkerCount)
	assert.Equal(t, 3, def.MaxAttempts)
}

func TestWorkerPool_RunsTasks(t *testing.T) {
	q, _ := startPool(t, WorkerPoolConfig{WorkerCount: 2})

	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(newStubTask(func(context.Context, int) error {
			done <- struct{}{}
			return nil
		})))
	}
	for i := 0; i < 3; i++ {
		waitFor(t, done)
	}
}

func TestWorkerPool_RetriesTransientFailures(t *testing.T) {
	q := NewTaskQueue(4, quietLogger())
	p := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1, MaxAttempts: 3, RetryDelay: time.Millisecond}, quietLogger())
	f := newFailures()
	p.SetErrorHandler(f.handle)
	p.Start()
	defer p.Stop()

	done := make(chan struct{}, 1)
	flaky := newStubTask(func(_ context.Context, run int) error {
		if run < 3 {
			return errors.New("relay busy")
		}
		done <- struct{}{}
		return nil
	})
	require.NoError(t, q.Enqueue(flaky))

	waitFor(t, done)
	assert.EqualValues(t, 3, flaky.runs.Load())
	assert.Empty(t, f.list())
}

func TestWorkerPool_GivesUp(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantRuns int32
	}{
		{name: "attempts exhausted", err: errors.New("relay busy"), wantRuns: 2},
		{name: "permanent failure", err: Permanent(errors.New("bad recipient")), wantRuns: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewTaskQueue(4, quietLogger())
			p := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1, MaxAttempts: 2, RetryDelay: time.Millisecond}, quietLogger())
			f := newFailures()
			p.SetErrorHandler(f.handle)
			p.Start()
			defer p.Stop()

			failing := newStubTask(func(context.Context, int) error { return tt.err })
			require.NoError(t, q.Enqueue(failing))

			f.wait(t)
			assert.Equal(t, tt.wantRuns, failing.runs.Load())
			require.Len(t, f.list(), 1)
			assert.ErrorIs(t, f.list()[0], tt.err)
		})
	}
}

func TestWorkerPool_RecoversFromPanic(t *testing.T) {
	q := NewTaskQueue(4, quietLogger())
	p := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1, MaxAttempts: 3}, quietLogger())
	f := newFailures()
	p.SetErrorHandler(f.handle)
	p.Start()
	defer p.Stop()

	panicking := newStubTask(func(context.Context, int) error { panic("boom") })
	require.NoError(t, q.Enqueue(panicking))
	f.wait(t)

	assert.EqualValues(t, 1, panicking.runs.Load(), "panics are not retried")
	assert.Contains(t, f.list()[0].Error(), "boom")

	// The worker survives the panic.
	done := make(chan struct{}, 1)
	require.NoError(t, q.Enqueue(newStubTask(func(context.Context, int) error {
		done <- struct{}{}
		return nil
	})))
	waitFor(t, done)
}

func TestWorkerPool_StopCancelsRunningTask(t *testing.T) {
	q := NewTaskQueue(4, quietLogger())
	p := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1}, quietLogger())
	p.Start()

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, q.Enqueue(newStubTask(func(ctx context.Context, _ int) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})))

	waitFor(t, started)
	p.Stop()
	waitFor(t, cancelled)
}

func TestWorkerPool_ShutdownDrainsClosedQueue(t *testing.T) {
	q := NewTaskQueue(8, quietLogger())
	p := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1}, quietLogger())

	tasks := make([]*stubTask, 5)
	for i := range tasks {
		tasks[i] = newStubTask(nil)
		require.NoError(t, q.Enqueue(tasks[i]))
	}
	q.Close()
	p.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	for _, task := range tasks {
		assert.EqualValues(t, 1, task.runs.Load())
	}
}

func TestWorkerPool_ShutdownTimesOut(t *testing.T) {
	q := NewTaskQueue(1, quietLogger())
	p := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1}, quietLogger())
	p.Start()

	// The queue stays open, so the workers never drain.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerPool_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	q := NewTaskQueue(4, quietLogger())
	m, err := NewMetrics(reg, q)
	require.NoError(t, err)

	depth := func() float64 {
		families, err := reg.Gather()
		require.NoError(t, err)
		for _, mf := range families {
			if mf.GetName() == "dibs_task_queue_depth" {
				return mf.GetMetric()[0].GetGauge().GetValue()
			}
		}
		t.Fatal("queue depth not exported")
		return 0
	}

	p := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1, MaxAttempts: 2, Metrics: m}, quietLogger())
	f := newFailures()
	p.SetErrorHandler(f.handle)

	require.NoError(t, q.Enqueue(newStubTask(nil)))
	require.NoError(t, q.Enqueue(newStubTask(func(context.Context, int) error { return errors.New("down") })))
	assert.Equal(t, 2.0, depth())

	p.Start()
	defer p.Stop()
	f.wait(t)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.executions.WithLabelValues("stub", outcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.executions.WithLabelValues("stub", outcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries.WithLabelValues("stub")))
	assert.Equal(t, 0.0, depth())

	_, err = NewMetrics(reg, nil)
	assert.Error(t, err, "registering twice fails")
}

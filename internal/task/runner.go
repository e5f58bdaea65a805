package task

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrQueueFull is returned by Submit when the in-memory queue has no room.
// The task is still persisted as pending; the monitor queues it again once
// it is older than PendingRetryAge.
var ErrQueueFull = errors.New("task queue is full, try again later")

// ErrRunnerStopped is returned by Submit after Stop.
var ErrRunnerStopped = errors.New("task runner is stopped")

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize is the in-memory buffer, shared out between the workers'
	// queues.
	QueueSize int

	// TaskTimeout bounds a single Execute call. Zero means no limit.
	TaskTimeout time.Duration

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration

	// PendingRetryAge is how long a pending task that is not queued waits
	// before the monitor queues it again. If zero, defaults to 1 minute.
	PendingRetryAge time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		TaskTimeout:            2 * time.Minute,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
		PendingRetryAge:        time.Minute,
	}
}

// TaskRunner manages background task processing. Each worker owns a queue.
// Tasks that implement Keyed always land on the same worker for the same
// key, so they run one at a time in submission order.
type TaskRunner struct {
	store      TaskStore
	registry   *Registry
	queues     []chan Task
	next       atomic.Uint32
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger

	mu         sync.RWMutex
	stopped    bool
	errHandler func(task Task, err error)

	// queued holds ids sitting in a queue or being executed.
	queuedMu sync.Mutex
	queued   map[uuid.UUID]struct{}
}

// NewTaskRunner creates a new TaskRunner. The registry is used to rebuild
// tasks found in the store during recovery.
func NewTaskRunner(store TaskStore, registry *Registry, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.PendingRetryAge == 0 {
		config.PendingRetryAge = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())

	// Split QueueSize so the total buffer stays what was configured.
	queues := make([]chan Task, config.WorkerCount)
	for i := range queues {
		size := config.QueueSize / config.WorkerCount
		if i < config.QueueSize%config.WorkerCount {
			size++
		}
		queues[i] = make(chan Task, size)
	}

	return &TaskRunner{
		store:      store,
		registry:   registry,
		queues:     queues,
		queued:     make(map[uuid.UUID]struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
}

// SetErrorHandler replaces the function called after a task fails.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errHandler = handler
}

// Submit persists a task and queues it for execution.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrRunnerStopped
	}

	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if !r.enqueue(task) {
		return ErrQueueFull
	}
	return nil
}

// enqueue places task on a worker queue without blocking. A keyed task may
// only use its own worker's queue; others take the first queue with room.
// A task that is already queued is not queued twice.
func (r *TaskRunner) enqueue(task Task) bool {
	r.queuedMu.Lock()
	defer r.queuedMu.Unlock()
	if _, ok := r.queued[task.ID()]; ok {
		return true
	}

	if k, ok := task.(Keyed); ok {
		if !r.offer(r.queues[r.route(k.OrderingKey())], task) {
			return false
		}
		r.queued[task.ID()] = struct{}{}
		return true
	}

	start := int(r.next.Add(1)-1) % len(r.queues)
	for i := range r.queues {
		if r.offer(r.queues[(start+i)%len(r.queues)], task) {
			r.queued[task.ID()] = struct{}{}
			return true
		}
	}
	return false
}

func (r *TaskRunner) offer(q chan Task, task Task) bool {
	select {
	case q <- task:
		return true
	default:
		return false
	}
}

// route maps an ordering key to a worker index.
func (r *TaskRunner) route(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(r.queues)))
}

func (r *TaskRunner) done(id uuid.UUID) {
	r.queuedMu.Lock()
	delete(r.queued, id)
	r.queuedMu.Unlock()
}

func (r *TaskRunner) queuedIDs() map[uuid.UUID]struct{} {
	r.queuedMu.Lock()
	defer r.queuedMu.Unlock()
	out := make(map[uuid.UUID]struct{}, len(r.queued))
	for id := range r.queued {
		out[id] = struct{}{}
	}
	return out
}

// Start recovers unfinished tasks, then starts the workers and the stuck
// task monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop cancels running tasks and waits for the workers to exit.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancelFunc()
	r.wg.Wait()
	for _, q := range r.queues {
		close(q)
	}
}

// Recover loads pending and interrupted tasks from the store and queues them.
func (r *TaskRunner) Recover() error {
	ctx := r.ctx

	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Every processing row is from a previous run, whatever its age.
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec, false, "")
	}
	for _, rec := range processing {
		r.requeue(ctx, rec, true, "reset after recovery")
	}
	return nil
}

// requeue rebuilds a record and puts it back on the queue. Records whose
// type is no longer registered are marked failed so they are not retried
// forever.
func (r *TaskRunner) requeue(ctx context.Context, rec Record, reset bool, reason string) {
	logger := r.logger.With("task_id", rec.ID, "task_type", rec.Type)

	task, err := r.registry.Rebuild(rec)
	if err != nil {
		logger.Error("failed to rebuild task", "error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to mark unbuildable task as failed", "error", updateErr)
		}
		return
	}

	if reset {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, reason); err != nil {
			logger.Error("failed to reset task status", "error", err)
			return
		}
	}

	if r.enqueue(task) {
		logger.Debug("requeued task")
	} else {
		logger.Error("failed to requeue task, queue is full")
	}
}

func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-r.queues[id]:
			if !ok {
				return
			}
			r.processTask(task, id)
			r.done(task.ID())
		}
	}
}

func (r *TaskRunner) processTask(task Task, workerID int) {
	ctx := r.ctx
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return
	}

	logger.Info("processing task")
	start := time.Now()

	execCtx := ctx
	if r.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.config.TaskTimeout)
		defer cancel()
	}

	err := task.Execute(execCtx)

	// A shutdown mid-task leaves the row in processing; recovery resets it.
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Warn("task interrupted by shutdown")
		return
	}

	// Status writes use a fresh context so they land even while stopping.
	statusCtx := context.WithoutCancel(ctx)
	if err != nil {
		logger.Error("task execution failed", "error", err, "duration", time.Since(start))
		if updateErr := r.store.UpdateTaskStatus(statusCtx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}

		r.mu.RLock()
		handler := r.errHandler
		r.mu.RUnlock()
		handler(task, err)
		return
	}

	logger.Info("task completed successfully", "duration", time.Since(start))
	if updateErr := r.store.UpdateTaskStatus(statusCtx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
		logger.Error("failed to update task status to completed", "error", updateErr)
	}
}

// stuckTaskMonitor periodically sweeps the store for work that fell out of
// the queues.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep resets tasks stuck in processing longer than StuckTaskAge and queues
// pending tasks older than PendingRetryAge that are not already queued, such
// as those that met a full queue on Submit.
func (r *TaskRunner) sweep() {
	// Taken before reading the store: a task that leaves the set afterwards
	// has already written its final status.
	queued := r.queuedIDs()

	stuck, err := r.store.GetProcessingTasks(r.ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
	} else {
		for _, rec := range stuck {
			if _, ok := queued[rec.ID]; ok {
				continue
			}
			r.logger.Info("found stuck task", "task_id", rec.ID)
			r.requeue(r.ctx, rec, true, "reset after being stuck in processing state")
		}
	}

	pending, err := r.store.GetPendingTasks(r.ctx)
	if err != nil {
		r.logger.Error("failed to check for unqueued pending tasks", "error", err)
		return
	}
	cutoff := time.Now().Add(-r.config.PendingRetryAge)
	for _, rec := range pending {
		if _, ok := queued[rec.ID]; ok || rec.UpdatedAt.After(cutoff) {
			continue
		}
		r.logger.Info("queueing pending task", "task_id", rec.ID)
		r.requeue(r.ctx, rec, false, "")
	}
}

package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrPoolClosed is returned when submitting to a pool that is draining
var ErrPoolClosed = errors.New("worker pool is closed")

// ErrPoolNotStarted is returned when submitting before Start
var ErrPoolNotStarted = errors.New("worker pool is not started")

// PoolConfig configures worker pool behavior
type PoolConfig struct {
	Workers   int // Number of concurrent workers
	QueueSize int // Buffered tasks waiting for a worker
}

// Task represents a unit of work to be processed
type Task struct {
	ID          string
	Payload     interface{}
	ProcessFunc func(ctx context.Context, payload interface{}) error
}

// TaskResult represents the result of task execution
type TaskResult struct {
	TaskID    string
	Success   bool
	Error     error
	Panicked  bool
	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// ResultHandler receives every finished task. It is called from worker
// goroutines and must be safe for concurrent use.
type ResultHandler func(task *Task, result TaskResult)

const (
	stateNew int32 = iota
	stateRunning
	stateClosed
)

// WorkerPool runs tasks on a fixed number of goroutines
type WorkerPool struct {
	config   PoolConfig
	logger   *zap.Logger
	onResult ResultHandler

	taskQueue chan *Task
	wg        sync.WaitGroup

	// Statistics
	tasksSubmitted int64
	tasksCompleted int64
	tasksFailed    int64
	activeWorkers  int64

	state     int32
	stateLock sync.RWMutex
	closeOnce sync.Once
}

// worker represents an individual worker goroutine
type worker struct {
	id     int
	ctx    context.Context
	logger *zap.Logger
}

// NewWorkerPool creates a new worker pool with the given configuration
func NewWorkerPool(config PoolConfig, logger *zap.Logger, onResult ResultHandler) *WorkerPool {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}

	return &WorkerPool{
		config:    config,
		logger:    logger,
		onResult:  onResult,
		taskQueue: make(chan *Task, config.QueueSize),
	}
}

// Start launches the workers. Tasks receive ctx; cancelling it does not stop
// the workers, which always drain the queue.
func (wp *WorkerPool) Start(ctx context.Context) error {
	wp.stateLock.Lock()
	defer wp.stateLock.Unlock()

	if wp.state != stateNew {
		return fmt.Errorf("worker pool cannot be started twice")
	}

	wp.logger.Debug("Starting worker pool",
		zap.Int("workers", wp.config.Workers),
		zap.Int("queue_size", wp.config.QueueSize))

	for i := 0; i < wp.config.Workers; i++ {
		w := &worker{
			id:     i,
			ctx:    ctx,
			logger: wp.logger.With(zap.String("worker", fmt.Sprintf("worker-%d", i))),
		}

		wp.wg.Add(1)
		go wp.runWorker(w)
	}

	wp.state = stateRunning
	return nil
}

// runWorker runs the main worker loop until the queue is closed and empty
func (wp *WorkerPool) runWorker(w *worker) {
	defer wp.wg.Done()

	w.logger.Debug("Worker started")
	defer w.logger.Debug("Worker stopped")

	for task := range wp.taskQueue {
		atomic.AddInt64(&wp.activeWorkers, 1)

		result := wp.processTask(w, task)

		atomic.AddInt64(&wp.tasksCompleted, 1)
		if !result.Success {
			atomic.AddInt64(&wp.tasksFailed, 1)
		}

		if wp.onResult != nil {
			wp.onResult(task, result)
		}

		atomic.AddInt64(&wp.activeWorkers, -1)
	}
}

// processTask executes a single task, converting a panic into a failed result
func (wp *WorkerPool) processTask(w *worker, task *Task) (result TaskResult) {
	startTime := time.Now()
	result.TaskID = task.ID
	result.StartTime = startTime

	w.logger.Debug("Processing task", zap.String("task_id", task.ID))

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("task panicked: %v", r)
			result.Panicked = true
			w.logger.Error("Task panicked",
				zap.String("task_id", task.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}

		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(startTime)
		result.Success = result.Error == nil

		if result.Error != nil && !result.Panicked {
			w.logger.Error("Task failed",
				zap.String("task_id", task.ID),
				zap.Error(result.Error),
				zap.Duration("duration", result.Duration))
		} else if result.Success {
			w.logger.Debug("Task completed",
				zap.String("task_id", task.ID),
				zap.Duration("duration", result.Duration))
		}
	}()

	if task.ProcessFunc == nil {
		result.Error = fmt.Errorf("task %s has no process function", task.ID)
		return result
	}

	result.Error = task.ProcessFunc(w.ctx, task.Payload)
	return result
}

// Submit queues a task, blocking while the queue is full. It gives up when
// ctx is done or the pool is draining.
func (wp *WorkerPool) Submit(ctx context.Context, task *Task) error {
	wp.stateLock.RLock()
	defer wp.stateLock.RUnlock()

	switch wp.state {
	case stateNew:
		return ErrPoolNotStarted
	case stateClosed:
		return ErrPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case wp.taskQueue <- task:
		atomic.AddInt64(&wp.tasksSubmitted, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait stops accepting tasks and blocks until every queued and running task
// has finished. It is safe to call more than once.
func (wp *WorkerPool) Wait() {
	wp.closeOnce.Do(func() {
		wp.stateLock.Lock()
		wasRunning := wp.state == stateRunning
		wp.state = stateClosed
		close(wp.taskQueue)
		wp.stateLock.Unlock()

		if wasRunning {
			wp.logger.Debug("Draining worker pool")
		}
	})

	wp.wg.Wait()
}

// Statistics returns current worker pool statistics
func (wp *WorkerPool) Statistics() PoolStats {
	return PoolStats{
		Workers:        wp.config.Workers,
		TasksSubmitted: atomic.LoadInt64(&wp.tasksSubmitted),
		TasksCompleted: atomic.LoadInt64(&wp.tasksCompleted),
		TasksFailed:    atomic.LoadInt64(&wp.tasksFailed),
		ActiveWorkers:  atomic.LoadInt64(&wp.activeWorkers),
		QueueLength:    len(wp.taskQueue),
		QueueCapacity:  cap(wp.taskQueue),
	}
}

// PoolStats contains worker pool statistics
type PoolStats struct {
	Workers        int   `json:"workers"`
	TasksSubmitted int64 `json:"tasks_submitted"`
	TasksCompleted int64 `json:"tasks_completed"`
	TasksFailed    int64 `json:"tasks_failed"`
	ActiveWorkers  int64 `json:"active_workers"`
	QueueLength    int   `json:"queue_length"`
	QueueCapacity  int   `json:"queue_capacity"`
}

package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/rxflow/pkg/common/validation"
	"github.com/vnykmshr/rxflow/pkg/scheduling/taskqueue"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Seq is the enqueue order of the task within the pool
	Seq uint64

	// Error is any error that occurred during task execution
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int

	// Worker is the execution context name of that worker
	Worker string
}

// Pool is a fixed set of long-lived workers pulling from one shared FIFO queue.
type Pool interface {
	// Submit adds a task to the pool for execution.
	// It never blocks: when every worker is busy the task waits in the queue.
	// Returns ErrSchedulerClosed once the pool is shut down.
	Submit(task Task) error

	// Shutdown stops accepting tasks and lets queued tasks drain.
	// Returns a channel that closes when every worker has exited.
	Shutdown() <-chan struct{}

	// ShutdownNow stops accepting tasks, drops queued tasks and cancels the
	// context of running ones. Running tasks are not interrupted otherwise.
	ShutdownNow() <-chan struct{}

	// IsShutdown returns true once either shutdown method has been called.
	IsShutdown() bool

	// Name returns the execution context name prefix.
	Name() string

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks submitted to the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// Name prefixes worker names: worker i is "<Name>-<i>", starting at 1.
	Name string

	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// TaskTimeout is the default timeout for individual task execution.
	// Zero means no timeout.
	TaskTimeout time.Duration

	// PanicHandler is called when a task panics. The panic is always
	// recovered; err wraps ErrTaskPanicked and carries the stack trace.
	PanicHandler func(task Task, err error)

	// OnWorkerStart is called when a worker starts.
	OnWorkerStart func(workerID int, name string)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(workerID int, name string)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)

	// OnTaskDropped is called for each queued task discarded by ShutdownNow.
	OnTaskDropped func(task Task)
}

// workerPool implements the Pool interface.
type workerPool struct {
	config Config

	// Core pool state
	workers   []worker
	taskQueue *taskqueue.Queue[Task]
	stopped   chan struct{}

	// baseCtx is cancelled by ShutdownNow and once every worker has exited.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	// State tracking
	mu             sync.RWMutex
	isShutdown     bool
	shutdownOnce   sync.Once
	activeWorkers  int32
	totalSubmitted int64
	totalCompleted int64

	// Worker management
	workerWg sync.WaitGroup
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	name string
	pool *workerPool
}

// New creates a new worker pool with the specified name and number of workers.
// It panics if workerCount is not positive; use NewSafe to get an error instead.
func New(name string, workerCount int) Pool {
	return NewWithConfig(Config{
		Name:        name,
		WorkerCount: workerCount,
	})
}

// NewSafe is like New but returns a ValidationError instead of panicking.
func NewSafe(name string, workerCount int) (Pool, error) {
	if err := validation.ValidatePositive("workerpool", "WorkerCount", workerCount); err != nil {
		return nil, err
	}
	return New(name, workerCount), nil
}

// NewWithConfig creates a new worker pool with the specified configuration.
func NewWithConfig(config Config) Pool {
	if err := validation.ValidatePositive("workerpool", "WorkerCount", config.WorkerCount); err != nil {
		panic(err.Error())
	}
	if config.Name == "" {
		config.Name = "rxflow-pool"
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	pool := &workerPool{
		config:     config,
		taskQueue:  taskqueue.New[Task](),
		stopped:    make(chan struct{}),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}

	// Create and start workers
	pool.workers = make([]worker, config.WorkerCount)
	for i := 0; i < config.WorkerCount; i++ {
		pool.workers[i] = worker{
			id:   i,
			name: fmt.Sprintf("%s-%d", config.Name, i+1),
			pool: pool,
		}
		pool.workerWg.Add(1)
		go pool.workers[i].run()
	}

	go func() {
		pool.workerWg.Wait()
		pool.cancelBase()
		close(pool.stopped)
	}()

	return pool
}

// Name returns the execution context name prefix.
func (p *workerPool) Name() string {
	return p.config.Name
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(atomic.LoadInt32(&p.activeWorkers))
}

// TotalSubmitted returns the total number of tasks submitted to the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return atomic.LoadInt64(&p.totalSubmitted)
}

// TotalCompleted returns the total number of tasks completed by the pool.
func (p *workerPool) TotalCompleted() int64 {
	return atomic.LoadInt64(&p.totalCompleted)
}

// IsShutdown returns true once either shutdown method has been called.
func (p *workerPool) IsShutdown() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isShutdown
}

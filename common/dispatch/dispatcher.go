// Package dispatch runs closures on the interpreter goroutine. The language runtime is
// single-threaded and not reentrant, so every goroutine that needs it hands work over
// through a Dispatcher and blocks until the work is done.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"
	"github.com/petermattis/goid"
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/common/metrics"
)

// DefaultQueueSize bounds the number of tasks waiting for the main goroutine.
const DefaultQueueSize = 1024

type taskStatus struct {
	finished   bool
	panicked   bool
	panicValue interface{}
}

type task struct {
	fn     func()
	status chan taskStatus
	queued time.Time

	// interruptible tasks see interrupts raised while they run and nothing raised before.
	interruptible bool
}

// Dispatcher owns the main goroutine while Run is executing.
type Dispatcher struct {
	log     logger.Logger
	metrics metrics.Recorder

	tasks chan *task
	idle  chan *task

	mainID  int64
	started int32
	done    chan struct{}

	pendingInterrupt int32

	mu                  sync.Mutex
	interruptsSuspended bool
	interruptDepth      int
	savedInterrupts     bool
	polledEvents        func()
	polledDepth         int
	savedPolledEvents   func()
}

func New(queueSize int, recorder metrics.Recorder) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{
		metrics: metrics.Or(recorder),
		tasks:   make(chan *task, queueSize),
		idle:    make(chan *task, queueSize),
		mainID:  -1,
		done:    make(chan struct{}),
	}
	config.InitLogger(&d.log, d)
	return d
}

// Run executes queued tasks on the calling goroutine until ctx is cancelled. Callers lock
// the goroutine to its OS thread first when the runtime cares about thread identity.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&d.started, 0, 1) {
		return errors.New("dispatcher is already running")
	}
	atomic.StoreInt64(&d.mainID, goid.Get())
	defer close(d.done)

	d.log.Debug("Dispatcher running on goroutine %d.", goid.Get())

	for {
		// Interrupt-time tasks go first; idle tasks only run when nothing else is waiting.
		select {
		case t := <-d.tasks:
			d.runTask(t)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			d.log.Debug("Dispatcher exiting: %v", ctx.Err())
			return nil
		case t := <-d.tasks:
			d.runTask(t)
		case t := <-d.idle:
			d.runTask(t)
		}
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// OnMainThread reports whether the caller is the goroutine executing Run.
func (d *Dispatcher) OnMainThread() bool {
	return atomic.LoadInt64(&d.mainID) == goid.Get()
}

// PollTasks runs every queued task without blocking. The interpreter calls it at safe
// points during long computations.
func (d *Dispatcher) PollTasks() int {
	if !d.OnMainThread() {
		d.log.Warn("PollTasks called off the main goroutine; ignoring.")
		return 0
	}

	n := 0
	for {
		select {
		case t := <-d.tasks:
			d.runTask(t)
			n++
		default:
			return n
		}
	}
}

func (d *Dispatcher) runTask(t *task) {
	if t.status != nil {
		t.status <- taskStatus{}
	}

	status := taskStatus{finished: true}
	func() {
		if t.interruptible {
			atomic.StoreInt32(&d.pendingInterrupt, 0)
			defer atomic.StoreInt32(&d.pendingInterrupt, 0)
			defer d.SuspendPolledEvents()()
		} else {
			defer d.suspend()()
		}
		defer func() {
			if r := recover(); r != nil {
				status.panicked = true
				status.panicValue = r
			}
		}()
		t.fn()
	}()

	d.metrics.TaskDispatched(time.Since(t.queued))

	if t.status != nil {
		t.status <- status
	} else if status.panicked {
		d.log.Error("Idle task panicked: %v", status.panicValue)
	}
}

func (d *Dispatcher) enqueue(queue chan *task, t *task) error {
	select {
	case <-d.done:
		return types.ErrMainThreadUnavailable
	default:
	}

	select {
	case queue <- t:
		return nil
	case <-d.done:
		return types.ErrMainThreadUnavailable
	}
}

// RunOnMain runs f on the main goroutine and returns its result. Called from the main
// goroutine it runs f directly, so tasks may nest. A panic in f is re-raised in the caller.
// Interrupts are held until f returns.
func RunOnMain[T any](d *Dispatcher, f func() T) (T, error) {
	return run(d, f, false)
}

// RunInterruptible is RunOnMain for work the user may interrupt, such as executing code.
// An interrupt raised while f runs is visible to CheckInterrupt; one raised before f
// started, or left unconsumed when it returns, is discarded.
func RunInterruptible[T any](d *Dispatcher, f func() T) (T, error) {
	return run(d, f, true)
}

func run[T any](d *Dispatcher, f func() T, interruptible bool) (T, error) {
	var result T
	if d.OnMainThread() {
		return f(), nil
	}

	t := &task{
		fn:            func() { result = f() },
		status:        make(chan taskStatus),
		queued:        time.Now(),
		interruptible: interruptible,
	}
	if err := d.enqueue(d.tasks, t); err != nil {
		return result, err
	}

	select {
	case <-t.status:
	case <-d.done:
		return result, types.ErrMainThreadUnavailable
	}

	status := <-t.status
	if status.panicked {
		panic(status.panicValue)
	}
	return result, nil
}

// Spawn queues fn to run on the main goroutine when no other task is waiting. It does not wait.
func (d *Dispatcher) Spawn(fn func()) error {
	return d.enqueue(d.idle, &task{fn: fn, queued: time.Now()})
}

// Interrupt flags a pending interrupt. The interpreter observes it through CheckInterrupt.
func (d *Dispatcher) Interrupt() {
	atomic.StoreInt32(&d.pendingInterrupt, 1)
}

// CheckInterrupt consumes a pending interrupt. While interrupts are suspended it returns
// false and leaves the interrupt pending.
func (d *Dispatcher) CheckInterrupt() bool {
	if d.InterruptsSuspended() {
		return false
	}
	return atomic.CompareAndSwapInt32(&d.pendingInterrupt, 1, 0)
}

func (d *Dispatcher) InterruptsSuspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.interruptsSuspended
}

// SetPolledEvents installs the hook the interpreter calls to process UI events.
func (d *Dispatcher) SetPolledEvents(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.polledDepth > 0 {
		d.savedPolledEvents = fn
		return
	}
	d.polledEvents = fn
}

// ProcessEvents runs the polled events hook unless it is suspended.
func (d *Dispatcher) ProcessEvents() {
	d.mu.Lock()
	fn := d.polledEvents
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// SuspendInterrupts suspends interrupts until the returned function is called.
// Suspensions nest; the outermost restore brings back the state seen on entry.
func (d *Dispatcher) SuspendInterrupts() (restore func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.interruptDepth == 0 {
		d.savedInterrupts = d.interruptsSuspended
	}
	d.interruptsSuspended = true
	d.interruptDepth++

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()

			d.interruptDepth--
			if d.interruptDepth == 0 {
				d.interruptsSuspended = d.savedInterrupts
			}
		})
	}
}

// SuspendPolledEvents disables the polled events hook until the returned function is called.
func (d *Dispatcher) SuspendPolledEvents() (restore func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.polledDepth == 0 {
		d.savedPolledEvents = d.polledEvents
		d.polledEvents = nil
	}
	d.polledDepth++

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()

			d.polledDepth--
			if d.polledDepth == 0 {
				d.polledEvents = d.savedPolledEvents
				d.savedPolledEvents = nil
			}
		})
	}
}

// suspend enters the sandbox a task runs in: no interrupts and no polled events.
func (d *Dispatcher) suspend() (restore func()) {
	restoreInterrupts := d.SuspendInterrupts()
	restorePolled := d.SuspendPolledEvents()
	return func() {
		restorePolled()
		restoreInterrupts()
	}
}

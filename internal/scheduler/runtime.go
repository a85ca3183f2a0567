package scheduler

import (
	"sync"
	"time"
)

// runtimeTask is a callback backed by a wall-clock timer.
type runtimeTask struct {
	timer  *time.Timer
	period time.Duration
	fn     func()
}

// Runtime is a wall-clock Scheduler. Timers only enqueue their handle; the
// callbacks themselves run one at a time on the run-loop goroutine.
type Runtime struct {
	// queue carries fired handles to the run loop.
	queue chan Handle
	// done is closed by Stop.
	done chan struct{}
	// tasks holds every pending callback by handle.
	tasks map[Handle]*runtimeTask
	// next is the last issued handle.
	next Handle
	// stopOnce guards closing done.
	stopOnce sync.Once
	// mu protects tasks and next.
	mu sync.Mutex
}

// NewRuntime creates a Runtime and starts its run loop. Call Stop to release it.
func NewRuntime() *Runtime {
	r := &Runtime{
		queue: make(chan Handle),
		done:  make(chan struct{}),
		tasks: make(map[Handle]*runtimeTask),
	}

	go r.loop()

	return r
}

// Now returns the wall-clock time.
func (r *Runtime) Now() time.Time {
	return time.Now()
}

// AfterFunc runs fn once after d on the run loop.
func (r *Runtime) AfterFunc(d time.Duration, fn func()) Handle {
	return r.schedule(d, 0, fn)
}

// Every runs fn every d on the run loop until cancelled.
func (r *Runtime) Every(d time.Duration, fn func()) Handle {
	return r.schedule(d, d, fn)
}

// Cancel stops the callback identified by h. A callback whose timer already
// fired but has not started running is dropped.
func (r *Runtime) Cancel(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[h]
	if !ok {
		return false
	}

	task.timer.Stop()
	delete(r.tasks, h)

	return true
}

// Pending returns the number of scheduled callbacks.
func (r *Runtime) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.tasks)
}

// Stop cancels every pending callback and ends the run loop. It does not wait
// for a callback that is currently running, so it is safe to call from one.
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	for h, task := range r.tasks {
		task.timer.Stop()
		delete(r.tasks, h)
	}
}

func (r *Runtime) schedule(d, period time.Duration, fn func()) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	h := r.next

	select {
	case <-r.done:
		// Stopped schedulers hand out handles that never fire.
		return h
	default:
	}

	r.tasks[h] = &runtimeTask{
		timer:  time.AfterFunc(d, func() { r.enqueue(h) }),
		period: period,
		fn:     fn,
	}

	return h
}

func (r *Runtime) enqueue(h Handle) {
	select {
	case r.queue <- h:
	case <-r.done:
	}
}

func (r *Runtime) loop() {
	for {
		select {
		case <-r.done:
			return
		case h := <-r.queue:
			if fn := r.take(h); fn != nil {
				fn()
			}
		}
	}
}

// take looks the task up and either re-arms it or forgets it.
func (r *Runtime) take(h Handle) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[h]
	if !ok {
		return nil
	}

	if task.period > 0 {
		task.timer.Reset(task.period)
	} else {
		delete(r.tasks, h)
	}

	return task.fn
}

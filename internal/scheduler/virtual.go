package scheduler

import (
	"sync"
	"time"
)

// virtualTask is a callback due at a virtual instant.
type virtualTask struct {
	at     time.Time
	period time.Duration
	seq    uint64
	fn     func()
}

// Virtual is a manually advanced Scheduler for deterministic tests.
type Virtual struct {
	now   time.Time
	tasks map[Handle]*virtualTask
	next  Handle
	seq   uint64
	mu    sync.Mutex
}

// NewVirtual creates a virtual clock starting at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{
		now:   start,
		tasks: make(map[Handle]*virtualTask),
	}
}

// Now returns the virtual time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.now
}

// AfterFunc runs fn once when the clock passes now+d.
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Handle {
	return v.schedule(d, 0, fn)
}

// Every runs fn each time the clock passes another multiple of d.
func (v *Virtual) Every(d time.Duration, fn func()) Handle {
	return v.schedule(d, d, fn)
}

// Cancel removes the callback.
func (v *Virtual) Cancel(h Handle) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.tasks[h]; !ok {
		return false
	}

	delete(v.tasks, h)

	return true
}

// Pending returns the number of scheduled callbacks.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return len(v.tasks)
}

// Advance moves the clock forward by d, running every callback that becomes
// due, in due order. Callbacks due at the same instant run in the order they
// were scheduled. Callbacks run without the clock lock held and may schedule
// or cancel other callbacks.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.now.Add(d)

	for {
		h, task := v.earliestLocked(target)
		if task == nil {
			break
		}

		v.now = task.at

		if task.period > 0 {
			v.seq++
			task.at = task.at.Add(task.period)
			task.seq = v.seq
		} else {
			delete(v.tasks, h)
		}

		fn := task.fn

		v.mu.Unlock()
		fn()
		v.mu.Lock()
	}

	v.now = target
	v.mu.Unlock()
}

func (v *Virtual) schedule(d, period time.Duration, fn func()) Handle {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.next++
	v.seq++

	v.tasks[v.next] = &virtualTask{
		at:     v.now.Add(d),
		period: period,
		seq:    v.seq,
		fn:     fn,
	}

	return v.next
}

func (v *Virtual) earliestLocked(limit time.Time) (Handle, *virtualTask) {
	var (
		bestHandle Handle
		best       *virtualTask
	)

	for h, task := range v.tasks {
		if task.at.After(limit) {
			continue
		}

		if best == nil || task.at.Before(best.at) || (task.at.Equal(best.at) && task.seq < best.seq) {
			bestHandle, best = h, task
		}
	}

	return bestHandle, best
}

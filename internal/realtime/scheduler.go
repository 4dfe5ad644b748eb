// internal/realtime/scheduler.go
package realtime

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the part of clockwork.Clock the scheduler needs.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Task is a pending one-shot or repeating callback.
type Task struct {
	stop chan struct{}
	once sync.Once
}

func newTask() *Task {
	return &Task{stop: make(chan struct{})}
}

// Cancel stops the task. A nil task and repeated calls are fine.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.stop) })
}

// Scheduler runs callbacks on a Clock.
type Scheduler struct {
	clock Clock
}

func NewScheduler(clock Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// After calls fn once, d from now, unless the task is cancelled first.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	t := newTask()
	timer := s.clock.NewTimer(d)
	go func() {
		select {
		case <-timer.Chan():
			fn()
		case <-t.stop:
			stopAndDrainTimer(timer)
		}
	}()
	return t
}

// Every calls fn each d until the task is cancelled.
func (s *Scheduler) Every(d time.Duration, fn func()) *Task {
	t := newTask()
	timer := s.clock.NewTimer(d)
	go func() {
		for {
			select {
			case <-timer.Chan():
				fn()
				timer.Reset(d)
			case <-t.stop:
				stopAndDrainTimer(timer)
				return
			}
		}
	}()
	return t
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

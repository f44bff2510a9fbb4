package irblaster

/*------------------------------------------------------------------
 *
 * Purpose:	Tasks, cores and sleeping.
 *
 * Description:	The firmware ran cooperative tasks on two cores.  Here a
 *		task is a goroutine with a name, a core and a priority.
 *		Only tasks marked ready are started by Run, so a task
 *		can be created and deliberately left idle.
 *
 *		When core pinning is enabled each task's goroutine is
 *		locked to an OS thread whose CPU affinity is the task's
 *		core (modulo the number of CPUs).
 *
 *		All waiting goes through a Clock.  SystemClock really
 *		sleeps; VirtualClock just moves its notion of now, which
 *		makes playback timing testable and lets the tools render
 *		scripts without waiting for them.
 *
 *----------------------------------------------------------------*/

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

type Clock interface {
	Now() time.Time
	// Sleep suspends the caller only.  Returns ctx.Err() if cancelled.
	Sleep(ctx context.Context, d time.Duration) error
	// SleepUntil is Sleep with an absolute deadline, so that a
	// sequence of waits does not accumulate drift.
	SleepUntil(ctx context.Context, deadline time.Time) error
}

// Below this the system clock spins rather than trusting a timer.
const spinThreshold = 200 * time.Microsecond

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (c SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	return c.SleepUntil(ctx, time.Now().Add(d))
}

func (SystemClock) SleepUntil(ctx context.Context, deadline time.Time) error {
	var coarse = time.Until(deadline) - spinThreshold
	if coarse > 0 {
		var timer = time.NewTimer(coarse)

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		runtime.Gosched()
	}

	return nil
}

// VirtualClock never blocks.  Safe for concurrent use.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start} //nolint:exhaustruct
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *VirtualClock) Sleep(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if d > 0 {
		c.now = c.now.Add(d)
	}

	return nil
}

func (c *VirtualClock) SleepUntil(ctx context.Context, deadline time.Time) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline.After(c.now) {
		c.now = deadline
	}

	return nil
}

// TaskFunc is the body of a task.  Returning ends the task; returning an
// error ends all of them.
type TaskFunc func(ctx context.Context) error

type Task struct {
	Name     string
	Core     int
	Priority int

	fn    TaskFunc
	ready bool
}

// SetReady marks the task to be started by Scheduler.Run.
func (t *Task) SetReady() {
	t.ready = true
}

func (t *Task) Ready() bool {
	return t.ready
}

type Scheduler struct {
	logger   *log.Logger
	pinCores bool
	tasks    []*Task
}

func NewScheduler(logger *log.Logger, pinCores bool) *Scheduler {
	return &Scheduler{logger: logger, pinCores: pinCores, tasks: nil}
}

// Create registers a task.  It does not run until SetReady is called.
func (s *Scheduler) Create(name string, core int, priority int, fn TaskFunc) *Task {
	var t = &Task{Name: name, Core: core, Priority: priority, fn: fn, ready: false}
	s.tasks = append(s.tasks, t)

	return t
}

func (s *Scheduler) Tasks() []*Task {
	return s.tasks
}

// Run starts every ready task and waits for all of them.  Cancellation or
// expiry of ctx is a normal shutdown and is not reported as an error.
func (s *Scheduler) Run(ctx context.Context) error {
	var g, gctx = errgroup.WithContext(ctx)

	for _, t := range s.tasks {
		if !t.ready {
			s.logger.Debug("task not ready, not starting", "task", t.Name, "core", t.Core)

			continue
		}

		s.logger.Debug("starting task", "task", t.Name, "core", t.Core, "priority", t.Priority)

		g.Go(func() error {
			if s.pinCores {
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()

				if err := pinToCore(t.Core); err != nil {
					s.logger.Warn("could not pin task to core", "task", t.Name, "core", t.Core, "err", err)
				}
			}

			var err = t.fn(gctx)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				err = nil
			}

			if err != nil {
				s.logger.Error("task failed", "task", t.Name, "err", err)
			}

			return err
		})
	}

	return g.Wait()
}

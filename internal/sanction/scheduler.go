package sanction

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"tg-sanction/internal/crash"
	"tg-sanction/internal/logger"
)

const defaultResolveTimeout = 30 * time.Second

const (
	taskPending int32 = iota
	taskFiring
	taskCancelled
)

// Task is one armed expiry. Exactly one of Cancel and the timer wins the
// transition out of the pending state.
type Task struct {
	Subject        Subject
	RestrictedRole string
	Deadline       time.Time

	state   atomic.Int32
	cancel  chan struct{}
	done    chan struct{}
	outcome Outcome
}

func newTask(subject Subject, restrictedRole string, deadline time.Time) *Task {
	return &Task{
		Subject:        subject,
		RestrictedRole: restrictedRole,
		Deadline:       deadline,
		cancel:         make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Cancel stops the task if its timer has not fired yet. It returns false when
// the task already fired or was cancelled before.
func (t *Task) Cancel() bool {
	if !t.state.CompareAndSwap(taskPending, taskCancelled) {
		return false
	}
	close(t.cancel)
	return true
}

// Done is closed once the task has an outcome.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithReporter registers a callback invoked with every task outcome,
// cancellations included. It runs on the task goroutine.
func WithReporter(fn func(Outcome)) SchedulerOption {
	return func(s *Scheduler) {
		s.reporter = fn
	}
}

// WithResolveTimeout bounds the store and directory calls of one resolution.
func WithResolveTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.resolveTimeout = d
		}
	}
}

// Scheduler arms one timer per sanctioned subject and resolves the sanction
// when it fires. The subject to task table is the only place tasks are
// tracked, so a manual unmute can always find and cancel the pending timer.
type Scheduler struct {
	store          Store
	directory      Directory
	reporter       func(Outcome)
	resolveTimeout time.Duration
	tasks          *xsync.MapOf[Subject, *Task]
	now            func() time.Time
}

func NewScheduler(store Store, directory Directory, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:          store,
		directory:      directory,
		resolveTimeout: defaultResolveTimeout,
		tasks:          xsync.NewMapOf[Subject, *Task](),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arms an expiry for subject after delay. A task already pending for
// the same subject is cancelled and replaced.
func (s *Scheduler) Schedule(subject Subject, restrictedRole string, delay time.Duration) *Task {
	if delay < 0 {
		delay = 0
	}
	t := newTask(subject, restrictedRole, s.now().Add(delay))

	if prev, loaded := s.tasks.LoadAndStore(subject, t); loaded {
		if prev.Cancel() {
			logger.Infof("Replaced pending expiry for %s", subject)
		}
	} else {
		pendingTasks.Inc()
	}

	logger.Debugf("Scheduled expiry for %s in %v", subject, delay)
	crash.SafeGoroutine("sanction-expiry-"+subject.String(), func() {
		s.run(t, delay)
	})
	return t
}

// Cancel cancels the pending task of subject, reporting whether one was stopped.
func (s *Scheduler) Cancel(subject Subject) bool {
	t, ok := s.tasks.Load(subject)
	if !ok {
		return false
	}
	return t.Cancel()
}

// Lookup returns the task currently tracked for subject.
func (s *Scheduler) Lookup(subject Subject) (*Task, bool) {
	return s.tasks.Load(subject)
}

// Pending returns the number of tracked tasks.
func (s *Scheduler) Pending() int {
	return s.tasks.Size()
}

// Stop cancels every pending task. Records stay in the store and are re-armed
// by the next Restore.
func (s *Scheduler) Stop() int {
	stopped := 0
	s.tasks.Range(func(_ Subject, t *Task) bool {
		if t.Cancel() {
			stopped++
		}
		return true
	})
	return stopped
}

func (s *Scheduler) run(t *Task, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-t.cancel:
		s.finish(t, Outcome{Subject: t.Subject, Status: StatusCancelled})
		return
	case <-timer.C:
	}

	// Cancel may have won the state change while the timer fired.
	if !t.state.CompareAndSwap(taskPending, taskFiring) {
		s.finish(t, Outcome{Subject: t.Subject, Status: StatusCancelled})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.resolveTimeout)
	defer cancel()
	s.finish(t, s.Resolve(ctx, t.Subject, t.RestrictedRole))
}

// finish untracks the task and reports before waking waiters, so Wait observes
// a settled scheduler.
func (s *Scheduler) finish(t *Task, out Outcome) {
	t.outcome = out
	defer close(t.done)

	s.tasks.Compute(t.Subject, func(current *Task, loaded bool) (*Task, bool) {
		if loaded && current == t {
			pendingTasks.Dec()
			return nil, true
		}
		return current, !loaded
	})

	if out.Status == StatusCancelled {
		logger.Debugf("Expiry for %s cancelled", t.Subject)
	}
	if s.reporter != nil {
		s.reporter(out)
	}
}

// Resolve deletes the subject's record and restores the member's roles. It is
// the single resolution routine shared by timer expiry, manual unmute and
// startup restore; concurrent calls for one subject resolve at most once.
//
// restrictedRole overrides the role stored on the record when non-empty.
func (s *Scheduler) Resolve(ctx context.Context, subject Subject, restrictedRole string) Outcome {
	start := time.Now()
	out := s.resolve(ctx, subject, restrictedRole)
	resolutionDuration.Observe(time.Since(start).Seconds())
	resolutionCount.WithLabelValues(out.Status.String(), out.Stage.String()).Inc()

	switch {
	case out.RecordLost():
		logger.Errorf("Sanction record for %s deleted but roles not restored (%s): %v", subject, out.Stage, out.Err)
	case out.Status == StatusFailed:
		logger.Errorf("Failed to resolve sanction for %s: %v", subject, out.Err)
	case out.Status == StatusAlreadyResolved:
		logger.Infof("Sanction for %s was already resolved", subject)
	default:
		logger.Infof("Sanction for %s resolved", subject)
	}
	return out
}

func (s *Scheduler) resolve(ctx context.Context, subject Subject, restrictedRole string) Outcome {
	rec, err := s.store.FindAndDelete(ctx, subject)
	if err != nil {
		return Outcome{Subject: subject, Status: StatusFailed, Stage: StageStore, Err: storeErr("find_and_delete", subject, err)}
	}
	if rec == nil {
		return Outcome{Subject: subject, Status: StatusAlreadyResolved}
	}

	if restrictedRole == "" {
		restrictedRole = rec.RestrictedRole
	}

	if len(rec.TakenRoles) > 0 {
		if err := s.directory.AddRoles(ctx, subject, rec.TakenRoles); err != nil {
			return Outcome{Subject: subject, Status: StatusFailed, Stage: StageRestoreRoles, Record: rec, Err: directoryErr("add_roles", subject, err)}
		}
	}
	if err := s.directory.RemoveRole(ctx, subject, restrictedRole); err != nil {
		return Outcome{Subject: subject, Status: StatusFailed, Stage: StageRemoveRestriction, Record: rec, Err: directoryErr("remove_role", subject, err)}
	}

	return Outcome{Subject: subject, Status: StatusResolved, Record: rec}
}

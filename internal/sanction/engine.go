package sanction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tg-sanction/internal/logger"
)

// Options configures an Engine.
type Options struct {
	MutedRole       string
	DefaultDuration time.Duration
	ResolveTimeout  time.Duration
	// Reporter receives every expiry task outcome.
	Reporter func(Outcome)
}

// MuteRequest describes a mute decided by a moderator. When TakenRoles is nil
// and the directory is a RoleLister, the member's current roles are captured.
type MuteRequest struct {
	Subject    Subject
	TakenRoles []string
	Reason     string
	// Duration falls back to Options.DefaultDuration when zero.
	Duration time.Duration
}

// Engine ties the store, scheduler, reconciler and immediate actions together.
type Engine struct {
	store      Store
	directory  Directory
	scheduler  *Scheduler
	reconciler *Reconciler
	actions    *Actions

	mutedRole       string
	defaultDuration time.Duration
	now             func() time.Time
}

func NewEngine(store Store, directory Directory, opts Options) *Engine {
	var schedOpts []SchedulerOption
	if opts.Reporter != nil {
		schedOpts = append(schedOpts, WithReporter(opts.Reporter))
	}
	schedOpts = append(schedOpts, WithResolveTimeout(opts.ResolveTimeout))

	return &Engine{
		store:           store,
		directory:       directory,
		scheduler:       NewScheduler(store, directory, schedOpts...),
		reconciler:      NewReconciler(store, directory),
		actions:         NewActions(directory),
		mutedRole:       opts.MutedRole,
		defaultDuration: opts.DefaultDuration,
		now:             time.Now,
	}
}

func (e *Engine) Scheduler() *Scheduler {
	return e.scheduler
}

// Mute records the sanction, restricts the member and arms its expiry.
//
// The record is inserted first so a crash after the directory calls still
// leaves a durable sanction to restore. If restricting the member fails the
// sanction is resolved right away, which deletes the record and gives back
// whatever roles were already taken.
func (e *Engine) Mute(ctx context.Context, req MuteRequest) (*Task, error) {
	duration := req.Duration
	if duration <= 0 {
		duration = e.defaultDuration
	}
	if duration <= 0 {
		return nil, fmt.Errorf("mute duration for %s must be positive", req.Subject)
	}

	taken := req.TakenRoles
	if taken == nil {
		if lister, ok := e.directory.(RoleLister); ok {
			roles, err := lister.MemberRoles(ctx, req.Subject)
			if err != nil {
				muteCount.WithLabelValues("directory_error").Inc()
				return nil, directoryErr("member_roles", req.Subject, err)
			}
			taken = roles
		}
	}
	taken = withoutRole(taken, e.mutedRole)

	now := e.now()
	rec := Record{
		Subject:        req.Subject,
		RestrictedRole: e.mutedRole,
		TakenRoles:     taken,
		Reason:         req.Reason,
		CreatedAt:      now,
		ExpiresAt:      now.Add(duration),
	}
	if err := e.store.Insert(ctx, rec); err != nil {
		muteCount.WithLabelValues("store_error").Inc()
		return nil, storeErr("insert", req.Subject, err)
	}

	if err := e.restrict(ctx, rec); err != nil {
		muteCount.WithLabelValues("directory_error").Inc()
		out := e.scheduler.Resolve(ctx, req.Subject, e.mutedRole)
		if !out.OK() {
			logger.Errorf("Rolling back failed mute of %s did not complete: %s", req.Subject, out)
		}
		return nil, err
	}

	muteCount.WithLabelValues("ok").Inc()
	logger.Infof("Muted %s until %s: %s", req.Subject, rec.ExpiresAt.Format(time.RFC3339), req.Reason)
	return e.scheduler.Schedule(req.Subject, e.mutedRole, duration), nil
}

func (e *Engine) restrict(ctx context.Context, rec Record) error {
	if r, ok := e.directory.(Restrictor); ok {
		if err := r.Restrict(ctx, rec.Subject, rec.RestrictedRole, rec.TakenRoles); err != nil {
			return directoryErr("restrict", rec.Subject, err)
		}
		return nil
	}
	if err := e.directory.AddRoles(ctx, rec.Subject, []string{rec.RestrictedRole}); err != nil {
		return directoryErr("add_roles", rec.Subject, err)
	}
	for _, role := range rec.TakenRoles {
		if err := e.directory.RemoveRole(ctx, rec.Subject, role); err != nil {
			return directoryErr("remove_role", rec.Subject, err)
		}
	}
	return nil
}

// Unmute lifts a mute before it expires. The pending timer is cancelled first;
// if it is already firing the store decides which of the two resolves.
func (e *Engine) Unmute(ctx context.Context, subject Subject) Outcome {
	if e.scheduler.Cancel(subject) {
		logger.Debugf("Cancelled pending expiry for %s", subject)
	}
	return e.scheduler.Resolve(ctx, subject, "")
}

// Restore re-arms an expiry for every stored record. Records whose deadline
// has passed are scheduled with no delay and resolve immediately.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	records, err := e.store.ListActive(ctx)
	if err != nil {
		return 0, storeErr("list", Subject{}, err)
	}

	now := e.now()
	overdue := 0
	for _, rec := range records {
		delay := rec.Remaining(now)
		if delay == 0 {
			overdue++
		}
		e.scheduler.Schedule(rec.Subject, rec.RestrictedRole, delay)
	}
	logger.Infof("Restored %d pending sanctions (%d overdue)", len(records), overdue)
	return len(records), nil
}

// Rejoin handles a member re-entering a group.
func (e *Engine) Rejoin(ctx context.Context, subject Subject) error {
	return e.reconciler.OnRejoin(ctx, subject)
}

func (e *Engine) Ban(ctx context.Context, subject Subject, purgeDays *int, reason string) error {
	return e.actions.ApplyBan(ctx, subject, purgeDays, reason)
}

func (e *Engine) Unban(ctx context.Context, subject Subject) error {
	return e.actions.ApplyUnban(ctx, subject)
}

// Active returns the subject's record, or nil.
func (e *Engine) Active(ctx context.Context, subject Subject) (*Record, error) {
	rec, err := e.store.FindBySubject(ctx, subject)
	if err != nil {
		return nil, storeErr("find", subject, err)
	}
	return rec, nil
}

// Shutdown cancels all pending timers without touching stored records.
func (e *Engine) Shutdown() {
	n := e.scheduler.Stop()
	logger.Infof("Stopped %d pending sanction timers", n)
}

// IsAlreadySanctioned reports whether err comes from muting a subject twice.
func IsAlreadySanctioned(err error) bool {
	return errors.Is(err, ErrAlreadySanctioned)
}

func withoutRole(roles []string, role string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r != role {
			out = append(out, r)
		}
	}
	return out
}

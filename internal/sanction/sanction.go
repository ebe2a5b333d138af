// Package sanction implements temporary moderation sanctions: a mute is
// persisted as a Record, reversed by the expiry Scheduler after its delay, and
// re-applied by the Reconciler when the member re-enters the group early.
//
// The Store's FindAndDelete is the only arbitration point between the
// competing resolution paths (timer fire, manual unmute, restore after restart).
// Whoever receives the record from it owns the restoration; everybody else
// observes AlreadyResolved.
package sanction

import (
	"context"
	"fmt"
	"time"
)

// Subject identifies a member inside one group.
type Subject struct {
	GroupID int64
	UserID  int64
}

func (s Subject) String() string {
	return fmt.Sprintf("%d/%d", s.GroupID, s.UserID)
}

// Record is the durable state of one active mute.
type Record struct {
	Subject        Subject
	RestrictedRole string
	// TakenRoles are the roles removed at mute time, in the order they are restored.
	TakenRoles []string
	Reason     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Remaining returns how long until the record expires, never negative.
func (r Record) Remaining(now time.Time) time.Duration {
	d := r.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Store persists active sanction records. At most one record exists per
// subject; Insert of a second one fails with ErrAlreadySanctioned.
//
// Implementations must be safe for concurrent use, and FindAndDelete must hand
// a given record to at most one caller.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	// FindBySubject returns nil, nil when the subject has no record.
	FindBySubject(ctx context.Context, subject Subject) (*Record, error)
	// FindAndDelete atomically removes and returns the subject's record, or
	// returns nil, nil when there is none.
	FindAndDelete(ctx context.Context, subject Subject) (*Record, error)
	ListActive(ctx context.Context) ([]Record, error)
}

// Directory changes a member's standing on the platform.
type Directory interface {
	AddRoles(ctx context.Context, subject Subject, roles []string) error
	RemoveRole(ctx context.Context, subject Subject, role string) error
	Ban(ctx context.Context, subject Subject, purgeDays int, reason string) error
	Unban(ctx context.Context, subject Subject) error
}

// RoleLister is implemented by directories that can report a member's current
// roles. The Engine uses it to capture TakenRoles when the caller gave none.
type RoleLister interface {
	MemberRoles(ctx context.Context, subject Subject) ([]string, error)
}

// Restrictor is implemented by directories that can apply the restricted role
// and drop the taken roles in a single change. The Engine prefers it over an
// AddRoles call followed by one RemoveRole per taken role.
type Restrictor interface {
	Restrict(ctx context.Context, subject Subject, restrictedRole string, taken []string) error
}

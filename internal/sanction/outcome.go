package sanction

import "fmt"

// Status is the result class of a resolution attempt.
type Status int

const (
	StatusResolved Status = iota
	StatusAlreadyResolved
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusAlreadyResolved:
		return "already_resolved"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Stage names the step a failed resolution stopped at.
type Stage int

const (
	StageNone Stage = iota
	// StageStore: the record could not be deleted; the restriction is fully intact.
	StageStore
	// StageRestoreRoles: the record is gone but taken roles were not re-added.
	StageRestoreRoles
	// StageRemoveRestriction: roles are back but the restricted role is still held.
	StageRemoveRestriction
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageStore:
		return "store"
	case StageRestoreRoles:
		return "restore_roles"
	case StageRemoveRestriction:
		return "remove_restriction"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Outcome reports what a resolution did. Record is set whenever the record
// was removed from the store by this resolution.
type Outcome struct {
	Subject Subject
	Status  Status
	Stage   Stage
	Record  *Record
	Err     error
}

func (o Outcome) OK() bool {
	return o.Status == StatusResolved
}

// RecordLost reports the partial-failure window: the record was deleted but
// the member's standing was not fully restored. Operators must reconcile these
// by hand.
func (o Outcome) RecordLost() bool {
	return o.Status == StatusFailed && (o.Stage == StageRestoreRoles || o.Stage == StageRemoveRestriction)
}

// AsError converts the outcome for callers that only deal in errors:
// ErrAlreadyResolved for the no-op case, the failure for failed ones.
func (o Outcome) AsError() error {
	switch o.Status {
	case StatusFailed:
		return o.Err
	case StatusAlreadyResolved:
		return ErrAlreadyResolved
	default:
		return nil
	}
}

func (o Outcome) String() string {
	if o.Status == StatusFailed {
		return fmt.Sprintf("%s %s at %s: %v", o.Subject, o.Status, o.Stage, o.Err)
	}
	return fmt.Sprintf("%s %s", o.Subject, o.Status)
}

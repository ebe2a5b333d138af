package sanction

import (
	"errors"
	"fmt"
)

var (
	// ErrStore matches every *StoreError.
	ErrStore = errors.New("sanction store failure")
	// ErrDirectory matches every *DirectoryError.
	ErrDirectory = errors.New("directory failure")
	// ErrAlreadyResolved is returned when the record was removed by another path.
	ErrAlreadyResolved = errors.New("sanction already resolved")
	// ErrAlreadySanctioned is returned by stores when the subject already has
	// an active record.
	ErrAlreadySanctioned = errors.New("subject already has an active sanction")
)

// StoreError wraps a failed store operation.
type StoreError struct {
	Op      string
	Subject Subject
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("sanction store %s %s: %v", e.Op, e.Subject, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// DirectoryError wraps a failed membership, ban or unban call.
type DirectoryError struct {
	Op      string
	Subject Subject
	Err     error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory %s %s: %v", e.Op, e.Subject, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

func (e *DirectoryError) Is(target error) bool { return target == ErrDirectory }

func storeErr(op string, subject Subject, err error) error {
	return &StoreError{Op: op, Subject: subject, Err: err}
}

func directoryErr(op string, subject Subject, err error) error {
	return &DirectoryError{Op: op, Subject: subject, Err: err}
}

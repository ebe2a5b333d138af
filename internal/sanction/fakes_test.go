package sanction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// countingStore wraps MemoryStore with call counters and injectable failures.
type countingStore struct {
	*MemoryStore

	mu        sync.Mutex
	inserts   int
	finds     int
	deletes   int
	lists     int
	insertErr error
	findErr   error
	deleteErr error
	listErr   error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: NewMemoryStore()}
}

func (s *countingStore) Insert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	s.inserts++
	err := s.insertErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.Insert(ctx, rec)
}

func (s *countingStore) FindBySubject(ctx context.Context, subject Subject) (*Record, error) {
	s.mu.Lock()
	s.finds++
	err := s.findErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.FindBySubject(ctx, subject)
}

func (s *countingStore) FindAndDelete(ctx context.Context, subject Subject) (*Record, error) {
	s.mu.Lock()
	s.deletes++
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.FindAndDelete(ctx, subject)
}

func (s *countingStore) ListActive(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	s.lists++
	err := s.listErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.ListActive(ctx)
}

func (s *countingStore) counts() (inserts, finds, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts, s.finds, s.deletes
}

type banCall struct {
	Subject   Subject
	PurgeDays int
	Reason    string
}

// recordingDirectory logs every membership change as "add:<role>" or
// "remove:<role>" per subject.
type recordingDirectory struct {
	mu        sync.Mutex
	calls     map[Subject][]string
	bans      []banCall
	unbans    []Subject
	addErr    error
	removeErr error
	banErr    error
	unbanErr  error
}

func newRecordingDirectory() *recordingDirectory {
	return &recordingDirectory{calls: make(map[Subject][]string)}
}

func (d *recordingDirectory) AddRoles(ctx context.Context, subject Subject, roles []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.addErr != nil {
		return d.addErr
	}
	for _, r := range roles {
		d.calls[subject] = append(d.calls[subject], "add:"+r)
	}
	return nil
}

func (d *recordingDirectory) RemoveRole(ctx context.Context, subject Subject, role string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removeErr != nil {
		return d.removeErr
	}
	d.calls[subject] = append(d.calls[subject], "remove:"+role)
	return nil
}

func (d *recordingDirectory) Ban(ctx context.Context, subject Subject, purgeDays int, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.banErr != nil {
		return d.banErr
	}
	d.bans = append(d.bans, banCall{Subject: subject, PurgeDays: purgeDays, Reason: reason})
	return nil
}

func (d *recordingDirectory) Unban(ctx context.Context, subject Subject) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unbanErr != nil {
		return d.unbanErr
	}
	d.unbans = append(d.unbans, subject)
	return nil
}

func (d *recordingDirectory) callsFor(subject Subject) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls[subject]...)
}

func (d *recordingDirectory) totalCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.bans) + len(d.unbans)
	for _, c := range d.calls {
		n += len(c)
	}
	return n
}

// listingDirectory also reports member roles, like the Telegram adapter.
type listingDirectory struct {
	*recordingDirectory
	roles []string
}

func (d *listingDirectory) MemberRoles(ctx context.Context, subject Subject) ([]string, error) {
	return d.roles, nil
}

func testRecord(subject Subject, taken ...string) Record {
	now := time.Now()
	return Record{
		Subject:        subject,
		RestrictedRole: "Muted",
		TakenRoles:     taken,
		Reason:         "spam",
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Hour),
	}
}

func waitOutcome(t *testing.T, task *Task) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := task.Wait(ctx)
	require.NoError(t, err)
	return out
}

// restrictingDirectory applies a mute in one call, like the Telegram adapter.
type restrictingDirectory struct {
	*recordingDirectory
	restrictErr error
}

func (d *restrictingDirectory) Restrict(ctx context.Context, subject Subject, restrictedRole string, taken []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.restrictErr != nil {
		return d.restrictErr
	}
	d.calls[subject] = append(d.calls[subject], "restrict:"+restrictedRole)
	for _, r := range taken {
		d.calls[subject] = append(d.calls[subject], "drop:"+r)
	}
	return nil
}

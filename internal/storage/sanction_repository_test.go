package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tg-sanction/internal/models"
	"tg-sanction/internal/sanction"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"), glogger.Default.LogMode(glogger.Silent))
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, MigrateAll(db))
	return db
}

func testSanction(groupID, userID int64, taken ...string) sanction.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return sanction.Record{
		Subject:        sanction.Subject{GroupID: groupID, UserID: userID},
		RestrictedRole: "muted",
		TakenRoles:     taken,
		Reason:         "flood",
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Hour),
	}
}

func TestSanctionRepositoryRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := NewSanctionRepository(testDB(t))

	in := testSanction(-100, 1, "send_messages", "send_photos")
	require.NoError(t, repo.Insert(ctx, in))

	got, err := repo.FindBySubject(ctx, in.Subject)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(in.Subject, got.Subject)
	assert.Equal("muted", got.RestrictedRole)
	assert.Equal([]string{"send_messages", "send_photos"}, got.TakenRoles)
	assert.Equal("flood", got.Reason)
	assert.WithinDuration(in.ExpiresAt, got.ExpiresAt, time.Second)

	missing, err := repo.FindBySubject(ctx, sanction.Subject{GroupID: -100, UserID: 2})
	assert.NoError(err)
	assert.Nil(missing)
}

func TestSanctionRepositoryUniqueSubject(t *testing.T) {
	ctx := context.Background()
	repo := NewSanctionRepository(testDB(t))

	require.NoError(t, repo.Insert(ctx, testSanction(-100, 1)))
	err := repo.Insert(ctx, testSanction(-100, 1, "send_messages"))
	assert.ErrorIs(t, err, sanction.ErrAlreadySanctioned)

	// same user in another group is a different subject
	assert.NoError(t, repo.Insert(ctx, testSanction(-200, 1)))
}

func TestSanctionRepositoryFindAndDelete(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := NewSanctionRepository(testDB(t))
	in := testSanction(-100, 1, "send_messages")
	require.NoError(t, repo.Insert(ctx, in))

	got, err := repo.FindAndDelete(ctx, in.Subject)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal([]string{"send_messages"}, got.TakenRoles)

	again, err := repo.FindAndDelete(ctx, in.Subject)
	assert.NoError(err)
	assert.Nil(again)

	count, err := repo.Count(ctx)
	assert.NoError(err)
	assert.Zero(count)

	// the subject can be muted again once resolved
	assert.NoError(repo.Insert(ctx, in))
}

func TestSanctionRepositoryConcurrentFindAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSanctionRepository(testDB(t))
	in := testSanction(-100, 1, "send_messages")
	require.NoError(t, repo.Insert(ctx, in))

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := repo.FindAndDelete(ctx, in.Subject)
			assert.NoError(t, err)
			if rec != nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestSanctionRepositoryListActive(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := NewSanctionRepository(testDB(t))

	later := testSanction(-100, 1)
	sooner := testSanction(-100, 2)
	sooner.ExpiresAt = later.ExpiresAt.Add(-30 * time.Minute)
	require.NoError(t, repo.Insert(ctx, later))
	require.NoError(t, repo.Insert(ctx, sooner))

	records, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(sooner.Subject, records[0].Subject)
	assert.Equal(later.Subject, records[1].Subject)
	assert.NotNil(records[0].TakenRoles)
}

// The repository must behave as a sanction.Store end to end: mute, expire,
// and restore after a simulated restart.
func TestSanctionRepositoryWithEngine(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	db := testDB(t)
	dir := &nopDirectory{}

	first := sanction.NewEngine(NewSanctionRepository(db), dir, sanction.Options{MutedRole: "muted", DefaultDuration: time.Hour})
	_, err := first.Mute(ctx, sanction.MuteRequest{
		Subject:    sanction.Subject{GroupID: -100, UserID: 1},
		TakenRoles: []string{"send_messages"},
		Duration:   50 * time.Millisecond,
	})
	require.NoError(t, err)
	first.Shutdown()

	outcomes := make(chan sanction.Outcome, 1)
	second := sanction.NewEngine(NewSanctionRepository(db), dir, sanction.Options{
		MutedRole:       "muted",
		DefaultDuration: time.Hour,
		Reporter:        func(o sanction.Outcome) { outcomes <- o },
	})
	n, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(1, n)

	select {
	case out := <-outcomes:
		assert.True(out.OK(), out.String())
	case <-time.After(5 * time.Second):
		t.Fatal("restored sanction did not expire")
	}

	var count int64
	require.NoError(t, db.Model(&models.SanctionRecord{}).Count(&count).Error)
	assert.Zero(count)
}

type nopDirectory struct{}

func (nopDirectory) AddRoles(context.Context, sanction.Subject, []string) error { return nil }
func (nopDirectory) RemoveRole(context.Context, sanction.Subject, string) error { return nil }
func (nopDirectory) Ban(context.Context, sanction.Subject, int, string) error   { return nil }
func (nopDirectory) Unban(context.Context, sanction.Subject) error              { return nil }

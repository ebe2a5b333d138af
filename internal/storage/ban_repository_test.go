package storage

import (
	"context"
	"testing"

	"tg-sanction/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanRepository(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := NewBanRepository(testDB(t))

	require.NoError(t, repo.Create(ctx, &models.BanRecord{GroupID: -100, UserID: 1, Reason: "spam", PurgeDays: 7}))
	require.NoError(t, repo.Create(ctx, &models.BanRecord{GroupID: -200, UserID: 1, Reason: "raid"}))

	all, err := repo.GetActiveRecordsByUser(ctx, 1, -1)
	require.NoError(t, err)
	assert.Len(all, 2)

	inGroup, err := repo.GetActiveRecordsByUser(ctx, 1, -100)
	require.NoError(t, err)
	require.Len(t, inGroup, 1)
	assert.Equal(7, inGroup[0].PurgeDays)

	n, err := repo.MarkUnbanned(ctx, -100, 1, 99)
	require.NoError(t, err)
	assert.Equal(int64(1), n)

	remaining, err := repo.GetActiveRecordsByUser(ctx, 1, -1)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(int64(-200), remaining[0].GroupID)

	n, err = repo.MarkUnbanned(ctx, -100, 1, 99)
	require.NoError(t, err)
	assert.Zero(n)
}

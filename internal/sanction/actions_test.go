package sanction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestBanPurgeDaysClamp(t *testing.T) {
	x := Subject{GroupID: -100, UserID: 9}
	cases := []struct {
		name      string
		requested *int
		want      int
	}{
		{"over limit", intPtr(30), 7},
		{"within limit", intPtr(3), 3},
		{"at limit", intPtr(7), 7},
		{"zero", intPtr(0), 0},
		{"omitted", nil, 0},
		{"negative", intPtr(-2), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := newRecordingDirectory()
			assert.NoError(t, NewActions(dir).ApplyBan(context.Background(), x, tc.requested, "flooding"))
			if assert.Len(t, dir.bans, 1) {
				assert.Equal(t, tc.want, dir.bans[0].PurgeDays)
				assert.Equal(t, "flooding", dir.bans[0].Reason)
			}
		})
	}
}

func TestBanDefaultReason(t *testing.T) {
	dir := newRecordingDirectory()
	assert.NoError(t, NewActions(dir).ApplyBan(context.Background(), Subject{UserID: 1}, nil, ""))
	assert.Equal(t, "None specified", dir.bans[0].Reason)
}

func TestBanAndUnbanFailures(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	dir := newRecordingDirectory()
	dir.banErr = errors.New("not enough rights")
	dir.unbanErr = errors.New("not enough rights")
	a := NewActions(dir)
	x := Subject{GroupID: -100, UserID: 9}

	err := a.ApplyBan(ctx, x, intPtr(1), "")
	assert.ErrorIs(err, ErrDirectory)
	var dirErr *DirectoryError
	if assert.ErrorAs(err, &dirErr) {
		assert.Equal("ban", dirErr.Op)
		assert.Equal(x, dirErr.Subject)
	}

	err = a.ApplyUnban(ctx, x)
	assert.ErrorIs(err, ErrDirectory)
	assert.ErrorContains(err, "not enough rights")
}

func TestUnban(t *testing.T) {
	dir := newRecordingDirectory()
	x := Subject{GroupID: -100, UserID: 9}
	assert.NoError(t, NewActions(dir).ApplyUnban(context.Background(), x))
	assert.Equal(t, []Subject{x}, dir.unbans)
}

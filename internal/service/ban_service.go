package service

import (
	"context"

	"tg-sanction/internal/logger"
	"tg-sanction/internal/models"
	"tg-sanction/internal/sanction"
)

// BanUser bans a member and records who did it.
func BanUser(ctx context.Context, subject sanction.Subject, purgeDays *int, reason string, bannedBy int64) error {
	if err := engine.Ban(ctx, subject, purgeDays, reason); err != nil {
		return err
	}
	if reason == "" {
		reason = sanction.DefaultBanReason
	}
	CreateBanRecord(ctx, subject, sanction.ClampPurgeDays(purgeDays), reason, bannedBy)
	return nil
}

// UnbanUser lifts a ban and closes the member's open ban records.
func UnbanUser(ctx context.Context, subject sanction.Subject, unbannedBy int64) error {
	if err := engine.Unban(ctx, subject); err != nil {
		return err
	}
	MarkBanRecordUnbanned(ctx, subject, unbannedBy)
	return nil
}

// CreateBanRecord stores a new ban record for the user in a group
func CreateBanRecord(ctx context.Context, subject sanction.Subject, purgeDays int, reason string, bannedBy int64) {
	if banRepository == nil {
		return
	}
	record := &models.BanRecord{
		GroupID:   subject.GroupID,
		UserID:    subject.UserID,
		Reason:    reason,
		PurgeDays: purgeDays,
		BannedBy:  bannedBy,
	}
	if err := banRepository.Create(ctx, record); err != nil {
		logger.Warningf("Error creating ban record for %s: %v", subject, err)
	}
}

// GetActiveBanRecordsByUser retrieves all active (not unbanned) ban records
// for a user. groupID -1 matches every group.
func GetActiveBanRecordsByUser(ctx context.Context, userID, groupID int64) ([]*models.BanRecord, error) {
	if banRepository == nil {
		return nil, nil
	}
	return banRepository.GetActiveRecordsByUser(ctx, userID, groupID)
}

// MarkBanRecordUnbanned marks a user's ban records as unbanned for a group
func MarkBanRecordUnbanned(ctx context.Context, subject sanction.Subject, unbannedBy int64) {
	if banRepository == nil {
		return
	}
	n, err := banRepository.MarkUnbanned(ctx, subject.GroupID, subject.UserID, unbannedBy)
	if err != nil {
		logger.Warningf("Error marking ban record unbanned for %s: %v", subject, err)
		return
	}
	logger.Debugf("Closed %d ban records for %s", n, subject)
}

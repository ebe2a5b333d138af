package storage

import (
	"context"
	"time"

	"tg-sanction/internal/models"

	"gorm.io/gorm"
)

// BanRepository keeps the audit trail of bans and unbans. It is separate from
// the sanction store: bans never expire on their own.
type BanRepository struct {
	db *gorm.DB
}

// NewBanRepository creates a new BanRepository
func NewBanRepository(db *gorm.DB) *BanRepository {
	return &BanRepository{db: db}
}

// MigrateTable ensures the BanRecord table exists
func (r *BanRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.BanRecord{})
}

// Create inserts a new BanRecord
func (r *BanRepository) Create(ctx context.Context, record *models.BanRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetActiveRecordsByUser returns all non-unbanned records for a user. A
// groupID of -1 matches every group.
func (r *BanRepository) GetActiveRecordsByUser(ctx context.Context, userID int64, groupID int64) ([]*models.BanRecord, error) {
	var records []*models.BanRecord
	query := r.db.WithContext(ctx).Where("user_id = ? AND is_unbanned = ?", userID, false)
	if groupID != -1 {
		query = query.Where("group_id = ?", groupID)
	}
	result := query.Order("created_at DESC").Find(&records)
	return records, result.Error
}

// MarkUnbanned flags the user's active ban records in a group as lifted and
// returns how many were updated.
func (r *BanRepository) MarkUnbanned(ctx context.Context, groupID, userID int64, unbannedBy int64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.BanRecord{}).
		Where("group_id = ? AND user_id = ? AND is_unbanned = ?", groupID, userID, false).
		Updates(map[string]interface{}{"is_unbanned": true, "updated_at": time.Now(), "unbanned_by": unbannedBy})
	return result.RowsAffected, result.Error
}

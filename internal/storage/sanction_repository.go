package storage

import (
	"context"
	"errors"

	"tg-sanction/internal/models"
	"tg-sanction/internal/sanction"

	"gorm.io/gorm"
)

// SanctionRepository stores active sanctions in SQL.
type SanctionRepository struct {
	db *gorm.DB
}

var _ sanction.Store = (*SanctionRepository)(nil)

// NewSanctionRepository creates a new SanctionRepository
func NewSanctionRepository(db *gorm.DB) *SanctionRepository {
	return &SanctionRepository{db: db}
}

// MigrateTable ensures the SanctionRecord table exists
func (r *SanctionRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.SanctionRecord{})
}

// Insert adds a record; the unique subject index rejects a second active one.
func (r *SanctionRepository) Insert(ctx context.Context, rec sanction.Record) error {
	row := toSanctionModel(rec)
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return sanction.ErrAlreadySanctioned
	}
	return err
}

func (r *SanctionRepository) FindBySubject(ctx context.Context, subject sanction.Subject) (*sanction.Record, error) {
	var row models.SanctionRecord
	result := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", subject.GroupID, subject.UserID).
		Limit(1).
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	rec := fromSanctionModel(row)
	return &rec, nil
}

// FindAndDelete reads the subject's row and deletes it by primary key inside
// one transaction. Concurrent callers may all read the row, but the delete
// affects it only once; only that caller gets the record back.
func (r *SanctionRepository) FindAndDelete(ctx context.Context, subject sanction.Subject) (*sanction.Record, error) {
	var found *sanction.Record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.SanctionRecord
		err := tx.Where("group_id = ? AND user_id = ?", subject.GroupID, subject.UserID).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		result := tx.Delete(&models.SanctionRecord{}, row.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 1 {
			rec := fromSanctionModel(row)
			found = &rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListActive returns every stored sanction, soonest expiry first.
func (r *SanctionRepository) ListActive(ctx context.Context) ([]sanction.Record, error) {
	var rows []models.SanctionRecord
	if err := r.db.WithContext(ctx).Order("expires_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]sanction.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, fromSanctionModel(row))
	}
	return records, nil
}

// Count returns the number of active sanctions.
func (r *SanctionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SanctionRecord{}).Count(&count).Error
	return count, err
}

func toSanctionModel(rec sanction.Record) models.SanctionRecord {
	return models.SanctionRecord{
		GroupID:        rec.Subject.GroupID,
		UserID:         rec.Subject.UserID,
		RestrictedRole: rec.RestrictedRole,
		TakenRoles:     rec.TakenRoles,
		Reason:         rec.Reason,
		ExpiresAt:      rec.ExpiresAt.UTC(),
		CreatedAt:      rec.CreatedAt.UTC(),
	}
}

func fromSanctionModel(row models.SanctionRecord) sanction.Record {
	taken := row.TakenRoles
	if taken == nil {
		taken = []string{}
	}
	return sanction.Record{
		Subject:        sanction.Subject{GroupID: row.GroupID, UserID: row.UserID},
		RestrictedRole: row.RestrictedRole,
		TakenRoles:     taken,
		Reason:         row.Reason,
		CreatedAt:      row.CreatedAt,
		ExpiresAt:      row.ExpiresAt,
	}
}

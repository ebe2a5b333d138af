package models

import "time"

// SanctionRecord is an active temporary mute. A row exists only while the
// sanction is in force; resolving it deletes the row.
// The unique index keeps at most one active sanction per member and group.
type SanctionRecord struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	GroupID        int64     `gorm:"uniqueIndex:idx_sanction_subject;not null"`
	UserID         int64     `gorm:"uniqueIndex:idx_sanction_subject;not null"`
	RestrictedRole string    `gorm:"size:64;not null"`
	TakenRoles     []string  `gorm:"serializer:json;type:text"`
	Reason         string    `gorm:"type:text"`
	ExpiresAt      time.Time `gorm:"index;not null"`
	CreatedAt      time.Time
}

func (SanctionRecord) TableName() string {
	return "sanction_records"
}

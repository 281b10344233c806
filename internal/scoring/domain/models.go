// Package domain contains persistence models for activity scoring.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chatrank/chatrank/internal/event"
	"gorm.io/datatypes"
)

// ActivityEvent is the immutable ledger row for one applied event. The
// unique (chat_id, message_id) index is the dedup key.
type ActivityEvent struct {
	ID         snowflake.ID      `gorm:"primaryKey;autoIncrement:false"`
	ChatID     int64             `gorm:"not null;uniqueIndex:ux_activity_events_dedup,priority:1"`
	MessageID  int               `gorm:"not null;uniqueIndex:ux_activity_events_dedup,priority:2"`
	UserID     int64             `gorm:"not null;index"`
	Kind       event.Kind        `gorm:"type:text;not null"`
	Points     int64             `gorm:"not null"`
	OccurredAt time.Time         `gorm:"not null;index"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (ActivityEvent) TableName() string { return "activity_events" }

// PeriodBucket aggregates one user's activity over one calendar period.
// MessageCount counts text messages, StickerCount stickers; ActivityCount
// counts every applied event regardless of weight.
type PeriodBucket struct {
	UserID        int64      `gorm:"primaryKey;autoIncrement:false"`
	PeriodType    PeriodType `gorm:"primaryKey;type:text"`
	PeriodStart   time.Time  `gorm:"primaryKey"`
	MessageCount  int64      `gorm:"not null;default:0"`
	StickerCount  int64      `gorm:"not null;default:0"`
	ActivityCount int64      `gorm:"not null;default:0"`
	Points        int64      `gorm:"not null;default:0"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

// TableName sets the database table name.
func (PeriodBucket) TableName() string { return "period_buckets" }

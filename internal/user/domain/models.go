// Package domain contains persistence models for the user registry.
package domain

import "time"

// User is the stable identity tracked for one platform account. Rows are
// never deleted; Active=false marks a departure.
type User struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false"`
	Username    string    `gorm:"type:text"`
	DisplayName string    `gorm:"type:text;not null"`
	FirstSeen   time.Time `gorm:"not null"`
	LastSeen    time.Time `gorm:"not null"`
	Active      bool      `gorm:"not null;default:true"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

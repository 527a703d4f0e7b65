package models

import (
	"time"
)

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;not null"          json:"email"`
	PasswordHash string     `gorm:"not null"                      json:"-"`
	IsActive     bool       `gorm:"default:true"                  json:"is_active"`
	IsStaff      bool       `gorm:"default:false"                 json:"is_staff"`
	LastLogin    *time.Time `json:"-"`
}

// UserSettings is one-to-one with User. A user without a settings row is
// read as role "Unknown" by the auth flow, not treated as an error.
type UserSettings struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"      json:"id"`
	UserID uint   `gorm:"uniqueIndex;not null"          json:"user_id"`
	User   User   `gorm:"constraint:OnDelete:CASCADE"   json:"-"`
	Role   string `gorm:"size:50;not null;default:user" json:"role"`
}

type Todo struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID      uint      `gorm:"index;not null"              json:"user_id"`
	User        User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title       string    `gorm:"size:100;not null"           json:"title"`
	Description string    `gorm:"type:text"                   json:"description"`
	Completed   bool      `gorm:"default:false"               json:"completed"`
	CreatedAt   time.Time `gorm:"autoCreateTime"              json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"              json:"updated_at"`
}

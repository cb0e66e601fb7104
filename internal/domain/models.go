// Package domain defines the persistence models for users and their drug
// records. These types are mapped with GORM and form the core data layer
// of the medicine-cabinet application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account. Each user owns a private set of drug
// records; deleting a user cascades to their drugs.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login identifier, stored lowercase.
//   - Username: unique display name.
//   - PasswordHash: bcrypt hash; never serialized to JSON.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type User struct {
	ID           string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Email        string         `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex"`
	Username     string         `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex"`
	PasswordHash string         `json:"-"          gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Drug represents one medicine in a user's cabinet.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: foreign key to the owning user (indexed).
//   - Name: medicine name as printed on the package.
//   - Form: canonical pharmaceutical form name (see forms.go).
//   - ExpirationDate: always the last instant of the expiry month in the
//     application time zone. Never a mid-month value; the service layer
//     normalizes on every write.
//   - Description: optional free-text notes.
//   - AlertSent / AlertSentAt: expiry-alert state. Owned exclusively by the
//     alert sweep, except that an edit changing ExpirationDate resets both
//     in the same UPDATE as the content change.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
//   - User: FK association, ensures cascade delete when the owner is removed.
type Drug struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID         string         `json:"user_id"         gorm:"type:char(36);not null;index:idx_user_drugs"`
	Name           string         `json:"name"            gorm:"type:varchar(120);not null"`
	Form           string         `json:"form"            gorm:"type:varchar(32);not null;index"`
	ExpirationDate time.Time      `json:"expiration_date" gorm:"not null;index"`
	Description    string         `json:"description,omitempty" gorm:"type:varchar(500)"`
	AlertSent      bool           `json:"alert_sent"      gorm:"not null;default:false;index"`
	AlertSentAt    *time.Time     `json:"alert_sent_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// User is the owning account. Drugs are cascade-deleted if the owner
	// is removed.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Drug.
func (Drug) TableName() string { return "drugs" }

// Expired reports whether the drug's expiration date lies strictly before now.
func (d Drug) Expired(now time.Time) bool {
	return d.ExpirationDate.Before(now)
}

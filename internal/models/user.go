// Package models contains data structures for the application's domain models.
package models

import "time"

// User is the minimal account record the engagement layer needs: identity,
// a display snapshot for authored rows, and the admin bit used by the
// author-or-admin permission check.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"-"`
	Password  string    `gorm:"not null" json:"-"`
	Avatar    string    `json:"avatar"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

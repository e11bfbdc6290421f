package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a sender/receiver profile. Verified gates the unverified send limit.
type User struct {
	gorm.Model
	Email               string     `gorm:"uniqueIndex;not null" json:"email"`
	Password            string     `gorm:"not null" json:"-"`
	Name                string     `gorm:"not null" json:"name"`
	Phone               string     `gorm:"uniqueIndex;not null" json:"phone"`
	Country             string     `json:"country"`
	Role                string     `gorm:"default:'user'" json:"role"`
	Status              string     `gorm:"default:'active'" json:"status"`
	Verified            bool       `gorm:"default:false" json:"verified"`
	Balance             float64    `gorm:"default:0" json:"balance"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP         string     `json:"-"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	TokenVersion        int        `gorm:"default:1" json:"-"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	return r == RoleStudent || r == RoleAdmin
}

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	FullName     string    `json:"full_name" gorm:"size:100"`
	PasswordHash string    `json:"-" gorm:"column:hashed_password;not null"`
	Role         UserRole  `json:"role" gorm:"size:20;not null;default:student"`

	IsActive    bool       `json:"is_active" gorm:"not null;default:true"`
	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

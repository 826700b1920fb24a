package models

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleCompany Role = "COMPANY"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole accepts any casing and surrounding whitespace.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleStudent, RoleCompany, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("invalid role %q", s)
	}
}

type User struct {
	ID           string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string `gorm:"column:name;type:text;not null" json:"name"`
	Email        string `gorm:"column:email;type:text;not null;uniqueIndex:idx_users_email" json:"email"` // always lower-cased
	PasswordHash string `gorm:"column:password_hash;type:text;not null" json:"-"`
	Role         Role   `gorm:"column:role;type:varchar(16);not null;index" json:"role"`

	IsApproved    bool `gorm:"column:is_approved;not null;default:false" json:"is_approved"`
	EmailVerified bool `gorm:"column:email_verified;not null;default:false" json:"email_verified"`

	EmailVerificationCodeHash  *string    `gorm:"column:email_verification_code_hash;type:text" json:"-"`
	EmailVerificationExpiresAt *time.Time `gorm:"column:email_verification_expires_at;type:timestamptz" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	StudentProfile *StudentProfile `gorm:"foreignKey:UserID" json:"student_profile,omitempty"`
	CompanyProfile *CompanyProfile `gorm:"foreignKey:UserID" json:"company_profile,omitempty"`
}

func (User) TableName() string { return "users" }

// IsActive reports whether the account passed both the verification and the approval gate.
func (u *User) IsActive() bool {
	return u != nil && u.EmailVerified && u.IsApproved
}

func (u *User) ClearVerificationCode() {
	u.EmailVerificationCodeHash = nil
	u.EmailVerificationExpiresAt = nil
}

// NormalizeEmail is the single canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

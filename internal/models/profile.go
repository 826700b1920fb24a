package models

import (
	"strings"
	"time"
)

type StudentProfile struct {
	ID     string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID string `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	Skills string `gorm:"column:skills;type:text" json:"skills"`
	Bio    string `gorm:"column:bio;type:text" json:"bio"`

	// ResumeURL holds either an external http(s) URL or a blob storage key.
	ResumeURL *string `gorm:"column:resume_url;type:text" json:"resume_url"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (StudentProfile) TableName() string { return "student_profiles" }

// ResumeIsExternal is true when the stored reference is already a URL and needs no signing.
func (p *StudentProfile) ResumeIsExternal() bool {
	if p == nil || p.ResumeURL == nil {
		return false
	}
	v := strings.ToLower(*p.ResumeURL)
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

type CompanyProfile struct {
	ID          string  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      string  `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	CompanyName string  `gorm:"column:company_name;type:text;not null" json:"company_name"`
	Website     *string `gorm:"column:website;type:text" json:"website"`
	Description string  `gorm:"column:description;type:text" json:"description"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (CompanyProfile) TableName() string { return "company_profiles" }

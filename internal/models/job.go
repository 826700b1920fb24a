package models

import (
	"fmt"
	"strings"
	"time"
)

type JobType string

const (
	JobTypeJob        JobType = "JOB"
	JobTypeInternship JobType = "INTERNSHIP"
)

func ParseJobType(s string) (JobType, error) {
	switch t := JobType(strings.ToUpper(strings.TrimSpace(s))); t {
	case JobTypeJob, JobTypeInternship:
		return t, nil
	default:
		return "", fmt.Errorf("invalid job type %q", s)
	}
}

type Job struct {
	ID          string  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CompanyID   string  `gorm:"column:company_id;type:uuid;not null;index" json:"company_id"`
	Title       string  `gorm:"column:title;type:text;not null" json:"title"`
	Type        JobType `gorm:"column:type;type:varchar(16);not null;index" json:"type"`
	Location    string  `gorm:"column:location;type:text;not null" json:"location"`
	SalaryRange *string `gorm:"column:salary_range;type:text" json:"salary_range"`
	Description string  `gorm:"column:description;type:text;not null" json:"description"`
	IsApproved  bool    `gorm:"column:is_approved;not null;default:false;index" json:"is_approved"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	Company *CompanyProfile `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	ApplicationCount *int64 `gorm:"-" json:"application_count,omitempty"`
}

func (Job) TableName() string { return "jobs" }

// JobFilter is the public search query. Empty fields do not filter.
type JobFilter struct {
	Type     string `form:"type" json:"type"`
	Location string `form:"location" json:"location"`
	Search   string `form:"search" json:"search"`
}

// Normalized trims every field and upper-cases the type so that the cache key
// and the store query are derived from the same values.
func (f JobFilter) Normalized() JobFilter {
	return JobFilter{
		Type:     strings.ToUpper(strings.TrimSpace(f.Type)),
		Location: strings.TrimSpace(f.Location),
		Search:   strings.TrimSpace(f.Search),
	}
}

package models

import (
	"fmt"
	"strings"
	"time"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationReviewed ApplicationStatus = "reviewed"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	switch st := ApplicationStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case ApplicationPending, ApplicationReviewed, ApplicationAccepted, ApplicationRejected:
		return st, nil
	default:
		return "", fmt.Errorf("invalid application status %q", s)
	}
}

// Application is owned jointly by a Job and a StudentProfile; at most one per pair.
type Application struct {
	ID          string            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	JobID       string            `gorm:"column:job_id;type:uuid;not null;uniqueIndex:idx_applications_job_student,priority:1" json:"job_id"`
	StudentID   string            `gorm:"column:student_id;type:uuid;not null;uniqueIndex:idx_applications_job_student,priority:2;index" json:"student_id"`
	CoverLetter *string           `gorm:"column:cover_letter;type:text" json:"cover_letter"`
	Status      ApplicationStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'" json:"status"`
	CreatedAt   time.Time         `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`

	Job     *Job            `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Student *StudentProfile `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (Application) TableName() string { return "applications" }

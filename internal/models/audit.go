package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AuditUserUpdated = "user.updated"
	AuditUserDeleted = "user.deleted"
	AuditJobApproval = "job.approval"
	AuditJobDeleted  = "job.deleted"
	AuditTargetUser  = "user"
	AuditTargetJob   = "job"
)

type AuditEvent struct {
	ID         string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ActorID    string         `gorm:"column:actor_id;type:uuid;index" json:"actor_id"`
	Action     string         `gorm:"column:action;type:text;not null" json:"action"`
	TargetType string         `gorm:"column:target_type;type:text;not null" json:"target_type"`
	TargetID   string         `gorm:"column:target_id;type:uuid;index" json:"target_id"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb" json:"details"`
	CreatedAt  time.Time      `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (AuditEvent) TableName() string { return "audit_events" }

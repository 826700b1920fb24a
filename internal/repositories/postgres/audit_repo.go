package postgres

import (
	"context"

	"github.com/yoockh/jobsphere/internal/models"
	"gorm.io/gorm"
)

type auditRepo struct {
	db *gorm.DB
}

func (r *auditRepo) Insert(ctx context.Context, e *models.AuditEvent) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *auditRepo) List(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.AuditEvent
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, translate(err)
}

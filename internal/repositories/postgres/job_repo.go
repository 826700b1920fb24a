package postgres

import (
	"context"

	"github.com/yoockh/jobsphere/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type jobRepo struct {
	db *gorm.DB
}

func (r *jobRepo) Create(ctx context.Context, j *models.Job) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(j).Error)
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.Job, error) {
	var j models.Job
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("id = ?", id).
		Take(&j).Error
	if err != nil {
		return nil, translate(err)
	}
	return &j, nil
}

func (r *jobRepo) Update(ctx context.Context, j *models.Job) error {
	return updateRow(ctx, r.db, j.ID, j)
}

func (r *jobRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Job{}))
}

func (r *jobRepo) DeleteByCompany(ctx context.Context, companyID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&models.Job{})
	return res.RowsAffected, translate(res.Error)
}

func (r *jobRepo) Search(ctx context.Context, f models.JobFilter) ([]models.Job, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Preload("Company").
		Where("jobs.is_approved = ?", true)

	if f.Type != "" {
		q = q.Where("jobs.type = ?", f.Type)
	}
	if f.Location != "" {
		q = q.Where("jobs.location ILIKE ?", containsPattern(f.Location))
	}
	if f.Search != "" {
		p := containsPattern(f.Search)
		companies := r.db.WithContext(ctx).Model(&models.CompanyProfile{}).
			Select("id").
			Where("company_name ILIKE ?", p)
		q = q.Where("(jobs.title ILIKE ? OR jobs.description ILIKE ? OR jobs.company_id IN (?))", p, p, companies)
	}

	var rows []models.Job
	err := q.Order("jobs.created_at DESC").Find(&rows).Error
	return rows, translate(err)
}

func (r *jobRepo) ListByCompany(ctx context.Context, companyID string) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, translate(err)
}

func (r *jobRepo) ListAll(ctx context.Context) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Preload("Company").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, translate(err)
}

func (r *jobRepo) Count(ctx context.Context, pendingOnly bool) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Job{})
	if pendingOnly {
		q = q.Where("is_approved = ?", false)
	}
	var n int64
	err := q.Count(&n).Error
	return n, translate(err)
}

package postgres

import (
	"context"

	"github.com/yoockh/jobsphere/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type applicationRepo struct {
	db *gorm.DB
}

func (r *applicationRepo) companyJobIDs(companyID string) *gorm.DB {
	return r.db.Model(&models.Job{}).Select("id").Where("company_id = ?", companyID)
}

func (r *applicationRepo) Create(ctx context.Context, a *models.Application) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error)
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*models.Application, error) {
	var a models.Application
	err := r.db.WithContext(ctx).
		Preload("Job").
		Where("id = ?", id).
		Take(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *applicationRepo) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	return affected(r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id).
		Update("status", status))
}

func (r *applicationRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Application, error) {
	var rows []models.Application
	err := r.db.WithContext(ctx).
		Preload("Job.Company").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, translate(err)
}

func (r *applicationRepo) ListByCompany(ctx context.Context, companyID string) ([]models.Application, error) {
	var rows []models.Application
	err := r.db.WithContext(ctx).
		Preload("Job").
		Preload("Student.User").
		Where("job_id IN (?)", r.companyJobIDs(companyID)).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, translate(err)
}

func (r *applicationRepo) ListAll(ctx context.Context) ([]models.Application, error) {
	var rows []models.Application
	err := r.db.WithContext(ctx).
		Preload("Job.Company").
		Preload("Student.User").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, translate(err)
}

func (r *applicationRepo) DeleteByJob(ctx context.Context, jobID string) error {
	return translate(r.db.WithContext(ctx).Where("job_id = ?", jobID).Delete(&models.Application{}).Error)
}

func (r *applicationRepo) DeleteByStudent(ctx context.Context, studentID string) error {
	return translate(r.db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&models.Application{}).Error)
}

func (r *applicationRepo) DeleteByCompany(ctx context.Context, companyID string) error {
	return translate(r.db.WithContext(ctx).
		Where("job_id IN (?)", r.companyJobIDs(companyID)).
		Delete(&models.Application{}).Error)
}

func (r *applicationRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Application{}).Count(&n).Error
	return n, translate(err)
}

func (r *applicationRepo) CountByJobs(ctx context.Context, jobIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(jobIDs))
	if len(jobIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		JobID string
		N     int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Select("job_id, count(*) AS n").
		Where("job_id IN ?", jobIDs).
		Group("job_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	for _, row := range rows {
		out[row.JobID] = row.N
	}
	return out, nil
}

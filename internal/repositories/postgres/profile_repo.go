package postgres

import (
	"context"

	"github.com/yoockh/jobsphere/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type profileRepo struct {
	db *gorm.DB
}

func (r *profileRepo) CreateStudent(ctx context.Context, p *models.StudentProfile) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

func (r *profileRepo) CreateCompany(ctx context.Context, p *models.CompanyProfile) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

func (r *profileRepo) StudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	var p models.StudentProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *profileRepo) CompanyByUserID(ctx context.Context, userID string) (*models.CompanyProfile, error) {
	var p models.CompanyProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *profileRepo) UpdateStudent(ctx context.Context, p *models.StudentProfile) error {
	return updateRow(ctx, r.db, p.ID, p)
}

func (r *profileRepo) UpdateCompany(ctx context.Context, p *models.CompanyProfile) error {
	return updateRow(ctx, r.db, p.ID, p)
}

func (r *profileRepo) DeleteStudent(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.StudentProfile{}))
}

func (r *profileRepo) DeleteCompany(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CompanyProfile{}))
}

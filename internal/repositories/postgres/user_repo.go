package postgres

import (
	"context"
	"time"

	"github.com/yoockh/jobsphere/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) withProfiles(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("StudentProfile").
		Preload("CompanyProfile")
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.withProfiles(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.withProfiles(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		Take(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) Update(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	return updateRow(ctx, r.db, u.ID, u)
}

func (r *userRepo) SetVerificationCode(ctx context.Context, userID, hash string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"email_verification_code_hash":  hash,
			"email_verification_expires_at": expiresAt.UTC(),
			"updated_at":                    time.Now().UTC(),
		})
	return affected(res)
}

func (r *userRepo) ConsumeVerificationCode(ctx context.Context, userID, hash string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND email_verification_code_hash = ?", userID, hash).
		Updates(map[string]any{
			"email_verified":                true,
			"email_verification_code_hash":  nil,
			"email_verification_expires_at": nil,
			"updated_at":                    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{}))
}

func (r *userRepo) List(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := r.withProfiles(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, translate(err)
}

func (r *userRepo) Count(ctx context.Context, pendingOnly bool) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if pendingOnly {
		q = q.Where("is_approved = ?", false)
	}
	var n int64
	err := q.Count(&n).Error
	return n, translate(err)
}

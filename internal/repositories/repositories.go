// Package repositories declares the identity store contract shared by the
// postgres and in-memory backends.
//
// Every implementation reports a missing row as utils.ErrNotFound and a unique
// constraint violation as utils.ErrDuplicate.
package repositories

import (
	"context"
	"time"

	"github.com/yoockh/jobsphere/internal/models"
)

type Store interface {
	Users() UserRepository
	Profiles() ProfileRepository
	Jobs() JobRepository
	Applications() ApplicationRepository
	Audit() AuditRepository

	// Transaction runs fn against a Store bound to a single transaction.
	// A non-nil error from fn rolls back every write made through tx.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type UserRepository interface {
	// Create fails with utils.ErrDuplicate when the lower-cased email is taken.
	Create(ctx context.Context, u *models.User) error
	// GetByID and GetByEmail preload both profile associations.
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	SetVerificationCode(ctx context.Context, userID, hash string, expiresAt time.Time) error
	// ConsumeVerificationCode marks the user verified and clears the code only
	// while the stored hash still equals hash. It reports whether a row changed.
	ConsumeVerificationCode(ctx context.Context, userID, hash string) (bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context, pendingOnly bool) (int64, error)
}

type ProfileRepository interface {
	CreateStudent(ctx context.Context, p *models.StudentProfile) error
	CreateCompany(ctx context.Context, p *models.CompanyProfile) error
	StudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	CompanyByUserID(ctx context.Context, userID string) (*models.CompanyProfile, error)
	UpdateStudent(ctx context.Context, p *models.StudentProfile) error
	UpdateCompany(ctx context.Context, p *models.CompanyProfile) error
	DeleteStudent(ctx context.Context, id string) error
	DeleteCompany(ctx context.Context, id string) error
}

type JobRepository interface {
	Create(ctx context.Context, j *models.Job) error
	// GetByID preloads the owning company.
	GetByID(ctx context.Context, id string) (*models.Job, error)
	Update(ctx context.Context, j *models.Job) error
	Delete(ctx context.Context, id string) error
	// DeleteByCompany removes every job of the company and returns how many were removed.
	DeleteByCompany(ctx context.Context, companyID string) (int64, error)
	// Search returns approved jobs matching f, newest first, with their company.
	// f is expected to be normalized.
	Search(ctx context.Context, f models.JobFilter) ([]models.Job, error)
	ListByCompany(ctx context.Context, companyID string) ([]models.Job, error)
	ListAll(ctx context.Context) ([]models.Job, error)
	Count(ctx context.Context, pendingOnly bool) (int64, error)
}

type ApplicationRepository interface {
	// Create fails with utils.ErrDuplicate when the (job, student) pair exists.
	Create(ctx context.Context, a *models.Application) error
	// GetByID preloads the job.
	GetByID(ctx context.Context, id string) (*models.Application, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error
	ListByStudent(ctx context.Context, studentID string) ([]models.Application, error)
	ListByCompany(ctx context.Context, companyID string) ([]models.Application, error)
	ListAll(ctx context.Context) ([]models.Application, error)
	DeleteByJob(ctx context.Context, jobID string) error
	DeleteByStudent(ctx context.Context, studentID string) error
	// DeleteByCompany removes applications to any job owned by the company.
	DeleteByCompany(ctx context.Context, companyID string) error
	Count(ctx context.Context) (int64, error)
	CountByJobs(ctx context.Context, jobIDs []string) (map[string]int64, error)
}

type AuditRepository interface {
	Insert(ctx context.Context, e *models.AuditEvent) error
	List(ctx context.Context, limit int) ([]models.AuditEvent, error)
}

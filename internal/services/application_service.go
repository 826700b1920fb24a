package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/utils"
)

type ApplyInput struct {
	JobID       string  `json:"jobId" validate:"required"`
	CoverLetter *string `json:"coverLetter" validate:"omitempty,max=10000"`
}

type ApplicationService interface {
	Apply(ctx context.Context, userID string, in ApplyInput) (*models.Application, error)
	ListForStudent(ctx context.Context, userID string) ([]models.Application, error)
	ListForCompany(ctx context.Context, userID string) ([]models.Application, error)
	ListAll(ctx context.Context) ([]models.Application, error)
	UpdateStatus(ctx context.Context, actor Actor, applicationID, status string) (*models.Application, error)
}

type applicationService struct {
	d   Deps
	out presenter
	log *logrus.Logger
}

func NewApplicationService(d Deps) ApplicationService {
	d = d.withDefaults()
	return &applicationService{d: d, out: newPresenter(d), log: d.Logger}
}

func (s *applicationService) Apply(ctx context.Context, userID string, in ApplyInput) (*models.Application, error) {
	const op = "ApplicationService.Apply"

	if err := utils.Validate(op, in); err != nil {
		return nil, err
	}

	u, err := s.d.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if !u.IsActive() {
		return nil, utils.E(utils.CodeForbidden, op, "account is not active", ErrAccountInactive)
	}
	acct, err := models.AccountOf(u)
	if err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "student profile not found", err)
	}
	student, ok := acct.(models.StudentAccount)
	if !ok {
		return nil, utils.E(utils.CodeForbidden, op, "only students can apply", ErrForbidden)
	}

	j, err := s.d.Store.Jobs().GetByID(ctx, in.JobID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "job not found", ErrJobNotFound)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load job", err)
	}
	if !j.IsApproved {
		return nil, utils.E(utils.CodeNotFound, op, "job not found", ErrJobNotFound)
	}

	a := &models.Application{
		ID:        uuid.NewString(),
		JobID:     j.ID,
		StudentID: student.Profile.ID,
		Status:    models.ApplicationPending,
		CreatedAt: s.d.Now().UTC(),
	}
	if in.CoverLetter != nil {
		a.CoverLetter = optional(*in.CoverLetter)
	}
	// the unique (job, student) index decides concurrent duplicates
	if err := s.d.Store.Applications().Create(ctx, a); err != nil {
		if errors.Is(err, utils.ErrDuplicate) {
			return nil, utils.E(utils.CodeConflict, op, "you have already applied to this job", ErrAlreadyApplied)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create application", err)
	}
	a.Job = j

	s.log.WithFields(logrus.Fields{"application_id": a.ID, "job_id": j.ID, "student_id": a.StudentID}).Info("application submitted")
	return a, nil
}

func (s *applicationService) ListForStudent(ctx context.Context, userID string) ([]models.Application, error) {
	const op = "ApplicationService.ListForStudent"

	p, err := s.d.Store.Profiles().StudentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "student profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load student profile", err)
	}
	apps, err := s.d.Store.Applications().ListByStudent(ctx, p.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list applications", err)
	}
	return apps, nil
}

func (s *applicationService) ListForCompany(ctx context.Context, userID string) ([]models.Application, error) {
	const op = "ApplicationService.ListForCompany"

	c, err := s.d.Store.Profiles().CompanyByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "company profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load company profile", err)
	}
	apps, err := s.d.Store.Applications().ListByCompany(ctx, c.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list applications", err)
	}
	return s.signResumes(ctx, apps), nil
}

func (s *applicationService) ListAll(ctx context.Context) ([]models.Application, error) {
	const op = "ApplicationService.ListAll"

	apps, err := s.d.Store.Applications().ListAll(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list applications", err)
	}
	return s.signResumes(ctx, apps), nil
}

func (s *applicationService) UpdateStatus(ctx context.Context, actor Actor, applicationID, status string) (*models.Application, error) {
	const op = "ApplicationService.UpdateStatus"

	st, err := models.ParseApplicationStatus(status)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "status must be one of pending, reviewed, accepted, rejected", err)
	}
	if actor.Role != models.RoleCompany && actor.Role != models.RoleAdmin {
		return nil, utils.E(utils.CodeForbidden, op, "not allowed to review applications", ErrForbidden)
	}

	a, err := s.d.Store.Applications().GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "application not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load application", err)
	}
	if actor.Role == models.RoleCompany {
		c, err := s.d.Store.Profiles().CompanyByUserID(ctx, actor.UserID)
		if err != nil || a.Job == nil || a.Job.CompanyID != c.ID {
			return nil, utils.E(utils.CodeForbidden, op, "not the owner of this job", ErrForbidden)
		}
	}

	if err := s.d.Store.Applications().UpdateStatus(ctx, a.ID, st); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update application", err)
	}
	a.Status = st
	return a, nil
}

func (s *applicationService) signResumes(ctx context.Context, apps []models.Application) []models.Application {
	for i := range apps {
		if apps[i].Student != nil {
			apps[i].Student = s.out.student(ctx, apps[i].Student)
		}
	}
	return apps
}

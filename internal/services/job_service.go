package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/repositories"
	"github.com/yoockh/jobsphere/internal/utils"
)

type JobInput struct {
	Title       string  `json:"title" validate:"required"`
	Type        string  `json:"type" validate:"required"`
	Location    string  `json:"location" validate:"required"`
	SalaryRange *string `json:"salaryRange"`
	Description string  `json:"description" validate:"required"`
}

func (in *JobInput) trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Type = strings.TrimSpace(in.Type)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
}

// JobPatch is a partial update. An empty SalaryRange clears it; other empty strings are ignored.
type JobPatch struct {
	Title       *string `json:"title"`
	Type        *string `json:"type"`
	Location    *string `json:"location"`
	SalaryRange *string `json:"salaryRange"`
	Description *string `json:"description"`
	IsApproved  *bool   `json:"isApproved"`
}

type JobService interface {
	Search(ctx context.Context, f models.JobFilter) ([]models.Job, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	Mine(ctx context.Context, userID string) ([]models.Job, error)
	Create(ctx context.Context, userID string, in JobInput) (*models.Job, error)
	Update(ctx context.Context, actor Actor, jobID string, in JobPatch) (*models.Job, error)
	SetApproval(ctx context.Context, actor Actor, jobID string, approved bool) (*models.Job, error)
	Delete(ctx context.Context, actor Actor, jobID string) error
	AdminList(ctx context.Context) ([]models.Job, error)
}

type jobService struct {
	d   Deps
	log *logrus.Logger
}

func NewJobService(d Deps) JobService {
	d = d.withDefaults()
	return &jobService{d: d, log: d.Logger}
}

func (s *jobService) Search(ctx context.Context, f models.JobFilter) ([]models.Job, error) {
	const op = "JobService.Search"

	f = f.Normalized()
	if f.Type != "" {
		if _, err := models.ParseJobType(f.Type); err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "type must be JOB or INTERNSHIP", err)
		}
	}

	jobs, err := s.d.Listings.Fetch(ctx, f, func(ctx context.Context) ([]models.Job, error) {
		return s.d.Store.Jobs().Search(ctx, f)
	})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to search jobs", err)
	}
	return jobs, nil
}

func (s *jobService) Get(ctx context.Context, id string) (*models.Job, error) {
	const op = "JobService.Get"

	j, err := s.d.Store.Jobs().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "job not found", ErrJobNotFound)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load job", err)
	}
	if !j.IsApproved {
		return nil, utils.E(utils.CodeNotFound, op, "job not found", ErrJobNotFound)
	}
	return j, nil
}

func (s *jobService) Mine(ctx context.Context, userID string) ([]models.Job, error) {
	const op = "JobService.Mine"

	company, err := s.companyOf(ctx, s.d.Store, op, userID)
	if err != nil {
		return nil, err
	}
	jobs, err := s.d.Store.Jobs().ListByCompany(ctx, company.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list jobs", err)
	}
	if err := s.withCounts(ctx, jobs); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count applications", err)
	}
	return jobs, nil
}

func (s *jobService) Create(ctx context.Context, userID string, in JobInput) (*models.Job, error) {
	const op = "JobService.Create"

	in.trim()
	if err := utils.Validate(op, in); err != nil {
		return nil, err
	}
	jt, err := models.ParseJobType(in.Type)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "type must be JOB or INTERNSHIP", err)
	}
	company, err := s.companyOf(ctx, s.d.Store, op, userID)
	if err != nil {
		return nil, err
	}

	now := s.d.Now().UTC()
	j := &models.Job{
		ID:          uuid.NewString(),
		CompanyID:   company.ID,
		Title:       in.Title,
		Type:        jt,
		Location:    in.Location,
		Description: in.Description,
		IsApproved:  !s.d.Policy.JobsRequireApproval,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.SalaryRange != nil {
		j.SalaryRange = optional(*in.SalaryRange)
	}
	if err := s.d.Store.Jobs().Create(ctx, j); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create job", err)
	}
	j.Company = company

	s.d.Listings.Invalidate(ctx)
	s.log.WithFields(logrus.Fields{"job_id": j.ID, "company_id": company.ID, "approved": j.IsApproved}).Info("job created")
	return j, nil
}

func (s *jobService) Update(ctx context.Context, actor Actor, jobID string, in JobPatch) (*models.Job, error) {
	const op = "JobService.Update"

	var jt models.JobType
	if in.Type != nil && strings.TrimSpace(*in.Type) != "" {
		t, err := models.ParseJobType(*in.Type)
		if err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "type must be JOB or INTERNSHIP", err)
		}
		jt = t
	}
	// approval is moderated; other actors' values are dropped
	if actor.Role != models.RoleAdmin {
		in.IsApproved = nil
	}

	j, err := s.owned(ctx, s.d.Store, op, actor, jobID)
	if err != nil {
		return nil, err
	}

	set := func(dst *string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&j.Title, in.Title)
	set(&j.Location, in.Location)
	set(&j.Description, in.Description)
	if jt != "" {
		j.Type = jt
	}
	if in.SalaryRange != nil {
		j.SalaryRange = optional(*in.SalaryRange)
	}
	if in.IsApproved != nil {
		j.IsApproved = *in.IsApproved
	}
	j.UpdatedAt = s.d.Now().UTC()

	if err := s.d.Store.Jobs().Update(ctx, j); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "job not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to update job", err)
	}

	s.d.Listings.Invalidate(ctx)
	if in.IsApproved != nil {
		recordAudit(ctx, s.d, actor.UserID, models.AuditJobApproval, models.AuditTargetJob, j.ID, map[string]any{"isApproved": j.IsApproved})
	}
	return j, nil
}

func (s *jobService) SetApproval(ctx context.Context, actor Actor, jobID string, approved bool) (*models.Job, error) {
	return s.Update(ctx, actor, jobID, JobPatch{IsApproved: &approved})
}

func (s *jobService) Delete(ctx context.Context, actor Actor, jobID string) error {
	const op = "JobService.Delete"

	err := s.d.Store.Transaction(ctx, func(tx repositories.Store) error {
		j, err := s.owned(ctx, tx, op, actor, jobID)
		if err != nil {
			return err
		}
		if err := tx.Applications().DeleteByJob(ctx, j.ID); err != nil {
			return utils.E(utils.CodeInternal, op, "failed to delete applications", err)
		}
		if err := tx.Jobs().Delete(ctx, j.ID); err != nil {
			return utils.E(utils.CodeInternal, op, "failed to delete job", err)
		}
		return nil
	})
	if err != nil {
		return wrapInternal(op, "failed to delete job", err)
	}

	s.d.Listings.Invalidate(ctx)
	if actor.Role == models.RoleAdmin {
		recordAudit(ctx, s.d, actor.UserID, models.AuditJobDeleted, models.AuditTargetJob, jobID, nil)
	}
	return nil
}

func (s *jobService) AdminList(ctx context.Context) ([]models.Job, error) {
	const op = "JobService.AdminList"

	jobs, err := s.d.Store.Jobs().ListAll(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list jobs", err)
	}
	if err := s.withCounts(ctx, jobs); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count applications", err)
	}
	return jobs, nil
}

// owned loads the job and checks that actor may modify it.
func (s *jobService) owned(ctx context.Context, st repositories.Store, op string, actor Actor, jobID string) (*models.Job, error) {
	switch actor.Role {
	case models.RoleAdmin, models.RoleCompany:
	default:
		return nil, utils.E(utils.CodeForbidden, op, "not allowed to modify jobs", ErrForbidden)
	}

	j, err := st.Jobs().GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "job not found", ErrJobNotFound)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load job", err)
	}
	if actor.Role == models.RoleAdmin {
		return j, nil
	}

	company, err := st.Profiles().CompanyByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeForbidden, op, "not the owner of this job", ErrForbidden)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load company profile", err)
	}
	if j.CompanyID != company.ID {
		return nil, utils.E(utils.CodeForbidden, op, "not the owner of this job", ErrForbidden)
	}
	return j, nil
}

func (s *jobService) companyOf(ctx context.Context, st repositories.Store, op, userID string) (*models.CompanyProfile, error) {
	c, err := st.Profiles().CompanyByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "company profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load company profile", err)
	}
	return c, nil
}

func (s *jobService) withCounts(ctx context.Context, jobs []models.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	ids := make([]string, len(jobs))
	for i := range jobs {
		ids[i] = jobs[i].ID
	}
	counts, err := s.d.Store.Applications().CountByJobs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range jobs {
		n := counts[jobs[i].ID]
		jobs[i].ApplicationCount = &n
	}
	return nil
}

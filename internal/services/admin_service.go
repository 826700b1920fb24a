package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/repositories"
	"github.com/yoockh/jobsphere/internal/utils"
	"golang.org/x/sync/errgroup"
)

const defaultCompanyName = "New Company"

type Overview struct {
	Users        int64 `json:"users"`
	Jobs         int64 `json:"jobs"`
	Applications int64 `json:"applications"`
	PendingJobs  int64 `json:"pendingJobs"`
	PendingUsers int64 `json:"pendingUsers"`
}

// AdminUserUpdate is a partial update. Nil fields are left unchanged.
type AdminUserUpdate struct {
	Role          *string `json:"role"`
	IsApproved    *bool   `json:"isApproved"`
	EmailVerified *bool   `json:"emailVerified"`
	Password      *string `json:"password"`
}

func (in AdminUserUpdate) empty() bool {
	return in.Role == nil && in.IsApproved == nil && in.EmailVerified == nil && in.Password == nil
}

type AdminService interface {
	Overview(ctx context.Context) (*Overview, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, actorID, targetID string, in AdminUserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, actorID, targetID string) error
	AuditLog(ctx context.Context, limit int) ([]models.AuditEvent, error)
}

type adminService struct {
	d   Deps
	out presenter
	log *logrus.Logger
}

func NewAdminService(d Deps) AdminService {
	d = d.withDefaults()
	return &adminService{d: d, out: newPresenter(d), log: d.Logger}
}

func (s *adminService) Overview(ctx context.Context) (*Overview, error) {
	const op = "AdminService.Overview"

	var o Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { o.Users, err = s.d.Store.Users().Count(gctx, false); return })
	g.Go(func() (err error) { o.PendingUsers, err = s.d.Store.Users().Count(gctx, true); return })
	g.Go(func() (err error) { o.Jobs, err = s.d.Store.Jobs().Count(gctx, false); return })
	g.Go(func() (err error) { o.PendingJobs, err = s.d.Store.Jobs().Count(gctx, true); return })
	g.Go(func() (err error) { o.Applications, err = s.d.Store.Applications().Count(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load overview", err)
	}
	return &o, nil
}

func (s *adminService) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "AdminService.ListUsers"

	users, err := s.d.Store.Users().List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list users", err)
	}
	out := make([]*models.User, 0, len(users))
	for i := range users {
		out = append(out, s.out.user(ctx, &users[i]))
	}
	return out, nil
}

func (s *adminService) UpdateUser(ctx context.Context, actorID, targetID string, in AdminUserUpdate) (*models.User, error) {
	const op = "AdminService.UpdateUser"

	if in.empty() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no fields to update", nil)
	}
	var role models.Role
	if in.Role != nil {
		r, err := models.ParseRole(*in.Role)
		if err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "role must be STUDENT, COMPANY or ADMIN", err)
		}
		role = r
	}
	var hash string
	if in.Password != nil {
		if err := utils.ValidatePassword(*in.Password); err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "password must be at least 6 characters", err)
		}
		h, err := utils.HashPassword(*in.Password)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
		}
		hash = h
	}

	now := s.d.Now().UTC()
	var updated *models.User
	err := s.d.Store.Transaction(ctx, func(tx repositories.Store) error {
		u, err := tx.Users().GetByID(ctx, targetID)
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return utils.E(utils.CodeNotFound, op, "user not found", err)
			}
			return utils.E(utils.CodeInternal, op, "failed to load user", err)
		}

		if s.d.Policy.IsPrimaryAdmin(u.Email) {
			if role != "" && role != models.RoleAdmin {
				return utils.E(utils.CodeForbidden, op, "cannot change role of the primary admin", ErrProtectedAccount)
			}
			if in.IsApproved != nil && !*in.IsApproved {
				return utils.E(utils.CodeForbidden, op, "cannot revoke approval of the primary admin", ErrProtectedAccount)
			}
		}

		if role != "" && role != u.Role {
			if err := s.switchRole(ctx, tx, op, u, role, now); err != nil {
				return err
			}
		}
		if in.IsApproved != nil {
			u.IsApproved = *in.IsApproved
		}
		if in.EmailVerified != nil {
			u.EmailVerified = *in.EmailVerified
			if u.EmailVerified {
				u.ClearVerificationCode()
			}
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		u.UpdatedAt = now

		if err := tx.Users().Update(ctx, u); err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return utils.E(utils.CodeNotFound, op, "user not found", err)
			}
			return utils.E(utils.CodeInternal, op, "failed to update user", err)
		}
		updated, err = tx.Users().GetByID(ctx, u.ID)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to reload user", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(op, "failed to update user", err)
	}

	details := map[string]any{}
	if in.Role != nil {
		details["role"] = role
	}
	if in.IsApproved != nil {
		details["isApproved"] = *in.IsApproved
	}
	if in.EmailVerified != nil {
		details["emailVerified"] = *in.EmailVerified
	}
	if in.Password != nil {
		details["passwordReset"] = true
	}
	recordAudit(ctx, s.d, actorID, models.AuditUserUpdated, models.AuditTargetUser, updated.ID, details)

	return s.out.user(ctx, updated), nil
}

// switchRole keeps the one-profile-per-role rule while moving u to role.
func (s *adminService) switchRole(ctx context.Context, tx repositories.Store, op string, u *models.User, role models.Role, now time.Time) error {
	switch role {
	case models.RoleAdmin:
		if !s.d.Policy.IsPrimaryAdmin(u.Email) {
			return utils.E(utils.CodeForbidden, op, "only the configured admin email can hold the admin role", ErrAdminRoleRestricted)
		}

	case models.RoleStudent:
		if u.CompanyProfile != nil {
			return utils.E(utils.CodeConflict, op, "user already has a company profile", ErrConflictingProfile)
		}
		if u.StudentProfile == nil {
			p := &models.StudentProfile{ID: uuid.NewString(), UserID: u.ID, CreatedAt: now, UpdatedAt: now}
			if err := tx.Profiles().CreateStudent(ctx, p); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to create student profile", err)
			}
		}

	case models.RoleCompany:
		if u.StudentProfile != nil {
			return utils.E(utils.CodeConflict, op, "user already has a student profile", ErrConflictingProfile)
		}
		if u.CompanyProfile == nil {
			p := &models.CompanyProfile{ID: uuid.NewString(), UserID: u.ID, CompanyName: defaultCompanyName, CreatedAt: now, UpdatedAt: now}
			if err := tx.Profiles().CreateCompany(ctx, p); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to create company profile", err)
			}
		}
	}
	u.Role = role
	return nil
}

func (s *adminService) DeleteUser(ctx context.Context, actorID, targetID string) error {
	const op = "AdminService.DeleteUser"

	var (
		email       string
		jobsRemoved int64
	)
	err := s.d.Store.Transaction(ctx, func(tx repositories.Store) error {
		u, err := tx.Users().GetByID(ctx, targetID)
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return utils.E(utils.CodeNotFound, op, "user not found", err)
			}
			return utils.E(utils.CodeInternal, op, "failed to load user", err)
		}
		if s.d.Policy.IsPrimaryAdmin(u.Email) {
			return utils.E(utils.CodeForbidden, op, "cannot delete the primary admin", ErrProtectedAccount)
		}
		email = u.Email

		if sp := u.StudentProfile; sp != nil {
			if err := tx.Applications().DeleteByStudent(ctx, sp.ID); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to delete applications", err)
			}
			if err := tx.Profiles().DeleteStudent(ctx, sp.ID); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to delete student profile", err)
			}
		}
		if cp := u.CompanyProfile; cp != nil {
			if err := tx.Applications().DeleteByCompany(ctx, cp.ID); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to delete applications", err)
			}
			n, err := tx.Jobs().DeleteByCompany(ctx, cp.ID)
			if err != nil {
				return utils.E(utils.CodeInternal, op, "failed to delete jobs", err)
			}
			jobsRemoved = n
			if err := tx.Profiles().DeleteCompany(ctx, cp.ID); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to delete company profile", err)
			}
		}
		if err := tx.Users().Delete(ctx, u.ID); err != nil {
			return utils.E(utils.CodeInternal, op, "failed to delete user", err)
		}
		return nil
	})
	if err != nil {
		return wrapInternal(op, "failed to delete user", err)
	}

	if jobsRemoved > 0 {
		s.d.Listings.Invalidate(ctx)
	}
	recordAudit(ctx, s.d, actorID, models.AuditUserDeleted, models.AuditTargetUser, targetID, map[string]any{
		"email":       email,
		"jobsRemoved": jobsRemoved,
	})
	s.log.WithFields(logrus.Fields{"user_id": targetID, "jobs_removed": jobsRemoved}).Info("user deleted")
	return nil
}

func (s *adminService) AuditLog(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	const op = "AdminService.AuditLog"

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := s.d.Store.Audit().List(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list audit events", err)
	}
	return events, nil
}

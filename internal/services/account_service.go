package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/jobsphere/internal/mail"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/repositories"
	"github.com/yoockh/jobsphere/internal/storage"
	"github.com/yoockh/jobsphere/internal/utils"
	"github.com/yoockh/jobsphere/internal/verification"
)

type RegisterInput struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Role        string `json:"role" validate:"required"`
	Skills      string `json:"skills"`
	Bio         string `json:"bio"`
	ResumeURL   string `json:"resumeUrl" validate:"omitempty,url"`
	CompanyName string `json:"companyName"`
	Website     string `json:"website" validate:"omitempty,url"`
	Description string `json:"description"`

	Resume *ResumeUpload `json:"-" validate:"-"`
}

type RegisterResult struct {
	User              *models.User `json:"user"`
	NeedsVerification bool         `json:"needsVerification"`
}

type AuthResult struct {
	Token           string       `json:"token,omitempty"`
	ExpiresAt       *time.Time   `json:"expires_at,omitempty"`
	User            *models.User `json:"user,omitempty"`
	AlreadyVerified bool         `json:"alreadyVerified,omitempty"`
	NeedsApproval   bool         `json:"needsApproval,omitempty"`
}

// ProfileInput carries the editable fields of either profile kind. Nil leaves a field unchanged.
type ProfileInput struct {
	Name *string `json:"name"`

	Skills    *string `json:"skills"`
	Bio       *string `json:"bio"`
	ResumeURL *string `json:"resumeUrl"`

	CompanyName *string `json:"companyName"`
	Website     *string `json:"website"`
	Description *string `json:"description"`
}

type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	VerifyEmail(ctx context.Context, email, code string) (*AuthResult, error)
	ResendVerification(ctx context.Context, email string) (string, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error)
	UploadResume(ctx context.Context, userID string, upload *ResumeUpload) (*models.User, error)
	EnsurePrimaryAdmin(ctx context.Context, name, password string) error
}

type accountService struct {
	d   Deps
	out presenter
	log *logrus.Logger
}

func NewAccountService(d Deps) AccountService {
	d = d.withDefaults()
	return &accountService{d: d, out: newPresenter(d), log: d.Logger}
}

func (s *accountService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	const op = "AccountService.Register"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	if err := utils.Validate(op, in); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(in.Role)
	if err != nil || role == models.RoleAdmin {
		return nil, utils.E(utils.CodeInvalidArgument, op, "role must be STUDENT or COMPANY", nil)
	}
	if role == models.RoleCompany && strings.TrimSpace(in.CompanyName) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "companyName is required for company accounts", ErrMissingRoleField)
	}
	if role != models.RoleStudent {
		in.Resume = nil
	}
	var resume io.Reader
	if in.Resume != nil {
		if s.d.Blobs == nil {
			return nil, utils.E(utils.CodeUnavailable, op, "resume storage is not configured", nil)
		}
		if resume, err = in.Resume.checked(op); err != nil {
			return nil, err
		}
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}
	issued, err := s.d.Codes.Issue()
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to issue verification code", err)
	}

	now := s.d.Now().UTC()
	u := &models.User{
		ID:                         uuid.NewString(),
		Name:                       in.Name,
		Email:                      in.Email,
		PasswordHash:               hash,
		Role:                       role,
		EmailVerificationCodeHash:  &issued.Hash,
		EmailVerificationExpiresAt: &issued.ExpiresAt,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}

	var uploaded string
	err = s.d.Store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, utils.ErrDuplicate) {
				return utils.E(utils.CodeConflict, op, "email already in use", ErrDuplicateEmail)
			}
			return utils.E(utils.CodeInternal, op, "failed to create user", err)
		}

		switch role {
		case models.RoleStudent:
			p := &models.StudentProfile{
				ID:        uuid.NewString(),
				UserID:    u.ID,
				Skills:    strings.TrimSpace(in.Skills),
				Bio:       strings.TrimSpace(in.Bio),
				ResumeURL: optional(in.ResumeURL),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if resume != nil {
				key, err := s.d.Blobs.Upload(ctx, storage.ResumeObjectName(u.ID, in.Resume.FileName, now), resumeMIME, resume)
				if err != nil {
					return utils.E(utils.CodeUnavailable, op, "failed to upload resume", err)
				}
				uploaded = key
				p.ResumeURL = &key
			}
			if err := tx.Profiles().CreateStudent(ctx, p); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to create student profile", err)
			}
			u.StudentProfile = p

		case models.RoleCompany:
			p := &models.CompanyProfile{
				ID:          uuid.NewString(),
				UserID:      u.ID,
				CompanyName: strings.TrimSpace(in.CompanyName),
				Website:     optional(in.Website),
				Description: strings.TrimSpace(in.Description),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Profiles().CreateCompany(ctx, p); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to create company profile", err)
			}
			u.CompanyProfile = p
		}
		return nil
	})
	if err != nil {
		if uploaded != "" {
			s.discardBlob(uploaded)
		}
		return nil, wrapInternal(op, "failed to register", err)
	}

	s.sendCode(ctx, u.Email, issued.Code)
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("account registered")

	return &RegisterResult{User: s.out.user(ctx, u), NeedsVerification: true}, nil
}

func (s *accountService) VerifyEmail(ctx context.Context, email, code string) (*AuthResult, error) {
	const op = "AccountService.VerifyEmail"

	email = models.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "email and code are required", nil)
	}

	u, err := s.d.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}

	// no code was checked: return no session or user, the client signs in through Login
	if u.EmailVerified {
		return &AuthResult{AlreadyVerified: true}, nil
	}

	if err := s.d.Codes.Check(u.EmailVerificationCodeHash, u.EmailVerificationExpiresAt, code); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Info("verification rejected")
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid or expired verification code", err)
	}

	// a concurrent verify or resend may have replaced the code since it was read
	ok, err := s.d.Store.Users().ConsumeVerificationCode(ctx, u.ID, *u.EmailVerificationCodeHash)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to verify email", err)
	}
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid or expired verification code", verification.ErrCodeMissing)
	}
	u.EmailVerified = true
	u.ClearVerificationCode()

	if !u.IsApproved {
		return &AuthResult{User: s.out.user(ctx, u), NeedsApproval: true}, nil
	}
	return s.session(ctx, op, u)
}

func (s *accountService) ResendVerification(ctx context.Context, email string) (string, error) {
	const op = "AccountService.ResendVerification"

	email = models.NormalizeEmail(email)
	if email == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "email is required", nil)
	}

	u, err := s.d.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			s.log.WithError(err).Warn("resend lookup failed")
		}
		return resendAckMessage, nil
	}
	if u.EmailVerified {
		return resendAckMessage, nil
	}

	// failures are logged only; a distinct error would reveal an unverified account
	issued, err := s.d.Codes.Issue()
	if err != nil {
		s.log.WithError(err).WithField("op", op).Error("failed to issue verification code")
		return resendAckMessage, nil
	}
	if err := s.d.Store.Users().SetVerificationCode(ctx, u.ID, issued.Hash, issued.ExpiresAt); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"op": op, "user_id": u.ID}).Error("failed to store verification code")
		return resendAckMessage, nil
	}
	s.sendCode(ctx, u.Email, issued.Code)
	return resendAckMessage, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "AccountService.Login"

	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "email and password are required", nil)
	}

	u, err := s.d.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "invalid credentials", ErrInvalidCredentials)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if err := utils.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "invalid credentials", ErrInvalidCredentials)
	}
	if u.Role == models.RoleAdmin && !s.d.Policy.IsPrimaryAdmin(u.Email) {
		return nil, utils.E(utils.CodeUnauthorized, op, "invalid credentials", ErrInvalidCredentials)
	}
	if !u.EmailVerified {
		return nil, utils.E(utils.CodeForbidden, op, "please verify your email before logging in", ErrEmailNotVerified)
	}
	if !u.IsApproved {
		return nil, utils.E(utils.CodeForbidden, op, "your account is pending admin approval", ErrPendingApproval)
	}
	return s.session(ctx, op, u)
}

func (s *accountService) Me(ctx context.Context, userID string) (*models.User, error) {
	const op = "AccountService.Me"

	u, err := s.loadUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	return s.out.user(ctx, u), nil
}

func (s *accountService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	const op = "AccountService.UpdateProfile"

	u, err := s.loadUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	acct, err := models.AccountOf(u)
	if err != nil {
		return nil, utils.E(utils.CodeConflict, op, "account profile is inconsistent", err)
	}

	now := s.d.Now().UTC()
	renamed := false
	err = s.d.Store.Transaction(ctx, func(tx repositories.Store) error {
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return utils.E(utils.CodeInvalidArgument, op, "name cannot be empty", nil)
			}
			u.Name = name
			u.UpdatedAt = now
			if err := tx.Users().Update(ctx, u); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to update user", err)
			}
		}

		switch a := acct.(type) {
		case models.StudentAccount:
			p := a.Profile
			if in.Skills != nil {
				p.Skills = strings.TrimSpace(*in.Skills)
			}
			if in.Bio != nil {
				p.Bio = strings.TrimSpace(*in.Bio)
			}
			if in.ResumeURL != nil {
				ref := optional(*in.ResumeURL)
				if ref != nil {
					if err := utils.Validate(op, struct {
						ResumeURL string `json:"resumeUrl" validate:"url"`
					}{*ref}); err != nil {
						return err
					}
				}
				p.ResumeURL = ref
			}
			p.UpdatedAt = now
			if err := tx.Profiles().UpdateStudent(ctx, p); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to update student profile", err)
			}

		case models.CompanyAccount:
			p := a.Profile
			if in.CompanyName != nil {
				name := strings.TrimSpace(*in.CompanyName)
				if name == "" {
					return utils.E(utils.CodeInvalidArgument, op, "companyName cannot be empty", nil)
				}
				renamed = name != p.CompanyName
				p.CompanyName = name
			}
			if in.Website != nil {
				p.Website = optional(*in.Website)
			}
			if in.Description != nil {
				p.Description = strings.TrimSpace(*in.Description)
			}
			p.UpdatedAt = now
			if err := tx.Profiles().UpdateCompany(ctx, p); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to update company profile", err)
			}

		case models.AdminAccount:
			if in.Name == nil {
				return utils.E(utils.CodeForbidden, op, "administrators have no profile", ErrForbidden)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(op, "failed to update profile", err)
	}

	// listings embed the company name
	if renamed {
		s.d.Listings.Invalidate(ctx)
	}
	return s.out.user(ctx, u), nil
}

func (s *accountService) UploadResume(ctx context.Context, userID string, upload *ResumeUpload) (*models.User, error) {
	const op = "AccountService.UploadResume"

	if s.d.Blobs == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "resume storage is not configured", nil)
	}
	u, err := s.loadUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	acct, err := models.AccountOf(u)
	if err != nil {
		return nil, utils.E(utils.CodeConflict, op, "account profile is inconsistent", err)
	}
	student, ok := acct.(models.StudentAccount)
	if !ok {
		return nil, utils.E(utils.CodeForbidden, op, "only students can upload a resume", ErrForbidden)
	}

	body, err := upload.checked(op)
	if err != nil {
		return nil, err
	}
	now := s.d.Now().UTC()
	key, err := s.d.Blobs.Upload(ctx, storage.ResumeObjectName(u.ID, upload.FileName, now), resumeMIME, body)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload resume", err)
	}

	p := student.Profile
	previous := ""
	if p.ResumeURL != nil && !p.ResumeIsExternal() {
		previous = *p.ResumeURL
	}
	p.ResumeURL = &key
	p.UpdatedAt = now
	if err := s.d.Store.Profiles().UpdateStudent(ctx, p); err != nil {
		s.discardBlob(key)
		return nil, utils.E(utils.CodeInternal, op, "failed to update student profile", err)
	}
	if previous != "" {
		s.discardBlob(previous)
	}
	return s.out.user(ctx, u), nil
}

// EnsurePrimaryAdmin creates the configured administrator when it does not exist yet.
func (s *accountService) EnsurePrimaryAdmin(ctx context.Context, name, password string) error {
	const op = "AccountService.EnsurePrimaryAdmin"

	email := models.NormalizeEmail(s.d.Policy.AdminEmail)
	if email == "" || password == "" {
		s.log.Warn("admin email or password not configured, skipping admin bootstrap")
		return nil
	}

	existing, err := s.d.Store.Users().GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			s.log.WithField("user_id", existing.ID).Warn("admin email belongs to a non-admin account")
		}
		return nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return utils.E(utils.CodeInternal, op, "failed to look up admin", err)
	}

	if err := utils.ValidatePassword(password); err != nil {
		return utils.E(utils.CodeInvalidArgument, op, "admin password is too weak", err)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	now := s.d.Now().UTC()
	u := &models.User{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(name),
		Email:         email,
		PasswordHash:  hash,
		Role:          models.RoleAdmin,
		IsApproved:    true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.d.Store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, utils.ErrDuplicate) {
			return nil
		}
		return utils.E(utils.CodeInternal, op, "failed to create admin", err)
	}
	s.log.WithField("user_id", u.ID).Info("primary admin created")
	return nil
}

func (s *accountService) loadUser(ctx context.Context, op, userID string) (*models.User, error) {
	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "missing user", nil)
	}
	u, err := s.d.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	return u, nil
}

func (s *accountService) session(ctx context.Context, op string, u *models.User) (*AuthResult, error) {
	if s.d.Sessions == nil {
		return nil, utils.E(utils.CodeInternal, op, "session issuer is not configured", nil)
	}
	sess, err := s.d.Sessions.Issue(u)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to issue session", err)
	}
	exp := sess.ExpiresAt
	return &AuthResult{Token: sess.Token, ExpiresAt: &exp, User: s.out.user(ctx, u)}, nil
}

func (s *accountService) sendCode(ctx context.Context, to, code string) {
	if s.d.Outbox == nil {
		s.log.WithField("to", to).Warn("no mail dispatcher, verification code not sent")
		return
	}
	msg, err := mail.VerificationEmail(to, code, int(verification.CodeTTL/time.Minute))
	if err != nil {
		s.log.WithError(err).Error("render verification email")
		return
	}
	s.d.Outbox.Dispatch(ctx, msg)
}

func (s *accountService) discardBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.d.Blobs.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("object", key).Warn("resume cleanup failed")
	}
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/jobsphere/internal/auth"
	"github.com/yoockh/jobsphere/internal/cache"
	"github.com/yoockh/jobsphere/internal/mail"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/repositories"
	mongorepo "github.com/yoockh/jobsphere/internal/repositories/mongo"
	"github.com/yoockh/jobsphere/internal/storage"
	"github.com/yoockh/jobsphere/internal/utils"
	"github.com/yoockh/jobsphere/internal/verification"
	"gorm.io/datatypes"
)

// Typed reasons carried in AppError.Err.
var (
	ErrDuplicateEmail      = errors.New("email already in use")
	ErrMissingRoleField    = errors.New("missing role-specific field")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrPendingApproval     = errors.New("account pending approval")
	ErrProtectedAccount    = errors.New("primary administrator is protected")
	ErrConflictingProfile  = errors.New("conflicting role profile")
	ErrAdminRoleRestricted = errors.New("admin role is restricted")
	ErrForbidden           = errors.New("forbidden")
	ErrJobNotFound         = errors.New("job not found")
	ErrAlreadyApplied      = errors.New("already applied")
	ErrAccountInactive     = errors.New("account is not active")
)

const (
	MaxResumeBytes   = 5 << 20
	resumeMIME       = "application/pdf"
	resendAckMessage = "If the account exists and is unverified, a verification code was sent."
)

// Policy holds the deployment-level rules shared by the services.
type Policy struct {
	AdminEmail          string
	JobsRequireApproval bool
	SignedURLTTL        time.Duration
	MailSendTimeout     time.Duration
}

// IsPrimaryAdmin reports whether email is the configured administrator address.
func (p Policy) IsPrimaryAdmin(email string) bool {
	admin := models.NormalizeEmail(p.AdminEmail)
	return admin != "" && models.NormalizeEmail(email) == admin
}

// MailDispatcher hands off a message without blocking on delivery.
type MailDispatcher interface {
	Dispatch(ctx context.Context, msg mail.Message)
}

type Actor struct {
	UserID string
	Role   models.Role
}

type Deps struct {
	Store    repositories.Store
	Listings *cache.JobListings
	Sessions *auth.SessionIssuer
	Codes    *verification.Manager
	Outbox   MailDispatcher
	Sender   mail.Sender
	Blobs    storage.Store
	Contacts mongorepo.ContactRepository
	Policy   Policy
	Logger   *logrus.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Listings == nil {
		d.Listings = cache.NewJobListings(nil, 0, 0, d.Logger)
	}
	if d.Codes == nil {
		d.Codes = verification.NewManager()
	}
	if d.Policy.SignedURLTTL <= 0 {
		d.Policy.SignedURLTTL = 10 * time.Minute
	}
	if d.Policy.MailSendTimeout <= 0 {
		d.Policy.MailSendTimeout = 15 * time.Second
	}
	return d
}

// wrapInternal keeps an existing AppError and wraps anything else as INTERNAL.
func wrapInternal(op, msg string, err error) error {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		return err
	}
	return utils.E(utils.CodeInternal, op, msg, err)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// presenter resolves stored resume keys into signed URLs for responses.
type presenter struct {
	signer storage.Signer
	ttl    time.Duration
	log    *logrus.Logger
}

func newPresenter(d Deps) presenter {
	p := presenter{ttl: d.Policy.SignedURLTTL, log: d.Logger}
	if d.Blobs != nil {
		p.signer = d.Blobs
	}
	return p
}

func (p presenter) student(ctx context.Context, sp *models.StudentProfile) *models.StudentProfile {
	if sp == nil {
		return nil
	}
	cp := *sp
	if cp.ResumeURL == nil || cp.ResumeIsExternal() || p.signer == nil {
		return &cp
	}
	url, err := p.signer.SignedGetURL(ctx, *cp.ResumeURL, p.ttl)
	if err != nil {
		p.log.WithError(err).WithField("user_id", cp.UserID).Warn("resume signing failed")
		return &cp
	}
	cp.ResumeURL = &url
	return &cp
}

func (p presenter) user(ctx context.Context, u *models.User) *models.User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.StudentProfile = p.student(ctx, u.StudentProfile)
	if u.CompanyProfile != nil {
		c := *u.CompanyProfile
		cp.CompanyProfile = &c
	}
	return &cp
}

// ResumeUpload is a resume file received from a client.
type ResumeUpload struct {
	FileName string
	Size     int64
	Body     io.Reader
}

// checked verifies size and PDF magic and returns a reader replaying the sniffed head.
func (r *ResumeUpload) checked(op string) (io.Reader, error) {
	if r == nil || r.Body == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "resume file is required", nil)
	}
	if r.Size <= 0 || r.Size > MaxResumeBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "resume must be a PDF of at most 5MB", nil)
	}
	if ext := strings.ToLower(filepath.Ext(r.FileName)); ext != "" && ext != ".pdf" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "resume must be a PDF file", nil)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to read resume", err)
	}
	head = head[:n]
	if http.DetectContentType(head) != resumeMIME {
		return nil, utils.E(utils.CodeInvalidArgument, op, "resume must be a PDF file", nil)
	}
	return io.MultiReader(bytes.NewReader(head), io.LimitReader(r.Body, MaxResumeBytes-int64(n))), nil
}

// recordAudit stores an admin action after its transaction committed. Failures are logged only.
func recordAudit(ctx context.Context, d Deps, actorID, action, targetType, targetID string, details map[string]any) {
	raw, err := json.Marshal(details)
	if err != nil {
		d.Logger.WithError(err).Warn("audit details encode failed")
		raw = []byte("{}")
	}
	e := &models.AuditEvent{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    datatypes.JSON(raw),
		CreatedAt:  d.Now().UTC(),
	}
	if err := d.Store.Audit().Insert(ctx, e); err != nil {
		d.Logger.WithError(err).WithFields(logrus.Fields{"action": action, "target_id": targetID}).Warn("audit insert failed")
	}
}

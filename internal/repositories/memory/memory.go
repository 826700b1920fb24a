// Package memory is an in-process implementation of repositories.Store. It is
// safe for concurrent use and is intended for tests and local development.
//
// Transactions hold the store lock for their whole duration and work on a copy
// of the data, which replaces the live data only when fn succeeds.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/repositories"
	"github.com/yoockh/jobsphere/internal/utils"
)

type data struct {
	users     map[string]models.User
	students  map[string]models.StudentProfile
	companies map[string]models.CompanyProfile
	jobs      map[string]models.Job
	apps      map[string]models.Application
	audit     []models.AuditEvent
}

func newData() *data {
	return &data{
		users:     map[string]models.User{},
		students:  map[string]models.StudentProfile{},
		companies: map[string]models.CompanyProfile{},
		jobs:      map[string]models.Job{},
		apps:      map[string]models.Application{},
	}
}

func (d *data) clone() *data {
	cp := newData()
	for k, v := range d.users {
		cp.users[k] = v
	}
	for k, v := range d.students {
		cp.students[k] = v
	}
	for k, v := range d.companies {
		cp.companies[k] = v
	}
	for k, v := range d.jobs {
		cp.jobs[k] = v
	}
	for k, v := range d.apps {
		cp.apps[k] = v
	}
	cp.audit = append([]models.AuditEvent(nil), d.audit...)
	return cp
}

type db struct {
	mu  sync.Mutex
	cur *data
}

type Store struct {
	db *db
	tx *data // non-nil inside Transaction
}

var _ repositories.Store = (*Store)(nil)

func New() *Store {
	return &Store{db: &db{cur: newData()}}
}

// view returns the data to operate on and the matching unlock func.
func (s *Store) view() (*data, func()) {
	if s.tx != nil {
		return s.tx, func() {}
	}
	s.db.mu.Lock()
	return s.db.cur, s.db.mu.Unlock
}

func (s *Store) Users() repositories.UserRepository               { return userRepo{s} }
func (s *Store) Profiles() repositories.ProfileRepository         { return profileRepo{s} }
func (s *Store) Jobs() repositories.JobRepository                 { return jobRepo{s} }
func (s *Store) Applications() repositories.ApplicationRepository { return applicationRepo{s} }
func (s *Store) Audit() repositories.AuditRepository              { return auditRepo{s} }

func (s *Store) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	work := s.db.cur.clone()
	if err := fn(&Store{db: s.db, tx: work}); err != nil {
		return err
	}
	s.db.cur = work
	return nil
}

func stamp(id *string, created, updated *time.Time) {
	now := time.Now().UTC()
	if *id == "" {
		*id = uuid.NewString()
	}
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// -- users --------------------------------------------------------------------

type userRepo struct{ s *Store }

func (d *data) withProfiles(u models.User) *models.User {
	u.StudentProfile, u.CompanyProfile = nil, nil
	for _, p := range d.students {
		if p.UserID == u.ID {
			cp := p
			u.StudentProfile = &cp
		}
	}
	for _, p := range d.companies {
		if p.UserID == u.ID {
			cp := p
			u.CompanyProfile = &cp
		}
	}
	return &u
}

func (d *data) emailTaken(email, exceptID string) bool {
	for _, u := range d.users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func strip(u models.User) models.User {
	u.StudentProfile, u.CompanyProfile = nil, nil
	return u
}

func (r userRepo) Create(_ context.Context, u *models.User) error {
	d, unlock := r.s.view()
	defer unlock()

	u.Email = models.NormalizeEmail(u.Email)
	if d.emailTaken(u.Email, "") {
		return utils.ErrDuplicate
	}
	stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if _, ok := d.users[u.ID]; ok {
		return utils.ErrDuplicate
	}
	d.users[u.ID] = strip(*u)
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	d, unlock := r.s.view()
	defer unlock()

	u, ok := d.users[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return d.withProfiles(u), nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	d, unlock := r.s.view()
	defer unlock()

	email = models.NormalizeEmail(email)
	for _, u := range d.users {
		if u.Email == email {
			return d.withProfiles(u), nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r userRepo) Update(_ context.Context, u *models.User) error {
	d, unlock := r.s.view()
	defer unlock()

	old, ok := d.users[u.ID]
	if !ok {
		return utils.ErrNotFound
	}
	u.Email = models.NormalizeEmail(u.Email)
	if d.emailTaken(u.Email, u.ID) {
		return utils.ErrDuplicate
	}
	u.CreatedAt = old.CreatedAt
	stamp(&u.ID, nil, &u.UpdatedAt)
	d.users[u.ID] = strip(*u)
	return nil
}

func (r userRepo) SetVerificationCode(_ context.Context, userID, hash string, expiresAt time.Time) error {
	d, unlock := r.s.view()
	defer unlock()

	u, ok := d.users[userID]
	if !ok {
		return utils.ErrNotFound
	}
	exp := expiresAt.UTC()
	u.EmailVerificationCodeHash = &hash
	u.EmailVerificationExpiresAt = &exp
	u.UpdatedAt = time.Now().UTC()
	d.users[userID] = u
	return nil
}

func (r userRepo) ConsumeVerificationCode(_ context.Context, userID, hash string) (bool, error) {
	d, unlock := r.s.view()
	defer unlock()

	u, ok := d.users[userID]
	if !ok || u.EmailVerificationCodeHash == nil || *u.EmailVerificationCodeHash != hash {
		return false, nil
	}
	u.EmailVerified = true
	u.ClearVerificationCode()
	u.UpdatedAt = time.Now().UTC()
	d.users[userID] = u
	return true, nil
}

func (r userRepo) Delete(_ context.Context, id string) error {
	d, unlock := r.s.view()
	defer unlock()

	if _, ok := d.users[id]; !ok {
		return utils.ErrNotFound
	}
	delete(d.users, id)
	return nil
}

func (r userRepo) List(_ context.Context) ([]models.User, error) {
	d, unlock := r.s.view()
	defer unlock()

	out := make([]models.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, *d.withProfiles(u))
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (r userRepo) Count(_ context.Context, pendingOnly bool) (int64, error) {
	d, unlock := r.s.view()
	defer unlock()

	var n int64
	for _, u := range d.users {
		if !pendingOnly || !u.IsApproved {
			n++
		}
	}
	return n, nil
}

func newer(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

// -- profiles -----------------------------------------------------------------

type profileRepo struct{ s *Store }

func (r profileRepo) CreateStudent(_ context.Context, p *models.StudentProfile) error {
	d, unlock := r.s.view()
	defer unlock()

	for _, existing := range d.students {
		if existing.UserID == p.UserID {
			return utils.ErrDuplicate
		}
	}
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	cp := *p
	cp.User = nil
	d.students[p.ID] = cp
	return nil
}

func (r profileRepo) CreateCompany(_ context.Context, p *models.CompanyProfile) error {
	d, unlock := r.s.view()
	defer unlock()

	for _, existing := range d.companies {
		if existing.UserID == p.UserID {
			return utils.ErrDuplicate
		}
	}
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	cp := *p
	cp.User = nil
	d.companies[p.ID] = cp
	return nil
}

func (r profileRepo) StudentByUserID(_ context.Context, userID string) (*models.StudentProfile, error) {
	d, unlock := r.s.view()
	defer unlock()

	for _, p := range d.students {
		if p.UserID == userID {
			cp := p
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r profileRepo) CompanyByUserID(_ context.Context, userID string) (*models.CompanyProfile, error) {
	d, unlock := r.s.view()
	defer unlock()

	for _, p := range d.companies {
		if p.UserID == userID {
			cp := p
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r profileRepo) UpdateStudent(_ context.Context, p *models.StudentProfile) error {
	d, unlock := r.s.view()
	defer unlock()

	old, ok := d.students[p.ID]
	if !ok {
		return utils.ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	stamp(&p.ID, nil, &p.UpdatedAt)
	cp := *p
	cp.User = nil
	d.students[p.ID] = cp
	return nil
}

func (r profileRepo) UpdateCompany(_ context.Context, p *models.CompanyProfile) error {
	d, unlock := r.s.view()
	defer unlock()

	old, ok := d.companies[p.ID]
	if !ok {
		return utils.ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	stamp(&p.ID, nil, &p.UpdatedAt)
	cp := *p
	cp.User = nil
	d.companies[p.ID] = cp
	return nil
}

func (r profileRepo) DeleteStudent(_ context.Context, id string) error {
	d, unlock := r.s.view()
	defer unlock()

	if _, ok := d.students[id]; !ok {
		return utils.ErrNotFound
	}
	delete(d.students, id)
	return nil
}

func (r profileRepo) DeleteCompany(_ context.Context, id string) error {
	d, unlock := r.s.view()
	defer unlock()

	if _, ok := d.companies[id]; !ok {
		return utils.ErrNotFound
	}
	delete(d.companies, id)
	return nil
}

// -- jobs ---------------------------------------------------------------------

type jobRepo struct{ s *Store }

func (d *data) withCompany(j models.Job) models.Job {
	j.Company = nil
	j.ApplicationCount = nil
	if c, ok := d.companies[j.CompanyID]; ok {
		j.Company = &c
	}
	return j
}

func sortJobs(out []models.Job) {
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
}

func storedJob(j models.Job) models.Job {
	j.Company = nil
	j.ApplicationCount = nil
	return j
}

func (r jobRepo) Create(_ context.Context, j *models.Job) error {
	d, unlock := r.s.view()
	defer unlock()

	stamp(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if _, ok := d.jobs[j.ID]; ok {
		return utils.ErrDuplicate
	}
	d.jobs[j.ID] = storedJob(*j)
	return nil
}

func (r jobRepo) GetByID(_ context.Context, id string) (*models.Job, error) {
	d, unlock := r.s.view()
	defer unlock()

	j, ok := d.jobs[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	out := d.withCompany(j)
	return &out, nil
}

func (r jobRepo) Update(_ context.Context, j *models.Job) error {
	d, unlock := r.s.view()
	defer unlock()

	old, ok := d.jobs[j.ID]
	if !ok {
		return utils.ErrNotFound
	}
	j.CreatedAt = old.CreatedAt
	stamp(&j.ID, nil, &j.UpdatedAt)
	d.jobs[j.ID] = storedJob(*j)
	return nil
}

func (r jobRepo) Delete(_ context.Context, id string) error {
	d, unlock := r.s.view()
	defer unlock()

	if _, ok := d.jobs[id]; !ok {
		return utils.ErrNotFound
	}
	delete(d.jobs, id)
	return nil
}

func (r jobRepo) DeleteByCompany(_ context.Context, companyID string) (int64, error) {
	d, unlock := r.s.view()
	defer unlock()

	var n int64
	for id, j := range d.jobs {
		if j.CompanyID == companyID {
			delete(d.jobs, id)
			n++
		}
	}
	return n, nil
}

func (r jobRepo) Search(_ context.Context, f models.JobFilter) ([]models.Job, error) {
	d, unlock := r.s.view()
	defer unlock()

	out := []models.Job{}
	for _, j := range d.jobs {
		if !j.IsApproved {
			continue
		}
		if f.Type != "" && string(j.Type) != f.Type {
			continue
		}
		if f.Location != "" && !containsFold(j.Location, f.Location) {
			continue
		}
		full := d.withCompany(j)
		if f.Search != "" {
			company := ""
			if full.Company != nil {
				company = full.Company.CompanyName
			}
			if !containsFold(j.Title, f.Search) && !containsFold(j.Description, f.Search) && !containsFold(company, f.Search) {
				continue
			}
		}
		out = append(out, full)
	}
	sortJobs(out)
	return out, nil
}

func (r jobRepo) ListByCompany(_ context.Context, companyID string) ([]models.Job, error) {
	d, unlock := r.s.view()
	defer unlock()

	out := []models.Job{}
	for _, j := range d.jobs {
		if j.CompanyID == companyID {
			out = append(out, d.withCompany(j))
		}
	}
	sortJobs(out)
	return out, nil
}

func (r jobRepo) ListAll(_ context.Context) ([]models.Job, error) {
	d, unlock := r.s.view()
	defer unlock()

	out := make([]models.Job, 0, len(d.jobs))
	for _, j := range d.jobs {
		out = append(out, d.withCompany(j))
	}
	sortJobs(out)
	return out, nil
}

func (r jobRepo) Count(_ context.Context, pendingOnly bool) (int64, error) {
	d, unlock := r.s.view()
	defer unlock()

	var n int64
	for _, j := range d.jobs {
		if !pendingOnly || !j.IsApproved {
			n++
		}
	}
	return n, nil
}

// -- applications -------------------------------------------------------------

type applicationRepo struct{ s *Store }

func (d *data) expand(a models.Application, withStudent bool) models.Application {
	a.Job, a.Student = nil, nil
	if j, ok := d.jobs[a.JobID]; ok {
		full := d.withCompany(j)
		a.Job = &full
	}
	if withStudent {
		if p, ok := d.students[a.StudentID]; ok {
			if u, ok := d.users[p.UserID]; ok {
				cp := strip(u)
				p.User = &cp
			}
			a.Student = &p
		}
	}
	return a
}

func sortApps(out []models.Application) {
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
}

func (r applicationRepo) Create(_ context.Context, a *models.Application) error {
	d, unlock := r.s.view()
	defer unlock()

	for _, existing := range d.apps {
		if existing.JobID == a.JobID && existing.StudentID == a.StudentID {
			return utils.ErrDuplicate
		}
	}
	stamp(&a.ID, &a.CreatedAt, nil)
	if a.Status == "" {
		a.Status = models.ApplicationPending
	}
	cp := *a
	cp.Job, cp.Student = nil, nil
	d.apps[a.ID] = cp
	return nil
}

func (r applicationRepo) GetByID(_ context.Context, id string) (*models.Application, error) {
	d, unlock := r.s.view()
	defer unlock()

	a, ok := d.apps[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	out := d.expand(a, false)
	return &out, nil
}

func (r applicationRepo) UpdateStatus(_ context.Context, id string, status models.ApplicationStatus) error {
	d, unlock := r.s.view()
	defer unlock()

	a, ok := d.apps[id]
	if !ok {
		return utils.ErrNotFound
	}
	a.Status = status
	d.apps[id] = a
	return nil
}

func (r applicationRepo) list(keep func(d *data, a models.Application) bool, withStudent bool) []models.Application {
	d, unlock := r.s.view()
	defer unlock()

	out := []models.Application{}
	for _, a := range d.apps {
		if keep(d, a) {
			out = append(out, d.expand(a, withStudent))
		}
	}
	sortApps(out)
	return out
}

func (r applicationRepo) ListByStudent(_ context.Context, studentID string) ([]models.Application, error) {
	return r.list(func(_ *data, a models.Application) bool { return a.StudentID == studentID }, false), nil
}

func (r applicationRepo) ListByCompany(_ context.Context, companyID string) ([]models.Application, error) {
	return r.list(func(d *data, a models.Application) bool {
		j, ok := d.jobs[a.JobID]
		return ok && j.CompanyID == companyID
	}, true), nil
}

func (r applicationRepo) ListAll(_ context.Context) ([]models.Application, error) {
	return r.list(func(*data, models.Application) bool { return true }, true), nil
}

func (r applicationRepo) deleteWhere(match func(d *data, a models.Application) bool) {
	d, unlock := r.s.view()
	defer unlock()

	for id, a := range d.apps {
		if match(d, a) {
			delete(d.apps, id)
		}
	}
}

func (r applicationRepo) DeleteByJob(_ context.Context, jobID string) error {
	r.deleteWhere(func(_ *data, a models.Application) bool { return a.JobID == jobID })
	return nil
}

func (r applicationRepo) DeleteByStudent(_ context.Context, studentID string) error {
	r.deleteWhere(func(_ *data, a models.Application) bool { return a.StudentID == studentID })
	return nil
}

func (r applicationRepo) DeleteByCompany(_ context.Context, companyID string) error {
	r.deleteWhere(func(d *data, a models.Application) bool {
		j, ok := d.jobs[a.JobID]
		return ok && j.CompanyID == companyID
	})
	return nil
}

func (r applicationRepo) Count(_ context.Context) (int64, error) {
	d, unlock := r.s.view()
	defer unlock()
	return int64(len(d.apps)), nil
}

func (r applicationRepo) CountByJobs(_ context.Context, jobIDs []string) (map[string]int64, error) {
	d, unlock := r.s.view()
	defer unlock()

	want := make(map[string]struct{}, len(jobIDs))
	for _, id := range jobIDs {
		want[id] = struct{}{}
	}
	out := make(map[string]int64, len(jobIDs))
	for _, a := range d.apps {
		if _, ok := want[a.JobID]; ok {
			out[a.JobID]++
		}
	}
	return out, nil
}

// -- audit --------------------------------------------------------------------

type auditRepo struct{ s *Store }

func (r auditRepo) Insert(_ context.Context, e *models.AuditEvent) error {
	d, unlock := r.s.view()
	defer unlock()

	stamp(&e.ID, &e.CreatedAt, nil)
	d.audit = append(d.audit, *e)
	return nil
}

func (r auditRepo) List(_ context.Context, limit int) ([]models.AuditEvent, error) {
	d, unlock := r.s.view()
	defer unlock()

	if limit <= 0 {
		limit = 100
	}
	out := make([]models.AuditEvent, 0, limit)
	for i := len(d.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, d.audit[i])
	}
	return out, nil
}

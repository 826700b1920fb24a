package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/repositories"
	"github.com/yoockh/jobsphere/internal/utils"
)

func seedCompany(t *testing.T, s *Store, name string) (*models.User, *models.CompanyProfile) {
	t.Helper()
	ctx := context.Background()
	u := &models.User{Name: name, Email: name + "@x.com", Role: models.RoleCompany}
	require.NoError(t, s.Users().Create(ctx, u))
	p := &models.CompanyProfile{UserID: u.ID, CompanyName: name}
	require.NoError(t, s.Profiles().CreateCompany(ctx, p))
	return u, p
}

func TestUserEmailUniqueCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Users().Create(ctx, &models.User{Email: "Jane@X.com"}))
	err := s.Users().Create(ctx, &models.User{Email: "  jane@x.COM "})
	assert.ErrorIs(t, err, utils.ErrDuplicate)

	u, err := s.Users().GetByEmail(ctx, "JANE@x.com")
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", u.Email)
}

func TestTransactionRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx repositories.Store) error {
		u := &models.User{Email: "a@x.com", Role: models.RoleStudent}
		require.NoError(t, tx.Users().Create(ctx, u))
		require.NoError(t, tx.Profiles().CreateStudent(ctx, &models.StudentProfile{UserID: u.ID}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Users().GetByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestTransactionCommits(t *testing.T) {
	s := New()
	ctx := context.Background()

	var id string
	require.NoError(t, s.Transaction(ctx, func(tx repositories.Store) error {
		u := &models.User{Email: "b@x.com", Role: models.RoleStudent}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		id = u.ID
		return tx.Profiles().CreateStudent(ctx, &models.StudentProfile{UserID: u.ID, Skills: "go"})
	}))

	u, err := s.Users().GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u.StudentProfile)
	assert.Equal(t, "go", u.StudentProfile.Skills)
	assert.Nil(t, u.CompanyProfile)
}

func TestApplicationPairUnique(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Applications().Create(ctx, &models.Application{JobID: "j1", StudentID: "s1"}))
	err := s.Applications().Create(ctx, &models.Application{JobID: "j1", StudentID: "s1"})
	assert.ErrorIs(t, err, utils.ErrDuplicate)
	require.NoError(t, s.Applications().Create(ctx, &models.Application{JobID: "j2", StudentID: "s1"}))

	n, err := s.Applications().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestSearchFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, acme := seedCompany(t, s, "Acme")
	_, globex := seedCompany(t, s, "Globex")

	jobs := []*models.Job{
		{CompanyID: acme.ID, Title: "Backend Intern", Type: models.JobTypeInternship, Location: "Remote", Description: "Go", IsApproved: true},
		{CompanyID: acme.ID, Title: "Designer", Type: models.JobTypeJob, Location: "Jakarta", Description: "Figma", IsApproved: true},
		{CompanyID: globex.ID, Title: "Data Intern", Type: models.JobTypeInternship, Location: "remote-first", Description: "SQL", IsApproved: true},
		{CompanyID: globex.ID, Title: "Hidden", Type: models.JobTypeInternship, Location: "Remote", Description: "draft", IsApproved: false},
	}
	for _, j := range jobs {
		require.NoError(t, s.Jobs().Create(ctx, j))
	}

	got, err := s.Jobs().Search(ctx, models.JobFilter{Type: "INTERNSHIP", Location: "remote"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Jobs().Search(ctx, models.JobFilter{Search: "acme"})
	require.NoError(t, err)
	assert.Len(t, got, 2, "company name matches")
	for _, j := range got {
		require.NotNil(t, j.Company)
		assert.Equal(t, "Acme", j.Company.CompanyName)
	}

	got, err = s.Jobs().Search(ctx, models.JobFilter{Search: "draft"})
	require.NoError(t, err)
	assert.Empty(t, got, "unapproved jobs never match")
}

func TestDeleteByCompanyCascadeHelpers(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, acme := seedCompany(t, s, "Acme")

	j := &models.Job{CompanyID: acme.ID, Title: "t", Type: models.JobTypeJob, Location: "l", Description: "d", IsApproved: true}
	require.NoError(t, s.Jobs().Create(ctx, j))
	require.NoError(t, s.Applications().Create(ctx, &models.Application{JobID: j.ID, StudentID: "s1"}))
	require.NoError(t, s.Applications().Create(ctx, &models.Application{JobID: "other", StudentID: "s1"}))

	require.NoError(t, s.Applications().DeleteByCompany(ctx, acme.ID))
	n, err := s.Jobs().DeleteByCompany(ctx, acme.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := s.Applications().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "other", left[0].JobID)
}

func TestConsumeVerificationCodeOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := &models.User{Email: "c@x.com"}
	require.NoError(t, s.Users().Create(ctx, u))
	require.NoError(t, s.Users().SetVerificationCode(ctx, u.ID, "h1", u.CreatedAt))

	ok, err := s.Users().ConsumeVerificationCode(ctx, u.ID, "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Users().ConsumeVerificationCode(ctx, u.ID, "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	assert.Nil(t, got.EmailVerificationCodeHash)
}

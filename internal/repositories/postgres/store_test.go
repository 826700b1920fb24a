package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return NewStore(db), mock
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%remote%", containsPattern("remote"))
	assert.Equal(t, `%50\%\_off%`, containsPattern("50%_off"))
	assert.Equal(t, `%a\\b%`, containsPattern(`a\b`))
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), utils.ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), utils.ErrDuplicate)

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_applications_job_student"}
	err := translate(pgErr)
	assert.ErrorIs(t, err, utils.ErrDuplicate)
	assert.Contains(t, err.Error(), "idx_applications_job_student")

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

func TestJobSearchBuildsApprovedOnlyQuery(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "jobs" WHERE jobs\.is_approved = \$1 AND jobs\.type = \$2 AND jobs\.location ILIKE \$3 AND \(jobs\.title ILIKE \$4 OR jobs\.description ILIKE \$5 OR jobs\.company_id IN \(SELECT .*id.* FROM "company_profiles" WHERE company_name ILIKE \$6\)\) ORDER BY jobs\.created_at DESC`).
		WithArgs(true, "INTERNSHIP", "%remote%", "%go%", "%go%", "%go%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "title", "type", "location", "description", "is_approved", "created_at"}).
			AddRow("j1", "c1", "Go intern", "INTERNSHIP", "Remote", "backend", true, time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "company_profiles" WHERE "company_profiles"\."id" = \$1`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "company_name"}).AddRow("c1", "u1", "Acme"))

	jobs, err := store.Jobs().Search(context.Background(), models.JobFilter{Type: "INTERNSHIP", Location: "remote", Search: "go"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].Company)
	assert.Equal(t, "Acme", jobs[0].Company.CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobSearchWithoutFilters(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "jobs" WHERE jobs\.is_approved = \$1 ORDER BY jobs\.created_at DESC`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	jobs, err := store.Jobs().Search(context.Background(), models.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeVerificationCodeIsConditional(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "users" SET .* WHERE id = \$5 AND email_verification_code_hash = \$6`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "u1", "hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Users().ConsumeVerificationCode(context.Background(), "u1", "hash")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Users().GetByEmail(context.Background(), "  Jane@X.com ")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfMissingJobDoesNotInsert(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "jobs" SET .* WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	j := &models.Job{ID: "gone", CompanyID: "c1", Title: "Go intern", Type: models.JobTypeInternship,
		Location: "Remote", Description: "d", IsApproved: true}
	err := store.Jobs().Update(context.Background(), j)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWritesExistingRows(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE "users" SET .* WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "student_profiles" SET .* WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Users().Update(ctx, &models.User{ID: "u1", Email: " Jane@X.com ", Role: models.RoleStudent}))
	err := store.Profiles().UpdateStudent(ctx, &models.StudentProfile{ID: "p1", UserID: "u1"})
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

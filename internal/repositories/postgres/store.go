package postgres

import (
	"context"
	"strings"

	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

var _ repositories.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repositories.UserRepository               { return &userRepo{db: s.db} }
func (s *Store) Profiles() repositories.ProfileRepository         { return &profileRepo{db: s.db} }
func (s *Store) Jobs() repositories.JobRepository                 { return &jobRepo{db: s.db} }
func (s *Store) Applications() repositories.ApplicationRepository { return &applicationRepo{db: s.db} }
func (s *Store) Audit() repositories.AuditRepository              { return &auditRepo{db: s.db} }

func (s *Store) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Migrate creates or updates every table owned by the store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.StudentProfile{},
		&models.CompanyProfile{},
		&models.Job{},
		&models.Application{},
		&models.AuditEvent{},
	)
}

// updateRow writes every column of row, which must already exist under id.
// A missing row is utils.ErrNotFound; Save would insert it instead.
func updateRow(ctx context.Context, db *gorm.DB, id string, row any) error {
	res := db.WithContext(ctx).
		Model(row).
		Where("id = ?", id).
		Select("*").
		Omit(clause.Associations).
		Updates(row)
	return affected(res)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching v as a literal substring.
func containsPattern(v string) string {
	return "%" + likeEscaper.Replace(v) + "%"
}

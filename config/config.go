package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yoockh/jobsphere/internal/mail"
	"github.com/yoockh/jobsphere/internal/storage"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type StorageConfig struct {
	Driver             string // "gcs", "s3" or empty for none
	GCSBucket          string
	GCSCredentialsFile string
	S3                 storage.S3Config
	SignedURLTTL       time.Duration
}

type Config struct {
	Port        string
	Env         string
	StoreDriver string
	PostgresURI string
	RedisAddr   string
	MongoURI    string
	MongoDB     string

	JWTSecret  string
	SessionTTL time.Duration

	AdminEmail    string
	AdminPassword string
	AdminName     string
	ContactTo     string

	JobsCacheTTL        time.Duration
	JobsCacheScanBatch  int64
	JobsRequireApproval bool

	Storage StorageConfig

	SMTP               mail.SMTPConfig
	MailEnqueueTimeout time.Duration
	MailSendTimeout    time.Duration
	MailWorkers        int

	RateLimitRPS   float64
	RateLimitBurst int
	ClientOrigin   string
}

func (c *Config) Production() bool { return c.Env == "production" }

// Load reads the environment and reports every invalid or missing value at once.
func Load() (*Config, error) {
	var errs []error
	p := &parser{errs: &errs}

	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		Env:         strings.ToLower(getenv("GO_ENV", "development")),
		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", StoreDriverPostgres)),
		PostgresURI: os.Getenv("POSTGRES_URI"),
		RedisAddr:   RedisAddrFromEnv(),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     getenv("MONGO_DB", "jobsphere"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		SessionTTL: p.duration("SESSION_TTL", 7*24*time.Hour),

		AdminEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getenv("ADMIN_NAME", "Administrator"),
		ContactTo:     strings.TrimSpace(os.Getenv("CONTACT_TO")),

		JobsCacheTTL:        p.duration("JOBS_CACHE_TTL", 60*time.Second),
		JobsCacheScanBatch:  int64(p.int("JOBS_CACHE_SCAN_BATCH", 100)),
		JobsRequireApproval: p.bool("JOBS_REQUIRE_APPROVAL", false),

		Storage: StorageConfig{
			Driver:             strings.ToLower(os.Getenv("STORAGE_DRIVER")),
			GCSBucket:          os.Getenv("GCS_BUCKET"),
			GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
			S3: storage.S3Config{
				Bucket:          os.Getenv("S3_BUCKET"),
				Region:          os.Getenv("S3_REGION"),
				Endpoint:        os.Getenv("S3_ENDPOINT"),
				AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			},
			SignedURLTTL: p.duration("SIGNED_URL_TTL", 10*time.Minute),
		},

		SMTP: mail.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     p.int("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("MAIL_FROM"),
		},
		MailEnqueueTimeout: p.duration("MAIL_ENQUEUE_TIMEOUT", 2*time.Second),
		MailSendTimeout:    p.duration("MAIL_SEND_TIMEOUT", 15*time.Second),
		MailWorkers:        p.int("MAIL_WORKERS", 2),

		RateLimitRPS:   p.float("RATE_LIMIT_RPS", 5),
		RateLimitBurst: p.int("RATE_LIMIT_BURST", 10),
		ClientOrigin:   getenv("CLIENT_ORIGIN", "http://localhost:5173"),
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is not set"))
	}
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.PostgresURI == "" {
			errs = append(errs, errors.New("POSTGRES_URI environment variable is not set"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory))
	}
	switch cfg.Storage.Driver {
	case "", "gcs", "s3":
	default:
		errs = append(errs, errors.New(`STORAGE_DRIVER must be "gcs", "s3" or empty`))
	}
	if cfg.AdminPassword != "" && cfg.AdminEmail == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is set without ADMIN_EMAIL"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

type parser struct {
	errs *[]error
}

func (p *parser) fail(key, v string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

// duration accepts Go durations ("90s") or a bare number of seconds.
func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.fail(key, v, errors.New("invalid duration"))
		return def
	}
	return d
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		p.fail(key, v, errors.New("must be a positive integer"))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		p.fail(key, v, errors.New("must be a positive number"))
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

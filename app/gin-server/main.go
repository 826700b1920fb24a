package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/jobsphere/config"
	"github.com/yoockh/jobsphere/internal/api/handlers"
	"github.com/yoockh/jobsphere/internal/api/middleware"
	"github.com/yoockh/jobsphere/internal/api/routes"
	"github.com/yoockh/jobsphere/internal/auth"
	"github.com/yoockh/jobsphere/internal/cache"
	"github.com/yoockh/jobsphere/internal/logger"
	"github.com/yoockh/jobsphere/internal/mail"
	"github.com/yoockh/jobsphere/internal/metrics"
	"github.com/yoockh/jobsphere/internal/repositories"
	"github.com/yoockh/jobsphere/internal/repositories/memory"
	mongorepo "github.com/yoockh/jobsphere/internal/repositories/mongo"
	"github.com/yoockh/jobsphere/internal/repositories/postgres"
	"github.com/yoockh/jobsphere/internal/services"
	"github.com/yoockh/jobsphere/internal/storage"
	"github.com/yoockh/jobsphere/internal/verification"
	"github.com/yoockh/jobsphere/internal/workers"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := initStore(cfg, log)

	// Redis backs the listing cache and the mail outbox; both degrade without it.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		if err := config.InitRedis(cfg.RedisAddr); err != nil {
			log.WithError(err).Warn("Redis unavailable, running without cache and mail queue")
		} else {
			rdb = config.RedisClient
			log.Info("Redis connected")
		}
	}

	var contacts mongorepo.ContactRepository
	if cfg.MongoURI != "" {
		if err := config.InitMongo(cfg.MongoURI); err != nil {
			log.WithError(err).Warn("MongoDB unavailable, contact messages will not be archived")
		} else {
			if err := config.EnsureMongoIndexes(cfg.MongoDB); err != nil {
				log.WithError(err).Warn("MongoDB index setup failed")
			}
			contacts = mongorepo.NewContactRepo(config.MongoClient.Database(cfg.MongoDB))
			log.Info("MongoDB connected")
		}
	}

	blobs, err := initStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}

	sender := initSender(cfg, log)

	var cacheBackend cache.Cache
	if rdb != nil {
		cacheBackend = cache.NewRedisCache(rdb)
	}
	listings := cache.NewJobListings(cacheBackend, cfg.JobsCacheTTL, cfg.JobsCacheScanBatch, log)

	outbox := &workers.MailOutbox{
		Redis:          rdb,
		Sender:         sender,
		Logger:         log,
		EnqueueTimeout: cfg.MailEnqueueTimeout,
		SendTimeout:    cfg.MailSendTimeout,
	}
	var pool *workers.MailWorkerPool
	if rdb != nil && sender != nil {
		pool = &workers.MailWorkerPool{
			Redis:       rdb,
			Sender:      sender,
			NumWorkers:  cfg.MailWorkers,
			Logger:      log,
			SendTimeout: cfg.MailSendTimeout,
		}
		if err := pool.Start(ctx); err != nil {
			log.Fatalf("mail worker start error: %v", err)
		}
	} else {
		// nothing would drain the stream
		outbox.Redis = nil
	}

	sessions := auth.NewSessionIssuer(cfg.JWTSecret, cfg.SessionTTL)
	deps := services.Deps{
		Store:    store,
		Listings: listings,
		Sessions: sessions,
		Codes:    verification.NewManager(),
		Outbox:   outbox,
		Sender:   sender,
		Blobs:    blobs,
		Contacts: contacts,
		Policy: services.Policy{
			AdminEmail:          cfg.AdminEmail,
			JobsRequireApproval: cfg.JobsRequireApproval,
			SignedURLTTL:        cfg.Storage.SignedURLTTL,
			MailSendTimeout:     cfg.MailSendTimeout,
		},
		Logger: log,
	}
	accounts := services.NewAccountService(deps)
	if err := accounts.EnsurePrimaryAdmin(ctx, cfg.AdminName, cfg.AdminPassword); err != nil {
		log.Fatalf("admin bootstrap error: %v", err)
	}
	jobs := services.NewJobService(deps)
	apps := services.NewApplicationService(deps)
	contactSvc := services.NewContactService(deps, cfg.ContactTo)

	r := gin.New()
	r.MaxMultipartMemory = services.MaxResumeBytes + 1<<20
	r.Use(gin.Recovery(), middleware.RequestLogger(log), metrics.Instrument(), middleware.CORS(cfg.ClientOrigin))

	routes.RegisterRoutes(r, routes.Deps{
		Sessions:     sessions,
		Limiter:      middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log),
		Auth:         handlers.NewAuthHandler(accounts),
		Me:           handlers.NewMeHandler(accounts),
		Jobs:         handlers.NewJobHandler(jobs, apps),
		Applications: handlers.NewApplicationHandler(apps),
		Admin:        handlers.NewAdminHandler(services.NewAdminService(deps), jobs, apps, contactSvc),
		Contact:      handlers.NewContactHandler(contactSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if pool != nil {
		pool.Wait()
	}
	outbox.Wait()

	if rdb != nil {
		_ = rdb.Close()
	}
	if config.MongoClient != nil {
		_ = config.MongoClient.Disconnect(shutdownCtx)
	}
	if c, ok := blobs.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

func initStore(cfg *config.Config, log *logrus.Logger) repositories.Store {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New()
	}
	if err := config.InitPostgres(cfg.PostgresURI, log); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := postgres.Migrate(config.PostgresDB); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	log.Info("PostgreSQL connected")
	return postgres.NewStore(config.PostgresDB)
}

func initStorage(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "gcs":
		return storage.NewGCSStore(ctx, cfg.Storage.GCSBucket, cfg.Storage.GCSCredentialsFile)
	case "s3":
		return storage.NewS3Store(cfg.Storage.S3)
	default:
		return nil, nil
	}
}

func initSender(cfg *config.Config, log *logrus.Logger) mail.Sender {
	if cfg.SMTP.Host != "" {
		s, err := mail.NewSMTPSender(cfg.SMTP)
		if err != nil {
			log.Fatalf("SMTP config error: %v", err)
		}
		return s
	}
	if cfg.Production() {
		log.Warn("SMTP not configured, outgoing mail is disabled")
		return nil
	}
	log.Warn("SMTP not configured, mail is written to the log")
	return mail.LogSender{Logger: log}
}

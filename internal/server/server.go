package server

import (
	"context"
	"fmt"
	"investtrack/internal/auth"
	"investtrack/internal/config"
	"investtrack/internal/documents"
	"investtrack/internal/investments"
	"investtrack/internal/notify"
	"investtrack/internal/rates"
	"investtrack/internal/utils"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services are the components shared by the HTTP server and the CLI.
type Services struct {
	Config      *config.Config
	DB          *gorm.DB
	Logger      *slog.Logger
	Redis       *redis.Client
	Rates       *rates.Cache
	Investments *investments.Service
	Blobs       documents.BlobStore
	Dispatcher  *notify.Dispatcher
}

// Build wires the components from cfg. Blob storage, mail and redis are
// optional and degrade with a warning.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*Services, error) {
	s := &Services{Config: cfg, DB: db, Logger: logger}

	s.Rates = rates.NewCache(rates.NewHTTPFetcher(cfg.RatesAPIURL, cfg.RatesAPIKey), cfg.BaseCurrency, cfg.RatesTTL, logger)
	s.Investments = investments.NewService(db)

	if cfg.S3Bucket != "" {
		store, err := documents.NewS3Store(ctx, documents.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		s.Blobs = store
	} else {
		logger.Warn("S3_BUCKET not set, document uploads disabled")
	}

	var mailer notify.Mailer
	if cfg.ResendAPIKey != "" {
		m, err := notify.NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom)
		if err != nil {
			return nil, err
		}
		mailer = m
	} else {
		logger.Warn("RESEND_API_KEY not set, digests are only logged")
		mailer = notify.NewLogMailer(logger)
	}

	rdb, err := utils.NewRedisClient(cfg.RedisAddr, cfg.RedisPW, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	var dedup notify.Deduper
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.Redis = rdb
		dedup = notify.NewRedisDeduper(rdb)
	}
	s.Dispatcher = notify.NewDispatcher(s.Investments, s.Rates, mailer, dedup, cfg.AppURL, logger)
	return s, nil
}

func (s *Services) Close() error {
	if s.Redis != nil {
		return s.Redis.Close()
	}
	return nil
}

func SetupRouter(s *Services) *gin.Engine {
	r := gin.Default()
	r.Use(auth.CORSMiddleware(s.Config.AllowedOrigins, s.Config.AllowAllOrigins))

	jwtKey := []byte(s.Config.AuthSecret)
	authHandler := auth.NewHandler(s.DB, jwtKey, s.Logger)
	investmentHandler := investments.NewHandler(s.Investments, s.Rates, s.Logger)
	documentHandler := documents.NewHandler(s.DB, s.Blobs, s.Logger)
	notifyHandler := notify.NewHandler(s.Dispatcher, s.Logger)

	r.GET("/health", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{})
	})

	protected := r.Group("/api")
	protected.Use(auth.MiddleWare(jwtKey, s.DB, s.Logger))
	{
		protected.GET("/me", authHandler.Me)
		protected.GET("/investments", investmentHandler.List)
		protected.POST("/investments", investmentHandler.Create)
		protected.GET("/investments/summary", investmentHandler.Summary)
		protected.GET("/rates", investmentHandler.Rates)
		protected.GET("/documents", documentHandler.List)
		protected.POST("/documents", documentHandler.Create)
		protected.POST("/documents/upload", documentHandler.Upload)
		protected.DELETE("/documents/:id", documentHandler.Delete)
	}

	external := r.Group("/api/external")
	external.Use(auth.SharedSecret("X-Api-Key", s.Config.ExternalAPIKey))
	external.GET("/investments", investmentHandler.External)

	cron := r.Group("/api/cron")
	cron.Use(auth.SharedSecret("Authorization", s.Config.CronSecret))
	cron.GET("/expiring", notifyHandler.Expiring)
	cron.GET("/monthly", notifyHandler.Monthly)

	return r
}

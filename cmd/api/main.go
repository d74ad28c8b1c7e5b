package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/handler"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	"github.com/noah-isme/alumni-connect-api/internal/service"
	"github.com/noah-isme/alumni-connect-api/pkg/cache"
	"github.com/noah-isme/alumni-connect-api/pkg/config"
	"github.com/noah-isme/alumni-connect-api/pkg/database"
	"github.com/noah-isme/alumni-connect-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/alumni-connect-api/pkg/middleware/cors"
	"github.com/noah-isme/alumni-connect-api/pkg/storage"
)

// @title Alumni Connect API
// @version 1.0.0
// @description REST and realtime backend for the alumni network: accounts, jobs, workshops, blogs, mentorship, chat and announcements.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	mongoClient, err := database.ConnectMongo(ctx, cfg.Mongo, logr)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			logr.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.Mongo.Database)

	if err := database.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	metrics := service.NewMetricsService()
	source := resolveRealtimeSource(ctx, cfg.Realtime.Source, mongoClient, logr)
	hub := realtime.NewHub(realtime.HubOptions{
		Dedup:   source == config.RealtimeSourceBoth,
		Logger:  logr,
		Metrics: metrics,
	})
	defer hub.Close()

	// Repositories emit entity changes directly only when hooks are enabled.
	var hooks realtime.Broadcaster
	if source == config.RealtimeSourceHooks || source == config.RealtimeSourceBoth {
		hooks = hub
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.Realtime.Relay == config.RelayRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, cache and redis relay disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	app, err := buildApp(cfg, db, hub, hooks, redisClient, metrics, source, logr)
	if err != nil {
		return err
	}

	if cfg.Admin.Email != "" {
		created, err := app.auth.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			logr.Info("administrator account created", zap.String("email", cfg.Admin.Email))
		}
	}

	bridge, err := startRelay(ctx, cfg.Realtime, hub, redisClient, logr)
	if err != nil {
		return err
	}
	if bridge != nil {
		defer func() {
			if err := bridge.Close(); err != nil {
				logr.Warn("relay close failed", zap.Error(err))
			}
		}()
	}

	if source == config.RealtimeSourceChangeStream || source == config.RealtimeSourceBoth {
		notifier := startNotifier(ctx, db, hub, metrics, logr)
		defer notifier.Close()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, metrics, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("realtime_source", source))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown failed", zap.Error(err))
	}
	// Deferred closers run in reverse: notifier, relay, redis, hub, mongo.
	return nil
}

// resolveRealtimeSource maps REALTIME_SOURCE to one concrete mode. auto probes
// the deployment: change streams need a replica set or sharded cluster.
func resolveRealtimeSource(ctx context.Context, configured string, client *mongo.Client, logr *zap.Logger) string {
	if configured != config.RealtimeSourceAuto && configured != "" {
		return configured
	}
	ok, err := database.SupportsChangeStreams(ctx, client)
	if err != nil {
		logr.Warn("change stream probe failed, falling back to hooks", zap.Error(err))
		return config.RealtimeSourceHooks
	}
	if ok {
		return config.RealtimeSourceChangeStream
	}
	return config.RealtimeSourceHooks
}

func startRelay(ctx context.Context, cfg config.RealtimeConfig, hub *realtime.Hub, redisClient *redis.Client, logr *zap.Logger) (*realtime.Bridge, error) {
	var relay realtime.Relay
	switch cfg.Relay {
	case config.RelayRedis:
		if redisClient == nil {
			logr.Warn("redis relay requested but redis is unavailable")
			return nil, nil
		}
		relay = realtime.NewRedisRelay(redisClient, cfg.RelayChannel)
	case config.RelayNATS:
		natsRelay, err := realtime.NewNATSRelay(cfg.NATSURL, cfg.RelayChannel)
		if err != nil {
			return nil, err
		}
		relay = natsRelay
	default:
		return nil, nil
	}
	bridge := realtime.NewBridge(hub, relay, realtime.BridgeConfig{
		Workers:    cfg.RelayWorkers,
		MaxRetries: cfg.RelayRetries,
		Logger:     logr,
	})
	if err := bridge.Start(ctx); err != nil {
		return nil, fmt.Errorf("start relay: %w", err)
	}
	return bridge, nil
}

func startNotifier(ctx context.Context, db *mongo.Database, hub *realtime.Hub, metrics *service.MetricsService, logr *zap.Logger) *realtime.Notifier {
	n := realtime.NewNotifier(db, hub, logr, metrics)
	n.Watch(realtime.EntityUsers, realtime.Decoder[models.User]())
	n.Watch(realtime.EntityJobs, realtime.Decoder[models.Job]())
	n.Watch(realtime.EntityWorkshops, realtime.Decoder[models.Workshop]())
	n.Watch(realtime.EntityBlogs, realtime.Decoder[models.Blog]())
	n.Watch(realtime.EntityFeedback, realtime.Decoder[models.Feedback]())
	n.Watch(realtime.EntityMentorships, realtime.Decoder[models.Mentorship]())
	n.Watch(realtime.EntityMentorshipPrograms, realtime.Decoder[models.MentorshipProgram]())
	n.Watch(realtime.EntityAnnouncements, realtime.Decoder[models.Announcement]())
	n.Watch(realtime.EntityChats, realtime.Decoder[models.Chat]())
	started := n.Start(ctx)
	logr.Info("change stream notifier started", zap.Int("watchers", started))
	return n
}

// app holds every wired handler plus the services main needs directly.
type app struct {
	auth *service.AuthService

	authHandler   *handler.AuthHandler
	users         *handler.UserHandler
	jobs          *handler.JobHandler
	workshops     *handler.WorkshopHandler
	blogs         *handler.BlogHandler
	feedback      *handler.FeedbackHandler
	mentorship    *handler.MentorshipHandler
	programs      *handler.ProgramHandler
	announcements *handler.AnnouncementHandler
	chats         *handler.ChatHandler
	analytics     *handler.AnalyticsHandler
	admin         *handler.AdminHandler
	uploads       *handler.UploadHandler
	ops           *handler.MetricsHandler
	socket        *realtime.Handler
}

func buildApp(cfg *config.Config, db *mongo.Database, hub *realtime.Hub, hooks realtime.Broadcaster, redisClient *redis.Client, metrics *service.MetricsService, source string, logr *zap.Logger) (*app, error) {
	validate := validator.New()

	userRepo := repository.NewUserRepository(db, hooks)
	jobRepo := repository.NewJobRepository(db, hooks)
	workshopRepo := repository.NewWorkshopRepository(db, hooks)
	blogRepo := repository.NewBlogRepository(db, hooks)
	feedbackRepo := repository.NewFeedbackRepository(db, hooks)
	mentorshipRepo := repository.NewMentorshipRepository(db, hooks)
	programRepo := repository.NewProgramRepository(db, hooks)
	announcementRepo := repository.NewAnnouncementRepository(db, hooks)
	chatRepo := repository.NewChatRepository(db, hooks)

	authSvc := service.NewAuthService(userRepo, validate, logr, hub, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr,
		service.OwnedContent{Kind: "jobs", Count: jobRepo.CountByOwner},
		service.OwnedContent{Kind: "workshops", Count: workshopRepo.CountByHost},
		service.OwnedContent{Kind: "blogs", Count: blogRepo.CountByAuthor},
	)
	jobSvc := service.NewJobService(jobRepo, validate, logr)
	workshopSvc := service.NewWorkshopService(workshopRepo, validate, logr)
	blogSvc := service.NewBlogService(blogRepo, validate, logr)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, validate, logr)
	mentorshipSvc := service.NewMentorshipService(mentorshipRepo, userRepo, chatRepo, hub, validate, logr)
	programSvc := service.NewProgramService(programRepo, hub, validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, validate, logr)
	chatSvc := service.NewChatService(chatRepo, userRepo, mentorshipRepo, hub, validate, logr)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)
	analyticsSvc := service.NewAnalyticsService(service.AnalyticsSources{
		Summaries:      repository.NewAnalyticsRepository(db),
		Mentorships:    mentorshipRepo,
		Programs:       programRepo,
		Feedback:       feedbackRepo,
		Announcements:  announcementRepo,
		Hub:            hub,
		RealtimeSource: source,
	}, cacheSvc, metrics, cfg.Cache.TTL, logr)
	exportSvc := service.NewExportService(analyticsSvc, logr)

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("prepare upload storage %s: %w", cfg.Uploads.StorageDir, err)
	}
	uploadSvc := service.NewUploadService(store, storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL), service.UploadConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
		APIPrefix:    cfg.APIPrefix,
	}, logr)

	cors := corsmiddleware.NewPolicy(cfg.CORS.AllowedOrigins)
	socket := realtime.NewHandler(hub, authSvc, chatSvc, cors.CheckOrigin, realtime.ClientOptions{
		SendBuffer:    cfg.Realtime.SendBuffer,
		PingInterval:  cfg.Realtime.PingInterval,
		WriteDeadline: cfg.Realtime.WriteDeadline,
	}, logr)

	return &app{
		auth:          authSvc,
		authHandler:   handler.NewAuthHandler(authSvc),
		users:         handler.NewUserHandler(userSvc),
		jobs:          handler.NewJobHandler(jobSvc),
		workshops:     handler.NewWorkshopHandler(workshopSvc),
		blogs:         handler.NewBlogHandler(blogSvc),
		feedback:      handler.NewFeedbackHandler(feedbackSvc),
		mentorship:    handler.NewMentorshipHandler(mentorshipSvc),
		programs:      handler.NewProgramHandler(programSvc),
		announcements: handler.NewAnnouncementHandler(announcementSvc),
		chats:         handler.NewChatHandler(chatSvc),
		analytics:     handler.NewAnalyticsHandler(analyticsSvc, exportSvc),
		admin:         handler.NewAdminHandler(userSvc, mentorshipSvc, jobSvc),
		uploads:       handler.NewUploadHandler(uploadSvc, cfg.Uploads.MaxFileSizeBytes),
		ops: handler.NewMetricsHandler(metrics, handler.PingFunc(func(ctx context.Context) error {
			return database.Ping(ctx, db.Client())
		}), logr),
		socket: socket,
	}, nil
}

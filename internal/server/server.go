package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"anoa.com/scholarhub/internal/config"
	"anoa.com/scholarhub/internal/jobs"
	"anoa.com/scholarhub/internal/logger"
	"anoa.com/scholarhub/internal/metrics"
	"anoa.com/scholarhub/internal/middleware"
	"anoa.com/scholarhub/pkg/ratelimiter"
	"anoa.com/scholarhub/pkg/storage"

	announcementHttp "anoa.com/scholarhub/internal/modules/announcement/delivery/http"
	announcementRepo "anoa.com/scholarhub/internal/modules/announcement/repository"
	announcementService "anoa.com/scholarhub/internal/modules/announcement/service"

	applicationHttp "anoa.com/scholarhub/internal/modules/application/delivery/http"
	applicationRepo "anoa.com/scholarhub/internal/modules/application/repository"
	applicationService "anoa.com/scholarhub/internal/modules/application/service"

	conversationHttp "anoa.com/scholarhub/internal/modules/conversation/delivery/http"
	conversationRepo "anoa.com/scholarhub/internal/modules/conversation/repository"
	conversationService "anoa.com/scholarhub/internal/modules/conversation/service"

	documentHttp "anoa.com/scholarhub/internal/modules/document/delivery/http"
	documentRepo "anoa.com/scholarhub/internal/modules/document/repository"
	documentService "anoa.com/scholarhub/internal/modules/document/service"

	interviewHttp "anoa.com/scholarhub/internal/modules/interview/delivery/http"
	interviewRepo "anoa.com/scholarhub/internal/modules/interview/repository"
	interviewService "anoa.com/scholarhub/internal/modules/interview/service"

	"anoa.com/scholarhub/internal/modules/message/broker"
	messageHttp "anoa.com/scholarhub/internal/modules/message/delivery/http"
	messageRepo "anoa.com/scholarhub/internal/modules/message/repository"
	messageService "anoa.com/scholarhub/internal/modules/message/service"

	searchService "anoa.com/scholarhub/internal/modules/search/service"

	settingHttp "anoa.com/scholarhub/internal/modules/setting/delivery/http"
	settingRepo "anoa.com/scholarhub/internal/modules/setting/repository"
	settingService "anoa.com/scholarhub/internal/modules/setting/service"

	userHttp "anoa.com/scholarhub/internal/modules/user/delivery/http"
	userRepo "anoa.com/scholarhub/internal/modules/user/repository"
	userService "anoa.com/scholarhub/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type Server struct {
	cfg         *config.Config
	engine      *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *jobs.Scheduler
	apiLimiter  *middleware.RateLimiter
}

// NewServer wires every module. redisClient may be nil; realtime fan-out then
// stays in process and message throttling is disabled.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	var fileStorage storage.FileStorage
	if cfg.CloudinaryCloudName != "" {
		s, err := storage.NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryUploadFolder)
		if err != nil {
			return nil, err
		}
		fileStorage = s
	} else {
		log.Warn().Msg("cloudinary is not configured, document uploads are disabled")
	}

	var meiliSvc searchService.SearchService
	if cfg.MeiliSearchHost != "" {
		host := cfg.MeiliSearchHost
		if !strings.HasPrefix(host, "http") {
			host = "http://" + host + ":7700"
		}
		meiliSvc = searchService.NewMeiliSearchService(meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey)))
	} else {
		log.Warn().Msg("meilisearch is not configured, search is disabled")
	}

	var messageBroker broker.Broker
	if redisClient != nil {
		messageBroker = broker.NewRedisBroker(redisClient)
	} else {
		messageBroker = broker.NewHub()
	}

	users := userRepo.NewUserRepository(db)
	authSvc := userService.NewAuthService(users, meiliSvc, userService.AuthConfig{
		Secret:       cfg.JWTSecret,
		TokenTTL:     cfg.JWTTTL,
		DirectorCode: cfg.DirectorRegistrationCode,
	})
	authHandler := userHttp.NewAuthHandler(authSvc)

	settingSvc := settingService.NewSettingService(settingRepo.NewSettingRepository(db))
	settingHandler := settingHttp.NewSettingHandler(settingSvc)

	applicationSvc := applicationService.NewApplicationService(applicationRepo.NewApplicationRepository(db), users, settingSvc, meiliSvc)
	applicationHandler := applicationHttp.NewApplicationHandler(applicationSvc)

	interviewSvc := interviewService.NewInterviewService(interviewRepo.NewInterviewRepository(db))
	interviewHandler := interviewHttp.NewInterviewHandler(interviewSvc)

	conversations := conversationRepo.NewConversationRepository(db)
	conversationSvc := conversationService.NewConversationService(conversations, users)
	conversationHandler := conversationHttp.NewConversationHandler(conversationSvc)

	throttle := ratelimiter.NewLimiter(redisClient, cfg.RateLimitMessage)
	messageSvc := messageService.NewMessageService(messageRepo.NewMessageRepository(db), conversations, messageBroker, throttle)
	origins := cfg.Origins()
	messageHandler := messageHttp.NewMessageHandler(messageSvc, func(origin string) bool {
		return slices.Contains(origins, origin)
	})

	documentSvc := documentService.NewDocumentService(documentRepo.NewDocumentRepository(db), fileStorage, documentService.LinkConfig{
		Secret:  cfg.JWTSecret,
		TTL:     cfg.SignedURLTTL,
		BaseURL: cfg.PublicBaseURL,
	})
	documentHandler := documentHttp.NewDocumentHandler(documentSvc)

	announcementSvc := announcementService.NewAnnouncementService(announcementRepo.NewAnnouncementRepository(db), meiliSvc)
	announcementHandler := announcementHttp.NewAnnouncementHandler(announcementSvc)

	scheduler := jobs.NewScheduler()
	for _, job := range []jobs.Job{
		jobs.CloseApplications(cfg.CronCloseApplications, settingSvc),
		jobs.CleanupDocuments(cfg.CronCleanupDocuments, documentSvc, cfg.OrphanDocumentGrace),
		jobs.RetryPromotions(cfg.CronRetryPromotions, applicationSvc),
	} {
		if err := scheduler.Register(job); err != nil {
			return nil, err
		}
	}

	apiLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitAPIRPS), cfg.RateLimitAPIBurst, 10*time.Minute)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, origins)

	router.Use(gin.Recovery())
	router.Use(logger.GinLogger("/healthz", "/metrics"))
	router.Use(metrics.GinMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(users, cfg.JWTSecret)

	api := router.Group("/api")
	api.Use(apiLimiter.Middleware())

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/verify-director-code", authHandler.VerifyDirectorCode)
	}
	api.GET("/documents/download", documentHandler.Download)

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/me", authHandler.Me)
		protected.GET("/search/token", authHandler.SearchToken)
		protected.GET("/settings", settingHandler.Get)

		protected.GET("/applications/me", applicationHandler.GetMine)
		protected.PUT("/applications/me/draft", applicationHandler.SaveDraft)
		protected.POST("/applications/me/submit", applicationHandler.Submit)
		protected.POST("/applications/validate-step", applicationHandler.ValidateStep)

		protected.GET("/interviews/me", interviewHandler.MySlot)
		protected.GET("/announcements", announcementHandler.List)

		protected.POST("/documents", documentHandler.Upload)
		protected.POST("/documents/signed-url", documentHandler.SignedURL)

		protected.GET("/conversations", conversationHandler.ListMine)
		protected.POST("/conversations/direct", conversationHandler.StartDirect)
		protected.POST("/conversations/group", conversationHandler.EnsureCohortGroup)
		protected.GET("/conversations/:id/messages", messageHandler.List)
		protected.POST("/conversations/:id/messages", messageHandler.Send)
		protected.GET("/conversations/:id/ws", messageHandler.Stream)

		director := protected.Group("/director")
		director.Use(authMiddleware.RequireDirector())
		{
			director.GET("/applications", applicationHandler.ListForReview)
			director.GET("/applications/search", applicationHandler.Search)
			director.GET("/applications/:id", applicationHandler.GetForReview)
			director.POST("/applications/:id/status", applicationHandler.AdvanceStatus)
			director.POST("/applications/:id/retry-promotion", applicationHandler.RetryPromotion)

			director.POST("/interview-slots", interviewHandler.CreateBatch)
			director.GET("/interview-slots", interviewHandler.ListSlots)
			director.POST("/interview-slots/:id/assign", interviewHandler.Assign)

			director.POST("/announcements", announcementHandler.Create)
			director.DELETE("/announcements/:id", announcementHandler.Delete)

			director.PUT("/settings", settingHandler.Update)
		}
	}

	return &Server{
		cfg:         cfg,
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   scheduler,
		apiLimiter:  apiLimiter,
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains requests and background jobs.
func (s *Server) Run(ctx context.Context) error {
	s.scheduler.Start()
	go s.apiLimiter.Run()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.scheduler.Stop(context.Background())
		s.apiLimiter.Stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	log.Info().Msg("shutting down")
	s.apiLimiter.Stop()
	s.scheduler.Stop(shutdownCtx)
	return s.httpServer.Shutdown(shutdownCtx)
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

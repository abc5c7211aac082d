package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andkapach/amora/internal/config"
	s3infra "github.com/andkapach/amora/internal/infra/s3"
	"github.com/andkapach/amora/internal/jobs/cleanup"
	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
	redrepo "github.com/andkapach/amora/internal/repo/redis"
	authsvc "github.com/andkapach/amora/internal/services/auth"
	chatsvc "github.com/andkapach/amora/internal/services/chat"
	discoverysvc "github.com/andkapach/amora/internal/services/discovery"
	geosvc "github.com/andkapach/amora/internal/services/geo"
	giftsvc "github.com/andkapach/amora/internal/services/gifts"
	matchsvc "github.com/andkapach/amora/internal/services/matches"
	mediasvc "github.com/andkapach/amora/internal/services/media"
	profilesvc "github.com/andkapach/amora/internal/services/profiles"
	purchasesvc "github.com/andkapach/amora/internal/services/purchases"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	cleanupJob *cleanup.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	loginCodeRepo := redrepo.NewLoginCodeRepo(redisClient)
	cacheRepo := redrepo.NewCacheRepo(redisClient)
	pendingPurchaseRepo := redrepo.NewPendingPurchaseRepo(redisClient)

	profileRepo := pgrepo.NewProfileRepo(pool)
	blockRepo := pgrepo.NewBlockRepo(pool)
	likeRepo := pgrepo.NewLikeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	giftRepo := pgrepo.NewGiftRepo(pool)
	purchaseRepo := pgrepo.NewPurchaseRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(authsvc.Dependencies{
		JWT:      jwtManager,
		Sessions: sessionRepo,
		Codes:    loginCodeRepo,
		Accounts: profileRepo,
		Sender:   authsvc.LogCodeSender{Logger: log},
	}, authsvc.Config{
		RefreshTTL:   cfg.Auth.RefreshTTL,
		LoginCodeTTL: cfg.Auth.LoginCodeTTL,
	})

	profileService := profilesvc.NewService(profileRepo, blockRepo)
	geoService := geosvc.NewService(profileRepo)
	discoverService := discoverysvc.NewService(discoverysvc.Dependencies{
		Profiles: profileRepo,
		Blocks:   blockRepo,
		Cache:    cacheRepo,
		Logger:   log,
	}, discoverysvc.Config{
		DefaultPageSize:      cfg.Discovery.DefaultPageSize,
		MaxPageSize:          cfg.Discovery.MaxPageSize,
		ResultCacheTTL:       cfg.Discovery.ResultCacheTTL,
		RecentActivityWindow: cfg.Discovery.RecentActivityWindow,
	})
	matchService := matchsvc.NewService(matchsvc.Dependencies{
		Pool:    pool,
		Likes:   likeRepo,
		Matches: matchRepo,
		Blocks:  blockRepo,
	})
	chatService := chatsvc.NewService(chatsvc.Dependencies{
		Messages: messageRepo,
		Matches:  matchRepo,
		Blocks:   blockRepo,
	})
	giftService := giftsvc.NewService(cfg.Gifts, giftsvc.Dependencies{
		Wallets:  giftRepo,
		Blocks:   blockRepo,
		Notifier: chatService,
	})
	purchaseService := purchasesvc.NewService(cfg.Purchases, purchasesvc.Dependencies{
		Purchases: purchaseRepo,
		Markers:   pendingPurchaseRepo,
		Coins:     giftRepo,
		Premium:   profileRepo,
		Logger:    log,
	})

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(profileRepo, mediaStorage)

	cleanupJob := cleanup.NewPendingPurchaseJob(purchaseRepo, cfg.Cleanup.PendingRetention, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AuthService:     authService,
		ProfileService:  profileService,
		GeoService:      geoService,
		DiscoverService: discoverService,
		MatchService:    matchService,
		ChatService:     chatService,
		GiftService:     giftService,
		PurchaseService: purchaseService,
		MediaService:    mediaService,
		Logger:          log,
		Config:          cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		cleanupJob: cleanupJob,
		httpRouter: r,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	go a.cleanupJob.RunPeriodic(ctx, a.cfg.Cleanup.Interval)

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

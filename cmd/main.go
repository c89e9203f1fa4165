package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/grpc/health"

	httpcontext "github.com/dtroode/vaultdrop-server/internal/api/http/context"
	httprouter "github.com/dtroode/vaultdrop-server/internal/api/http/router"
	httpserver "github.com/dtroode/vaultdrop-server/internal/api/http/server"
	grpchealth "github.com/dtroode/vaultdrop-server/internal/api/grpc/health"
	grpcrouter "github.com/dtroode/vaultdrop-server/internal/api/grpc/router"
	grpcserver "github.com/dtroode/vaultdrop-server/internal/api/grpc/server"
	"github.com/dtroode/vaultdrop-server/internal/cache"
	"github.com/dtroode/vaultdrop-server/internal/config"
	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
	"github.com/dtroode/vaultdrop-server/internal/payment"
	"github.com/dtroode/vaultdrop-server/internal/repository/postgres"
	"github.com/dtroode/vaultdrop-server/internal/server"
	"github.com/dtroode/vaultdrop-server/internal/service"
	storage "github.com/dtroode/vaultdrop-server/internal/storage/minio"
	"github.com/dtroode/vaultdrop-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const healthProbeInterval = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.NewWithFormat(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	db, err := postgres.NewConection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	purchaseRepo := postgres.NewPurchaseRepository(db)
	revealRepo := postgres.NewRevealRepository(db)
	periodRepo := postgres.NewPeriodRepository(db)

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	urlCache, closeCache := newURLCache(ctx, cfg, logger)
	defer closeCache()

	accessService, err := service.NewAccess(storageClient, urlCache, service.AccessConfig{
		URLTTL:       cfg.Media.URLTTL,
		CacheWindow:  cfg.Media.CacheWindow,
		IssueTimeout: cfg.Media.IssueTimeout,
		Extension:    cfg.Media.Extension,
	}, time.Now, logger)
	if err != nil {
		logger.Fatal("failed to initialize access service", "error", err)
	}

	// Leaving the processor or verifier nil turns their endpoints into explicit
	// "not configured" errors instead of failing startup.
	var processor model.PaymentProcessor
	if cfg.Stripe.SecretKey != "" {
		processor = payment.NewProcessor(cfg.Stripe.SecretKey, payment.ProcessorConfig{
			BreakerFailures:  cfg.Stripe.BreakerFailures,
			BreakerOpenDelay: cfg.Stripe.BreakerOpenDelay,
		}, logger)
	} else {
		logger.Warn("STRIPE_SECRET_KEY is not set, checkout is disabled")
	}
	var verifier model.EventVerifier
	if cfg.Stripe.WebhookSecret != "" {
		verifier = payment.NewVerifier(cfg.Stripe.WebhookSecret)
	} else {
		logger.Warn("STRIPE_WEBHOOK_SECRET is not set, webhook deliveries are refused")
	}

	checkoutService := service.NewCheckout(purchaseRepo, periodRepo, processor, service.CheckoutConfig{
		AppURL:        cfg.Stripe.AppURL,
		Currency:      cfg.Stripe.Currency,
		SessionExpiry: cfg.Stripe.SessionExpiry,
	}, logger)
	webhookService := service.NewWebhook(verifier, purchaseRepo, logger)
	progressionService := service.NewProgression(purchaseRepo, revealRepo, logger)
	mediaService := service.NewMedia(progressionService, accessService)
	libraryService := service.NewLibrary(purchaseRepo, revealRepo, periodRepo, cfg.AccountReset, logger)

	httpRouter := httprouter.New(httprouter.Services{
		Checkout:    checkoutService,
		Webhook:     webhookService,
		Media:       mediaService,
		Progression: progressionService,
		Library:     libraryService,
		DB:          db,
	}, token.NewJWT(cfg.JWT.Secret, cfg.JWT.Audience), httpcontext.NewManager(), httprouter.Config{
		AllowedOrigins:    cfg.HTTP.AllowedOrigins,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		RateLimitRequests: cfg.HTTP.RateLimitRequests,
		RateLimitWindow:   cfg.HTTP.RateLimitWindow,
		DefaultWeek:       cfg.Media.DefaultWeek,
	}, logger)

	type runningServer struct {
		server model.Server
		layer  model.SecurityLayer
	}
	servers := []runningServer{{
		server: httpserver.NewHTTPServer(httpRouter.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port)),
		layer:  server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
	}}

	if cfg.GRPC.Enabled {
		healthServer := health.NewServer()
		go grpchealth.NewReporter(healthServer, db, logger).Run(ctx, healthProbeInterval)

		servers = append(servers, runningServer{
			server: grpcserver.NewGRPCServer(grpcrouter.New(healthServer, logger).Register(), fmt.Sprintf(":%s", cfg.GRPC.Port)),
			layer:  server.NewPlainListener(),
		})
	}

	var wg sync.WaitGroup
	for _, rs := range servers {
		wg.Add(1)
		go func(s model.Server, sl model.SecurityLayer) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(rs.server, rs.layer)
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, rs := range servers {
		if err := rs.server.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", rs.server.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// newURLCache returns the shared Redis cache when REDIS_ADDR is set and reachable,
// otherwise a per-instance memory cache.
func newURLCache(ctx context.Context, cfg *config.Config, logger *logger.Logger) (model.URLCache, func()) {
	memory := cache.NewMemory(cfg.Media.CacheSize, cfg.Media.URLTTL, time.Now)
	if cfg.Redis.Addr == "" {
		return memory, func() {}
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-process url cache", "addr", cfg.Redis.Addr, "error", err)
		_ = client.Close()
		return memory, func() {}
	}

	return cache.NewRedis(client, cfg.Media.URLTTL, logger), func() { _ = client.Close() }
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/clipstage/share-access-service/internal/adapters/cache"
	eventadapter "github.com/clipstage/share-access-service/internal/adapters/events"
	grpcadapter "github.com/clipstage/share-access-service/internal/adapters/grpc"
	httpadapter "github.com/clipstage/share-access-service/internal/adapters/http"
	"github.com/clipstage/share-access-service/internal/adapters/postgres"
	"github.com/clipstage/share-access-service/internal/adapters/security"
	"github.com/clipstage/share-access-service/internal/application"
	"github.com/clipstage/share-access-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("bootstrapping share access service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	tokenSigner, err := security.NewJWTSigner(cfg.JWTKeyID, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM, cfg.StaffPublicKeyPEM)
	if err != nil {
		if !cfg.AllowEphemeralSecrets {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init jwt signer: %w", err)
		}
		logger.Warn("using ephemeral JWT keys for local/dev runtime")
		tokenSigner, err = security.NewEphemeralJWTSigner(cfg.JWTKeyID)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init ephemeral jwt signer: %w", err)
		}
	}

	cipher, err := security.NewXChaChaPasscodeCipher(cfg.PasscodeKeyBase64)
	if err != nil {
		if !cfg.AllowEphemeralSecrets {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init passcode cipher: %w", err)
		}
		logger.Warn("using ephemeral passcode key for local/dev runtime")
		cipher, err = security.NewEphemeralPasscodeCipher()
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init ephemeral passcode cipher: %w", err)
		}
	}

	kv := cacheadapter.NewRedisStore(redisClient)
	repos := postgres.NewRepositories(pool)

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			MaxAttempts:        cfg.MaxAttempts,
			AttemptWindow:      cfg.AttemptWindow,
			OTPLength:          cfg.OTPLength,
			OTPTTL:             cfg.OTPTTL,
			OTPMaxAttempts:     cfg.OTPMaxAttempts,
			SessionIdleTTL:     cfg.SessionIdleTTL,
			SessionAbsoluteTTL: cfg.SessionAbsoluteTTL,
			ShareTokenTTL:      cfg.ShareTokenTTL,
			ContentTokenTTL:    cfg.ContentTokenTTL,
			IdentifierSalt:     cfg.IdentifierSalt,
			SendLatencyMin:     cfg.SendLatencyMin,
			SendLatencyMax:     cfg.SendLatencyMax,
		},
		Shares:         repos.Shares,
		Assets:         repos.Assets,
		SecurityEvents: repos.SecurityEvents,
		Outbox:         repos.Outbox,
		RateLimits:     cacheadapter.NewKVRateLimitStore(kv),
		Codes:          cacheadapter.NewKVCodeStore(kv),
		Sessions:       cacheadapter.NewKVSessionStore(kv, cfg.SessionIdleTTL, cfg.SessionAbsoluteTTL),
		Cipher:         cipher,
		TokenSigner:    tokenSigner,
	})

	handler := httpadapter.NewHandler(svc, httpadapter.HandlerOptions{
		InternalAPIKey: cfg.InternalAPIKey,
		CookieSecure:   cfg.CookieSecure,
	})
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewContentTokenServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	var publisher ports.EventPublisher
	var publisherClose func() error
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaSecurityTopic, map[string]string{
			"share.otp.dispatch": cfg.KafkaDispatchTopic,
		})
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
		publisherClose = kafkaPublisher.Close
	} else {
		logger.Warn("no kafka brokers configured, events will only be logged")
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		cleanupFn: func(ctx context.Context) {
			if publisherClose != nil {
				_ = publisherClose()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}

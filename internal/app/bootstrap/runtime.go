package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/sweetcrumb/backoffice-auth/internal/adapters/cache"
	grpcadapter "github.com/sweetcrumb/backoffice-auth/internal/adapters/grpc"
	httpadapter "github.com/sweetcrumb/backoffice-auth/internal/adapters/http"
	"github.com/sweetcrumb/backoffice-auth/internal/adapters/notify"
	"github.com/sweetcrumb/backoffice-auth/internal/adapters/postgres"
	"github.com/sweetcrumb/backoffice-auth/internal/adapters/security"
	"github.com/sweetcrumb/backoffice-auth/internal/application"
	"github.com/sweetcrumb/backoffice-auth/internal/domain"
	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

const (
	googleAuthorizationURL = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL         = "https://oauth2.googleapis.com/token"
	googleUserInfoURL      = "https://openidconnect.googleapis.com/v1/userinfo"

	facebookAuthorizationURL = "https://www.facebook.com/v19.0/dialog/oauth"
	facebookTokenURL         = "https://graph.facebook.com/v19.0/oauth/access_token"
	facebookUserInfoURL      = "https://graph.facebook.com/me?fields=id,email,first_name,last_name,picture"
)

type Runtime struct {
	cfg            Config
	logger         *slog.Logger
	httpServer     *http.Server
	grpcServer     *grpc.Server
	grpcLis        net.Listener
	outboxWorker   *notify.Worker
	sessionCleanup *notify.SessionCleanupWorker
	cleanupFn      func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping auth service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	role := domain.Role(cfg.DefaultRole)
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("unknown default role %q", cfg.DefaultRole)
	}

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
		return nil, fmt.Errorf("init redis client: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	keys, err := purposeKeys(cfg, logger)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, err
	}
	tokenIssuer, err := security.NewJWTIssuer(keys)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	states := cacheadapter.NewRedisOAuthStateStore(redisClient)
	limiter := cacheadapter.NewRedisRateLimitStore(redisClient)
	oauthClient := security.NewOAuthClient(security.OAuthClientConfig{
		HTTPClient: &http.Client{Timeout: cfg.OAuthHTTPTimeout},
		Providers: map[domain.Provider]security.OAuthProviderConfig{
			domain.ProviderGoogle: {
				ClientID:         cfg.GoogleClientID,
				ClientSecret:     cfg.GoogleClientSecret,
				AuthorizationURL: googleAuthorizationURL,
				TokenURL:         googleTokenURL,
				UserInfoURL:      googleUserInfoURL,
				Scopes:           []string{"openid", "email", "profile"},
				RedirectURI:      cfg.GoogleRedirectURI,
				Extras:           map[string]string{"access_type": "offline", "prompt": "consent"},
			},
			domain.ProviderFacebook: {
				ClientID:         cfg.FacebookClientID,
				ClientSecret:     cfg.FacebookClientSecret,
				AuthorizationURL: facebookAuthorizationURL,
				TokenURL:         facebookTokenURL,
				UserInfoURL:      facebookUserInfoURL,
				Scopes:           []string{"email", "public_profile"},
				RedirectURI:      cfg.FacebookRedirectURI,
			},
		},
	})

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			DefaultRole:   role,
			OAuthStateTTL: cfg.OAuthStateTTL,
		},
		Users:    repos.Users,
		Sessions: repos.Sessions,
		States:   states,
		OAuth:    oauthClient,
		Hasher:   security.NewBcryptHasher(cfg.BcryptCost),
		Tokens:   tokenIssuer,
		Notifier: notify.NewOutboxNotifier(repos.Outbox),
		Logger:   logger,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := httpadapter.NewMetrics(registry)

	handler := httpadapter.NewHandler(svc, metrics)
	router := httpadapter.NewRouter(handler, limiter, httpadapter.RateLimits{
		LoginPerMinute:    cfg.LoginRatePerMinute,
		RecoveryPerMinute: cfg.RecoveryRatePerMinute,
	})
	mux := http.NewServeMux()
	mux.Handle("/metrics", httpadapter.MetricsHandler(registry))
	mux.Handle("/", router)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewAuthInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	outboxWorker := notify.NewWorker(
		logger,
		repos.Outbox,
		notify.NewLoggingSender(logger),
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)
	sessionCleanup := notify.NewSessionCleanupWorker(logger, svc, cfg.SessionCleanupInterval)

	return &Runtime{
		cfg:            cfg,
		logger:         logger,
		httpServer:     httpServer,
		grpcServer:     grpcServer,
		grpcLis:        lis,
		outboxWorker:   outboxWorker,
		sessionCleanup: sessionCleanup,
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

// purposeKeys builds the per-purpose signing material. Missing secrets are
// generated per process when ephemeral mode is allowed; such tokens do not
// survive a restart.
func purposeKeys(cfg Config, logger *slog.Logger) (map[ports.TokenPurpose]security.PurposeKey, error) {
	secrets := map[ports.TokenPurpose]string{
		ports.PurposeAccess:            cfg.AccessTokenSecret,
		ports.PurposeRefresh:           cfg.RefreshTokenSecret,
		ports.PurposeEmailVerification: cfg.VerificationTokenSecret,
		ports.PurposePasswordReset:     cfg.ResetTokenSecret,
	}
	ttls := map[ports.TokenPurpose]time.Duration{
		ports.PurposeAccess:            cfg.AccessTokenTTL,
		ports.PurposeRefresh:           cfg.RefreshTokenTTL,
		ports.PurposeEmailVerification: cfg.VerificationTokenTTL,
		ports.PurposePasswordReset:     cfg.ResetTokenTTL,
	}

	keys := make(map[ports.TokenPurpose]security.PurposeKey, len(secrets))
	warned := false
	for purpose, secret := range secrets {
		if secret == "" {
			if !cfg.AllowEphemeralSecrets {
				return nil, fmt.Errorf("missing signing secret for %s tokens", purpose)
			}
			if !warned {
				logger.Warn("using ephemeral JWT secrets for local/dev runtime")
				warned = true
			}
			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				return nil, fmt.Errorf("generate ephemeral secret: %w", err)
			}
			secret = hex.EncodeToString(buf)
		}
		keys[purpose] = security.PurposeKey{
			Secret: []byte(secret),
			TTL:    ttls[purpose],
		}
	}
	return keys, nil
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

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("notification worker started")
		errCh <- r.outboxWorker.Run(ctx)
	}()
	go func() {
		r.logger.Info("session cleanup worker started")
		errCh <- r.sessionCleanup.Run(ctx)
	}()

	err := <-errCh
	stop()
	<-errCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

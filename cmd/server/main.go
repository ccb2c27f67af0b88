package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/derekgallardo01/converge-gateway/internal/adapters/converge"
	"github.com/derekgallardo01/converge-gateway/internal/adapters/memory"
	"github.com/derekgallardo01/converge-gateway/internal/adapters/ports"
	"github.com/derekgallardo01/converge-gateway/internal/adapters/postgres"
	"github.com/derekgallardo01/converge-gateway/internal/adapters/secrets"
	"github.com/derekgallardo01/converge-gateway/internal/config"
	"github.com/derekgallardo01/converge-gateway/internal/handlers"
	"github.com/derekgallardo01/converge-gateway/internal/services/checkout"
	"github.com/derekgallardo01/converge-gateway/internal/services/tokens"
	"github.com/derekgallardo01/converge-gateway/pkg/observability"
	"github.com/derekgallardo01/converge-gateway/pkg/resilience"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Secrets backend and Converge credentials.
	secretManager, err := newSecretManager(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init secrets backend: %w", err)
	}

	creds, err := secrets.LoadCredentials(ctx, secretManager)
	if err != nil {
		return fmt.Errorf("load converge credentials: %w", err)
	}

	timeouts := resilience.DefaultTimeoutConfig()
	timeouts.WidgetResult = time.Duration(cfg.Checkout.WidgetWaitSeconds) * time.Second

	client := converge.NewClient(converge.Config{
		Environment:   converge.Environment(cfg.Converge.Environment),
		Credentials:   creds,
		MaxRetries:    cfg.Converge.MaxRetries,
		Timeouts:      timeouts,
		MerchantEmail: cfg.Converge.MerchantEmail,
	}, logger)

	// Token storage: PostgreSQL when configured, in-memory otherwise.
	var tokenStore ports.TokenStore
	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
		if err != nil {
			return fmt.Errorf("parse database config: %w", err)
		}
		poolCfg.MaxConns = cfg.Database.MaxConns
		poolCfg.MinConns = cfg.Database.MinConns

		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		tokenStore = postgres.NewTokenRepository(pool)
		logger.Info("token storage using postgres",
			zap.String("host", cfg.Database.Host))
	} else {
		tokenStore = memory.NewTokenStore()
		logger.Warn("no database configured, tokens held in memory")
	}

	orders := memory.NewOrderSource()

	tokenSvc := tokens.NewService(client, tokenStore, logger)
	orchestrator := checkout.NewOrchestrator(client, tokenSvc, orders, checkout.Config{
		Policy:           checkout.ChargePolicy(cfg.Checkout.ChargePolicy),
		AllowTestAmounts: cfg.Checkout.AllowTestAmounts,
	}, timeouts, logger)

	nonces := handlers.NewNonceStore(time.Duration(cfg.Checkout.NonceTTLSeconds) * time.Second)
	health := observability.NewHealthChecker(pool, secretManager)

	router := handlers.NewRouter(
		handlers.NewCheckoutHandler(orchestrator, client.Builder(), orders, nonces, logger),
		handlers.NewPaymentHandler(orchestrator, orders, logger),
		handlers.NewTokenHandler(tokenSvc, logger),
		handlers.NewDiagnosticsHandler(cfg.Checkout.DiagnosticLogging, logger),
		health.HealthHandler(),
		timeouts.HTTPHandler,
	)

	apiServer := &http.Server{
		Addr:              addr(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              addr(cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("api server listening", zap.String("addr", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics server listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", zap.Error(err))
	}
	return nil
}

func newLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

func newSecretManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SecretManager, error) {
	switch cfg.Secrets.Backend {
	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion)
		awsCfg.Profile = cfg.Secrets.AWSProfile
		awsCfg.Endpoint = cfg.Secrets.AWSEndpoint
		return secrets.NewAWSSecretsManager(ctx, awsCfg, logger)

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.Secrets.VaultAddress)
		vaultCfg.AuthMethod = cfg.Secrets.VaultAuthMethod
		vaultCfg.Token = cfg.Secrets.VaultToken
		vaultCfg.RoleID = cfg.Secrets.VaultRoleID
		vaultCfg.SecretID = cfg.Secrets.VaultSecretID
		vaultCfg.MountPath = cfg.Secrets.VaultMountPath
		vaultCfg.Namespace = cfg.Secrets.VaultNamespace
		return secrets.NewVaultSecretManager(ctx, vaultCfg, logger)

	default:
		return secrets.NewEnvSecretManager("GATEWAY", logger), nil
	}
}

func addr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/event-admission/config"
	"github.com/Eursukkul/event-admission/internal/authz"
	"github.com/Eursukkul/event-admission/internal/badge"
	"github.com/Eursukkul/event-admission/internal/consumer"
	"github.com/Eursukkul/event-admission/internal/handler"
	"github.com/Eursukkul/event-admission/internal/middleware"
	"github.com/Eursukkul/event-admission/internal/repository"
	"github.com/Eursukkul/event-admission/internal/service"
	"github.com/Eursukkul/event-admission/internal/token"
	"github.com/Eursukkul/event-admission/pkg/database"
	"github.com/Eursukkul/event-admission/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("admission service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		return err
	}

	// Repositories
	identityRepo := repository.NewIdentityRepository(db)
	eventRepo := repository.NewEventRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	roomRepo := repository.NewCachedRoomRepository(repository.NewRoomRepository(db), cfg.CacheSize, cfg.CacheTTL)
	activityRepo := repository.NewCachedActivityRepository(repository.NewActivityRepository(db), cfg.CacheSize, cfg.CacheTTL)
	accessLogRepo := repository.NewAccessLogRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	codec, err := badge.NewCodec([]byte(cfg.BadgeKey))
	if err != nil {
		return err
	}
	issuer, err := token.NewIssuer(token.IssuerConfig{
		Secret:        []byte(cfg.JWTSecret),
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RenewalTTL:    cfg.RenewalTokenTTL,
		PreContextTTL: cfg.PreContextTTL,
	})
	if err != nil {
		return err
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return err
	}

	// RabbitMQ: catalog replica in, ledger entries out
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, logger)
	if err != nil {
		return err
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		return err
	}
	catalogDone := consumer.NewCatalogConsumer(consumer.CatalogRepositories{
		Events:      eventRepo,
		Identities:  identityRepo,
		Memberships: membershipRepo,
		Badges:      badgeRepo,
		Rooms:       roomRepo,
		Activities:  activityRepo,
	}, codec, logger).Start(ctx, msgs)

	// Services
	contextSvc := service.NewContextService(identityRepo, membershipRepo, tokenRepo, issuer, logger)
	ledgerSvc := service.NewLedgerService(accessLogRepo, roomRepo, enforcer, logger, service.NewAccessPublisher(publisher, logger))
	verifySvc := service.NewVerificationService(
		codec, identityRepo, membershipRepo, badgeRepo, roomRepo, activityRepo,
		service.NewGrantPaymentOracle(activityRepo), ledgerSvc, enforcer,
		service.VerificationConfig{DuplicateWindow: cfg.DuplicateWindow},
		logger,
	)

	go runJanitor(ctx, contextSvc, cfg.JanitorInterval, logger)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.NewErrorHandler(logger)
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "admission-service"})
	})

	api := e.Group("/api/v1")
	requireSession := middleware.RequireSession(contextSvc)
	handler.NewSessionHandler(contextSvc).RegisterRoutes(api, requireSession)
	handler.NewVerifyHandler(verifySvc).RegisterRoutes(api, requireSession)
	handler.NewLedgerHandler(ledgerSvc).RegisterRoutes(api, requireSession)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("admission service starting", "port", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return err
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-catalogDone
	return nil
}

// runJanitor drops expired renewal records and revoked-token rows.
func runJanitor(ctx context.Context, svc service.ContextService, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("token purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired tokens purged", "rows", n)
			}
		}
	}
}

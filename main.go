package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"collab-service/internal/auth"
	"collab-service/internal/config"
	"collab-service/internal/db"
	"collab-service/internal/events"
	"collab-service/internal/grpcserver"
	"collab-service/internal/handlers"
	"collab-service/internal/logging"
	"collab-service/internal/matching"
	"collab-service/internal/messaging"
	"collab-service/internal/natsbus"
	"collab-service/internal/observability"
	"collab-service/internal/rabbitmq"
	"collab-service/internal/repositories"
	"collab-service/internal/telemetry"
)

const serviceName = "collab-service"

func main() {
	configPath := flag.String("config", os.Getenv("NEXUS_CONFIG"), "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logger, serviceName)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Telemetry, cfg.Server.Environment)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	database, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	publisher := newPublisher(ctx, cfg.Events, logger)
	defer publisher.Close()
	mode, reason := events.Mode(publisher)
	logger.Info("event publisher ready", "mode", mode, "noop_reason", reason)

	var audit *telemetry.AuditEmitter
	if cfg.Audit.Enabled {
		audit = telemetry.NewAuditEmitter(publisher, cfg.Audit.RoutingKey, serviceName, cfg.Server.Environment, logger)
	}
	emitter := events.NewEmitter(publisher, serviceName, mode, logger)

	store := repositories.NewStore(database, cfg.Database.TxMaxAttempts)
	matchService := matching.NewService(store, store.Repos(), emitter, cfg.Matching, logger)
	messageService := messaging.NewService(store, store.Repos(), emitter, logger)

	router := newRouter(cfg, logger, database, audit, matchService, messageService)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer, healthServer := grpcserver.New()
	go grpcserver.WatchDatabase(ctx, healthServer, func(ctx context.Context) error {
		return db.Ping(ctx, database, 2*time.Second)
	}, 15*time.Second, logger)

	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			logger.Error("grpc listen failed", "error", err)
			stop()
			return
		}
		logger.Info("grpc health server listening", "port", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server error", "error", err)
		}
	}()

	go func() {
		logger.Info("http server listening", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", "error", err)
	}
	logger.Info("server gracefully stopped")
}

func newRouter(cfg *config.Config, logger *slog.Logger, database *sqlx.DB, audit *telemetry.AuditEmitter, collab handlers.CollaboratorService, msgs handlers.MessagingService) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(observability.RequestIDMiddleware())
	router.Use(logging.RequestLogger(logger))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context(), database, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := auth.Middleware(auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience, cfg.Auth.Issuer))
	handlers.RegisterRoutes(router, authMiddleware,
		handlers.NewCollaboratorHandler(collab, audit),
		handlers.NewMessageHandler(msgs, audit),
	)
	handlers.RegisterDebugRoutes(router, audit, cfg.Server.DebugRoutes)
	return router
}

// newPublisher picks the broker for domain events. Any failure degrades to a
// noop publisher so the API keeps serving.
func newPublisher(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) events.Publisher {
	switch cfg.Driver {
	case "nats":
		p, err := natsbus.NewPublisher(ctx, cfg.NATSURL, cfg.Stream, cfg.SubjectPrefix, logger)
		if err != nil {
			logger.Warn("nats disabled, using noop", "reason", err)
			return events.Noop{Reason: err.Error(), Logger: logger}
		}
		return p
	case "amqp":
		return rabbitmq.NewPublisher(cfg.AMQPURL, cfg.Exchange, logger)
	default:
		return events.Noop{Reason: "events disabled", Logger: logger}
	}
}

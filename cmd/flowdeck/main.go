package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/flowdeck/flowdeck/pkg/agents"
	"github.com/flowdeck/flowdeck/pkg/api"
	"github.com/flowdeck/flowdeck/pkg/audit"
	"github.com/flowdeck/flowdeck/pkg/config"
	"github.com/flowdeck/flowdeck/pkg/flows"
	"github.com/flowdeck/flowdeck/pkg/groups"
	"github.com/flowdeck/flowdeck/pkg/identity"
	"github.com/flowdeck/flowdeck/pkg/membership"
	"github.com/flowdeck/flowdeck/pkg/observability"
	"github.com/flowdeck/flowdeck/pkg/schedules"
	"github.com/flowdeck/flowdeck/pkg/storage/postgres"
	"github.com/flowdeck/flowdeck/pkg/tenantctx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "flowdeck: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting flowdeck")

	// Database.
	connMgr, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		PrimaryURL:  cfg.Database.URL,
		ReplicaURLs: postgres.ParseReplicaURLs(cfg.Database.ReplicaURLs),
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
	}, logger)
	if err != nil {
		return err
	}
	db := connMgr.Primary()

	if err := postgres.RunMigrations(context.Background(), db); err != nil {
		return err
	}

	// Redis is optional; without it the membership cache runs L1-only and
	// rate limits apply per instance.
	var redisClient *goredis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = postgres.NewRedisClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		logger.Info("redis connected")
	} else {
		logger.Warn("no redis configured, running with in-process caches only")
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	auditLogger, err := buildAuditLogger(cfg, db)
	if err != nil {
		return err
	}

	// Stores and services.
	userStore := identity.NewPostgresStore(db)
	groupStore := groups.NewPostgresStore(db)
	membershipStore, err := membership.NewCachedStore(membership.NewPostgresStore(db), redisClient)
	if err != nil {
		return err
	}

	provisioner := identity.NewProvisioner(userStore, logger)
	bootstrap := identity.NewBootstrap(userStore, groupStore, logger)
	builder := tenantctx.NewBuilder(provisioner, bootstrap, membershipStore, logger)

	groupService := groups.NewService(groupStore, membershipStore, userStore, logger)
	agentService := agents.NewService(agents.NewPostgresStore(db), logger)
	flowService := flows.NewService(flows.NewPostgresStore(db), logger)
	scheduleStore := schedules.NewPostgresStore(db)
	scheduleService := schedules.NewService(scheduleStore, flowService, logger)

	dispatcher := schedules.NewDispatcher(scheduleStore, nil, logger)
	if err := dispatcher.Start("* * * * *"); err != nil {
		return err
	}

	server := api.NewServer(api.Deps{
		Builder:   builder,
		Users:     userStore,
		Groups:    groupService,
		Agents:    agentService,
		Flows:     flowService,
		Schedules: scheduleService,
		Redis:     redisClient,
		Metrics:   metrics,
		Logger:    logger,
	})

	// Requests inherit the logger and audit sink through the base context.
	baseCtx := observability.WithLogger(context.Background(), logger)
	baseCtx = audit.WithLogger(baseCtx, auditLogger)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthRouter(db, redisClient, metrics),
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		dispatcher.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error { return auditLogger.Close() })
	shutdown.RegisterShutdownFunc(func(context.Context) error { return connMgr.Close() })
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	return g.Wait()
}

func buildAuditLogger(cfg *config.Config, db *sql.DB) (audit.Logger, error) {
	switch cfg.Audit.Sink {
	case "none":
		return audit.NopLogger{}, nil
	case "file":
		return audit.NewFileLogger(cfg.Audit.FilePath)
	case "both":
		dbLogger, err := audit.NewDBLogger(db)
		if err != nil {
			return nil, err
		}
		fileLogger, err := audit.NewFileLogger(cfg.Audit.FilePath)
		if err != nil {
			return nil, err
		}
		return audit.NewMultiLogger(dbLogger, fileLogger), nil
	default:
		return audit.NewDBLogger(db)
	}
}

func healthRouter(db *sql.DB, redisClient *goredis.Client, metrics *observability.Metrics) http.Handler {
	router := mux.NewRouter()
	checker := observability.NewHealthChecker(db, redisClient)
	router.HandleFunc("/healthz", checker.Liveness).Methods("GET")
	router.HandleFunc("/readyz", checker.Readiness).Methods("GET")
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
	return router
}

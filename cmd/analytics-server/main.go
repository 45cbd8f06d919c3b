// cmd/analytics-server/main.go
package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"risk-analytics/internal/alerts"
	"risk-analytics/internal/analytics/coverage"
	"risk-analytics/internal/analytics/extraction"
	"risk-analytics/internal/api"
	"risk-analytics/internal/common/auth"
	commonaws "risk-analytics/internal/common/aws"
	"risk-analytics/internal/common/camunda"
	"risk-analytics/internal/common/config"
	"risk-analytics/internal/common/database"
	"risk-analytics/internal/common/errors"
	commonhttp "risk-analytics/internal/common/http"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/common/observability"
	"risk-analytics/internal/ports"
	"risk-analytics/internal/repository/cache"
	"risk-analytics/internal/repository/postgres"
	"risk-analytics/internal/repository/search"
	"risk-analytics/internal/services/analytics"
	cpa "risk-analytics/internal/workers/analytics/calculate-portfolio-analytics"
	dcd "risk-analytics/internal/workers/analytics/detect-coverage-drift"
	erm "risk-analytics/internal/workers/analytics/extract-risk-metrics"
	"risk-analytics/pkg/registry"
)

var version = "dev"

func main() {
	bootLog := logger.New("info", "console")
	defer bootLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("analytics server stopped with error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	log.Info("analytics server stopped", nil)
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	obs := observability.New(cfg.App.Name, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	defer pg.Close()
	if err := database.WaitReady(ctx, pg, 15, 2*time.Second); err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	log.Info("PostgreSQL connected successfully", nil)

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	defer rdb.Close()
	if err := database.WaitReady(ctx, rdb, 10, 2*time.Second); err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	log.Info("Redis connected successfully", nil)

	checks := []api.ReadinessCheck{
		{Name: "postgres", Check: pg.Ping},
		{Name: "redis", Check: rdb.Ping},
	}

	reg, err := loadRegistry(cfg.Registry.ParametersPath)
	if err != nil {
		return err
	}
	log.Info("parameter registry loaded", map[string]interface{}{
		"version":    reg.Version(),
		"parameters": len(reg.Parameters()),
	})

	repo := postgres.NewPortfolioRepository(pg, log)
	analyticsCache := cache.NewAnalyticsCache(rdb.Client)
	deps := analytics.Dependencies{
		Repository:    repo,
		Cache:         analyticsCache,
		Extractor:     extraction.NewExtractor(reg, log),
		Observability: obs,
		Logger:        log,
	}

	// --- Elasticsearch (optional) ---
	if cfg.Database.Elasticsearch.Enabled() {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		if err := database.WaitReady(ctx, es, 5, 2*time.Second); err != nil {
			log.Warn("elasticsearch unavailable, benchmarks use the current page", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			deps.Peers = search.NewPeerSearch(es.Client, cfg.Database.Elasticsearch.PeerIndex, log)
			checks = append(checks, api.ReadinessCheck{Name: "elasticsearch", Check: es.Ping})
			log.Info("Elasticsearch connected successfully", nil)
		}
	}

	notifier, err := buildNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}
	if notifier != nil {
		deps.Notifier = notifier
	}

	svc := analytics.NewService(deps, analytics.Options{
		CacheTTL:           time.Duration(cfg.Analytics.CacheTTL) * time.Second,
		DefaultPageSize:    cfg.Analytics.DefaultPageSize,
		MaxPageSize:        cfg.Analytics.MaxPageSize,
		Folds:              cfg.Analytics.Folds,
		HoldoutRatio:       cfg.Analytics.HoldoutRatio,
		HoldoutSeed:        cfg.Analytics.HoldoutSeed,
		PeerLimit:          cfg.Analytics.PeerLimit,
		DriftAlertSeverity: coverage.DriftSeverity(cfg.Analytics.DriftAlertSeverity),
		DriftAlertCooldown: time.Duration(cfg.Analytics.DriftAlertCooldown) * time.Second,
	})

	// --- Zeebe workers (optional) ---
	if cfg.Camunda.Enabled {
		zb, err := camunda.NewClient(camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		if err != nil {
			return err
		}
		defer zb.Close()
		checks = append(checks, api.ReadinessCheck{Name: "zeebe", Check: zb.HealthCheck})

		workers := startWorkers(zb, cfg, repo, svc, analyticsCache, deps.Notifier, obs, log)
		defer func() {
			for _, w := range workers {
				w.Close()
				w.AwaitClose()
			}
		}()
	}

	server := api.NewServer(svc, tokenValidator(cfg), checks, api.Config{
		RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Version:        version,
	}, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("analytics API listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining requests", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default(), nil
	}
	return registry.LoadFile(path)
}

func tokenValidator(cfg *config.Config) ports.TokenValidator {
	if !cfg.Auth.Enabled {
		return nil
	}
	kc := cfg.Auth.Keycloak
	return auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret,
		commonhttp.NewClient(config.GetDuration(kc.Timeout)))
}

// buildNotifier returns nil when no alert channel is enabled.
func buildNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) (*alerts.Notifier, error) {
	n := cfg.Notifications
	if !n.SNS.Enabled && !n.Email.Enabled {
		return nil, nil
	}
	awsCfg, err := commonaws.LoadConfig(ctx, n.AWS.Region)
	if err != nil {
		return nil, err
	}

	var (
		publisher alerts.TopicPublisher
		sender    alerts.EmailSender
		alertCfg  alerts.Config
	)
	if n.SNS.Enabled {
		publisher = commonaws.NewSNSClient(awsCfg)
		alertCfg.TopicARN = n.SNS.TopicARN
	}
	if n.Email.Enabled {
		sender = commonaws.NewSESClient(awsCfg)
		alertCfg.FromEmail = n.Email.FromEmail
		alertCfg.Recipients = n.Email.Recipients
	}
	log.Info("drift alert channels configured", map[string]interface{}{
		"sns":   n.SNS.Enabled,
		"email": n.Email.Enabled,
	})
	return alerts.NewNotifier(publisher, sender, alertCfg, log), nil
}

func startWorkers(zb *camunda.Client, cfg *config.Config, repo ports.PortfolioRepository, svc *analytics.Service,
	analyticsCache *cache.AnalyticsCache, notifier ports.DriftNotifier, obs *observability.Observability, log logger.Logger) []worker.JobWorker {
	var started []worker.JobWorker
	open := func(taskType string, handler camunda.HandlerFunc) {
		if w := camunda.StartWorker(zb.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, log); w != nil {
			started = append(started, w)
		}
	}

	extractCfg := config.GetWorkerConfig(cfg, erm.TaskType)
	open(erm.TaskType, erm.NewHandler(erm.LoadConfig(extractCfg), repo, svc, analyticsCache, obs, log).Handle)

	calcCfg := config.GetWorkerConfig(cfg, cpa.TaskType)
	open(cpa.TaskType, cpa.NewHandler(cpa.LoadConfig(calcCfg), svc, obs, log).Handle)

	driftCfg := config.GetWorkerConfig(cfg, dcd.TaskType)
	open(dcd.TaskType, dcd.NewHandler(dcd.LoadConfig(driftCfg, cfg.Analytics), repo, notifier, obs, log).Handle)

	log.Info("workers registered", map[string]interface{}{"count": len(started)})
	return started
}

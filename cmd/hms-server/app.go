package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/domain/claims"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/reporting"
	"github.com/hms/hms/internal/domain/scheduling"
	"github.com/hms/hms/internal/domain/vitals"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/blobstore"
	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/hms/hms/internal/platform/telemetry"
	"github.com/hms/hms/internal/seed"
	"github.com/hms/hms/internal/store"
	"github.com/hms/hms/internal/store/postgres"
	"github.com/hms/hms/internal/store/sqlite"
)

// eventBuffer is the store-side buffer feeding the event hub.
const eventBuffer = 256

// Long-lived streams and archive uploads run without the request deadline.
var untimedPaths = []string{"/api/v1/events", "/api/v1/ws", "/api/v1/reports/archive"}

type pinger interface {
	Ping(ctx context.Context) error
}

// app holds everything the server and the maintenance commands share.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	store   *store.Store
	blobs   blobstore.Store
	health  pinger

	patients   *patient.Service
	billing    *billing.Service
	vitals     *vitals.Service
	scheduling *scheduling.Service
	claims     *claims.Service
	catalog    *catalog.Service
	reports    *reporting.Service

	hub         *events.Hub
	stopHub     func()
	hubCancel   context.CancelFunc
	hubDone     chan struct{}
	schedule    *reporting.Scheduler
	stopTracing telemetry.ShutdownFunc
}

// newApp opens the store and blob store and builds the services. The HTTP
// surface is built separately by routes.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: telemetry.NewMetrics()}

	st, health, err := openStore(ctx, cfg, logger, a.metrics)
	if err != nil {
		return nil, err
	}
	a.store, a.health = st, health

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	a.blobs = blobs

	a.patients = patient.NewService(st, logger)
	a.billing = billing.NewService(st, logger)
	a.vitals = vitals.NewService(st, logger)
	a.scheduling = scheduling.NewService(st, logger)
	a.claims = claims.NewService(st, logger)
	a.catalog = catalog.NewService(st, logger)
	a.reports = reporting.NewService(st, blobs, logger)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger, obs store.Observer) (*store.Store, pinger, error) {
	opts := []store.Option{store.WithLogger(logger), store.WithObserver(obs)}
	var health pinger

	switch cfg.StoreDriver {
	case config.StoreSQLite:
		p, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		opts = append(opts, store.WithPersister(p))
		health = p
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		p, err := postgres.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		opts = append(opts, store.WithPersister(p))
		health = p
	}

	st := store.New(opts...)
	found, err := st.Load(ctx)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	logger.Info().Str("driver", cfg.StoreDriver).Bool("snapshot", found).Msg("store opened")
	return st, health, nil
}

func openBlobs(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if cfg.BlobDriver != config.BlobS3 {
		return blobstore.NewMemory(), nil
	}
	s3, err := blobstore.NewS3(ctx, blobstore.S3Config{
		Bucket:    cfg.BlobS3Bucket,
		Region:    cfg.BlobS3Region,
		Endpoint:  cfg.BlobS3Endpoint,
		PathStyle: cfg.BlobS3PathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("open s3 blob store: %w", err)
	}
	return s3, nil
}

func (a *app) jwtConfig() auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:     a.cfg.AuthIssuer,
		Audience:   a.cfg.AuthAudience,
		SigningKey: []byte(a.cfg.AuthSigningKey),
	}
}

// seedDemo loads demo records into an empty store.
func (a *app) seedDemo(ctx context.Context) error {
	counts, err := seed.Load(ctx, a.store, a.logger)
	if errors.Is(err, seed.ErrNotEmpty) {
		a.logger.Info().Msg("store already has data, demo seed skipped")
		return nil
	}
	if err != nil {
		return err
	}
	a.logger.Info().Int("patients", counts[store.EntityPatient]).Msg("demo data seeded")
	return nil
}

// startBackground starts the event hub and, when enabled, the daily report
// archive.
func (a *app) startBackground(ctx context.Context) error {
	a.hub = events.NewHub(a.logger)
	in, unsubscribe := a.store.Subscribe(eventBuffer)
	hubCtx, cancel := context.WithCancel(ctx)
	a.stopHub, a.hubCancel, a.hubDone = unsubscribe, cancel, make(chan struct{})
	go func() {
		defer close(a.hubDone)
		a.hub.Run(hubCtx, in)
	}()

	if err := a.metrics.RegisterGauge("event_clients", "Connected event stream clients.", func() float64 {
		return float64(a.hub.ClientCount())
	}); err != nil {
		return err
	}
	if err := a.metrics.RegisterGauge("low_stock_items", "Active medicines, consumables and vaccines at or below their reorder level.", func() float64 {
		items, err := a.catalog.LowStock(context.Background())
		if err != nil {
			return 0
		}
		return float64(len(items))
	}); err != nil {
		return err
	}

	if a.cfg.ReportScheduleEnabled {
		sched, err := a.reports.StartDailyArchive(a.cfg.ReportScheduleAt, time.Local)
		if err != nil {
			return err
		}
		a.schedule = sched
	}
	return nil
}

// routes builds the HTTP surface. startBackground must run first.
func (a *app) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.Tracing(nil))
	e.Use(middleware.Metrics(a.metrics))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(a.cfg.BodyLimit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/ready", a.ready)
	e.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))

	var authMW echo.MiddlewareFunc
	if a.cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(a.jwtConfig())
	} else {
		authMW = auth.JWTMiddleware(a.jwtConfig())
	}
	apiV1 := e.Group("/api/v1",
		authMW,
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: a.cfg.RateLimitRPS,
			BurstSize:         a.cfg.RateLimitBurst,
		}),
		middleware.Audit(a.logger),
		middleware.RequestTimeout(a.cfg.RequestTimeout, untimedPaths...),
	)

	patient.NewHandler(a.patients).RegisterRoutes(apiV1)
	billing.NewHandler(a.billing).RegisterRoutes(apiV1)
	vitals.NewHandler(a.vitals).RegisterRoutes(apiV1)
	scheduling.NewHandler(a.scheduling).RegisterRoutes(apiV1)
	claims.NewHandler(a.claims).RegisterRoutes(apiV1)
	catalog.NewHandler(a.catalog).RegisterRoutes(apiV1)
	reporting.NewHandler(a.reports).RegisterRoutes(apiV1)
	events.NewHandler(a.hub, a.cfg.CORSOrigins).RegisterRoutes(apiV1)

	return e
}

func (a *app) ready(c echo.Context) error {
	status := map[string]string{"status": "ok", "store": a.cfg.StoreDriver}
	if a.health != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := a.health.Ping(ctx); err != nil {
			status["status"] = "unavailable"
			status["error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, status)
		}
	}
	return c.JSON(http.StatusOK, status)
}

// close stops background work and releases the store. It is safe to call
// on a partially started app.
func (a *app) close(ctx context.Context) error {
	if a.schedule != nil {
		a.schedule.Stop()
	}
	if a.hubCancel != nil {
		a.stopHub()
		a.hubCancel()
		<-a.hubDone
	}
	var errs []error
	if a.stopTracing != nil {
		if err := a.stopTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop tracing: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicgrid/libs/auth"
	"github.com/md-rashed-zaman/clinicgrid/libs/config"
	"github.com/md-rashed-zaman/clinicgrid/libs/db"
	"github.com/md-rashed-zaman/clinicgrid/libs/grpcx"
	"github.com/md-rashed-zaman/clinicgrid/libs/httpx"
	"github.com/md-rashed-zaman/clinicgrid/libs/kafkax"
	otelx "github.com/md-rashed-zaman/clinicgrid/libs/otel"
	"github.com/md-rashed-zaman/clinicgrid/libs/runtime"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/cache"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/consumer"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/handlers"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/inbox"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/source"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const grpcHealthService = "clinicgrid.schedule"

func main() {
	service := config.String("SERVICE_NAME", "schedule-service")
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	port, err := config.Port("PORT", "8090")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
	loc, err := config.Location("TIMEZONE", "Local")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	stoppers := map[string]runtime.Stopper{}

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		stoppers["otel"] = runtime.StopperFunc(otelShutdown)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
	pool, err := db.Open(ctx, dbURL, db.PoolConfig{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.String("REDIS_ADDR", "localhost:6379"),
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	defer func() { _ = rdb.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	gridMetrics := metrics.NewGridMetrics(reg)

	availabilityRepo := storage.NewAvailabilityRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository()
	availabilityCache := cache.NewAvailabilityCache(rdb, config.Duration("AVAILABILITY_CACHE_TTL", 5*time.Minute))

	availabilitySvc := source.NewAvailabilityService(availabilityRepo, availabilityCache, outboxRepo, logger)
	bookingSvc := source.NewBookingService(bookingRepo, logger)
	loader := source.NewLoader(availabilitySvc, bookingSvc, gridMetrics, logger)

	brokers := config.String("KAFKA_BROKERS", "")

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	if len(kafkax.SplitBrokers(brokers)) > 0 {
		projector := consumer.NewBookingProjector(bookingRepo, logger)
		eventConsumer := consumer.New(logger, pool, inbox.NewRepository(), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topics:  config.List("KAFKA_BOOKING_TOPICS", strings.Join(consumer.DefaultBookingTopics, ",")),
		}, consumer.Counted(projector.Handle, gridMetrics))
		go eventConsumer.Run(ctx)
	} else {
		logger.Warn("booking consumer disabled (no kafka brokers configured)")
	}

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "redis", Check: cache.ReadyCheck(rdb), Optional: true},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers), Optional: true},
	}
	if addr := config.String("UPSTREAM_GRPC_HEALTH_ADDR", ""); addr != "" {
		conn, err := grpcx.NewClient(addr, grpcx.DialOptions{})
		if err != nil {
			logger.Error("upstream grpc client failed", "addr", addr, "err", err)
		} else {
			defer func() { _ = conn.Close() }()
			readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "upstream", Check: grpcx.HealthReadyCheck(conn, ""), Optional: true})
		}
	}

	var verifier *auth.Verifier
	jwtSecret := config.String("JWT_SECRET", "")
	jwksURL := config.String("JWKS_URL", "")
	if jwtSecret != "" || jwksURL != "" {
		verifier = &auth.Verifier{Secret: jwtSecret}
		if jwksURL != "" {
			verifier.Keys = auth.NewJWKSClient(jwksURL, config.Duration("JWKS_CACHE_TTL", 5*time.Minute))
		}
	} else {
		logger.Warn("schedule api is unauthenticated (JWT_SECRET and JWKS_URL unset)")
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handlers.Register(mux,
		handlers.NewScheduleHandler(loader, gridMetrics, logger, loc),
		handlers.NewAvailabilityHandler(availabilitySvc, logger),
		verifier,
	)

	var rateLimit httpx.Middleware
	if perMinute := config.Int("RATE_LIMIT_PER_MINUTE", 0); perMinute > 0 {
		if config.Bool("RATE_LIMIT_REDIS", false) {
			rateLimit = httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, "schedule:rl").Middleware(logger, true)
		} else {
			rateLimit = httpx.NewRateLimiter(perMinute, time.Minute).Middleware()
		}
	}

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		rateLimit,
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(config.Duration("HTTP_HANDLER_TIMEOUT", 10*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, "schedule")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stoppers["http"] = srv

	grpcSrv, health := grpcx.NewServer(logger)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		os.Exit(1)
	}
	health.SetServingStatus(grpcHealthService, healthpb.HealthCheckResponse_SERVING)
	stoppers["grpc"] = runtime.StopperFunc(func(ctx context.Context) error {
		health.Shutdown()
		done := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			grpcSrv.Stop()
			return ctx.Err()
		}
	})

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	runtime.ShutdownAll(logger, 10*time.Second, stoppers, "grpc", "http", "otel")
}

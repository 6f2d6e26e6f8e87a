package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/slotline/scheduling/internal/audit"
	"github.com/slotline/scheduling/internal/booking"
	"github.com/slotline/scheduling/internal/consumer"
	"github.com/slotline/scheduling/internal/handlers"
	"github.com/slotline/scheduling/internal/inbox"
	"github.com/slotline/scheduling/internal/outbox"
	"github.com/slotline/scheduling/internal/queue"
	"github.com/slotline/scheduling/internal/schedule"
	"github.com/slotline/scheduling/internal/storage"
	"github.com/slotline/scheduling/internal/waitlist"
	"github.com/slotline/scheduling/libs/config"
	"github.com/slotline/scheduling/libs/db"
	"github.com/slotline/scheduling/libs/httpx"
	"github.com/slotline/scheduling/libs/kafkax"
	otelx "github.com/slotline/scheduling/libs/otel"
	"github.com/slotline/scheduling/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool, outboxRepo)
	scheduleRepo := storage.NewScheduleRepository(pool)
	queueRepo := storage.NewQueueRepository(pool)
	waitlistRepo := storage.NewWaitlistRepository(pool, outboxRepo)
	directoryRepo := storage.NewDirectoryRepository(pool)
	auditRepo := audit.NewRepository(pool)

	scheduleSvc := schedule.NewService(scheduleRepo, directoryRepo, logger)
	bookingSvc := booking.NewService(appointmentRepo, scheduleSvc, directoryRepo, auditRepo, logger)
	queueSvc := queue.NewService(queueRepo, logger)
	waitlistSvc := waitlist.NewService(waitlistRepo, logger)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	// The matcher listens on our own cancellation topic: a freed slot is
	// surfaced against the day's waiting list.
	inboxRepo := inbox.NewRepository(pool)
	matchConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: kafkaBrokers,
		GroupID: config.String("KAFKA_GROUP_ID", "scheduling-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", outbox.EventAppointmentCancelled),
	}, consumer.CancellationHandler(waitlistSvc, logger))
	go matchConsumer.Run(ctx)

	api := handlers.NewAPI(bookingSvc, scheduleSvc, queueSvc, waitlistSvc, logger, jwtSecret)
	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)},
	)
	api.Register(mux)

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.String("RATE_LIMIT_FAIL_OPEN", "true") == "true")
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id,Idempotency-Key")),
			AllowCredentials: config.String("CORS_ALLOW_CREDENTIALS", "false") == "true",
			MaxAge:           time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 600)) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

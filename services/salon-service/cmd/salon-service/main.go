package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/drafts"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/handlers"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/payments"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/queries"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/realtime"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/resolver"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/session"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/migrations"
)

func main() {
	_ = config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "salon-service")
	port, err := config.Port("PORT", "8080")
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
	if config.Bool("MIGRATE_ON_START", false) {
		if err := migrate(dbURL, logger); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.String("REDIS_ADDR", "localhost:6379"),
		Password: config.String("REDIS_PASSWORD", ""),
	})
	defer func() { _ = rdb.Close() }()

	m := metrics.New(nil)
	box := outbox.NewRepository()
	appts := storage.NewAppointmentRepository(pool, box)
	sales := storage.NewSaleRepository(pool, box)
	staff := storage.NewStaffRepository(pool, box)
	services := storage.NewServiceRepository(pool, box)
	clients := storage.NewClientRepository(pool, box)
	users := storage.NewUserRepository(pool, box)
	tokens := storage.NewRefreshRepository(pool)

	lookupTTL, err := config.Duration("LOOKUP_CACHE_TTL", 5*time.Minute)
	if err != nil {
		panic(err)
	}
	lookups := resolver.New(resolver.Config{
		Staff:    staff,
		Services: services,
		Clients:  clients,
		Redis:    rdb,
		TTL:      lookupTTL,
		Metrics:  m,
		Logger:   logger,
	})
	reads := queries.New(queries.Deps{
		Appointments: appts,
		Staff:        staff,
		Services:     services,
		Clients:      clients,
		Sales:        sales,
		Resolver:     lookups,
	})

	charger := payments.Router{}
	if key := config.String("STRIPE_SECRET_KEY", ""); key != "" {
		charger.Card = payments.NewStripeCharger(key, config.String("PAYMENT_CURRENCY", "usd"))
		logger.Info("card payments enabled (stripe)")
	}
	life := lifecycle.NewService(lifecycle.Deps{
		Appointments: appts,
		Sales:        sales,
		Charger:      charger,
		Notices:      lookups,
		Metrics:      m,
		Logger:       logger,
	})
	booker := lifecycle.NewBooker(appts, lookups, m, logger)

	draftTTL, err := config.Duration("DRAFT_TTL", 30*time.Minute)
	if err != nil {
		panic(err)
	}
	accessTTL, err := config.Duration("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		panic(err)
	}
	refreshTTL, err := config.Duration("REFRESH_TOKEN_TTL", 30*24*time.Hour)
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	signer, err := auth.NewSigner(jwtSecret, service, accessTTL)
	if err != nil {
		panic(err)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	hub := realtime.NewHub()
	publisher := outbox.NewPublisher(pool, box, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: time.Second,
		BatchSize: 50,
		RetainFor: 7 * 24 * time.Hour,
		Local:     realtime.NewLocalSink(hub, lookups, logger),
	})
	go publisher.Run(ctx)

	if brokers != "" {
		feed := realtime.NewFeed(hub, lookups, logger, realtime.FeedConfig{
			Brokers:     brokers,
			GroupPrefix: config.String("LIVE_GROUP_PREFIX", "salon-live"),
		})
		go feed.Run(ctx)
	} else {
		logger.Warn("live changes stay on this instance (no kafka brokers configured)")
	}

	origins := config.List("CORS_ALLOWED_ORIGINS")
	live := realtime.NewSocket(realtime.SocketConfig{
		Queries:        reads,
		Hub:            hub,
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: origins,
	})

	api := handlers.New(handlers.Deps{
		Queries:    reads,
		Lifecycle:  life,
		Booker:     booker,
		Drafts:     drafts.NewStore(rdb, draftTTL),
		Services:   services,
		Staff:      staff,
		Clients:    clients,
		Users:      users,
		Tokens:     tokens,
		Lookups:    lookups,
		Signer:     signer,
		RefreshTTL: refreshTTL,
		Live:       live,
		Logger:     logger,
	})

	sessions := session.Resolver{Tokens: signer, Roles: users, Clients: clients, Logger: logger}
	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkax.SplitBrokers(brokers))})
	}
	router := runtime.NewBaseRouterWithReady(checks...)
	router.Handle("/metrics", promhttp.Handler())
	router.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		api.Routes(r)
	})

	perMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	var rateLimit httpx.Middleware
	if config.Bool("RATE_LIMIT_REDIS", true) {
		rateLimit = httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, "salon:rl", httpx.ClientIP).
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", perMinute)
	} else {
		rateLimit = httpx.NewRateLimiter(perMinute, time.Minute, httpx.ClientIP).Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", perMinute)
	}

	handler := httpx.Chain(router,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, m.ObserveHTTP),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(1<<20),
		rateLimit,
	)
	handler = otelhttp.NewHandler(handler, "salon")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	if err := startGrpcServer(ctx, logger); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func migrate(dbURL string, logger *slog.Logger) error {
	mg, err := db.NewMigrator(dbURL, migrations.FS, "")
	if err != nil {
		return err
	}
	defer func() { _ = mg.Close() }()
	if err := mg.Up(); err != nil {
		return err
	}
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/grpcx"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/inbox"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/notify"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/sms"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/migrations"
)

func main() {
	_ = config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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
		mg, err := db.NewMigrator(dbURL, migrations.FS, "notification_schema_migrations")
		if err != nil {
			panic(err)
		}
		if err := mg.Up(); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
		_ = mg.Close()
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	emailSender, err := email.New(ctx, email.Config{
		Provider:       config.String("EMAIL_PROVIDER", "smtp"),
		From:           email.From{Email: config.String("EMAIL_FROM", "no-reply@salonbook.local"), Name: config.String("EMAIL_FROM_NAME", "Salon")},
		SMTPHost:       config.String("SMTP_HOST", "mailpit"),
		SMTPPort:       config.String("SMTP_PORT", "1025"),
		SendGridAPIKey: config.String("SENDGRID_API_KEY", ""),
		AWSRegion:      config.String("AWS_REGION", ""),
	}, logger)
	if err != nil {
		logger.Error("email provider init failed", "err", err)
		panic(err)
	}
	smsSender := sms.New(
		config.String("SMS_PROVIDER", "noop"),
		config.String("SMS_WEBHOOK_URL", ""),
		config.String("SMS_WEBHOOK_TOKEN", ""),
	)
	logger.Info("notification providers", "email", emailSender.ProviderID(), "sms", smsSender.ProviderID())

	notifier := notify.New(emailSender, smsSender, storage.NewRepository(pool), config.String("SALON_NAME", ""), logger)

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		eventConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
			Topics:  notify.Topics(),
		}, notifier.Handle)
		go eventConsumer.Run(ctx)
	} else {
		logger.Warn("event consumer disabled (no kafka brokers configured)")
	}

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkax.SplitBrokers(brokers))})
	}
	if addr := config.String("SALON_GRPC_ADDR", ""); addr != "" {
		conn, err := grpcx.Dial(addr, grpcx.DialOptions{})
		if err != nil {
			logger.Error("salon grpc dial failed", "err", err)
		} else {
			defer func() { _ = conn.Close() }()
			checks = append(checks, runtime.ReadyCheck{Name: "salon", Check: grpcx.HealthReadyCheck(conn, "salon")})
		}
	}

	router := runtime.NewBaseRouterWithReady(checks...)
	handler := httpx.Chain(router,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
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

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

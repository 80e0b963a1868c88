package cmd

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jarvis4everyone/jarvis-backend/api"
	"github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/auth"
	authPostgres "github.com/jarvis4everyone/jarvis-backend/internal/auth/postgres"
	"github.com/jarvis4everyone/jarvis-backend/internal/contact"
	contactPostgres "github.com/jarvis4everyone/jarvis-backend/internal/contact/postgres"
	"github.com/jarvis4everyone/jarvis-backend/internal/core/events"
	"github.com/jarvis4everyone/jarvis-backend/internal/download"
	"github.com/jarvis4everyone/jarvis-backend/internal/payment"
	paymentPostgres "github.com/jarvis4everyone/jarvis-backend/internal/payment/postgres"
	"github.com/jarvis4everyone/jarvis-backend/internal/paymentgateway"
	"github.com/jarvis4everyone/jarvis-backend/internal/report"
	"github.com/jarvis4everyone/jarvis-backend/internal/scheduler"
	"github.com/jarvis4everyone/jarvis-backend/internal/subscription"
	subscriptionPostgres "github.com/jarvis4everyone/jarvis-backend/internal/subscription/postgres"
	"github.com/jarvis4everyone/jarvis-backend/internal/transport/rest"
	"github.com/jarvis4everyone/jarvis-backend/internal/transport/swagger"
	"github.com/jarvis4everyone/jarvis-backend/internal/user"
	userPostgres "github.com/jarvis4everyone/jarvis-backend/internal/user/postgres"
	"github.com/jarvis4everyone/jarvis-backend/pkg/logger"
	"github.com/jarvis4everyone/jarvis-backend/pkg/mailer"
	"github.com/jarvis4everyone/jarvis-backend/pkg/rabbitmq"
	"github.com/jarvis4everyone/jarvis-backend/pkg/telemetry"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config    *internal.Config
	DB        *sqlx.DB
	Gorm      *gorm.DB
	Router    *chi.Mux
	EventBus  *events.EventBus
	Webhooks  *paymentgateway.WorkerPool
	Scheduler *scheduler.Scheduler
	Producer  rabbitmq.Publisher
	Tracing   func(context.Context) error
	Logger    *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	log := deps.Logger

	addr := fmt.Sprintf(":%d", deps.Config.ListenPort())
	log.Info("Starting HTTP server",
		"address", addr,
		"env", deps.Config.App.Env,
		"cors_origins", deps.Config.Server.CORSOrigins())

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}
		deps.Close(ctx)
	case err := <-serverErrChan:
		if err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			deps.Close(context.Background())
			os.Exit(1)
		}
	}

	log.Info("Server stopped")
}

// Close stops background work in reverse start order.
func (d *Dependencies) Close(ctx context.Context) {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.Webhooks != nil {
		d.Webhooks.Shutdown()
	}
	if d.EventBus != nil {
		d.EventBus.Wait()
	}
	if d.Producer != nil {
		d.Producer.Close()
	}
	if d.Tracing != nil {
		if err := d.Tracing(ctx); err != nil {
			d.Logger.Error("Tracer shutdown error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	if _, err := swagger.Load(context.Background(), api.OpenAPI); err != nil {
		return nil, err
	}

	tracing, err := telemetry.Setup(context.Background(), telemetry.Config{
		Enabled:     config.Observability.Tracing.Enabled,
		ServiceName: config.Observability.Tracing.ServiceName,
		Endpoint:    config.Observability.Tracing.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		Router:   chi.NewRouter(),
		EventBus: events.NewEventBus(log),
		Tracing:  tracing,
		Logger:   log,
	}

	deps.Producer = initProducer(config.Broker, log)
	if config.Broker.URL != "" {
		events.ForwardTo(deps.EventBus, deps.Producer, config.Broker.Exchange, log)
	}

	handlers, err := wireServices(deps)
	if err != nil {
		deps.Close(context.Background())
		return nil, err
	}

	rest.RegisterAllRoutes(deps.Router, rest.RouterConfig{
		DB: db.DB,
		Health: rest.HealthInfo{
			AppName:           config.App.Name,
			Version:           config.App.Version,
			SubscriptionPrice: config.Subscription.Price,
			CORSOrigins:       config.Server.CORSOrigins(),
			RawCORSOrigins:    config.Server.AllowedOrigins,
		},
		OpenAPI: api.OpenAPI,
		Logger:  log,
	}, handlers)

	return deps, nil
}

func wireServices(deps *Dependencies) (rest.Handlers, error) {
	config := deps.Config
	log := deps.Logger

	subscriptionService := subscription.NewService(subscriptionPostgres.NewSubscriptionRepository(deps.Gorm), deps.EventBus, log)

	tokenGen, err := auth.NewJWTTokenGenerator(
		config.Security.JWTSecretKey,
		config.Security.JWTAlgorithm,
		config.Security.AccessTokenTTL(),
		config.Security.RefreshTokenTTL())
	if err != nil {
		return rest.Handlers{}, err
	}
	authService := auth.NewService(
		authPostgres.NewUserRepository(deps.Gorm),
		authPostgres.NewRefreshTokenRepository(deps.Gorm),
		tokenGen,
		subscriptionService,
		config.Security.BCryptCost,
		log)

	userService := user.NewService(userPostgres.NewUserRepository(deps.Gorm), subscriptionService, authService, authService, log)

	gateway := paymentgateway.NewClient(paymentgateway.Config{
		APIURL:         config.Payment.APIURL,
		KeyID:          config.Payment.RazorpayKeyID,
		KeySecret:      config.Payment.RazorpayKeySecret,
		WebhookSecret:  config.Payment.RazorpayWebhookSecret,
		RequestTimeout: config.Payment.RequestTimeout,
		MaxRetries:     config.Payment.MaxRetries,
		RetryBaseDelay: config.Payment.RetryBaseDelay,
	}, log)
	paymentService := payment.NewService(paymentPostgres.NewPaymentRepository(deps.Gorm), gateway, subscriptionService, deps.EventBus, log)

	deps.Webhooks = paymentgateway.NewWorkerPool(paymentgateway.PoolConfig{
		MaxWorkers:   config.Payment.MaxWorkers,
		JobQueueSize: config.Payment.JobQueueSize,
	}, paymentService.ProcessWebhookJob, log)
	deps.Webhooks.Start()
	paymentService.SetJobQueue(deps.Webhooks)

	contactService := contact.NewService(contactPostgres.NewContactRepository(deps.Gorm), deps.EventBus, log)

	sender := initMailer(config.Mail, log)
	payment.NewEventHandler(sender, log).RegisterEventHandlers(deps.EventBus)
	contact.NewEventHandler(sender, config.Mail.AdminEmail, log).RegisterEventHandlers(deps.EventBus)

	downloadPath, err := download.ResolvePath(config.Download.FilePath)
	if err != nil {
		log.Warn("download file not found, downloads will fail until it is provided",
			"path", config.Download.FilePath)
		downloadPath = config.Download.FilePath
	}
	downloadService := download.NewService(subscriptionService, downloadPath, log)

	if config.Scheduler.Enabled {
		deps.Scheduler = scheduler.NewScheduler(
			scheduler.NewJobs(subscriptionService, authService, log),
			scheduler.Config{ExpirySchedule: config.Scheduler.ExpirySchedule},
			log)
		if err := deps.Scheduler.Start(); err != nil {
			return rest.Handlers{}, fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	return rest.Handlers{
		Auth: auth.NewHandler(authService, auth.CookieConfig{
			Secure: !config.App.Debug,
			MaxAge: config.Security.RefreshTokenTTL(),
		}),
		User:         user.NewHandler(userService),
		Subscription: subscription.NewHandler(subscriptionService),
		Payment:      payment.NewHandler(paymentService),
		Download:     download.NewHandler(downloadService, config.Download.FileName),
		Contact:      contact.NewHandler(contactService),
		Report:       report.NewHandler(report.NewRepository(deps.DB)),
	}, nil
}

func initMailer(cfg internal.MailConfig, log *slog.Logger) mailer.Sender {
	if !cfg.Enabled() {
		log.Info("SMTP not configured, notification mail is logged only")
		return mailer.LogSender{Logger: log}
	}
	return mailer.NewSMTPSender(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.FromEmail,
	})
}

// initProducer connects to the broker when one is configured. A broker that
// cannot be reached at startup does not stop the API.
func initProducer(cfg internal.BrokerConfig, log *slog.Logger) rabbitmq.Publisher {
	if cfg.URL == "" {
		return &rabbitmq.NoopProducer{Logger: log}
	}
	producer, err := rabbitmq.NewProducer(cfg.URL, log)
	if err != nil {
		log.Warn("broker unavailable, events stay in process", "error", err)
		return &rabbitmq.NoopProducer{Logger: log}
	}
	log.Info("forwarding events to broker", "exchange", cfg.Exchange)
	return producer
}

// initDB opens the pgx backed pool shared by gorm and the sqlx report queries.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gormDB, nil
}

func init() {
	rootCmd.AddCommand(httpServerCmd)
}

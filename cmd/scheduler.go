package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jarvis4everyone/jarvis-backend/internal/auth"
	authPostgres "github.com/jarvis4everyone/jarvis-backend/internal/auth/postgres"
	"github.com/jarvis4everyone/jarvis-backend/internal/scheduler"
	"github.com/jarvis4everyone/jarvis-backend/internal/subscription"
	subscriptionPostgres "github.com/jarvis4everyone/jarvis-backend/internal/subscription/postgres"
	"github.com/jarvis4everyone/jarvis-backend/pkg/logger"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the subscription expiry and token cleanup jobs",
	Long:  `Run the maintenance jobs on their cron schedule, or a single pass with --once.`,
	Run: func(cmd *cobra.Command, args []string) {
		startScheduler()
	},
}

var schedulerOnce bool

func startScheduler() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	gormDB, err := initGorm(db)
	if err != nil {
		log.Error("failed to initialize gorm", "error", err)
		os.Exit(1)
	}

	tokenGen, err := auth.NewJWTTokenGenerator(
		config.Security.JWTSecretKey,
		config.Security.JWTAlgorithm,
		config.Security.AccessTokenTTL(),
		config.Security.RefreshTokenTTL())
	if err != nil {
		log.Error("failed to create token generator", "error", err)
		os.Exit(1)
	}
	subscriptions := subscription.NewService(subscriptionPostgres.NewSubscriptionRepository(gormDB), nil, log)
	authService := auth.NewService(
		authPostgres.NewUserRepository(gormDB),
		authPostgres.NewRefreshTokenRepository(gormDB),
		tokenGen,
		subscriptions,
		config.Security.BCryptCost,
		log)

	jobs := scheduler.NewJobs(subscriptions, authService, log)
	if schedulerOnce {
		jobs.RunOnce()
		return
	}

	s := scheduler.NewScheduler(jobs, scheduler.Config{ExpirySchedule: config.Scheduler.ExpirySchedule}, log)
	if err := s.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	log.Info("scheduler is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	log.Info("received signal, shutting down scheduler", "signal", sig)
	<-s.Stop().Done()
	log.Info("scheduler shutdown complete")
}

func init() {
	schedulerCmd.Flags().BoolVar(&schedulerOnce, "once", false, "run every job once and exit")

	rootCmd.AddCommand(schedulerCmd)
}

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "jarvis-backend",
	Short: "Jarvis4Everyone subscription backend",
	Long:  `Accounts, subscriptions, Razorpay payments and the desktop app download for Jarvis4Everyone.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// Root exposes the command tree.
func Root() *cobra.Command {
	return rootCmd
}

// useEnvConfig reports whether configuration comes from the environment
// instead of config.yml. Hosting platforms assign PORT, containers set
// APP_ENV or DOCKER_ENV.
func useEnvConfig() bool {
	return os.Getenv("APP_ENV") == "production" ||
		os.Getenv("DOCKER_ENV") == "true" ||
		os.Getenv("PORT") != ""
}

func loadConfig(path string) (*internal.Config, error) {
	var cfg *internal.Config

	if useEnvConfig() {
		envCfg, err := internal.LoadConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("error loading config from environment: %w", err)
		}
		cfg = envCfg
	} else {
		v := viper.New()
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.SetEnvPrefix("ENV")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}

		var fileCfg internal.Config
		if err := v.Unmarshal(&fileCfg); err != nil {
			return nil, fmt.Errorf("error unmarshaling config: %w", err)
		}
		cfg = &fileCfg
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Init(cfg.App.Env,
		logger.WithLevel(cfg.Observability.Logging.Level),
		logger.WithFormat(cfg.Observability.Logging.Format))

	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory containing config.yml")
}

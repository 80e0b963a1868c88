package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Subscription  SubscriptionConfig  `mapstructure:"subscription"`
	Download      DownloadConfig      `mapstructure:"download"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Broker        BrokerConfig        `mapstructure:"broker"`
	Mail          MailConfig          `mapstructure:"mail"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type AppConfig struct {
	Name    string `mapstructure:"name" env:"APP_NAME" envDefault:"Jarvis4Everyone Backend"`
	Version string `mapstructure:"version" env:"APP_VERSION" envDefault:"1.0.0"`
	Env     string `mapstructure:"env" env:"APP_ENV" envDefault:"development" validate:"oneof=development staging production"`
	Debug   bool   `mapstructure:"debug" env:"DEBUG" envDefault:"false"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"PORT" envDefault:"8000" validate:"min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url" env:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" env:"CORS_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"60s"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" env:"DB_MAX_OPEN_CONNS" envDefault:"20" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" envDefault:"5" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" envDefault:"30m" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" envDefault:"5m" validate:"required,min=1m"`
	Source          string        `mapstructure:"source" env:"DATABASE_URL" validate:"required"`
	Name            string        `mapstructure:"name" env:"DATABASE_NAME" envDefault:"saas_subscription_db"`
}

type SecurityConfig struct {
	JWTSecretKey             string `mapstructure:"jwt_secret_key" env:"JWT_SECRET_KEY" validate:"required,min=32"`
	JWTAlgorithm             string `mapstructure:"jwt_algorithm" env:"JWT_ALGORITHM" envDefault:"HS256" validate:"oneof=HS256 HS384 HS512"`
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes" env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"15" validate:"min=1,max=1440"`
	RefreshTokenExpireDays   int    `mapstructure:"refresh_token_expire_days" env:"REFRESH_TOKEN_EXPIRE_DAYS" envDefault:"7" validate:"min=1,max=90"`
	BCryptCost               int    `mapstructure:"bcrypt_cost" env:"BCRYPT_COST" envDefault:"12" validate:"min=10,max=15"`
}

type PaymentConfig struct {
	RazorpayKeyID         string        `mapstructure:"razorpay_key_id" env:"RAZORPAY_KEY_ID" validate:"required"`
	RazorpayKeySecret     string        `mapstructure:"razorpay_key_secret" env:"RAZORPAY_KEY_SECRET" validate:"required"`
	RazorpayWebhookSecret string        `mapstructure:"razorpay_webhook_secret" env:"RAZORPAY_WEBHOOK_SECRET"`
	APIURL                string        `mapstructure:"api_url" env:"RAZORPAY_API_URL" envDefault:"https://api.razorpay.com" validate:"required,url"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout" env:"RAZORPAY_REQUEST_TIMEOUT" envDefault:"10s"`
	MaxRetries            uint64        `mapstructure:"max_retries" env:"RAZORPAY_MAX_RETRIES" envDefault:"3" validate:"max=10"`
	RetryBaseDelay        time.Duration `mapstructure:"retry_base_delay" env:"RAZORPAY_RETRY_BASE_DELAY" envDefault:"1s"`
	MaxWorkers            int           `mapstructure:"max_workers" env:"WEBHOOK_MAX_WORKERS" envDefault:"4"`
	JobQueueSize          int           `mapstructure:"job_queue_size" env:"WEBHOOK_JOB_QUEUE_SIZE" envDefault:"100"`
}

type SubscriptionConfig struct {
	Price    float64 `mapstructure:"price" env:"SUBSCRIPTION_PRICE" envDefault:"299" validate:"gt=0"`
	Currency string  `mapstructure:"currency" env:"SUBSCRIPTION_CURRENCY" envDefault:"INR" validate:"len=3"`
}

type DownloadConfig struct {
	FilePath string `mapstructure:"file_path" env:"DOWNLOAD_FILE_PATH" envDefault:"./.downloads/jarvis4everyone.zip"`
	FileName string `mapstructure:"file_name" env:"DOWNLOAD_FILE_NAME" envDefault:"jarvis4everyone.zip"`
}

type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled" env:"SCHEDULER_ENABLED" envDefault:"true"`
	ExpirySchedule string `mapstructure:"expiry_schedule" env:"SUBSCRIPTION_EXPIRY_SCHEDULE" envDefault:"@every 1h" validate:"required_if=Enabled true"`
}

type BrokerConfig struct {
	URL      string `mapstructure:"url" env:"BROKER_URL"`
	Exchange string `mapstructure:"exchange" env:"BROKER_EXCHANGE" envDefault:"jarvis.events"`
}

type MailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host" env:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"smtp_port" env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `mapstructure:"smtp_user" env:"SMTP_USER"`
	SMTPPassword string `mapstructure:"smtp_password" env:"SMTP_PASSWORD"`
	FromEmail    string `mapstructure:"from_email" env:"MAIL_FROM"`
	AdminEmail   string `mapstructure:"admin_email" env:"ADMIN_NOTIFY_EMAIL"`
}

type ObservabilityConfig struct {
	Tracing TracingConfig `mapstructure:"tracing"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName string `mapstructure:"service_name" env:"OTEL_SERVICE_NAME" envDefault:"jarvis-backend" validate:"required_if=Enabled true"`
	Endpoint    string `mapstructure:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" env:"LOG_FORMAT" envDefault:"json" validate:"required,oneof=json text"`
}

// LoadConfigFromEnv builds the configuration from process environment
// variables, reading a local .env file first when one exists.
func LoadConfigFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// ListenPort prefers the platform assigned PORT over the configured one.
func (c *Config) ListenPort() int {
	return getEnvAsInt("PORT", c.Server.Port)
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return getEnv("APP_ENV", c.App.Env) == "production"
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Mail.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("mail config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil {
			return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid allowed origin %s: scheme and host are required", origin)
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// DevelopmentOrigins replaces a wildcard allow-list. Credentialed requests
// cannot use "*", so the wildcard is expanded to the local frontends.
var DevelopmentOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:8080",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORSOrigins returns the normalised allow-list: entries are trimmed,
// trailing slashes are removed and duplicates are dropped.
func (c *ServerConfig) CORSOrigins() []string {
	raw := strings.TrimSpace(c.AllowedOrigins)
	if raw == "*" {
		return append([]string(nil), DevelopmentOrigins...)
	}

	seen := make(map[string]struct{})
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if origin == "*" {
			return append([]string(nil), DevelopmentOrigins...)
		}
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

// GetDSN returns the connection string, filling in the database name when
// the URL does not carry one.
func (c *DatabaseConfig) GetDSN() string {
	u, err := url.Parse(c.Source)
	if err != nil || u.Scheme == "" {
		return c.Source
	}
	if (u.Path == "" || u.Path == "/") && c.Name != "" {
		u.Path = "/" + c.Name
	}
	return u.String()
}

func (c *SecurityConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c *SecurityConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}

// Enabled reports whether outgoing mail is configured.
func (c *MailConfig) Enabled() bool {
	return c.SMTPHost != ""
}

func (c *MailConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.FromEmail == "" {
		return errors.New("from_email is required when smtp_host is set")
	}
	if c.AdminEmail == "" {
		return errors.New("admin_email is required when smtp_host is set")
	}
	return nil
}

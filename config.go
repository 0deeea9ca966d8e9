package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"marketplace-service/database"
	aws_pkg "marketplace-service/pkg/aws"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"golang.org/x/crypto/bcrypt"
)

// appSecretsName is the Secrets Manager entry read when AWS_USE_SECRETS=true.
const appSecretsName = "marketplace/APP_SECRETS"

// Config holds all configuration for the marketplace service.
type Config struct {
	Port           string
	Env            string
	ServiceName    string
	AllowedOrigins []string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	MongoURI          string
	MongoDB           string
	MongoTransactions bool
	RedisURL          string
	CacheTTL          time.Duration
	Postgres          database.PostgresConfig

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	S3Bucket             string
	S3PublicBaseURL      string
	SNSTopicARN          string
	CleanupQueueURL      string
	UploadWorkers        int
	UploadTimeout        time.Duration
	CloudWatchEnabled    bool
	MetricsNamespace     string
	LogGroup             string
	StripeSecretKey      string
	SellerStatsSchedule  string
	HomepageWarmSchedule string

	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// secretSource is the Secrets Manager surface used for the configuration override.
type secretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from .env and environment variables with optional Secrets Manager
// override.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("APP_ENV", "development"),
		ServiceName:    getEnv("SERVICE_NAME", "marketplace-service"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitRPS:   cast.ToFloat64(getEnv("RATE_LIMIT_RPS", "20")),
		RateLimitBurst: cast.ToInt(getEnv("RATE_LIMIT_BURST", "40")),

		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "marketplace"),
		MongoTransactions: cast.ToBool(getEnv("MONGO_TRANSACTIONS", "false")),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CacheTTL:          getDuration("CACHE_TTL", time.Minute),
		Postgres: database.PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},

		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     getDuration("JWT_TTL", 24*time.Hour),
		BcryptCost: cast.ToInt(getEnv("BCRYPT_COST", fmt.Sprint(bcrypt.DefaultCost))),

		S3Bucket:             os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:      os.Getenv("S3_PUBLIC_BASE_URL"),
		SNSTopicARN:          os.Getenv("MARKETPLACE_SNS_TOPIC_ARN"),
		CleanupQueueURL:      os.Getenv("ASSET_CLEANUP_QUEUE_URL"),
		UploadWorkers:        cast.ToInt(getEnv("UPLOAD_WORKERS", "8")),
		UploadTimeout:        getDuration("UPLOAD_TIMEOUT", 60*time.Second),
		CloudWatchEnabled:    cast.ToBool(getEnv("CLOUDWATCH_ENABLED", "false")),
		MetricsNamespace:     getEnv("METRICS_NAMESPACE", "Marketplace"),
		LogGroup:             getEnv("CLOUDWATCH_LOG_GROUP", "/marketplace/services"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		SellerStatsSchedule:  getEnv("SELLER_STATS_SCHEDULE", "@daily"),
		HomepageWarmSchedule: getEnv("HOMEPAGE_WARM_SCHEDULE", "@every 5m"),

		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  cast.ToInt(getEnv("LOG_MAX_SIZE_MB", "100")),
		LogMaxBackups: cast.ToInt(getEnv("LOG_MAX_BACKUPS", "5")),
		LogMaxAgeDays: cast.ToInt(getEnv("LOG_MAX_AGE_DAYS", "30")),
	}

	// Override credentials from Secrets Manager when running on AWS
	if cast.ToBool(os.Getenv("AWS_USE_SECRETS")) {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			// A missing secret leaves the environment values in place.
			_ = applySecrets(ctx, cfg, aws_pkg.NewSecretsClient(awsCfg))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overrides secret-bearing settings with the non-empty values of the app secret.
func applySecrets(ctx context.Context, cfg *Config, source secretSource) error {
	secrets, err := source.GetSecretMap(ctx, appSecretsName)
	if err != nil {
		return err
	}
	overrides := map[string]*string{
		"JWT_SECRET":        &cfg.JWTSecret,
		"MONGO_URI":         &cfg.MongoURI,
		"REDIS_URL":         &cfg.RedisURL,
		"POSTGRES_USER":     &cfg.Postgres.User,
		"POSTGRES_PASSWORD": &cfg.Postgres.Password,
		"POSTGRES_DB":       &cfg.Postgres.DBName,
		"POSTGRES_HOST":     &cfg.Postgres.Host,
		"POSTGRES_PORT":     &cfg.Postgres.Port,
		"STRIPE_SECRET_KEY": &cfg.StripeSecretKey,
	}
	for key, target := range overrides {
		if v, ok := secrets[key]; ok && v != "" {
			*target = v
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MongoURI == "" || c.MongoDB == "" {
		return fmt.Errorf("MONGO_URI and MONGO_DB are required")
	}
	if c.UploadWorkers < 1 {
		return fmt.Errorf("UPLOAD_WORKERS must be positive, got %d", c.UploadWorkers)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getDuration accepts Go durations ("90s") or plain seconds ("90").
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if secs, err := cast.ToInt64E(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := cast.ToDurationE(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, loaded from environment variables.
type Config struct {
	AppEnv      string
	AppName     string
	AppPort     string
	MetricsPort string
	LogLevel    string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisMaxRetries   int

	JWTSecret string

	// Scoring thresholds; may be overridden at runtime via ThresholdsFile.
	Thresholds Thresholds
	// ThresholdsFile, when set, is watched for changes and reloaded live.
	ThresholdsFile string

	// AutoApprovePassing routes submissions that pass all scoring thresholds
	// straight to approved instead of pending.
	AutoApprovePassing bool

	// FlagAutoThreshold is the pending-flag count that forces content into
	// the flagged state.
	FlagAutoThreshold int
	// DedupeFlags selects the duplicate-flag policy: true keeps one active
	// pending flag per (content, reporter), false allows many.
	DedupeFlags bool

	// BulkWorkers bounds per-item concurrency of bulk moderation actions.
	BulkWorkers int
	// BulkMaxItems caps the id set of a single bulk invocation.
	BulkMaxItems int

	// ScoringBatchSize caps items per background re-scoring run.
	ScoringBatchSize int
	// ScoringSchedule and ReconcileSchedule are cron expressions (with
	// seconds field) for the background jobs.
	ScoringSchedule   string
	ReconcileSchedule string

	// NotifyTimeout bounds each outbound notification dispatch attempt.
	NotifyTimeout time.Duration
}

// Thresholds holds the scoring cut-offs that drive auto-flagging.
type Thresholds struct {
	Profanity      float64 `json:"profanity"`       // auto-flag at or above
	Spam           float64 `json:"spam"`            // auto-flag at or above
	QualityFloor   float64 `json:"quality_floor"`   // auto-flag at or below
	SentimentFloor float64 `json:"sentiment_floor"` // auto-flag at or below
}

// DefaultThresholds are applied when no overrides are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Profanity:      0.08,
		Spam:           0.5,
		QualityFloor:   0.2,
		SentimentFloor: -0.6,
	}
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		AppName:     getEnv("APP_NAME", "contenttrust"),
		AppPort:     getEnv("APP_PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		Thresholds:     DefaultThresholds(),
		ThresholdsFile: os.Getenv("THRESHOLDS_FILE"),

		ScoringSchedule:   getEnv("SCORING_SCHEDULE", "0 */10 * * * *"),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "0 */5 * * * *"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisPoolSize, err = getEnvInt("REDIS_POOL_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.RedisMinIdleConns, err = getEnvInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return nil, err
	}
	if cfg.RedisMaxRetries, err = getEnvInt("REDIS_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.FlagAutoThreshold, err = getEnvInt("FLAG_AUTO_THRESHOLD", 3); err != nil {
		return nil, err
	}
	if cfg.BulkWorkers, err = getEnvInt("BULK_WORKERS", 8); err != nil {
		return nil, err
	}
	if cfg.BulkMaxItems, err = getEnvInt("BULK_MAX_ITEMS", 1000); err != nil {
		return nil, err
	}
	if cfg.ScoringBatchSize, err = getEnvInt("SCORING_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.Thresholds.Profanity, err = getEnvFloat("SCORE_PROFANITY_THRESHOLD", cfg.Thresholds.Profanity); err != nil {
		return nil, err
	}
	if cfg.Thresholds.Spam, err = getEnvFloat("SCORE_SPAM_THRESHOLD", cfg.Thresholds.Spam); err != nil {
		return nil, err
	}
	if cfg.Thresholds.QualityFloor, err = getEnvFloat("SCORE_QUALITY_FLOOR", cfg.Thresholds.QualityFloor); err != nil {
		return nil, err
	}
	if cfg.Thresholds.SentimentFloor, err = getEnvFloat("SCORE_SENTIMENT_FLOOR", cfg.Thresholds.SentimentFloor); err != nil {
		return nil, err
	}
	cfg.AutoApprovePassing = getEnv("AUTO_APPROVE_PASSING", "false") == "true"
	cfg.DedupeFlags = getEnv("DEDUPE_FLAGS", "true") == "true"

	notifyTimeout := getEnv("NOTIFY_TIMEOUT", "5s")
	if cfg.NotifyTimeout, err = time.ParseDuration(notifyTimeout); err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_TIMEOUT: %w", err)
	}

	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("missing required environment variables: DB_HOST, DB_USER, DB_NAME")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Queue     QueueConfig
	Retry     RetryConfig
	Retention RetentionConfig
	Platforms PlatformsConfig
	LLM       LLMConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

// IsDevelopment reports whether the process runs with development logging.
func (s ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

// QueueConfig tunes the task queue and its worker pool.
type QueueConfig struct {
	Prefix            string
	Workers           int
	PollInterval      time.Duration
	VisibilityTimeout time.Duration
	RedeliveryDelay   time.Duration
	MaxDeliveries     int
	LeaseTTL          time.Duration
}

// RetryConfig holds the application-level retry policy.
type RetryConfig struct {
	BaseDelay          time.Duration
	AttemptTimeout     time.Duration
	DefaultMaxRetries  int
	ScheduleRetryStep  time.Duration
	ScheduleMaxRetries int
	StaleClaimAfter    time.Duration
}

type RetentionConfig struct {
	Interactions  time.Duration
	FailedPosts   time.Duration
	ProcessedRuns time.Duration
}

type PlatformsConfig struct {
	Twitter   TwitterConfig
	LinkedIn  LinkedInConfig
	Facebook  FacebookConfig
	Instagram InstagramConfig
	Telegram  TelegramConfig
}

type TwitterConfig struct {
	BearerToken string
	BaseURL     string
	UploadURL   string
	// Requests allowed per RateWindow.
	RateLimit  int
	RateWindow time.Duration
}

type LinkedInConfig struct {
	AccessToken string
	BaseURL     string
}

type FacebookConfig struct {
	AccessToken string
	PageID      string
	BaseURL     string
}

type InstagramConfig struct {
	AccessToken string
	AccountID   string
	BaseURL     string
}

type TelegramConfig struct {
	Token     string
	ChannelID int64
}

// LLMConfig selects the content generation provider.
type LLMConfig struct {
	Provider     string // "gemini", "openai"
	GeminiKey    string
	GeminiURL    string
	OpenAIKey    string
	OpenAIURL    string
	DefaultModel string
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Queue: QueueConfig{
			Prefix:            viper.GetString("QUEUE_PREFIX"),
			Workers:           viper.GetInt("QUEUE_WORKERS"),
			PollInterval:      durationOr("QUEUE_POLL_INTERVAL", time.Second),
			VisibilityTimeout: durationOr("QUEUE_VISIBILITY_TIMEOUT", 5*time.Minute),
			RedeliveryDelay:   durationOr("QUEUE_REDELIVERY_DELAY", 30*time.Second),
			MaxDeliveries:     viper.GetInt("QUEUE_MAX_DELIVERIES"),
			LeaseTTL:          durationOr("QUEUE_LEASE_TTL", 2*time.Minute),
		},
		Retry: RetryConfig{
			BaseDelay:          durationOr("RETRY_BASE_DELAY", 60*time.Second),
			AttemptTimeout:     durationOr("RETRY_ATTEMPT_TIMEOUT", 30*time.Second),
			DefaultMaxRetries:  viper.GetInt("RETRY_MAX_RETRIES"),
			ScheduleRetryStep:  durationOr("SCHEDULE_RETRY_STEP", 5*time.Minute),
			ScheduleMaxRetries: viper.GetInt("SCHEDULE_MAX_RETRIES"),
			StaleClaimAfter:    durationOr("SCHEDULE_STALE_CLAIM_AFTER", 10*time.Minute),
		},
		Retention: RetentionConfig{
			Interactions:  durationOr("RETENTION_INTERACTIONS", 90*24*time.Hour),
			FailedPosts:   durationOr("RETENTION_FAILED_POSTS", 30*24*time.Hour),
			ProcessedRuns: durationOr("RETENTION_PROCESSED_SCHEDULES", 7*24*time.Hour),
		},
		Platforms: PlatformsConfig{
			Twitter: TwitterConfig{
				BearerToken: viper.GetString("TWITTER_BEARER_TOKEN"),
				BaseURL:     viper.GetString("TWITTER_BASE_URL"),
				UploadURL:   viper.GetString("TWITTER_UPLOAD_URL"),
				RateLimit:   viper.GetInt("TWITTER_RATE_LIMIT"),
				RateWindow:  durationOr("TWITTER_RATE_WINDOW", 15*time.Minute),
			},
			LinkedIn: LinkedInConfig{
				AccessToken: viper.GetString("LINKEDIN_ACCESS_TOKEN"),
				BaseURL:     viper.GetString("LINKEDIN_BASE_URL"),
			},
			Facebook: FacebookConfig{
				AccessToken: viper.GetString("FACEBOOK_ACCESS_TOKEN"),
				PageID:      viper.GetString("FACEBOOK_PAGE_ID"),
				BaseURL:     viper.GetString("FACEBOOK_BASE_URL"),
			},
			Instagram: InstagramConfig{
				AccessToken: viper.GetString("INSTAGRAM_ACCESS_TOKEN"),
				AccountID:   viper.GetString("INSTAGRAM_ACCOUNT_ID"),
				BaseURL:     viper.GetString("INSTAGRAM_BASE_URL"),
			},
			Telegram: TelegramConfig{
				Token:     viper.GetString("TELEGRAM_BOT_TOKEN"),
				ChannelID: viper.GetInt64("TELEGRAM_CHANNEL_ID"),
			},
		},
		LLM: LLMConfig{
			Provider:     viper.GetString("LLM_PROVIDER"),
			GeminiKey:    viper.GetString("GEMINI_API_KEY"),
			GeminiURL:    viper.GetString("GEMINI_BASE_URL"),
			OpenAIKey:    viper.GetString("OPENAI_API_KEY"),
			OpenAIURL:    viper.GetString("OPENAI_BASE_URL"),
			DefaultModel: viper.GetString("LLM_DEFAULT_MODEL"),
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Retry.DefaultMaxRetries < 0 {
		cfg.Retry.DefaultMaxRetries = 3
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 1
	}

	return cfg, nil
}

// LoadDatabaseOnly reads just the database section, for the migrate command.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	setDefaults()
	db := loadDatabase()
	return &db, nil
}

func setDefaults() {
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("QUEUE_PREFIX", "launchpad:tasks")
	viper.SetDefault("QUEUE_WORKERS", 4)
	viper.SetDefault("QUEUE_MAX_DELIVERIES", 10)
	viper.SetDefault("RETRY_MAX_RETRIES", 3)
	viper.SetDefault("SCHEDULE_MAX_RETRIES", 3)
	viper.SetDefault("TWITTER_BASE_URL", "https://api.twitter.com/2")
	viper.SetDefault("TWITTER_UPLOAD_URL", "https://upload.twitter.com/1.1")
	viper.SetDefault("TWITTER_RATE_LIMIT", 20)
	viper.SetDefault("LINKEDIN_BASE_URL", "https://api.linkedin.com/v2")
	viper.SetDefault("FACEBOOK_BASE_URL", "https://graph.facebook.com/v18.0")
	viper.SetDefault("INSTAGRAM_BASE_URL", "https://graph.facebook.com/v18.0")
	viper.SetDefault("LLM_PROVIDER", "gemini")
	viper.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("LLM_DEFAULT_MODEL", "gemini-pro")
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		Charset: viper.GetString("DB_CHARSET"),
	}
}

func durationOr(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=UTC"
}

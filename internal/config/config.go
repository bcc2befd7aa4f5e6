// path: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the scheduler process and its
// satellite HTTP API.
type Config struct {
	Environment string
	LogLevel    string

	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Media     MediaConfig
	Security  SecurityConfig

	Twitter   TwitterConfig
	Telegram  TelegramConfig
	Instagram InstagramConfig
	Facebook  FacebookConfig
	Mastodon  MastodonConfig
	Bluesky   BlueskyConfig
	Discord   DiscordConfig
	Threads   ThreadsConfig

	HTTP HTTPConfig
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	SQLitePath  string
	MaxOpenConn int
	MaxIdleConn int
}

// UsesPostgres reports whether enough connection info is present to reach
// a Postgres server. When false, the store falls back to the embedded
// SQLite file at SQLitePath.
func (d DatabaseConfig) UsesPostgres() bool {
	return d.Host != ""
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	URL string
}

type SchedulerConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	StuckAfter   time.Duration
	BatchSize    int
}

type MediaConfig struct {
	StoragePath string
}

type SecurityConfig struct {
	EncryptionKey string
}

type TwitterConfig struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string
}

type TelegramConfig struct {
	BotToken string
}

type InstagramConfig struct {
	AccessToken       string
	BusinessAccountID string
}

type FacebookConfig struct {
	AppID     string
	AppSecret string
	PageToken string
	PageID    string
}

type MastodonConfig struct {
	InstanceURL string
	AccessToken string
}

type BlueskyConfig struct {
	PDSHost     string
	Handle      string
	AppPassword string
}

type DiscordConfig struct {
	BotToken   string
	WebhookURL string
}

type ThreadsConfig struct {
	AccessToken string
	UserID      string
}

type HTTPConfig struct {
	Port           int
	AllowedOrigins []string
}

// Load reads configuration from a local .env file (if present) and the
// process environment, the way the teacher's config package does, but
// through viper so unset keys fall back to sane defaults instead of
// zero values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "./data/scheduler.db")
	v.SetDefault("DB_MAX_OPEN_CONN", 10)
	v.SetDefault("DB_MAX_IDLE_CONN", 5)

	v.SetDefault("REDIS_URL", "redis://localhost:6379")

	v.SetDefault("SCHEDULER_POLL_INTERVAL_MS", 15000)
	v.SetDefault("SCHEDULER_MAX_RETRIES", 3)
	v.SetDefault("SCHEDULER_STUCK_AFTER_MINUTES", 10)
	v.SetDefault("SCHEDULER_BATCH_SIZE", 25)

	v.SetDefault("MEDIA_STORAGE_PATH", "./data/media")

	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("HTTP_ALLOWED_ORIGINS", "*")

	v.SetDefault("MASTODON_INSTANCE_URL", "https://mastodon.social")
	v.SetDefault("BLUESKY_PDS_HOST", "https://bsky.social")

	cfg := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		Database: DatabaseConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetInt("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			SQLitePath:  v.GetString("DB_SQLITE_PATH"),
			MaxOpenConn: v.GetInt("DB_MAX_OPEN_CONN"),
			MaxIdleConn: v.GetInt("DB_MAX_IDLE_CONN"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Scheduler: SchedulerConfig{
			PollInterval: time.Duration(v.GetInt("SCHEDULER_POLL_INTERVAL_MS")) * time.Millisecond,
			MaxRetries:   v.GetInt("SCHEDULER_MAX_RETRIES"),
			StuckAfter:   time.Duration(v.GetInt("SCHEDULER_STUCK_AFTER_MINUTES")) * time.Minute,
			BatchSize:    v.GetInt("SCHEDULER_BATCH_SIZE"),
		},
		Media: MediaConfig{
			StoragePath: v.GetString("MEDIA_STORAGE_PATH"),
		},
		Security: SecurityConfig{
			EncryptionKey: v.GetString("ENCRYPTION_KEY"),
		},
		Twitter: TwitterConfig{
			APIKey:            v.GetString("TWITTER_API_KEY"),
			APISecret:         v.GetString("TWITTER_API_SECRET"),
			AccessToken:       v.GetString("TWITTER_ACCESS_TOKEN"),
			AccessTokenSecret: v.GetString("TWITTER_ACCESS_TOKEN_SECRET"),
			BearerToken:       v.GetString("TWITTER_BEARER_TOKEN"),
		},
		Telegram: TelegramConfig{
			BotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
		},
		Instagram: InstagramConfig{
			AccessToken:       v.GetString("INSTAGRAM_ACCESS_TOKEN"),
			BusinessAccountID: v.GetString("INSTAGRAM_BUSINESS_ACCOUNT_ID"),
		},
		Facebook: FacebookConfig{
			AppID:     v.GetString("FACEBOOK_APP_ID"),
			AppSecret: v.GetString("FACEBOOK_APP_SECRET"),
			PageToken: v.GetString("FACEBOOK_PAGE_TOKEN"),
			PageID:    v.GetString("FACEBOOK_PAGE_ID"),
		},
		Mastodon: MastodonConfig{
			InstanceURL: v.GetString("MASTODON_INSTANCE_URL"),
			AccessToken: v.GetString("MASTODON_ACCESS_TOKEN"),
		},
		Bluesky: BlueskyConfig{
			PDSHost:     v.GetString("BLUESKY_PDS_HOST"),
			Handle:      v.GetString("BLUESKY_HANDLE"),
			AppPassword: v.GetString("BLUESKY_APP_PASSWORD"),
		},
		Discord: DiscordConfig{
			BotToken:   v.GetString("DISCORD_BOT_TOKEN"),
			WebhookURL: v.GetString("DISCORD_WEBHOOK_URL"),
		},
		Threads: ThreadsConfig{
			AccessToken: v.GetString("THREADS_ACCESS_TOKEN"),
			UserID:      v.GetString("THREADS_USER_ID"),
		},
		HTTP: HTTPConfig{
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: strings.Split(v.GetString("HTTP_ALLOWED_ORIGINS"), ","),
		},
	}

	if !cfg.Database.UsesPostgres() && cfg.Database.SQLitePath == "" {
		return nil, fmt.Errorf("either DB_HOST or DB_SQLITE_PATH must be set")
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

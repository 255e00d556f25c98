package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingToken is returned by Validate when no bot token is configured.
var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is not set")

// Config stores the application configuration.
type Config struct {
	// Telegram
	TelegramToken     string
	TelegramDebug     bool
	TelegramRPS       float64 // Bot API calls per second, all chats
	TelegramChatRPS   float64 // per chat
	TelegramChatBurst int

	// yt-dlp
	YtdlpPath              string
	CookiesPath            string
	MaxConcurrentDownloads int
	StopKillsInFlight      bool // /stop also kills the running subprocess
	PlaylistTimeout        time.Duration
	LoadingInterval        time.Duration
	MaxUploadBytes         int64

	// Sessions
	SessionBackend string // "memory" or "redis"
	SessionIdleTTL time.Duration

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置, overflow storage for payloads above MaxUploadBytes
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioLinkTTL   time.Duration

	// Status HTTP server; empty disables it.
	StatusAddr string

	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return fromEnv()
}

func fromEnv() *Config {
	maxUploadMB := getEnvInt("MAX_UPLOAD_MB", 50)
	workers := getEnvInt("MAX_CONCURRENT_DOWNLOADS", 2)
	if workers < 1 {
		workers = 1
	}

	return &Config{
		TelegramToken:     strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramDebug:     getEnvBool("TELEGRAM_DEBUG", false),
		TelegramRPS:       getEnvFloat("TELEGRAM_RPS", 30),
		TelegramChatRPS:   getEnvFloat("TELEGRAM_CHAT_RPS", 1),
		TelegramChatBurst: getEnvInt("TELEGRAM_CHAT_BURST", 20),

		YtdlpPath:              getEnv("YTDLP_PATH", "yt-dlp"),
		CookiesPath:            getEnv("COOKIES_PATH", "cookies.txt"),
		MaxConcurrentDownloads: workers,
		StopKillsInFlight:      getEnvBool("STOP_KILLS_INFLIGHT", false),
		PlaylistTimeout:        getEnvDuration("PLAYLIST_TIMEOUT", 2*time.Minute),
		LoadingInterval:        getEnvDuration("LOADING_INTERVAL", 500*time.Millisecond),
		MaxUploadBytes:         int64(maxUploadMB) << 20,

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 24*time.Hour),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "ytbot"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioLinkTTL:   getEnvDuration("MINIO_LINK_TTL", time.Hour),

		StatusAddr: getEnv("STATUS_ADDR", ":8080"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", "logs/bot.log"),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 50),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 30),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return ErrMissingToken
	}
	return nil
}

// UseRedisSessions reports whether session tracks live in Redis.
func (c *Config) UseRedisSessions() bool {
	return c.SessionBackend == "redis"
}

// MinioEnabled reports whether oversize payloads can be offloaded.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != ""
}

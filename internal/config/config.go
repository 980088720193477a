package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server       ServerConfig
	Logging      LoggingConfig
	Database     DatabaseConfig
	LLM          LLMConfig
	Ticketmaster TicketmasterConfig
	Discovery    DiscoveryConfig
	Scheduler    SchedulerConfig
	Auth         AuthConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig points at the backend Postgres instance. URL may be empty,
// in which case the Cloud SQL variables are consulted.
type DatabaseConfig struct {
	URL                    string
	InstanceConnectionName string
	User                   string
	Password               string
	Name                   string
}

// LLMConfig selects and configures the language-model backend.
type LLMConfig struct {
	Provider string // "gemini" or "openai"

	GeminiAPIKey            string
	GeminiModel             string
	GeminiEndpoint          string
	GeminiRequestsPerMinute int
	Timeout                 time.Duration

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

// TicketmasterConfig configures the ticketing API connector.
type TicketmasterConfig struct {
	APIKey      string
	BaseURL     string
	CountryCode string
	PageSize    int
	Timeout     time.Duration
}

// DiscoveryConfig holds the AI discovery thresholds.
type DiscoveryConfig struct {
	Window           time.Duration
	MinConfidence    float64
	GroundingPenalty float64
	ScanCooldown     time.Duration
}

// SchedulerConfig controls the periodic city scan.
type SchedulerConfig struct {
	Enabled    bool
	Interval   time.Duration
	CitiesFile string
}

// AuthConfig holds the secret used to verify admin bearer tokens.
type AuthConfig struct {
	JWTSecret string
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultGeminiModel    = "gemini-2.5-flash"
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultLLMTimeout     = 90 * time.Second
	defaultOpenAIBaseURL  = "https://openrouter.ai/api/v1"
	defaultOpenAIModel    = "google/gemini-2.5-flash"

	defaultTicketmasterBaseURL = "https://app.ticketmaster.com/discovery/v2"
	defaultTicketmasterCountry = "DE"
	defaultTicketmasterSize    = 50
	defaultTicketmasterTimeout = 15 * time.Second

	defaultDiscoveryWindow  = 14 * 24 * time.Hour
	defaultMinConfidence    = 0.7
	defaultGroundingPenalty = 0.85
	defaultScanCooldown     = time.Hour

	defaultScanInterval = 6 * time.Hour
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided. A .env file in the working directory is loaded
// first if present; variables already set in the environment take precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			URL:                    os.Getenv("DATABASE_URL"),
			InstanceConnectionName: os.Getenv("INSTANCE_CONNECTION_NAME"),
			User:                   os.Getenv("DB_USER"),
			Password:               os.Getenv("DB_PASSWORD"),
			Name:                   os.Getenv("DB_NAME"),
		},
		LLM: LLMConfig{
			Provider:       ProviderGemini,
			GeminiAPIKey:   firstEnv("GEMINI_API_KEY", "EXPO_PUBLIC_GEMINI_API_KEY", "EXPO_GEMINI_API_KEY"),
			GeminiModel:    getEnv("GEMINI_MODEL", defaultGeminiModel),
			GeminiEndpoint: getEnv("GEMINI_ENDPOINT", defaultGeminiEndpoint),
			Timeout:        defaultLLMTimeout,
			OpenAIAPIKey:   firstEnv("OPENAI_API_KEY", "OPENROUTER_API_KEY", "EXPO_PUBLIC_OPENROUTER_API_KEY"),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", defaultOpenAIBaseURL),
			OpenAIModel:    getEnv("OPENAI_MODEL", defaultOpenAIModel),
		},
		Ticketmaster: TicketmasterConfig{
			APIKey:      firstEnv("TICKETMASTER_API_KEY", "EXPO_PUBLIC_TICKETMASTER_API_KEY"),
			BaseURL:     getEnv("TICKETMASTER_BASE_URL", defaultTicketmasterBaseURL),
			CountryCode: getEnv("TICKETMASTER_COUNTRY_CODE", defaultTicketmasterCountry),
			PageSize:    defaultTicketmasterSize,
			Timeout:     defaultTicketmasterTimeout,
		},
		Discovery: DiscoveryConfig{
			Window:           defaultDiscoveryWindow,
			MinConfidence:    defaultMinConfidence,
			GroundingPenalty: defaultGroundingPenalty,
			ScanCooldown:     defaultScanCooldown,
		},
		Scheduler: SchedulerConfig{
			Enabled:    true,
			Interval:   defaultScanInterval,
			CitiesFile: os.Getenv("CITIES_FILE"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		switch strings.ToLower(v) {
		case ProviderGemini, ProviderOpenAI:
			cfg.LLM.Provider = strings.ToLower(v)
		default:
			return Config{}, fmt.Errorf("invalid LLM_PROVIDER: must be 'gemini' or 'openai'")
		}
	}

	if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GEMINI_TIMEOUT_SECONDS: %w", err)
		}
		cfg.LLM.Timeout = d
	}

	if v := os.Getenv("GEMINI_REQUESTS_PER_MINUTE"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GEMINI_REQUESTS_PER_MINUTE: %w", err)
		}
		cfg.LLM.GeminiRequestsPerMinute = n
	}

	if v := os.Getenv("TICKETMASTER_PAGE_SIZE"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil || n == 0 || n > 200 {
			return Config{}, fmt.Errorf("invalid TICKETMASTER_PAGE_SIZE: must be between 1 and 200")
		}
		cfg.Ticketmaster.PageSize = n
	}

	if v := os.Getenv("DISCOVERY_WINDOW_DAYS"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil || n == 0 {
			return Config{}, fmt.Errorf("invalid DISCOVERY_WINDOW_DAYS: must be a positive integer")
		}
		cfg.Discovery.Window = time.Duration(n) * 24 * time.Hour
	}

	if v := os.Getenv("DISCOVERY_MIN_CONFIDENCE"); v != "" {
		f, err := parseUnitInterval(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DISCOVERY_MIN_CONFIDENCE: %w", err)
		}
		cfg.Discovery.MinConfidence = f
	}

	if v := os.Getenv("DISCOVERY_GROUNDING_PENALTY"); v != "" {
		f, err := parseUnitInterval(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DISCOVERY_GROUNDING_PENALTY: %w", err)
		}
		cfg.Discovery.GroundingPenalty = f
	}

	if v := os.Getenv("SCAN_COOLDOWN_MINUTES"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCAN_COOLDOWN_MINUTES: %w", err)
		}
		cfg.Discovery.ScanCooldown = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("SCAN_INTERVAL_MINUTES"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCAN_INTERVAL_MINUTES: %w", err)
		}
		// 0 disables the background scan
		cfg.Scheduler.Enabled = n > 0
		cfg.Scheduler.Interval = time.Duration(n) * time.Minute
	}

	return cfg, nil
}

// AIEnabled reports whether an API key for the selected provider is present.
func (c LLMConfig) AIEnabled() bool {
	return c.APIKey() != ""
}

// APIKey returns the key for the selected provider.
func (c LLMConfig) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseNonNegativeInt(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

func parseUnitInterval(raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f < 0 || f > 1 {
		return 0, fmt.Errorf("must be a number between 0 and 1")
	}
	return f, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	FetchTimeout   time.Duration

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIMaxTokens int
	LLMTimeout      time.Duration

	TranscriptLanguage string
	IgnorePlaylist     bool

	RateLimit         int
	RateLimitInterval time.Duration

	CacheEnabled bool
	DBPath       string

	LogLevel  string
	LogFormat string
	LogDir    string
}

// LoadDotEnv reads a .env file into the process environment if one exists.
// Variables already set in the environment win.
func LoadDotEnv(filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil && !os.IsNotExist(errors.Cause(err)) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}
}

func LoadConfig() *Config {
	return &Config{
		ServerPort:     GetEnv("SERVER_PORT", "8080"),
		ReadTimeout:    getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getEnvAsDuration("WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:    getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 110*time.Second),
		FetchTimeout:   getEnvAsDuration("FETCH_TIMEOUT", 15*time.Second),

		OpenAIAPIKey:    GetEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   GetEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:     GetEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxTokens: getEnvAsInt("OPENAI_MAX_TOKENS", 1024),
		LLMTimeout:      getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),

		TranscriptLanguage: GetEnv("TRANSCRIPT_LANGUAGE", "en"),
		IgnorePlaylist:     getEnvAsBool("IGNORE_PLAYLIST", false),

		RateLimit:         getEnvAsInt("RATE_LIMIT", 5),
		RateLimitInterval: getEnvAsDuration("RATE_LIMIT_INTERVAL", 1*time.Second),

		CacheEnabled: getEnvAsBool("CACHE_ENABLED", false),
		DBPath:       GetEnv("DB_PATH", "./data/transcripts.db"),

		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "text"),
		LogDir:    GetEnv("LOG_DIR", ""),
	}
}

// Load reads .env, then the environment, and validates the result.
func Load() (*Config, error) {
	LoadDotEnv()
	cfg := LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid boolean, using default")
	}
	return defaultValue
}

// Validate checks the settings every entry point needs. The API key is not
// checked here: the transcript command runs without one, and the LLM client
// refuses to start without it.
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("server port is required")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be greater than 0")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be greater than 0")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("idle timeout must be greater than 0")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be greater than 0")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be greater than 0")
	}
	if c.LLMTimeout <= 0 {
		return errors.New("llm timeout must be greater than 0")
	}
	if c.RateLimit <= 0 {
		return errors.Errorf("rate limit must be greater than 0, got %d", c.RateLimit)
	}
	if c.RateLimitInterval <= 0 {
		return errors.New("rate limit interval must be greater than 0")
	}
	if c.CacheEnabled && c.DBPath == "" {
		return errors.New("database path is required when the cache is enabled")
	}
	return nil
}

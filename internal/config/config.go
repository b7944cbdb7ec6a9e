// Package config provides configuration for the tutor service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names an optional YAML file read before the environment.
const EnvConfigFile = "TUTOR_CONFIG"

// Config holds the tutor service configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Database
	DatabaseDriver string `yaml:"database_driver"` // sqlite or postgres
	DatabaseURL    string `yaml:"database_url"`
	DBMaxConns     int    `yaml:"db_max_conns"`

	// AI backend
	LLMProvider  string        `yaml:"llm_provider"` // openai, gemini or mock
	LLMBaseURL   string        `yaml:"llm_base_url"`
	LLMAPIKey    string        `yaml:"llm_api_key"`
	LLMModel     string        `yaml:"llm_model"` // empty picks the provider default
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	LLMTimeout   time.Duration `yaml:"llm_timeout"`

	// Tutor behaviour
	StudyPlanMaxMinutes int           `yaml:"study_plan_max_minutes"`
	ThreadListLimit     int           `yaml:"thread_list_limit"`
	SessionIdleTimeout  time.Duration `yaml:"session_idle_timeout"`

	// Change notifications across replicas; empty keeps them in process.
	RedisURL string `yaml:"redis_url"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:            8080,
		DatabaseDriver:      "sqlite",
		DatabaseURL:         "file:tutor.db?mode=rwc&_busy_timeout=5000&_txlock=immediate",
		DBMaxConns:          10,
		LLMProvider:         "openai",
		LLMBaseURL:          "http://localhost:4000",
		LLMTimeout:          60 * time.Second,
		StudyPlanMaxMinutes: 90,
		ThreadListLimit:     20,
		SessionIdleTimeout:  30 * time.Minute,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $TUTOR_CONFIG when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseDriver = getEnv("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBMaxConns = getEnvInt("DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.LLMProvider = getEnv("LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", cfg.LLMAPIKey)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.LLMTimeout = getEnvMillis("LLM_TIMEOUT_MS", cfg.LLMTimeout)
	cfg.StudyPlanMaxMinutes = getEnvInt("STUDY_PLAN_MAX_MINUTES", cfg.StudyPlanMaxMinutes)
	cfg.ThreadListLimit = getEnvInt("THREAD_LIST_LIMIT", cfg.ThreadListLimit)
	cfg.SessionIdleTimeout = getEnvMillis("SESSION_IDLE_TIMEOUT_MS", cfg.SessionIdleTimeout)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would only fail later at startup.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTPPort)
	}
	if c.StudyPlanMaxMinutes <= 0 {
		return fmt.Errorf("STUDY_PLAN_MAX_MINUTES must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvMillis(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

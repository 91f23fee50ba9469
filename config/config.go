package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dhgwag/korail-reservation/models"
)

// Default file locations, relative to the working directory
const (
	DefaultEnvFile        = ".env"
	DefaultEnvExampleFile = ".env.example"
	DefaultCriteriaFile   = "search_configs.json"
	DefaultSettingsFile   = "settings.yaml"
)

// Config holds application configuration
type Config struct {
	// Server
	Addr    string `yaml:"addr"`
	GinMode string `yaml:"gin_mode"`

	// Files
	EnvFile        string `yaml:"env_file"`
	EnvExampleFile string `yaml:"env_example_file"`
	CriteriaFile   string `yaml:"criteria_file"`

	// Engine
	SearchInterval  time.Duration `yaml:"search_interval"`
	SessionRefresh  time.Duration `yaml:"session_refresh"`
	MaxAttempts     int           `yaml:"max_attempts"`
	ReserveOption   string        `yaml:"reserve_option"`
	AdultPassengers int           `yaml:"adult_passengers"`

	// Provider
	KorailBaseURL     string        `yaml:"korail_base_url"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`

	// Integrations
	JournalURL     string `yaml:"journal_url"`
	TelegramAPIURL string `yaml:"telegram_api_url"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() *Config {
	return &Config{
		Addr:    "127.0.0.1:5000",
		GinMode: "release",

		EnvFile:        DefaultEnvFile,
		EnvExampleFile: DefaultEnvExampleFile,
		CriteriaFile:   DefaultCriteriaFile,

		SearchInterval:  time.Second,
		SessionRefresh:  30 * time.Minute,
		MaxAttempts:     0,
		ReserveOption:   string(models.GeneralFirst),
		AdultPassengers: 1,

		KorailBaseURL:     "https://smart.letskorail.com:443",
		RequestTimeout:    10 * time.Second,
		RequestsPerSecond: 4,

		TelegramAPIURL: "https://api.telegram.org",
	}
}

// Load loads configuration from defaults, the optional settings file and
// environment variables, in that order. A missing settings file is not an error.
func Load(settingsFile string) (*Config, error) {
	cfg := Defaults()

	if settingsFile == "" {
		settingsFile = getEnv("SETTINGS_FILE", DefaultSettingsFile)
	}
	if err := cfg.loadSettings(settingsFile); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadSettings(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse settings %s: %w", path, err)
	}
	log.Printf("Loaded settings from %s", path)
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("SERVER_ADDR", c.Addr)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)

	c.EnvFile = getEnv("ENV_FILE", c.EnvFile)
	c.EnvExampleFile = getEnv("ENV_EXAMPLE_FILE", c.EnvExampleFile)
	c.CriteriaFile = getEnv("SEARCH_CONFIGS_FILE", c.CriteriaFile)

	c.SearchInterval = getEnvDuration("SEARCH_INTERVAL", c.SearchInterval)
	c.SessionRefresh = getEnvDuration("SESSION_REFRESH_INTERVAL", c.SessionRefresh)
	c.MaxAttempts = getEnvInt("MAX_ATTEMPTS", c.MaxAttempts)
	c.ReserveOption = getEnv("RESERVE_OPTION", c.ReserveOption)
	c.AdultPassengers = getEnvInt("ADULT_PASSENGERS", c.AdultPassengers)

	c.KorailBaseURL = getEnv("KORAIL_BASE_URL", c.KorailBaseURL)
	c.RequestTimeout = getEnvDuration("KORAIL_REQUEST_TIMEOUT", c.RequestTimeout)
	c.RequestsPerSecond = getEnvFloat("KORAIL_REQUESTS_PER_SECOND", c.RequestsPerSecond)

	c.JournalURL = getEnv("JOURNAL_URL", c.JournalURL)
	c.TelegramAPIURL = getEnv("TELEGRAM_API_URL", c.TelegramAPIURL)
}

// Validate checks the settings that would otherwise fail late
func (c *Config) Validate() error {
	if err := checkLoopback(c.Addr); err != nil {
		return err
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown gin mode %q", c.GinMode)
	}
	if _, err := models.ParseReserveOption(c.ReserveOption); err != nil {
		return err
	}
	if c.SearchInterval <= 0 {
		return fmt.Errorf("search interval must be positive, got %s", c.SearchInterval)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max attempts must be >= 0, got %d", c.MaxAttempts)
	}
	if c.AdultPassengers < 1 {
		return fmt.Errorf("adult passengers must be >= 1, got %d", c.AdultPassengers)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %v", c.RequestsPerSecond)
	}
	return nil
}

// checkLoopback rejects listen addresses reachable from other hosts. The
// control panel has no authentication and serves credentials in plaintext.
func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("listen address %q is not a loopback address", addr)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("WARNING: ignoring %s=%q: %v", key, value, err)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("WARNING: ignoring %s=%q: %v", key, value, err)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("WARNING: ignoring %s=%q: %v", key, value, err)
		return defaultValue
	}
	return d
}

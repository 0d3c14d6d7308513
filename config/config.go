package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultAPIURL is the hosted recommendation service.
const DefaultAPIURL = "https://movie-recommend-api-1.onrender.com/api"

// Load loads the configuration from file, environment and .env.
// A missing config file is not an error unless configPath was given explicitly.
func Load(configPath string) (*Config, error) {
	// .env is optional; values already in the environment win
	_ = godotenv.Load()

	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix("REELPICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// API_URL mirrors the variable the web client was built with
	if err := v.BindEnv("api.url", "REELPICK_API_URL", "API_URL"); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".reelpick"))
		}

		// Check /etc
		v.AddConfigPath("/etc/reelpick/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && configPath == "":
			// defaults and environment only
		case errors.As(err, &notFound):
			return nil, fmt.Errorf("config file not found: %w", err)
		default:
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Session.Path == "" {
		cfg.Session.Path = defaultSessionPath()
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.url", DefaultAPIURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.user_agent", "reelpick")
	v.SetDefault("api.rating_scale", 10)

	// Paging defaults
	v.SetDefault("paging.movies_limit", 20)
	v.SetDefault("paging.recommendations_limit", 10)
	v.SetDefault("paging.hot_limit", 10)

	v.SetDefault("carousel.interval", 4*time.Second)

	v.SetDefault("mock.addr", ":8099")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

func defaultSessionPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".reelpick", "session")
	}
	return filepath.Join(os.TempDir(), "reelpick-session")
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	u, err := url.Parse(cfg.API.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.url: %s", cfg.API.URL)
	}

	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	if cfg.API.RatingScale != 5 && cfg.API.RatingScale != 10 {
		return fmt.Errorf("invalid api.rating_scale: %v (must be 5 or 10)", cfg.API.RatingScale)
	}

	if cfg.Paging.MoviesLimit <= 0 || cfg.Paging.RecommendationsLimit <= 0 || cfg.Paging.HotLimit <= 0 {
		return fmt.Errorf("paging limits must be positive")
	}

	if cfg.Carousel.Interval <= 0 {
		return fmt.Errorf("carousel.interval must be positive")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

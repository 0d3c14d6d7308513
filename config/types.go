package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Session  SessionConfig  `mapstructure:"session"`
	Paging   PagingConfig   `mapstructure:"paging"`
	Carousel CarouselConfig `mapstructure:"carousel"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Mock     MockConfig     `mapstructure:"mock"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig holds the recommendation service connection details
type APIConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	// RatingScale is the scale the server reports movie ratings on (5 or 10).
	RatingScale float64 `mapstructure:"rating_scale"`
}

// SessionConfig controls where the signed-in user is persisted
type SessionConfig struct {
	Path string `mapstructure:"path"`
}

// PagingConfig contains page sizes for the list views
type PagingConfig struct {
	MoviesLimit          int `mapstructure:"movies_limit"`
	RecommendationsLimit int `mapstructure:"recommendations_limit"`
	HotLimit             int `mapstructure:"hot_limit"`
}

// CarouselConfig contains hot movie slideshow settings
type CarouselConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// FilterConfig contains named filter presets
type FilterConfig struct {
	Presets map[string]string `mapstructure:"presets"`
}

// MockConfig contains settings for the local mock API server
type MockConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

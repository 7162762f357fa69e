package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"resizeimage-go/internal/codec"
	"resizeimage-go/internal/engine"
	"resizeimage-go/internal/resample"
)

// Config represents the main configuration structure
type Config struct {
	Tolerance float64       `mapstructure:"tolerance"`
	Engine    EngineConfig  `mapstructure:"engine"`
	Codec     CodecConfig   `mapstructure:"codec"`
	Output    OutputConfig  `mapstructure:"output"`
	Server    ServerConfig  `mapstructure:"server"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

// EngineConfig contains the convergence loop safety bounds
type EngineConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
	MinDimension  int `mapstructure:"min_dimension"`
}

// CodecConfig contains decode, resample and encode settings
type CodecConfig struct {
	Resampler      string `mapstructure:"resampler"`
	JPEGQuality    int    `mapstructure:"jpeg_quality"`
	PNGCompression string `mapstructure:"png_compression"`
	GIFNumColors   int    `mapstructure:"gif_num_colors"`
	AutoOrient     bool   `mapstructure:"auto_orient"`
}

// OutputConfig contains output file settings
type OutputConfig struct {
	Suffix           string `mapstructure:"suffix"`
	PreserveMetadata bool   `mapstructure:"preserve_metadata"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Port        int   `mapstructure:"port"`
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Tolerance: 5,
		Engine: EngineConfig{
			MaxIterations: engine.DefaultMaxIterations,
			MinDimension:  engine.DefaultMinDimension,
		},
		Codec: CodecConfig{
			Resampler:      resample.Default,
			JPEGQuality:    95,
			PNGCompression: "default",
			GIFNumColors:   256,
			AutoOrient:     true,
		},
		Output: OutputConfig{
			Suffix:           "_resized",
			PreserveMetadata: false,
		},
		Server: ServerConfig{
			Port:        8080,
			MaxUploadMB: 32,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "", // console only
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	return load(viper.New(), configPath)
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	config := DefaultConfig()

	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.resizeimage")
		v.AddConfigPath("/etc/resizeimage")
	}

	// Enable environment variable support
	v.SetEnvPrefix("RESIZEIMAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// bindEnv registers every key so AutomaticEnv works with Unmarshal even when no
// config file mentions it.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"tolerance",
		"engine.max_iterations", "engine.min_dimension",
		"codec.resampler", "codec.jpeg_quality", "codec.png_compression",
		"codec.gif_num_colors", "codec.auto_orient",
		"output.suffix", "output.preserve_metadata",
		"server.port", "server.max_upload_mb",
		"logging.level", "logging.file_path", "logging.max_size",
		"logging.max_backups", "logging.max_age", "logging.compress",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative: %v", c.Tolerance)
	}

	// Safety bounds
	if c.Engine.MaxIterations <= 0 {
		c.Engine.MaxIterations = engine.DefaultMaxIterations
	}
	if c.Engine.MinDimension <= 0 {
		c.Engine.MinDimension = engine.DefaultMinDimension
	}

	// Codec settings
	if c.Codec.Resampler == "" {
		c.Codec.Resampler = resample.Default
	}
	c.Codec.Resampler = strings.ToLower(c.Codec.Resampler)
	if _, err := resample.New(c.Codec.Resampler); err != nil {
		return err
	}
	if c.Codec.JPEGQuality == 0 {
		c.Codec.JPEGQuality = 95
	}
	if c.Codec.JPEGQuality < 1 || c.Codec.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg_quality: %d (valid: 1-100)", c.Codec.JPEGQuality)
	}
	if _, err := codec.ParsePNGCompression(c.Codec.PNGCompression); err != nil {
		return err
	}
	if c.Codec.GIFNumColors == 0 {
		c.Codec.GIFNumColors = 256
	}
	if c.Codec.GIFNumColors < 1 || c.Codec.GIFNumColors > 256 {
		return fmt.Errorf("invalid gif_num_colors: %d (valid: 1-256)", c.Codec.GIFNumColors)
	}

	if c.Output.Suffix == "" {
		c.Output.Suffix = "_resized"
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 32
	}

	// Validate logging settings
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// CodecOptions converts the codec section for codec.NewImagingCodec.
func (c *Config) CodecOptions() codec.Options {
	return codec.Options{
		Resampler:      c.Codec.Resampler,
		JPEGQuality:    c.Codec.JPEGQuality,
		PNGCompression: c.Codec.PNGCompression,
		GIFNumColors:   c.Codec.GIFNumColors,
		AutoOrient:     c.Codec.AutoOrient,
	}
}

// EngineOptions converts the engine section for engine.New.
func (c *Config) EngineOptions(tolerance float64, verbose bool) engine.Config {
	return engine.Config{
		TolerancePercent: tolerance,
		MaxIterations:    c.Engine.MaxIterations,
		MinDimension:     c.Engine.MinDimension,
		Verbose:          verbose,
	}
}

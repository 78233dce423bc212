package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Input format constants
	FormatAuto = "auto"
	FormatPDF  = "pdf"
	FormatRuns = "runs"

	// Default values
	DefaultOutputDir   = "."
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the standard converter CLI
type Config struct {
	// Input configuration
	InputPath string
	Format    string // "auto", "pdf", or "runs"

	// Output configuration
	OutputDir string

	// StandardID overrides the identifier derived from the filename and
	// cover page (e.g. "IAS_16")
	StandardID string

	// Application configuration
	Version     string
	LogLevel    string
	MaxFileSize int64 // Maximum input file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Format:      FormatAuto,
		OutputDir:   DefaultOutputDir,
		Version:     "1.0.0",
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// The input file may also be given as the first positional argument
	if cfg.InputPath == "" && pflag.NArg() > 0 {
		cfg.InputPath = pflag.Arg(0)
	}

	// Expand paths if needed
	if cfg.InputPath != "" {
		if expandedPath, err := filepath.Abs(cfg.InputPath); err == nil {
			cfg.InputPath = expandedPath
		}
	}
	if cfg.OutputDir != "" {
		if expandedPath, err := filepath.Abs(cfg.OutputDir); err == nil {
			cfg.OutputDir = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("STD2JSON")
	viper.AutomaticEnv()

	// Define flags with Viper
	viper.SetDefault("input", cfg.InputPath)
	viper.SetDefault("format", cfg.Format)
	viper.SetDefault("out", cfg.OutputDir)
	viper.SetDefault("standardid", cfg.StandardID)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("input", cfg.InputPath, "Input file: text-layer PDF or positioned-runs JSON")
	pflag.String("format", cfg.Format, "Input format: 'auto', 'pdf', or 'runs'")
	pflag.String("out", cfg.OutputDir, "Output directory for the document and QA JSON files")
	pflag.String("standardid", cfg.StandardID, "Standard identifier override (e.g. IAS_16)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum input file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("input", pflag.Lookup("input"))
	_ = viper.BindPFlag("format", pflag.Lookup("format"))
	_ = viper.BindPFlag("out", pflag.Lookup("out"))
	_ = viper.BindPFlag("standardid", pflag.Lookup("standardid"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nstandard2json - Convert a Hebrew financial-standard PDF into structured JSON\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s ias16.pdf                        # convert into the current directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input=ias16.pdf --out=build    # custom output directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --format=runs runs.json          # pre-extracted positioned runs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  STD2JSON_INPUT       Input file\n")
		fmt.Fprintf(os.Stderr, "  STD2JSON_FORMAT      Input format\n")
		fmt.Fprintf(os.Stderr, "  STD2JSON_OUT         Output directory\n")
		fmt.Fprintf(os.Stderr, "  STD2JSON_STANDARDID  Standard identifier override\n")
		fmt.Fprintf(os.Stderr, "  STD2JSON_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  STD2JSON_MAXFILESIZE Maximum file size\n")
		fmt.Fprintf(os.Stderr, "\nExit codes:\n")
		fmt.Fprintf(os.Stderr, "  0  selected candidate passed QA\n")
		fmt.Fprintf(os.Stderr, "  1  best candidate written but QA failed\n")
		fmt.Fprintf(os.Stderr, "  2  no candidate could be produced\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.InputPath = viper.GetString("input")
	cfg.Format = viper.GetString("format")
	cfg.OutputDir = viper.GetString("out")
	cfg.StandardID = viper.GetString("standardid")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate input
	if c.InputPath == "" {
		return errors.New("input file cannot be empty")
	}

	// Validate format
	if c.Format != FormatAuto && c.Format != FormatPDF && c.Format != FormatRuns {
		return fmt.Errorf("invalid format: %s (must be one of: auto, pdf, runs)", c.Format)
	}

	// Validate output directory, create if it doesn't exist
	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}
	if _, err := os.Stat(c.OutputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.OutputDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create output directory %s: %w", c.OutputDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access output directory %s: %w", c.OutputDir, err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ResolveFormat resolves FormatAuto against the input file extension
func (c *Config) ResolveFormat() string {
	if c.Format != FormatAuto {
		return c.Format
	}
	if filepath.Ext(c.InputPath) == ".json" {
		return FormatRuns
	}
	return FormatPDF
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{InputPath: %s, Format: %s, OutputDir: %s, StandardID: %s, LogLevel: %s, MaxFileSize: %d}",
		c.InputPath, c.Format, c.OutputDir, c.StandardID, c.LogLevel, c.MaxFileSize)
}

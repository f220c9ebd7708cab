// Package config provides configuration loading and validation for treedump.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidFormat      = errors.New("invalid artifact format")
	ErrInvalidWorkers     = errors.New("workers must be positive")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidMaxFileSize = errors.New("invalid max file size")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
	ErrEmptyGrammar       = errors.New("default grammar is empty")
)

// EnvPrefix prefixes environment overrides, e.g. TREEDUMP_PARSE_GRAMMAR.
const EnvPrefix = "TREEDUMP"

// artifactSuffix is appended to the grammar name for the default artifact.
const artifactSuffix = "_ast"

// Config holds all configuration for treedump.
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Parse     ParseConfig     `mapstructure:"parse"`
}

// PathsConfig holds filesystem locations. Relative entries are resolved
// against RepoRoot by LoadConfig.
type PathsConfig struct {
	RepoRoot     string `mapstructure:"repo_root"`
	TempDir      string `mapstructure:"temp_dir"`
	DataDir      string `mapstructure:"data_dir"`
	CodeNetRoot  string `mapstructure:"codenet_root"`
	CorpusOutput string `mapstructure:"corpus_output"`
}

// ParseConfig holds parsing and artifact settings.
type ParseConfig struct {
	Grammar     string `mapstructure:"grammar"`
	Format      string `mapstructure:"format"`
	MaxFileSize string `mapstructure:"max_file_size"`
	Workers     int    `mapstructure:"workers"`
	Compress    bool   `mapstructure:"compress"`
}

// ExtractConfig selects the language pair for the CodeNet extractor.
type ExtractConfig struct {
	SourceLanguage string `mapstructure:"source_language"`
	SourceExt      string `mapstructure:"source_ext"`
	TargetLanguage string `mapstructure:"target_language"`
	TargetExt      string `mapstructure:"target_ext"`
	Status         string `mapstructure:"status"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds tracing and metrics export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	MetricsFile  string  `mapstructure:"metrics_file"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from file and environment variables. An
// empty configPath searches for treedump.yaml in . and ./config and falls
// back to defaults when none is found.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("treedump")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	config.Paths.resolve()

	return &config, nil
}

// Default returns the configuration LoadConfig yields without a file or
// environment overrides.
func Default() *Config {
	viperCfg := viper.New()
	setDefaults(viperCfg)

	var config Config

	_ = viperCfg.Unmarshal(&config) //nolint:errcheck // defaults always decode

	config.Paths.resolve()

	return &config
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Path defaults.
	viperCfg.SetDefault("paths.repo_root", DefaultRepoRoot)
	viperCfg.SetDefault("paths.temp_dir", DefaultTempDir)
	viperCfg.SetDefault("paths.data_dir", DefaultDataDir)
	viperCfg.SetDefault("paths.codenet_root", DefaultCodeNetRoot)
	viperCfg.SetDefault("paths.corpus_output", DefaultCorpusOutput)

	// Parse defaults.
	viperCfg.SetDefault("parse.grammar", DefaultGrammar)
	viperCfg.SetDefault("parse.format", DefaultFormat)
	viperCfg.SetDefault("parse.compress", DefaultCompress)
	viperCfg.SetDefault("parse.workers", DefaultWorkers)
	viperCfg.SetDefault("parse.max_file_size", DefaultMaxFileSize)

	// Extract defaults.
	viperCfg.SetDefault("extract.source_language", DefaultSourceLanguage)
	viperCfg.SetDefault("extract.source_ext", DefaultSourceExt)
	viperCfg.SetDefault("extract.target_language", DefaultTargetLanguage)
	viperCfg.SetDefault("extract.target_ext", DefaultTargetExt)
	viperCfg.SetDefault("extract.status", DefaultStatus)

	// Logging defaults.
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	// Telemetry defaults.
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_file", "")
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if strings.TrimSpace(config.Parse.Grammar) == "" {
		return ErrEmptyGrammar
	}

	switch strings.ToLower(config.Parse.Format) {
	case "json", "yaml":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Parse.Format)
	}

	if config.Parse.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Parse.Workers)
	}

	_, sizeErr := config.Parse.MaxFileSizeBytes()
	if sizeErr != nil {
		return sizeErr
	}

	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	switch strings.ToLower(config.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, config.Telemetry.SampleRatio)
	}

	return nil
}

// MaxFileSizeBytes parses MaxFileSize ("10MB", "512KiB"). Zero means no limit.
func (p ParseConfig) MaxFileSizeBytes() (uint64, error) {
	if p.MaxFileSize == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(p.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidMaxFileSize, p.MaxFileSize, err)
	}

	return size, nil
}

func (p *PathsConfig) resolve() {
	root := p.RepoRoot
	if root == "" {
		root = DefaultRepoRoot
	}

	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	p.RepoRoot = root
	p.TempDir = p.join(p.TempDir)
	p.DataDir = p.join(p.DataDir)
	p.CodeNetRoot = p.join(p.CodeNetRoot)
	p.CorpusOutput = p.join(p.CorpusOutput)
}

func (p *PathsConfig) join(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(p.RepoRoot, path)
}

// ArtifactPath returns the default artifact location for a grammar,
// <temp_dir>/<grammar>_ast<ext>.
func (p PathsConfig) ArtifactPath(grammar, ext string) string {
	return filepath.Join(p.TempDir, grammar+artifactSuffix+ext)
}
